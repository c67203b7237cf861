package guard

// EngineOption configures any of the expression engines.
type EngineOption func(*engineConfig)

type engineConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// WithProgramCache reuses compiled programs across evaluations.
func WithProgramCache(cache ProgramCache) EngineOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry exposes the registry's functions to expressions, both
// by name and through call(name, args...). The registry is copied.
func WithFunctionRegistry(registry *FunctionRegistry) EngineOption {
	return func(cfg *engineConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

func applyEngineOptions(opts []EngineOption) engineConfig {
	cfg := engineConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (cfg engineConfig) cached(key string) (any, bool) {
	if cfg.cache == nil {
		return nil, false
	}
	return cfg.cache.Get(key)
}

func (cfg engineConfig) store(key string, program any) {
	if cfg.cache != nil {
		cfg.cache.Set(key, program)
	}
}

// callables returns the registry functions keyed by name plus the generic
// call(name, args...) entry.
func (cfg engineConfig) callables() map[string]any {
	if cfg.registry == nil {
		return nil
	}
	registry := cfg.registry
	out := map[string]any{
		"call": func(name string, arguments ...any) (any, error) {
			return registry.Call(name, arguments...)
		},
	}
	for _, name := range registry.Names() {
		fn := name
		out[fn] = func(arguments ...any) (any, error) {
			return registry.Call(fn, arguments...)
		}
	}
	return out
}
