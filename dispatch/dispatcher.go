// Package dispatch exposes an argstore.Store through named entry points that
// accept untyped input, and binds consumer logic to validated effective
// arguments. A host runtime maps each entry point name onto its own remote
// procedure mechanism.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-argstore"
	"github.com/goliatone/go-argstore/pkg/activity"
)

// Handler is an entry point. Input arrives as host-marshalled untyped data.
type Handler func(ctx context.Context, input any) (any, error)

// Option configures a Dispatcher.
type Option func(*dispatcherConfig)

type dispatcherConfig struct {
	logger      argstore.Logger
	hooks       activity.Hooks
	hooksSet    bool
	channel     string
	actorID     string
	newID       func() string
	skipBuiltin bool
}

// WithLogger overrides the store logger for dispatch logs.
func WithLogger(logger argstore.Logger) Option {
	return func(cfg *dispatcherConfig) {
		cfg.logger = logger
	}
}

// WithActivityHooks overrides the hooks notified after each call. By default
// the store's hooks are reused.
func WithActivityHooks(hooks activity.Hooks) Option {
	return func(cfg *dispatcherConfig) {
		cfg.hooks = hooks
		cfg.hooksSet = true
	}
}

// WithActivityChannel overrides the channel stamped on dispatch events.
func WithActivityChannel(channel string) Option {
	return func(cfg *dispatcherConfig) {
		cfg.channel = channel
	}
}

// WithActor records actorID on dispatch events.
func WithActor(actorID string) Option {
	return func(cfg *dispatcherConfig) {
		cfg.actorID = actorID
	}
}

// WithoutStoreEntryPoints leaves the dispatcher empty so a host can expose
// only bound functions.
func WithoutStoreEntryPoints() Option {
	return func(cfg *dispatcherConfig) {
		cfg.skipBuiltin = true
	}
}

// Dispatcher maps entry point names to handlers.
type Dispatcher struct {
	store    *argstore.Store
	handlers map[string]Handler
	logger   argstore.Logger
	emitter  *activity.Emitter
	actorID  string
	newID    func() string
}

// NewDispatcher builds a dispatcher over store with setFuncArg,
// patchFuncArgs, patchArgs, getArgs and describeArgs registered.
func NewDispatcher(store *argstore.Store, opts ...Option) *Dispatcher {
	if store == nil {
		store = argstore.New()
	}
	cfg := dispatcherConfig{newID: uuid.NewString}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = store.Logger()
	}
	if !cfg.hooksSet {
		cfg.hooks = store.ActivityHooks()
	}

	d := &Dispatcher{
		store:    store,
		handlers: map[string]Handler{},
		logger:   cfg.logger,
		emitter: activity.NewEmitter(cfg.hooks, activity.Config{
			Enabled: len(cfg.hooks) > 0,
			Channel: cfg.channel,
			ActorID: cfg.actorID,
		}),
		actorID: cfg.actorID,
		newID:   cfg.newID,
	}
	if !cfg.skipBuiltin {
		registerStoreEntryPoints(d)
	}
	return d
}

// Store returns the store the dispatcher writes to.
func (d *Dispatcher) Store() *argstore.Store {
	return d.store
}

// Register adds handler under name.
func (d *Dispatcher) Register(name string, handler Handler) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("dispatch: entry point name must not be empty")
	}
	if handler == nil {
		return fmt.Errorf("dispatch: entry point %q has a nil handler", name)
	}
	if _, exists := d.handlers[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateEntryPoint, name)
	}
	d.handlers[name] = handler
	return nil
}

// Names returns the registered entry point names in lexical order.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handlers returns a copy of the name to handler map for hosts that install
// entry points themselves. Handlers obtained this way bypass call logging.
func (d *Dispatcher) Handlers() map[string]Handler {
	out := make(map[string]Handler, len(d.handlers))
	for name, handler := range d.handlers {
		out[name] = handler
	}
	return out
}

// CallInfo identifies the dispatcher call a handler runs in.
type CallInfo struct {
	EntryPoint   string
	InvocationID string
}

type callInfoKey struct{}

// CallInfoFromContext returns the CallInfo Call attached to ctx.
func CallInfoFromContext(ctx context.Context) (CallInfo, bool) {
	if ctx == nil {
		return CallInfo{}, false
	}
	info, ok := ctx.Value(callInfoKey{}).(CallInfo)
	return info, ok
}

// Call invokes the entry point registered under name. The handler's context
// carries the entry point and invocation id (see CallInfoFromContext).
func (d *Dispatcher) Call(ctx context.Context, name string, input any) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	handler, ok := d.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntryPoint, name)
	}

	invocationID := d.newID()
	ctx = context.WithValue(ctx, callInfoKey{}, CallInfo{EntryPoint: name, InvocationID: invocationID})
	start := time.Now()
	result, err := handler(ctx, input)
	elapsed := time.Since(start)

	if err != nil {
		d.logger.Warn("dispatch call failed", "entry_point", name, "invocation_id", invocationID, "duration", elapsed, "error", err)
	} else {
		d.logger.Debug("dispatch call", "entry_point", name, "invocation_id", invocationID, "duration", elapsed)
	}
	d.emit(ctx, activity.DispatchEventInput{
		ActorID:      d.actorID,
		EntryPoint:   name,
		InvocationID: invocationID,
		Duration:     elapsed,
		Err:          err,
	})
	return result, err
}

func (d *Dispatcher) emit(ctx context.Context, input activity.DispatchEventInput) {
	if !d.emitter.Enabled() {
		return
	}
	event := activity.BuildDispatchEvent(input)
	if err := d.emitter.Emit(ctx, event); err != nil {
		d.logger.Warn("dispatch activity hook failed", "verb", event.Verb, "error", err)
	}
}
