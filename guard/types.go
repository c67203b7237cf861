package guard

import (
	"sort"
	"sync"
	"time"
)

// RuleContext carries the inputs an expression is evaluated against.
type RuleContext struct {
	// Function is the function the arguments were resolved for.
	Function string
	// EntryPoint names the dispatcher entry point that triggered the check,
	// empty outside a dispatcher call.
	EntryPoint string
	// Args is the effective argument record.
	Args     map[string]any
	Metadata map[string]any
	Now      *time.Time
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaults()
	return *ctx.Now
}

// environment exposes every argument at the top level plus the reserved
// names now, args, fn and metadata. Reserved names win over arguments.
func (ctx RuleContext) environment() map[string]any {
	env := make(map[string]any, len(ctx.Args)+4)
	for key, value := range ctx.Args {
		env[key] = value
	}
	env["now"] = ctx.timestamp()
	env["args"] = ctx.Args
	env["fn"] = ctx.Function
	env["metadata"] = ctx.Metadata
	return env
}

func (ctx RuleContext) argNames() []string {
	names := make([]string, 0, len(ctx.Args))
	for key := range ctx.Args {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MapCache is an unbounded ProgramCache backed by a map.
type MapCache struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewMapCache constructs an empty MapCache.
func NewMapCache() *MapCache {
	return &MapCache{entries: map[string]any{}}
}

func (c *MapCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.entries[key]
	return value, ok
}

func (c *MapCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string]any{}
	}
	c.entries[key] = value
}

// Len returns the number of cached programs.
func (c *MapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
