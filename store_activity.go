package argstore

import (
	"context"

	"github.com/goliatone/go-argstore/pkg/activity"
)

// WithActivityHooks attaches activity hooks notified after every mutation.
// Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *storeConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *storeConfig) {
		cfg.channel = channel
	}
}

// WithActor records actorID on every emitted event.
func WithActor(actorID string) Option {
	return func(cfg *storeConfig) {
		cfg.actorID = actorID
	}
}

// ActivityHooks returns a copy of the configured hooks.
func (s *Store) ActivityHooks() activity.Hooks {
	if s == nil {
		return nil
	}
	return cloneActivityHooks(s.cfg.activityHooks)
}

// activityEmitter turns store mutations into activity events. Hook failures
// are logged; a mutation never fails because a hook did.
type activityEmitter struct {
	emitter *activity.Emitter
	logger  Logger
	actorID string
}

func newActivityEmitter(cfg storeConfig) *activityEmitter {
	return &activityEmitter{
		emitter: activity.NewEmitter(cfg.activityHooks, activity.Config{
			Enabled: len(cfg.activityHooks) > 0,
			Channel: cfg.channel,
		}),
		logger:  cfg.logger,
		actorID: cfg.actorID,
	}
}

func (e *activityEmitter) argSet(function, name string, previous any, existed bool, value any) {
	if e == nil || !e.emitter.Enabled() {
		return
	}
	input := activity.ArgEventInput{
		ActorID:  e.actorID,
		Function: function,
		Name:     name,
		NewValue: value,
	}
	if existed {
		input.OldValue = previous
	}
	e.emit(activity.BuildArgSetEvent(input))
}

func (e *activityEmitter) argsPatched(functions []string, mode PatchMode) {
	if e == nil || !e.emitter.Enabled() {
		return
	}
	e.emit(activity.BuildArgsPatchedEvent(activity.ArgEventInput{
		ActorID:   e.actorID,
		Functions: functions,
		PatchMode: mode.String(),
	}))
}

func (e *activityEmitter) emit(event activity.Event) {
	if err := e.emitter.Emit(context.Background(), event); err != nil {
		e.logger.Warn("args activity hook failed", "verb", event.Verb, "error", err)
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
