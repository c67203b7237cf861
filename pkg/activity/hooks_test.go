package activity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	evt := Event{
		Verb:       " args.set ",
		ActorID:    " actor ",
		UserID:     " user ",
		ObjectType: " args.record ",
		ObjectID:   " paint ",
		Channel:    " args ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)
	if got.Verb != "args.set" || got.ObjectType != "args.record" || got.ObjectID != "paint" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.UserID != "user" || got.Channel != "args" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
}

func TestHooksDropUnroutableEvents(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	for _, evt := range []Event{
		{},
		{Verb: VerbArgSet, ObjectType: ObjectTypeRecord},
		{Verb: "  ", ObjectType: ObjectTypeRecord, ObjectID: "paint"},
	} {
		if err := hooks.Notify(context.Background(), evt); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
	if !(Event{Verb: VerbArgSet, ObjectType: ObjectTypeRecord, ObjectID: "_"}).Routable() {
		t.Fatalf("expected wildcard record event to be routable")
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	capture := &CaptureHook{}
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, event Event) error {
			if ctx != nil {
				ctxSeen = true
			}
			return nil
		}),
		capture,
		HookFunc(func(context.Context, Event) error { return boom1 }),
		nil,
		HookFunc(func(context.Context, Event) error { return boom2 }),
	}

	err := hooks.Notify(nil, Event{Verb: VerbArgSet, ObjectType: ObjectTypeRecord, ObjectID: "paint"})
	if !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !strings.Contains(err.Error(), "activity hook 2 (args.set)") {
		t.Fatalf("expected hook position in error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected event to be captured once, got %d", len(capture.Events))
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), Event{Verb: VerbArgSet, ObjectType: ObjectTypeRecord, ObjectID: "f"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true, ActorID: "plugin-a"})
	if err := enabled.Emit(context.Background(), Event{Verb: VerbArgSet, ObjectType: ObjectTypeRecord, ObjectID: "f"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	last, ok := capture.Last()
	if !ok {
		t.Fatalf("expected one event captured")
	}
	if last.Channel != DefaultChannel {
		t.Fatalf("expected default channel applied, got %q", last.Channel)
	}
	if last.ActorID != "plugin-a" {
		t.Fatalf("expected default actor applied, got %q", last.ActorID)
	}
}

func TestEmitterPreservesExplicitFields(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "default", ActorID: "fallback"})
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := emitter.Emit(context.Background(), Event{
		Verb:       VerbArgsPatched,
		ActorID:    "explicit",
		ObjectType: ObjectTypeRecord,
		ObjectID:   "f",
		Channel:    "custom",
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	got := capture.Events[0]
	if got.Channel != "custom" || got.ActorID != "explicit" {
		t.Fatalf("expected explicit channel/actor preserved, got %q/%q", got.Channel, got.ActorID)
	}
	if !got.OccurredAt.Equal(at) {
		t.Fatalf("expected occurred_at preserved, got %v", got.OccurredAt)
	}
}
