package argstore

import (
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-argstore/pkg/activity"
)

func TestStoreEmitsActivityEvents(t *testing.T) {
	capture := &activity.CaptureHook{}
	store := New(
		WithActivityHooks(activity.Hooks{capture}),
		WithActor("user-1"),
		WithActivityChannel("editor"),
	)

	store.SetFuncArg(Named("paint"), "color", "red")
	store.SetFuncArg(Named("paint"), "color", "blue")
	store.PatchArgs(map[Key]Record{Wildcard: {"size": 1}, Named("stroke"): {"width": 2}})

	want := []string{activity.VerbArgSet, activity.VerbArgSet, activity.VerbArgsPatched}
	if got := capture.Verbs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("verbs = %v, want %v", got, want)
	}

	second := capture.Events[1]
	if second.ActorID != "user-1" || second.Channel != "editor" {
		t.Fatalf("unexpected actor/channel %+v", second)
	}
	if second.Metadata["old_value"] != "red" || second.Metadata["new_value"] != "blue" {
		t.Fatalf("unexpected metadata %+v", second.Metadata)
	}

	last, _ := capture.Last()
	if !reflect.DeepEqual(last.Metadata["functions"], []string{"_", "stroke"}) {
		t.Fatalf("unexpected patched functions %#v", last.Metadata["functions"])
	}
	if last.Metadata["patch_mode"] != "spread" {
		t.Fatalf("unexpected patch mode %#v", last.Metadata["patch_mode"])
	}
}

func TestStoreWithoutHooksEmitsNothing(t *testing.T) {
	store := New(WithActivityHooks(activity.Hooks{nil}))
	if store.ActivityHooks() != nil {
		t.Fatalf("nil hooks should be dropped")
	}
	store.SetFuncArg(Named("f"), "a", 1)
}

func TestHookFailureIsLoggedNotReturned(t *testing.T) {
	capture := &activity.CaptureHook{Err: errors.New("sink down")}
	logger := &captureLogger{}
	store := New(WithActivityHooks(activity.Hooks{capture}), WithLogger(logger))

	store.SetFuncArg(Named("f"), "a", 1)

	if got := store.GetArgs(Named("f"), nil); got["a"] != 1 {
		t.Fatalf("mutation should succeed despite hook failure")
	}
	if !logger.has("warn", "args activity hook failed") {
		t.Fatalf("expected warning log, got %+v", logger.entries)
	}
}
