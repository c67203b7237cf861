package activity

import (
	"strings"
	"time"
)

const (
	VerbArgSet            = "args.set"
	VerbArgsPatched       = "args.patched"
	VerbDispatchSucceeded = "args.dispatch.succeeded"
	VerbDispatchFailed    = "args.dispatch.failed"

	ObjectTypeRecord     = "args.record"
	ObjectTypeEntryPoint = "args.entrypoint"
)

// ArgEventInput describes a store mutation.
type ArgEventInput struct {
	ActorID    string
	Function   string
	Functions  []string
	Name       string
	OldValue   any
	NewValue   any
	PatchMode  string
	Metadata   map[string]any
	OccurredAt time.Time
}

// DispatchEventInput describes one entry point invocation.
type DispatchEventInput struct {
	ActorID      string
	EntryPoint   string
	InvocationID string
	Duration     time.Duration
	Err          error
	Metadata     map[string]any
	OccurredAt   time.Time
}

// BuildArgSetEvent constructs the event for a single argument write.
func BuildArgSetEvent(input ArgEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Name != "" {
		metadata = ensureMetadata(metadata)
		metadata["name"] = input.Name
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}
	return Event{
		Verb:       VerbArgSet,
		ActorID:    strings.TrimSpace(input.ActorID),
		ObjectType: ObjectTypeRecord,
		ObjectID:   recordObjectID(input),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// BuildArgsPatchedEvent constructs the event for a patch of one or more
// records.
func BuildArgsPatchedEvent(input ArgEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if len(input.Functions) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["functions"] = append([]string{}, input.Functions...)
	}
	if input.PatchMode != "" {
		metadata = ensureMetadata(metadata)
		metadata["patch_mode"] = input.PatchMode
	}
	return Event{
		Verb:       VerbArgsPatched,
		ActorID:    strings.TrimSpace(input.ActorID),
		ObjectType: ObjectTypeRecord,
		ObjectID:   recordObjectID(input),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// BuildDispatchEvent constructs the event for an entry point invocation. The
// verb reflects whether the call failed.
func BuildDispatchEvent(input DispatchEventInput) Event {
	verb := VerbDispatchSucceeded
	metadata := cloneMap(input.Metadata)
	if input.Err != nil {
		verb = VerbDispatchFailed
		metadata = ensureMetadata(metadata)
		metadata["error"] = input.Err.Error()
	}
	if input.InvocationID != "" {
		metadata = ensureMetadata(metadata)
		metadata["invocation_id"] = input.InvocationID
	}
	if input.Duration > 0 {
		metadata = ensureMetadata(metadata)
		metadata["duration_ms"] = input.Duration.Milliseconds()
	}
	objectID := strings.TrimSpace(input.EntryPoint)
	if objectID == "" {
		objectID = ObjectTypeEntryPoint
	}
	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		ObjectType: ObjectTypeEntryPoint,
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func recordObjectID(input ArgEventInput) string {
	if id := strings.TrimSpace(input.Function); id != "" {
		return id
	}
	if len(input.Functions) == 1 {
		if id := strings.TrimSpace(input.Functions[0]); id != "" {
			return id
		}
	}
	if len(input.Functions) > 1 {
		return strings.Join(input.Functions, ",")
	}
	return ObjectTypeRecord
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
