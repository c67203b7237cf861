package dispatch

import (
	"context"

	"github.com/goliatone/go-argstore"
)

// Names of the store entry points registered by NewDispatcher.
const (
	EntrySetFuncArg    = "setFuncArg"
	EntryPatchFuncArgs = "patchFuncArgs"
	EntryPatchArgs     = "patchArgs"
	EntryGetArgs       = "getArgs"
	EntryDescribeArgs  = "describeArgs"
)

// SetFuncArgHandler accepts {key, name, value}. The value may be anything,
// including null, but must be present.
func SetFuncArgHandler(store *argstore.Store) Handler {
	return func(_ context.Context, input any) (any, error) {
		object, err := decodeObject(EntrySetFuncArg, input)
		if err != nil {
			return nil, err
		}
		key, err := stringField(EntrySetFuncArg, object, "key")
		if err != nil {
			return nil, err
		}
		name, err := stringField(EntrySetFuncArg, object, "name")
		if err != nil {
			return nil, err
		}
		value, ok := object["value"]
		if !ok {
			return nil, invalid(EntrySetFuncArg, "value", "is required")
		}
		store.SetFuncArg(store.ParseKey(key), name, value)
		return nil, nil
	}
}

// PatchFuncArgsHandler accepts {key, args}.
func PatchFuncArgsHandler(store *argstore.Store) Handler {
	return func(_ context.Context, input any) (any, error) {
		object, err := decodeObject(EntryPatchFuncArgs, input)
		if err != nil {
			return nil, err
		}
		key, err := stringField(EntryPatchFuncArgs, object, "key")
		if err != nil {
			return nil, err
		}
		partial, err := recordField(EntryPatchFuncArgs, object, "args", true)
		if err != nil {
			return nil, err
		}
		store.PatchFuncArgs(store.ParseKey(key), partial)
		return nil, nil
	}
}

// PatchArgsHandler accepts {args: {key: {name: value}}}. Every record is
// validated before any is applied.
func PatchArgsHandler(store *argstore.Store) Handler {
	return func(_ context.Context, input any) (any, error) {
		object, err := decodeObject(EntryPatchArgs, input)
		if err != nil {
			return nil, err
		}
		keyed, err := keyedRecordsField(EntryPatchArgs, object, "args", store)
		if err != nil {
			return nil, err
		}
		store.PatchArgs(keyed)
		return nil, nil
	}
}

// GetArgsHandler accepts {key, override?} and returns the effective record.
func GetArgsHandler(store *argstore.Store) Handler {
	return func(_ context.Context, input any) (any, error) {
		key, override, err := keyAndOverride(EntryGetArgs, input)
		if err != nil {
			return nil, err
		}
		return store.GetArgs(store.ParseKey(key), override), nil
	}
}

// DescribeArgsHandler accepts {key, override?} and returns the field
// descriptors of the effective record.
func DescribeArgsHandler(store *argstore.Store) Handler {
	return func(_ context.Context, input any) (any, error) {
		key, override, err := keyAndOverride(EntryDescribeArgs, input)
		if err != nil {
			return nil, err
		}
		return store.Describe(store.ParseKey(key), override), nil
	}
}

func keyAndOverride(entryPoint string, input any) (string, argstore.Record, error) {
	object, err := decodeObject(entryPoint, input)
	if err != nil {
		return "", nil, err
	}
	key, err := stringField(entryPoint, object, "key")
	if err != nil {
		return "", nil, err
	}
	override, err := recordField(entryPoint, object, "override", false)
	if err != nil {
		return "", nil, err
	}
	return key, override, nil
}

func registerStoreEntryPoints(d *Dispatcher) {
	store := d.store
	d.handlers[EntrySetFuncArg] = SetFuncArgHandler(store)
	d.handlers[EntryPatchFuncArgs] = PatchFuncArgsHandler(store)
	d.handlers[EntryPatchArgs] = PatchArgsHandler(store)
	d.handlers[EntryGetArgs] = GetArgsHandler(store)
	d.handlers[EntryDescribeArgs] = DescribeArgsHandler(store)
}
