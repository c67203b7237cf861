package hydrate

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/goliatone/go-argstore"
)

type paintArgs struct {
	Color   string   `json:"color"`
	Size    int      `json:"size"`
	Layers  []string `json:"layers,omitempty"`
	Opacity float64  `json:"opacity,omitempty"`
}

var paint = Context{Key: argstore.Named("paint")}

func TestDecodeRecord(t *testing.T) {
	decoder := NewDecoder[paintArgs]()
	got, err := decoder.Decode(paint, argstore.Record{
		"color":  "blue",
		"size":   3,
		"layers": []any{"base", "top"},
		"extra":  true,
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := paintArgs{Color: "blue", Size: 3, Layers: []string{"base", "top"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("decoded mismatch:\nwant: %#v\n got: %#v", want, got)
	}
}

func TestDecodeNilRecord(t *testing.T) {
	got, err := NewDecoder[paintArgs]().Decode(Context{}, nil)
	if err != nil {
		t.Fatalf("decode nil: %v", err)
	}
	if !reflect.DeepEqual(got, paintArgs{}) {
		t.Fatalf("expected zero value, got %#v", got)
	}
}

func TestDecodeErrorNamesTheCall(t *testing.T) {
	ctx := Context{Key: argstore.Named("paint"), EntryPoint: "paintNow"}
	_, err := NewDecoder[paintArgs]().Decode(ctx, argstore.Record{"size": "large"})

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %T", err)
	}
	if decodeErr.Stage != StageDecode || decodeErr.Key != argstore.Named("paint") || decodeErr.EntryPoint != "paintNow" {
		t.Fatalf("unexpected error fields %+v", decodeErr)
	}
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("expected wrapped UnmarshalTypeError, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), `hydrate: decode "paint" via paintNow: `) {
		t.Fatalf("unexpected message %q", err.Error())
	}

	_, err = NewDecoder[paintArgs]().Decode(Context{Key: argstore.Wildcard}, argstore.Record{"size": "large"})
	if err == nil || !strings.HasPrefix(err.Error(), "hydrate: decode <wildcard>: ") {
		t.Fatalf("wildcard key should be named, got %v", err)
	}
}

func TestDisallowUnknownFields(t *testing.T) {
	decoder := NewDecoder[paintArgs](WithDisallowUnknownFields[paintArgs]())
	_, err := decoder.Decode(paint, argstore.Record{"color": "red", "brush": "flat"})
	if err == nil || !strings.Contains(err.Error(), "brush") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestUseNumber(t *testing.T) {
	decoder := NewDecoder[map[string]any](WithUseNumber[map[string]any]())
	got, err := decoder.Decode(Context{}, argstore.Record{"size": 3})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := got["size"].(json.Number); !ok {
		t.Fatalf("expected json.Number, got %T", got["size"])
	}
}

func TestRequiredArgs(t *testing.T) {
	rename := func(_ Context, record argstore.Record) (argstore.Record, error) {
		if colour, ok := record["colour"]; ok {
			record["color"] = colour
		}
		return record, nil
	}
	decoder := NewDecoder[paintArgs](
		WithPreHook[paintArgs](rename),
		WithRequired[paintArgs]("size", "color"),
	)

	_, err := decoder.Decode(paint, argstore.Record{"opacity": 0.5})
	if !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument, got %v", err)
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.Stage != StageRequire {
		t.Fatalf("expected require stage, got %v", err)
	}
	if !strings.HasSuffix(err.Error(), "missing argument: color, size") {
		t.Fatalf("missing names should be listed sorted, got %q", err.Error())
	}

	got, err := decoder.Decode(paint, argstore.Record{"colour": "green", "size": nil})
	if err != nil {
		t.Fatalf("pre-hook renames and null values should satisfy the requirement: %v", err)
	}
	if got.Color != "green" {
		t.Fatalf("unexpected decode %#v", got)
	}
}

func TestHooksRunAroundDecoding(t *testing.T) {
	pre := func(_ Context, record argstore.Record) (argstore.Record, error) {
		if color, ok := record["colour"]; ok {
			record["color"] = color
			delete(record, "colour")
		}
		return record, nil
	}
	post := func(_ Context, args *paintArgs) error {
		if args.Size == 0 {
			args.Size = 1
		}
		if args.Color == "" {
			return errors.New("color required")
		}
		return nil
	}
	decoder := NewDecoder[paintArgs](
		WithPreHook[paintArgs](pre),
		WithPostHook[paintArgs](post),
	)

	got, err := decoder.Decode(paint, argstore.Record{"colour": "green"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Color != "green" || got.Size != 1 {
		t.Fatalf("hooks not applied: %#v", got)
	}

	_, err = decoder.Decode(paint, argstore.Record{})
	if err == nil || err.Error() != `hydrate: post-hook "paint": color required` {
		t.Fatalf("expected post-hook failure, got %v", err)
	}
}

func TestPreHookDoesNotMutateInput(t *testing.T) {
	input := argstore.Record{"color": "red", "style": map[string]any{"weight": "bold"}}
	decoder := NewDecoder[paintArgs](WithPreHook[paintArgs](func(_ Context, record argstore.Record) (argstore.Record, error) {
		record["color"] = "changed"
		record["style"].(map[string]any)["weight"] = "light"
		return record, nil
	}))
	if _, err := decoder.Decode(Context{}, input); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if input["color"] != "red" || input["style"].(map[string]any)["weight"] != "bold" {
		t.Fatalf("pre-hook mutated caller record: %#v", input)
	}
}

func TestCustomDecoder(t *testing.T) {
	decoder := NewDecoder[string](WithCustomDecoder[string](func(ctx Context, record argstore.Record) (string, error) {
		return ctx.Key.Name() + ":" + record["color"].(string), nil
	}))
	got, err := decoder.Decode(paint, argstore.Record{"color": "red"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != "paint:red" {
		t.Fatalf("unexpected custom result %q", got)
	}

	failing := NewDecoder[string](WithCustomDecoder[string](func(Context, argstore.Record) (string, error) {
		return "partial", errors.New("nope")
	}))
	got, err = failing.Decode(Context{EntryPoint: "render"}, argstore.Record{})
	if err == nil || err.Error() != `hydrate: decode "" via render: nope` {
		t.Fatalf("expected custom decoder failure, got %v", err)
	}
	if got != "" {
		t.Fatalf("failed decode should return the zero value, got %q", got)
	}
}
