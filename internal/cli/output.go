package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goliatone/go-argstore"
)

// CLIResponse is the JSON envelope written with --format json.
type CLIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// OutputFormatter handles JSON vs text output for commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Success writes data as a JSON envelope, or calls text for human output.
func (f *OutputFormatter) Success(data any, text func(io.Writer) error) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	return text(f.Writer)
}

func (o *RootOptions) formatter(w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: w}
}

// writeRecord prints one `name = value` line per argument, sorted by name.
func writeRecord(w io.Writer, record argstore.Record) error {
	if len(record) == 0 {
		_, err := fmt.Fprintln(w, "(no arguments)")
		return err
	}
	names := make([]string, 0, len(record))
	for name := range record {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s = %s\n", name, formatValue(record[name])); err != nil {
			return err
		}
	}
	return nil
}

func formatValue(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(encoded)
}

// parseValue reads text as JSON, falling back to the raw string so that
// `red` and `"red"` both mean the string red.
func parseValue(text string) any {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return text
	}
	return value
}

// parseObject reads text as a JSON object.
func parseObject(what, text string) (argstore.Record, error) {
	var record map[string]any
	if err := json.Unmarshal([]byte(text), &record); err != nil || record == nil {
		return nil, Userf("%s must be a JSON object, got %q", what, text)
	}
	return argstore.Record(record), nil
}

// buildOverride combines --override JSON with repeated --set name=value
// pairs; --set wins.
func buildOverride(overrideJSON string, pairs []string) (argstore.Record, error) {
	var override argstore.Record
	if overrideJSON != "" {
		parsed, err := parseObject("--override", overrideJSON)
		if err != nil {
			return nil, err
		}
		override = parsed
	}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, Userf("--set expects name=value, got %q", pair)
		}
		if override == nil {
			override = argstore.Record{}
		}
		override[strings.TrimSpace(name)] = parseValue(value)
	}
	return override, nil
}
