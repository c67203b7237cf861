package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-argstore"
)

type overrideFlags struct {
	override string
	set      []string
}

func (f *overrideFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.override, "override", "", "per-call override as a JSON object")
	cmd.Flags().StringArrayVar(&f.set, "set", nil, "per-call override name=value (repeatable, value parsed as JSON when possible)")
}

func (f *overrideFlags) record() (argstore.Record, error) {
	return buildOverride(f.override, f.set)
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(opts *RootOptions) *cobra.Command {
	flags := &overrideFlags{}
	cmd := &cobra.Command{
		Use:   "resolve <func>",
		Short: "Print the effective arguments for a function",
		Long: `Print the effective arguments for a function: the wildcard defaults, overlaid
by the function's defaults, overlaid by the per-call override.

Use the wildcard marker (default "_") as <func> to see the wildcard record alone.`,
		Example: `  argctl --file defaults.yaml resolve paint --set color=blue
  argctl --db args.db resolve paint --override '{"size": 4}' --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), cmd.OutOrStdout(), opts, flags, args[0])
		},
	}
	flags.register(cmd)
	return cmd
}

func runResolve(ctx context.Context, w io.Writer, opts *RootOptions, flags *overrideFlags, function string) error {
	override, err := flags.record()
	if err != nil {
		return err
	}
	s, err := opts.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	args := s.store.GetArgs(s.store.ParseKey(function), override)
	return opts.formatter(w).Success(args, func(w io.Writer) error {
		return writeRecord(w, args)
	})
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(opts *RootOptions) *cobra.Command {
	flags := &overrideFlags{}
	cmd := &cobra.Command{
		Use:   "trace <func> <name>",
		Short: "Show which layer supplies an argument",
		Example: `  argctl --file defaults.yaml trace paint color
  argctl --file defaults.yaml trace paint color --set color=green`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), cmd.OutOrStdout(), opts, flags, args[0], args[1])
		},
	}
	flags.register(cmd)
	return cmd
}

func runTrace(ctx context.Context, w io.Writer, opts *RootOptions, flags *overrideFlags, function, name string) error {
	override, err := flags.record()
	if err != nil {
		return err
	}
	s, err := opts.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	trace := s.store.Resolve(s.store.ParseKey(function), override).Trace(name)
	return opts.formatter(w).Success(trace, func(w io.Writer) error {
		return writeTrace(w, function, trace)
	})
}

func writeTrace(w io.Writer, function string, trace argstore.Trace) error {
	if _, err := fmt.Fprintf(w, "%s.%s\n", function, trace.Path); err != nil {
		return err
	}
	winner := true
	for _, layer := range trace.Layers {
		line := fmt.Sprintf("  %-9s (not set)", layer.Scope.Name)
		if layer.Found {
			status := "shadowed"
			if winner {
				status, winner = "effective", false
			}
			line = fmt.Sprintf("  %-9s %s  %s", layer.Scope.Name, formatValue(layer.Value), status)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(opts *RootOptions) *cobra.Command {
	flags := &overrideFlags{}
	cmd := &cobra.Command{
		Use:   "describe <func>",
		Short: "List the paths and value types of the effective arguments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd.Context(), cmd.OutOrStdout(), opts, flags, args[0])
		},
	}
	flags.register(cmd)
	return cmd
}

func runDescribe(ctx context.Context, w io.Writer, opts *RootOptions, flags *overrideFlags, function string) error {
	override, err := flags.record()
	if err != nil {
		return err
	}
	s, err := opts.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	fields := s.store.Describe(s.store.ParseKey(function), override)
	return opts.formatter(w).Success(fields, func(w io.Writer) error {
		for _, field := range fields {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", field.Path, field.Type); err != nil {
				return err
			}
		}
		return nil
	})
}
