package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-argstore"
	"github.com/goliatone/go-argstore/pkg/state/filestore"
)

// NewSetCommand creates the set command.
func NewSetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <func> <name> <value>",
		Short: "Set one default argument for a function",
		Long: `Set one default argument for a function and save the defaults.

The value is parsed as JSON when possible (4, true, {"a":1}) and kept as a
plain string otherwise.`,
		Example: `  argctl --file defaults.yaml set _ color red
  argctl --db args.db set paint size 4`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd.Context(), cmd.OutOrStdout(), opts, args[0], func(store *argstore.Store, key argstore.Key) error {
				store.SetFuncArg(key, args[1], parseValue(args[2]))
				return nil
			})
		},
	}
}

// NewPatchCommand creates the patch command.
func NewPatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "patch <func> <json>",
		Short: "Merge a JSON object into a function's defaults",
		Long: `Merge a JSON object into a function's defaults and save them.

With --patch-mode spread (the default) keys are added or overwritten. With
--patch-mode nest-old the record is replaced and the previous one is kept
under "old".`,
		Example: `  argctl --file defaults.yaml patch paint '{"color": "blue", "size": 2}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			partial, err := parseObject("patch", args[1])
			if err != nil {
				return err
			}
			return runEdit(cmd.Context(), cmd.OutOrStdout(), opts, args[0], func(store *argstore.Store, key argstore.Key) error {
				store.PatchFuncArgs(key, partial)
				return nil
			})
		},
	}
}

func runEdit(ctx context.Context, w io.Writer, opts *RootOptions, function string, edit func(*argstore.Store, argstore.Key) error) error {
	s, err := opts.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()
	if !s.backed {
		return User("nothing to save to: pass --db or --file")
	}

	key := s.store.ParseKey(function)
	if err := edit(s.store, key); err != nil {
		return err
	}
	if err := s.persist(ctx); err != nil {
		return err
	}

	record, _ := s.store.Record(key)
	return opts.formatter(w).Success(record, func(w io.Writer) error {
		return writeRecord(w, record)
	})
}

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Overlay every record of a YAML snapshot onto the saved defaults",
		Example: `  argctl --db args.db import defaults.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd.OutOrStdout(), opts, args[0])
		},
	}
}

func runImport(ctx context.Context, w io.Writer, opts *RootOptions, path string) error {
	snapshot, err := filestore.ReadFile(path)
	if err != nil {
		return Userf("import %s: %v", path, err)
	}
	s, err := opts.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()
	if !s.backed {
		return User("nothing to save to: pass --db or --file")
	}

	s.store.Restore(snapshot)
	if err := s.persist(ctx); err != nil {
		return err
	}

	summary := map[string]any{"imported": len(snapshot), "records": s.store.Len()}
	return opts.formatter(w).Success(summary, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "imported %d records (%d total)\n", len(snapshot), s.store.Len())
		return err
	})
}

// NewExportCommand creates the export command.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the saved defaults as YAML (or JSON with --format json)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			snapshot, err := s.store.Export()
			if err != nil {
				return err
			}
			return opts.formatter(cmd.OutOrStdout()).Success(snapshot, func(w io.Writer) error {
				return filestore.Encode(w, snapshot)
			})
		},
	}
}
