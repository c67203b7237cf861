// Package cli implements argctl, a command line tool for inspecting and
// editing argument defaults kept in YAML files or SQLite snapshots.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goliatone/go-argstore"
)

// RootOptions holds global flags and the resolved configuration.
type RootOptions struct {
	ConfigFile string
	Format     string // "json" | "text"

	config *viper.Viper
	logger argstore.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for argctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{config: viper.New()}

	cmd := &cobra.Command{
		Use:          "argctl",
		Short:        "Inspect and edit function argument defaults",
		Long:         longDescription,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !isValidFormat(opts.Format) {
				return Userf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if err := opts.initConfig(); err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), opts.config.GetString("log.level"), opts.config.GetString("log.format"))
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default is $HOME/.argctl.yaml or ./config/.argctl.yaml)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.String("db", "", "SQLite database holding snapshots")
	flags.String("file", "", "YAML defaults file (must end in .yaml)")
	flags.String("namespace", "default", "snapshot namespace inside --db")
	flags.String("wildcard", argstore.DefaultWildcardMarker, "text standing for the wildcard key")
	flags.String("patch-mode", argstore.PatchSpread.String(), "patch behaviour (spread|nest-old)")
	flags.String("log-level", "warn", "log level (debug|info|warn|error)")
	flags.String("log-format", "text", "log format (text|json)")

	for key, flag := range map[string]string{
		"db":         "db",
		"file":       "file",
		"namespace":  "namespace",
		"wildcard":   "wildcard",
		"patch_mode": "patch-mode",
		"log.level":  "log-level",
		"log.format": "log-format",
	} {
		_ = opts.config.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewDescribeCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewPatchCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

const longDescription = "argctl resolves the effective arguments of a function from wildcard defaults, " +
	"function defaults and per-call overrides, and edits the defaults kept in a YAML file (--file) " +
	"or a SQLite snapshot (--db)."

// initConfig layers flags over ARGCTL_* environment variables over the
// optional config file.
func (o *RootOptions) initConfig() error {
	v := o.config
	v.SetEnvPrefix("ARGCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if o.ConfigFile != "" {
		v.SetConfigFile(o.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Userf("read config %s: %v", o.ConfigFile, err)
		}
		return nil
	}

	v.SetConfigName(".argctl")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath("./config")

	err := v.ReadInConfig()
	notFound := &viper.ConfigFileNotFoundError{}
	if err != nil && !errors.As(err, notFound) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func newLogger(w io.Writer, level, format string) (argstore.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, Userf("invalid log level %q", level)
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		return nil, Userf("invalid log format %q: must be text or json", format)
	}
	return argstore.NewSlogLogger(slog.New(handler)), nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
