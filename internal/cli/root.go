package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/vtree/internal/config"
	"github.com/roach88/vtree/internal/mutation"
	"github.com/roach88/vtree/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Config   string // directory holding vtree.toml
	DB       string // trace database, overrides the config
	Encoding string // batch encoding, overrides the config

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the vtree CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "vtree",
		Short: "vtree - virtual DOM reconciliation runtime",
		Long: `Render declarative component trees into renderer mutations.

vtree runs YAML render scenarios against the virtual DOM, checks CUE
template definitions, and records and replays committed mutation batches.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if err := opts.loadConfig(); err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			if opts.Encoding != "" {
				if _, err := mutation.ParseFormat(opts.Encoding); err != nil {
					return WrapExitError(ExitCommandError, "invalid --encoding", err)
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "directory containing vtree.toml (default: search upward)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "trace database path (default from config)")
	cmd.PersistentFlags().StringVar(&opts.Encoding, "encoding", "", "batch encoding: msgpack, cbor or json (default from config)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

	return cmd
}

func (o *RootOptions) loadConfig() error {
	var (
		cfg *config.Config
		err error
	)
	if o.Config != "" {
		cfg, err = config.Load(o.Config)
	} else {
		cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	o.cfg = cfg
	return nil
}

// Settings returns the loaded configuration, or defaults before loading.
func (o *RootOptions) Settings() *config.Config {
	if o.cfg == nil {
		o.cfg = config.Default()
	}
	return o.cfg
}

// Logger builds the structured logger commands hand to the engine. Verbose
// forces debug level; JSON output also switches the log handler to JSON.
func (o *RootOptions) Logger(w io.Writer) *slog.Logger {
	level, err := o.Settings().LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if o.Format == "json" || o.Settings().Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// DBPath returns the trace database path.
func (o *RootOptions) DBPath() string {
	if o.DB != "" {
		return o.DB
	}
	return o.Settings().DBPath()
}

// BatchEncoding returns the encoding new sessions are recorded with.
func (o *RootOptions) BatchEncoding() (mutation.Format, error) {
	if o.Encoding != "" {
		return mutation.ParseFormat(o.Encoding)
	}
	return o.Settings().Encoding()
}

// openStore opens the trace database. With create false a missing file is
// a command error rather than an empty new database.
func (o *RootOptions) openStore(create bool) (*store.Store, error) {
	path := o.DBPath()
	if create {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	} else if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// Execute runs the command tree and returns the exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return GetExitCode(err)
}
