package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/pkg/orchestrator"
	"github.com/goliatone/go-formwizard/schemas"
)

type appKey struct{}

// app is the state shared by every subcommand once flags and config are
// resolved.
type app struct {
	cfg    Config
	logger *slog.Logger
}

var (
	configPath  string
	flagLevel   string
	flagFormat  string
	flagSchemas string
	flagExample bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "formwizard",
		Short:         "Multi-step registry forms with conditional fields",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
	}
	root.SetContext(context.Background())

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", defaultConfigPath, "path to the TOML configuration file")
	flags.StringVar(&flagLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&flagFormat, "log-format", "text", "log format (text, json)")
	flags.StringVar(&flagSchemas, "schemas", "", "directory of form schemas (defaults to the embedded registry forms)")
	flags.BoolVar(&flagExample, "examples", false, "use the embedded example forms instead of the registry forms")

	root.AddCommand(newLintCmd(), newRunCmd(), newServeCmd())
	return root
}

func setup(cmd *cobra.Command) (*app, error) {
	explicit := cmd.Flags().Changed("config")
	cfg, err := LoadConfig(configPath, explicit)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = flagFormat
	}
	if flags.Changed("schemas") {
		cfg.Schemas = flagSchemas
	}
	if flags.Changed("examples") {
		cfg.Examples = flagExample
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger}, nil
}

func appFrom(cmd *cobra.Command) *app {
	if a, ok := cmd.Context().Value(appKey{}).(*app); ok {
		return a
	}
	return &app{cfg: DefaultConfig(), logger: slog.Default()}
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

// schemaFS picks the schema source: a directory on disk, the embedded
// examples or the embedded registry forms.
func (a *app) schemaFS() fs.FS {
	switch {
	case a.cfg.Schemas != "":
		return os.DirFS(a.cfg.Schemas)
	case a.cfg.Examples:
		return schemas.Examples()
	default:
		return schemas.Registry()
	}
}

// orchestratorOptions returns the options shared by run and serve.
func (a *app) orchestratorOptions() ([]orchestrator.Option, error) {
	opts := []orchestrator.Option{
		orchestrator.WithSchemas(a.schemaFS()),
		orchestrator.WithLogger(a.logger),
	}
	if a.cfg.Preset != "" {
		data, err := os.ReadFile(a.cfg.Preset)
		if err != nil {
			return nil, fmt.Errorf("read preset: %w", err)
		}
		transformer, err := orchestrator.NewJSONPresetTransformer(data)
		if err != nil {
			return nil, err
		}
		opts = append(opts, orchestrator.WithSchemaTransformer(transformer))
	}
	return opts, nil
}
