package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/reglet-dev/reglet-native/domain/entities"
	"github.com/reglet-dev/reglet-native/host"
	"github.com/spf13/cobra"
)

// Version is the semantic version (set via -ldflags).
var Version = "dev"

// App wires the CLI to its dependencies. Nil writers default to the
// process's stdout and stderr.
type App struct {
	Stdout io.Writer
	Stderr io.Writer

	// LoaderOptions are appended after the options derived from Config,
	// e.g. to substitute an in-process module in tests.
	LoaderOptions []host.LoaderOption

	config Config
	logger *slog.Logger
}

// NewRootCommand builds the command tree for app.
func NewRootCommand(app *App) *cobra.Command {
	if app.Stdout == nil {
		app.Stdout = os.Stdout
	}
	if app.Stderr == nil {
		app.Stderr = os.Stderr
	}

	root := &cobra.Command{
		Use:           "reglet-native",
		Short:         "Inspect and drive native reglet modules",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(app.Stderr, cfg.LogLevel)
			if err != nil {
				return err
			}
			app.config = cfg
			app.logger = logger
			return nil
		},
	}
	root.SetOut(app.Stdout)
	root.SetErr(app.Stderr)
	registerFlags(root.PersistentFlags())

	root.AddCommand(newInfoCommand(app))
	root.AddCommand(newGetCommand(app))
	root.AddCommand(newSetCommand(app))
	root.AddCommand(newSchemaCommand(app))
	return root
}

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context) error {
	app := &App{}
	root := NewRootCommand(app)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(app.Stderr, "Error:", err)
		return err
	}
	return nil
}

// load opens the module at path according to the resolved configuration.
func (a *App) load(path string) (*host.Library, error) {
	opts := []host.LoaderOption{
		host.WithLogger(a.logger),
		host.WithBufferOwnership(entities.BufferOwnership(a.config.Ownership), a.config.FreeSymbol),
	}
	opts = append(opts, a.LoaderOptions...)

	if a.config.Manifest {
		return host.LoadWithManifest(path, opts...)
	}
	return host.Load(path, opts...)
}

// withSession loads path, opens a session and runs fn inside it.
func (a *App) withSession(path string, fn func(*host.Library, *host.Session) error) error {
	lib, err := a.load(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := lib.Release(); err != nil {
			a.logger.Warn("failed to release module", "path", path, "error", err)
		}
	}()

	maxPayloadSize := a.config.MaxPayloadSize
	if maxPayloadSize == 0 && lib.Manifest() != nil {
		maxPayloadSize = lib.Manifest().MaxPayloadSize
	}

	session, err := lib.Open(a.config.Client, maxPayloadSize)
	if err != nil {
		return err
	}
	defer lib.Close(session) //nolint:errcheck // Close only fails on misuse

	return fn(lib, session)
}
