package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tabula/internal/config"
	"tabula/internal/loader"
	"tabula/internal/repository/sqlite"
	"tabula/internal/service"
	"tabula/internal/watcher"
)

// app carries the state shared by every subcommand
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
	log        *slog.Logger
	stderr     io.Writer
}

// newRootCommand creates the root command with all subcommands attached
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: config.NewViper(), stderr: stderr}

	rootCmd := &cobra.Command{
		Use:           "tabula",
		Short:         "Validate and convert typed CSV tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize()
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	setupFlags(rootCmd, a)

	rootCmd.AddCommand(
		validateCommand(a),
		convertCommand(a),
		snapshotCommand(a),
		restoreCommand(a),
		tablesCommand(a),
		dropCommand(a),
	)

	return rootCmd
}

// setupFlags defines the global flags and binds them to the config keys they override
func setupFlags(rootCmd *cobra.Command, a *app) {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default: search standard locations)")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("shapes", "", "Shape definitions file")
	flags.String("db", "", "SQLite snapshot database path")

	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("shapes_file", flags.Lookup("shapes"))
	_ = a.v.BindPFlag("database.path", flags.Lookup("db"))
}

// initialize loads configuration once flags are parsed
func (a *app) initialize() error {
	cfg, path, err := config.LoadWith(a.v, a.configPath)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = cfg.Logger("tabula", a.stderr)
	if path != "" {
		a.log.Debug("config loaded", "path", path, "settings", cfg.Summary())
	}

	return nil
}

// needs selects what a subcommand requires from newService
type needs int

const (
	needShapes needs = 1 << iota
	needStore
)

// newService builds a table service with the shapes file and snapshot store loaded as requested
func (a *app) newService(out io.Writer, n needs) (*service.TableService, func(), error) {
	var shapes loader.Shapes
	if n&needShapes != 0 {
		var err error
		if shapes, err = loader.LoadYAML(a.cfg.ShapesFile); err != nil {
			return nil, nil, err
		}
	}

	eventBus := service.NewEventBus()
	eventBus.Subscribe(func(e service.Event) {
		printEvent(out, e)
	})

	opts := a.cfg.RepositoryOptions(a.log)
	if n&needStore == 0 {
		return service.NewTableService(shapes, nil, eventBus, a.log, opts...), func() {}, nil
	}

	store, err := sqlite.New(a.cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	a.log.Debug("database opened", "path", a.cfg.Database.Path)

	closeFn := func() {
		if err := store.Close(); err != nil {
			a.log.Warn("failed to close database", "error", err)
		}
	}
	return service.NewTableService(shapes, store, eventBus, a.log, opts...), closeFn, nil
}

// watch runs fn now and after every change to paths until ctx is done.
// Failures are reported to errOut instead of ending the watch.
func (a *app) watch(ctx context.Context, errOut io.Writer, fn func() error, paths ...string) error {
	report := func() {
		if err := fn(); err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
		}
	}

	w, err := watcher.New(a.log, paths...)
	if err != nil {
		return err
	}

	report()
	err = w.Watch(ctx, func([]string) { report() })
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

func printEvent(w io.Writer, e service.Event) {
	switch e.Type {
	case service.EventTableValidated:
		fmt.Fprintf(w, "%s: %d records valid in %s\n", e.Shape, e.Records, e.Payload["path"])
	case service.EventTableConverted:
		fmt.Fprintf(w, "%s: %d records written to %s (%s)\n", e.Shape, e.Records, e.Payload["dst"], e.Payload["format"])
	case service.EventSnapshotWritten:
		fmt.Fprintf(w, "%s: %d records stored in table %s\n", e.Shape, e.Records, e.Payload["table"])
	case service.EventSnapshotRestore:
		fmt.Fprintf(w, "%s: %d records restored from table %s to %s\n", e.Shape, e.Records, e.Payload["table"], e.Payload["dst"])
	case service.EventSnapshotDropped:
		fmt.Fprintf(w, "table %s dropped\n", e.Payload["table"])
	}
}
