package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/catalogo-muebles/internal/config"
	"github.com/noah-isme/catalogo-muebles/internal/migrations"
	"github.com/noah-isme/catalogo-muebles/internal/obs"
)

const usage = "usage: migrate [up|down|version|force N|files]"

type migrator interface {
	Up() error
	Down() error
	Force(int) error
	Version() (uint, bool, error)
}

type openFunc func() (migrator, func(), error)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "migrate").Logger()

	open := func() (migrator, func(), error) {
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL is not set")
		}
		m, err := migrations.New(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("init migrate: %w", err)
		}
		return m, func() { _, _ = m.Close() }, nil
	}

	if err := newRootCmd(open, logger).Execute(); err != nil {
		logger.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}
}

func newRootCmd(open openFunc, logger zerolog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply catalog schema migrations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          migrateRun(open, logger, "up"),
	}
	root.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply all pending migrations", Args: cobra.NoArgs, RunE: migrateRun(open, logger, "up")},
		&cobra.Command{Use: "down", Short: "Roll back every migration", Args: cobra.NoArgs, RunE: migrateRun(open, logger, "down")},
		&cobra.Command{Use: "version", Short: "Print the current schema version", Args: cobra.NoArgs, RunE: migrateRun(open, logger, "version")},
		&cobra.Command{Use: "force N", Short: "Set the schema version without running migrations", Args: cobra.ExactArgs(1), RunE: migrateRun(open, logger, "force")},
		&cobra.Command{
			Use:   "files",
			Short: "List embedded migration files",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				names, err := migrations.Files()
				if err != nil {
					return fmt.Errorf("list migrations: %w", err)
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			},
		},
	)
	return root
}

func migrateRun(open openFunc, logger zerolog.Logger, name string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		m, closeFn, err := open()
		if err != nil {
			return err
		}
		defer closeFn()

		var arg string
		if len(args) > 0 {
			arg = args[0]
		}
		if err := run(m, name, arg); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("read version: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
		logger.Info().Str("command", name).Uint("version", version).Bool("dirty", dirty).Msg("migrations done")
		return nil
	}
}

func run(m migrator, cmd, arg string) error {
	var err error
	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "force":
		v, convErr := strconv.Atoi(arg)
		if convErr != nil {
			return fmt.Errorf("force needs a version: %w", convErr)
		}
		err = m.Force(v)
	case "version":
		return nil
	default:
		return errors.New(usage)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
