package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/migrate"
)

type options struct {
	command  migrate.Command
	dir      string
	name     string
	version  string
	embedded bool
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(context.Background(), logg, opts); err != nil {
		logg.Error(context.Background(), "migrate failed", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	cmd := fs.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := fs.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := fs.String("name", "", "migration name (for create)")
	version := fs.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	embedded := fs.Bool("embedded", false, "use the migrations compiled into this binary instead of -dir")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	command, err := migrate.ParseCommand(*cmd)
	if err != nil {
		return options{}, err
	}
	opts := options{command: command, dir: *dir, name: *name, version: *version, embedded: *embedded}
	switch {
	case command == migrate.CommandCreate && opts.name == "":
		return options{}, errors.New("missing -name for create")
	case command == migrate.CommandVersion && opts.version == "":
		return options{}, errors.New("missing -version for version command")
	case command == migrate.CommandCreate && opts.embedded:
		return options{}, errors.New("-embedded cannot be combined with create")
	}
	return opts, nil
}

func run(ctx context.Context, logg *logger.Logger, opts options) (err error) {
	ctx = logg.WithFields(ctx, map[string]any{
		"cmd":      string(opts.command),
		"dir":      opts.dir,
		"embedded": opts.embedded,
	})

	switch opts.command {
	case migrate.CommandCreate:
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		logg.Info(logg.WithField(ctx, "path", path), "migration created")
		return nil
	case migrate.CommandValidate:
		if opts.embedded {
			err = migrate.ValidateEmbedded()
		} else {
			err = migrate.ValidateDir(opts.dir)
		}
		if err != nil {
			return fmt.Errorf("validate migrations: %w", err)
		}
		logg.Info(ctx, "migration validation passed")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("extract sql database: %w", err)
	}

	dir := opts.dir
	if opts.embedded {
		dir = ""
	}
	logg.Info(ctx, "migrate ready")
	if opts.command == migrate.CommandVersion {
		return migrate.MigrateToVersion(ctx, sqlDB, dir, opts.version)
	}
	return migrate.Run(ctx, sqlDB, dir, opts.command)
}
