package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
)

const (
	// DefaultDir is where the migrate CLI reads and writes migration files on disk.
	DefaultDir     = "pkg/migrate/migrations"
	embeddedDir    = "migrations"
	defaultDialect = "postgres"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Command is a goose operation supported by cmd/migrate.
type Command string

const (
	CommandUp       Command = "up"
	CommandDown     Command = "down"
	CommandStatus   Command = "status"
	CommandVersion  Command = "version"
	CommandCreate   Command = "create"
	CommandValidate Command = "validate"
)

// NeedsDB reports whether the command talks to the database.
func (c Command) NeedsDB() bool {
	switch c {
	case CommandCreate, CommandValidate:
		return false
	default:
		return true
	}
}

// ParseCommand normalizes a CLI value into a Command.
func ParseCommand(value string) (Command, error) {
	switch cmd := Command(strings.ToLower(strings.TrimSpace(value))); cmd {
	case CommandUp, CommandDown, CommandStatus, CommandVersion, CommandCreate, CommandValidate:
		return cmd, nil
	default:
		return "", fmt.Errorf("unknown migrate command %q", value)
	}
}

// source points goose at the embedded migrations when dir is empty, otherwise at dir on disk.
func source(dir string) (string, error) {
	if err := goose.SetDialect(defaultDialect); err != nil {
		return "", fmt.Errorf("set goose dialect: %w", err)
	}
	if dir == "" {
		goose.SetBaseFS(embedded)
		return embeddedDir, nil
	}
	goose.SetBaseFS(nil)
	return dir, nil
}

// Run executes a goose command against db. An empty dir uses the migrations compiled into the binary.
func Run(ctx context.Context, db *sql.DB, dir string, command Command, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if !command.NeedsDB() {
		return fmt.Errorf("command %q does not run against the database", command)
	}
	path, err := source(dir)
	if err != nil {
		return err
	}
	if err := goose.RunContext(ctx, string(command), db, path, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until it sits at targetVersion (YYYYMMDDHHMMSS).
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string) error {
	target, err := strconv.ParseInt(strings.TrimSpace(targetVersion), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	path, err := source(dir)
	if err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}
	if current < target {
		if err := goose.UpToContext(ctx, db, path, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	} else if current > target {
		if err := goose.DownToContext(ctx, db, path, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}
