// Command migrate manages the leaderboard schema in PostgreSQL.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	"github.com/markandre0425/Main-Page-sub000/internal/adapters/repository/migrations"
	"github.com/markandre0425/Main-Page-sub000/internal/config"
	"github.com/markandre0425/Main-Page-sub000/pkg/logger"
)

var errNoDatabase = errors.New("database url is not configured (set FIRESAFE_DATABASE_URL or DATABASE_URL)")

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	app := &cli.App{
		Name:  "migrate",
		Usage: "leaderboard database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "PostgreSQL connection string; overrides configuration",
				EnvVars: []string{"MIGRATE_DSN"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "create migration tables",
				Action: withMigrator(runInit),
			},
			{
				Name:   "migrate",
				Usage:  "apply pending migrations",
				Action: withMigrator(runMigrate),
			},
			{
				Name:   "rollback",
				Usage:  "roll back the last migration group",
				Action: withMigrator(runRollback),
			},
			{
				Name:   "status",
				Usage:  "print migration status",
				Action: withMigrator(runStatus),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Get().Error(context.Background(), "migration command failed", logger.Error(err))
		os.Exit(1)
	}
}

// withMigrator opens the database named by --dsn or the service configuration
// and hands a migrator to fn.
func withMigrator(fn func(*cli.Context, *migrate.Migrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		dsn := c.String("dsn")
		if dsn == "" {
			cfg, err := config.Load(c.Context)
			if err != nil {
				return err
			}
			dsn = cfg.DatabaseURL
		}
		if dsn == "" {
			return errNoDatabase
		}

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()

		return fn(c, migrate.NewMigrator(db, migrations.Migrations))
	}
}

func runInit(c *cli.Context, m *migrate.Migrator) error {
	if err := m.Init(c.Context); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	logger.Get().Info(c.Context, "migration tables ready")
	return nil
}

func runMigrate(c *cli.Context, m *migrate.Migrator) error {
	if err := m.Init(c.Context); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	group, err := m.Migrate(c.Context)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if group.IsZero() {
		logger.Get().Info(c.Context, "no new migrations to run")
		return nil
	}
	logger.Get().Info(c.Context, "migrated", logger.String("group", group.String()))
	return nil
}

func runRollback(c *cli.Context, m *migrate.Migrator) error {
	group, err := m.Rollback(c.Context)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	if group.IsZero() {
		logger.Get().Info(c.Context, "no groups to roll back")
		return nil
	}
	logger.Get().Info(c.Context, "rolled back", logger.String("group", group.String()))
	return nil
}

func runStatus(c *cli.Context, m *migrate.Migrator) error {
	ms, err := m.MigrationsWithStatus(c.Context)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	logger.Get().Info(c.Context, "migration status",
		logger.String("applied", ms.Applied().String()),
		logger.String("unapplied", ms.Unapplied().String()),
		logger.String("lastGroup", ms.LastGroup().String()),
	)
	return nil
}
