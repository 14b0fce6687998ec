// Command migrate applies, inspects and rolls back the database schema.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"appx/internal/config"
	"appx/internal/database"
	"appx/internal/middleware"

	"gorm.io/gorm"
)

type command func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error

var commands = map[string]command{
	"up":     migrateUp,
	"auto":   autoMigrate,
	"status": printStatus,
	"down":   migrateDown,
}

var errUsage = errors.New("usage: migrate <up|auto|status|list|down> [version]")

func main() {
	flag.Usage = func() { fmt.Fprintln(flag.CommandLine.Output(), errUsage) }
	flag.Parse()

	if err := run(flag.Args()); err != nil {
		middleware.Logger.Error("migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	name := args[0]

	if name == "list" {
		for _, m := range database.GetMigrations() {
			fmt.Println(m.String())
		}
		return nil
	}

	cmd, ok := commands[name]
	if !ok {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	return cmd(context.Background(), db, cfg, args[1:])
}

func migrateUp(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	if err := database.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("up: %w", err)
	}
	middleware.Logger.Info("schema is up to date")
	return nil
}

func autoMigrate(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return fmt.Errorf("auto: %w", err)
	}
	middleware.Logger.Info("models auto-migrated")
	return nil
}

func printStatus(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	st, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	fmt.Printf("env=%s mode=%s sql=%t automigrate=%t\n", st.Environment, st.Mode, st.WillRunSQL, st.WillRunAutoMigrate)
	fmt.Printf("applied: %d\n", len(st.AppliedVersions))
	for _, m := range st.PendingMigrations {
		fmt.Printf("pending: %s\n", m.String())
	}
	return nil
}

func migrateDown(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: migrate down <version>")
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("down: bad version %q", args[0])
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return fmt.Errorf("down %06d: %w", version, err)
	}
	middleware.Logger.Info("migration rolled back", slog.Int("version", version))
	return nil
}
