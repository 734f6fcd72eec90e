// Package main 提供数据库迁移管理的命令行工具
// 基于 go-migrate 库，支持向上迁移、向下迁移和版本管理
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/MorseWayne/library_api/internal/config"
	"github.com/MorseWayne/library_api/internal/database"
	"github.com/MorseWayne/library_api/internal/logger"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -action=[up|down|version|force] [options]\n\n", os.Args[0])
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, "\nExamples:")
	fmt.Fprintln(os.Stderr, "  ./migrate -action=up")
	fmt.Fprintln(os.Stderr, "  ./migrate -action=down -steps=1")
	fmt.Fprintln(os.Stderr, "  ./migrate -action=version -target=3")
	fmt.Fprintln(os.Stderr, "  ./migrate -action=force -target=0")
}

func main() {
	var (
		action = flag.String("action", "up", "migration action: up, down, version, force")
		steps  = flag.Int("steps", 1, "number of steps for down migration")
		target = flag.Uint("target", 0, "target version for version or force migration")
	)
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, "migrate", cfg.App.Version)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	db, err := database.New(cfg, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			lg.Sugar().Errorw("failed to close database", "error", err)
		}
	}()

	if err := run(db, lg, cfg.Migrations.Dir, *action, *steps, *target); err != nil {
		flag.Usage()
		os.Exit(1)
	}
}

func run(db *database.DB, lg *zap.Logger, dir, action string, steps int, target uint) error {
	switch action {
	case "up":
		lg.Info("applying pending migrations")
		if err := db.RunMigrations(dir); err != nil {
			lg.Sugar().Fatalw("up migration failed", "error", err)
		}
		lg.Info("schema is up to date")

	case "down":
		lg.Sugar().Infow("rolling back migrations", "steps", steps)
		if err := db.MigrateDown(dir, steps); err != nil {
			lg.Sugar().Fatalw("down migration failed", "error", err)
		}
		lg.Info("rollback completed")

	case "version":
		if target == 0 {
			lg.Fatal("target version must be specified for version migration")
		}
		lg.Sugar().Infow("migrating to version", "target", target)
		if err := db.MigrateToVersion(dir, target); err != nil {
			lg.Sugar().Fatalw("version migration failed", "error", err)
		}
		lg.Info("version migration completed")

	case "force":
		// force允许版本0，表示重置到无迁移状态
		lg.Sugar().Warnw("forcing migration version, this clears dirty state", "target", target)
		if err := db.ForceMigrationVersion(dir, target); err != nil {
			lg.Sugar().Fatalw("force migration failed", "error", err)
		}
		lg.Info("migration version forced")

	default:
		return fmt.Errorf("unknown action %q", action)
	}

	return nil
}
