package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/schema"

	"github.com/247void/twitterScraper/internal/database"
	"github.com/247void/twitterScraper/store"
)

// =============================================================================
// 🗄️ migrate 命令
// =============================================================================

func runMigrate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Migration timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN(), logger)
	if err != nil {
		return err
	}
	pool, err := database.NewPoolManager(db, database.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1}, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	models := store.Models()
	if err := pool.Migrate(ctx, models...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	fmt.Fprintf(stdout, "Migrated %d tables on %s:\n", len(models), cfg.Database.Driver)
	cache := &sync.Map{}
	for _, m := range models {
		s, err := schema.Parse(m, cache, db.NamingStrategy)
		if err != nil {
			return fmt.Errorf("parse model %T: %w", m, err)
		}
		fmt.Fprintf(stdout, "  %s\n", s.Table)
	}
	logger.Info("migration completed", zap.Int("tables", len(models)))
	return nil
}
