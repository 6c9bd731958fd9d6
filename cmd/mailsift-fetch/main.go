package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mailsift/mailsift/internal/fetch"
	"github.com/mailsift/mailsift/internal/gmail"
	"github.com/mailsift/mailsift/internal/persist"
	"github.com/mailsift/mailsift/internal/rate"
	"github.com/mailsift/mailsift/internal/runtime"
)

const hoursPerDay = 24

type fetchConfig struct {
	cfgDir      string
	tokenFile   string
	dbPath      string
	days        int
	pageSize    int
	rps         int
	concurrency int
	force       bool
	maxAge      time.Duration
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailsift-fetch failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() fetchConfig {
	cfgDir := flag.String("config", os.ExpandEnv("$HOME/.gmailctl"), "gmailctl auth directory")
	tokenFile := flag.String("token", "", "OAuth token file (overrides -config)")
	dbPath := flag.String("db", "mailsift.db", "snapshot cache path")
	days := flag.Int("days", 90, "lookback window in days")
	pageSize := flag.Int("page-size", 500, "Gmail list page size (<=500)")
	rps := flag.Int("rps", 4, "max requests per second")
	concurrency := flag.Int("concurrency", 8, "parallel metadata fetches")
	force := flag.Bool("force", false, "refetch even if the cache is fresh")
	maxAge := flag.Duration("max-age", 6*time.Hour, "cache freshness window")
	flag.Parse()

	return fetchConfig{
		cfgDir:      *cfgDir,
		tokenFile:   *tokenFile,
		dbPath:      *dbPath,
		days:        *days,
		pageSize:    *pageSize,
		rps:         *rps,
		concurrency: *concurrency,
		force:       *force,
		maxAge:      *maxAge,
	}
}

func run(cfg fetchConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := runtime.DefaultLogger()

	db, err := persist.Open(ctx, cfg.dbPath)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer db.Close()

	if !cfg.force {
		fresh, err := db.Fresh(ctx, time.Now(), cfg.maxAge)
		if err != nil {
			return fmt.Errorf("check cache freshness: %w", err)
		}
		if fresh {
			logger.Info("cache is fresh, skipping fetch", "db", cfg.dbPath, "max_age", cfg.maxAge)
			return nil
		}
	}

	client, err := newClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}

	var limiter rate.Limiter
	if cfg.rps > 0 {
		limiter = rate.NewAPILimiter(cfg.rps)
	}

	fetcher := fetch.NewFetcher(client, limiter, logger)
	fetcher.PageSize = cfg.pageSize
	fetcher.Concurrency = cfg.concurrency

	window := time.Duration(cfg.days) * hoursPerDay * time.Hour
	snap, err := fetcher.Snapshot(ctx, window)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}
	if err := db.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	logger.Info("snapshot cached",
		"db", cfg.dbPath, "messages", len(snap.Messages), "labels", len(snap.Labels))
	return nil
}

func newClient(ctx context.Context, cfg fetchConfig) (gmail.Client, error) {
	if cfg.tokenFile != "" {
		return runtime.NewGmailClientFromToken(ctx, cfg.tokenFile, runtime.ScopeReadonly)
	}
	return runtime.NewGmailClient(ctx, cfg.cfgDir, runtime.ScopeReadonly)
}
