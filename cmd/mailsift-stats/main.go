package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mailsift/mailsift/internal/persist"
	"github.com/mailsift/mailsift/internal/report"
	"github.com/mailsift/mailsift/internal/runtime"
	"github.com/mailsift/mailsift/internal/snapshot"
)

type statsConfig struct {
	dbPath     string
	userDomain string
	topN       int
	jsonOut    string
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailsift-stats failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() statsConfig {
	dbPath := flag.String("db", "mailsift.db", "snapshot cache path")
	userDomain := flag.String("user-domain", "", "the user's own domain, for classification")
	topN := flag.Int("top", 20, "number of top senders/slots to display")
	jsonOut := flag.String("json", "", "write JSON report to path")
	flag.Parse()

	return statsConfig{
		dbPath:     *dbPath,
		userDomain: *userDomain,
		topN:       *topN,
		jsonOut:    *jsonOut,
	}
}

func run(cfg statsConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := persist.Open(ctx, cfg.dbPath)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer db.Close()

	snap, err := db.LoadSnapshot(ctx)
	if err == persist.ErrNoSnapshot {
		return fmt.Errorf("no cached snapshot in %s; run mailsift-fetch first", cfg.dbPath)
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	ix, err := snapshot.BuildIndex(snap)
	if err != nil {
		return fmt.Errorf("index snapshot: %w", err)
	}

	rep := report.BuildStats(snap, ix, report.StatsOptions{
		UserDomain: cfg.userDomain,
		TopN:       cfg.topN,
	})
	if err := report.PrintStats(rep, os.Stdout); err != nil {
		return fmt.Errorf("print report: %w", err)
	}
	if cfg.jsonOut == "" {
		return nil
	}
	if err := report.WriteJSON(rep, cfg.jsonOut); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
