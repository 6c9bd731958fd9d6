package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mailsift/mailsift/internal/gmail"
	"github.com/mailsift/mailsift/internal/persist"
	"github.com/mailsift/mailsift/internal/rate"
	"github.com/mailsift/mailsift/internal/report"
	"github.com/mailsift/mailsift/internal/runtime"
	"github.com/mailsift/mailsift/internal/safety"
	"github.com/mailsift/mailsift/internal/snapshot"
	"github.com/mailsift/mailsift/internal/trash"
)

type deleteConfig struct {
	cfgDir       string
	tokenFile    string
	dbPath       string
	userDomain   string
	jsonOut      string
	minScore     int
	maxException int
	limit        int
	bulkMin      int
	rps          int
	apply        bool
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailsift-delete failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() deleteConfig {
	cfgDir := flag.String("config", os.ExpandEnv("$HOME/.gmailctl"), "gmailctl auth directory")
	tokenFile := flag.String("token", "", "OAuth token file (overrides -config)")
	dbPath := flag.String("db", "mailsift.db", "snapshot cache path")
	userDomain := flag.String("user-domain", "", "the user's own domain; mail from it is penalized as a candidate")
	jsonOut := flag.String("json", "", "write JSON report to path")
	minScore := flag.Int("min-score", 70, "minimum safety score for a candidate")
	maxException := flag.Int("max-exception", 40, "drop candidates whose exception scan exceeds this")
	limit := flag.Int("limit", 100, "max messages to trash per run (0 = no cap)")
	bulkMin := flag.Int("bulk-min", 5, "minimum messages from a sender to rank it as bulk")
	rps := flag.Int("rps", 4, "max requests per second")
	apply := flag.Bool("apply", false, "actually trash the candidates (default is a preview)")
	flag.Parse()

	return deleteConfig{
		cfgDir:       *cfgDir,
		tokenFile:    *tokenFile,
		dbPath:       *dbPath,
		userDomain:   *userDomain,
		jsonOut:      *jsonOut,
		minScore:     *minScore,
		maxException: *maxException,
		limit:        *limit,
		bulkMin:      *bulkMin,
		rps:          *rps,
		apply:        *apply,
	}
}

func run(cfg deleteConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := runtime.DefaultLogger()

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
	history, err := db.DeletionHistory(ctx)
	if err != nil {
		return fmt.Errorf("load deletion history: %w", err)
	}
	profiles := ix.SenderProfiles(history)

	scorer := &safety.Scorer{
		UserDomain:        cfg.userDomain,
		MaxExceptionScore: cfg.maxException,
	}
	candidates := scorer.Candidates(snap, profiles, cfg.minScore)

	rep := report.Deletion{
		GeneratedAt: time.Now(),
		Summary:     scorer.Summary(snap, profiles),
		Candidates:  candidates,
		BulkSenders: scorer.BulkSenders(snap, profiles, cfg.bulkMin, float64(cfg.minScore)),
	}
	if err := report.PrintDeletion(rep, os.Stdout); err != nil {
		return fmt.Errorf("print report: %w", err)
	}
	if cfg.jsonOut != "" {
		if err := report.WriteJSON(rep, cfg.jsonOut); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	}
	if !cfg.apply {
		logger.Info("preview only; re-run with -apply to trash candidates",
			"candidates", len(candidates))
		return nil
	}

	client, err := newClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}
	exec := &trash.Executor{
		Client:  client,
		Log:     logger,
		Rate:    rate.NewAPILimiter(cfg.rps),
		History: db,
		Limit:   cfg.limit,
	}
	res, err := exec.Run(ctx, candidates)
	if err != nil {
		return fmt.Errorf("trash candidates: %w", err)
	}
	logger.Info("trash run finished", "trashed", res.Trashed, "capped", res.Capped)
	return nil
}

func newClient(ctx context.Context, cfg deleteConfig) (gmail.Client, error) {
	if cfg.tokenFile != "" {
		return runtime.NewGmailClientFromToken(ctx, cfg.tokenFile, runtime.ScopeModify)
	}
	return runtime.NewGmailClient(ctx, cfg.cfgDir, runtime.ScopeModify)
}
