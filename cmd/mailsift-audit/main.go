package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mailsift/mailsift/internal/gmail"
	"github.com/mailsift/mailsift/internal/labelops"
	"github.com/mailsift/mailsift/internal/labels"
	"github.com/mailsift/mailsift/internal/persist"
	"github.com/mailsift/mailsift/internal/rate"
	"github.com/mailsift/mailsift/internal/report"
	"github.com/mailsift/mailsift/internal/runtime"
	"github.com/mailsift/mailsift/internal/snapshot"
)

type auditConfig struct {
	cfgDir           string
	tokenFile        string
	dbPath           string
	jsonOut          string
	overlapThreshold float64
	coherenceFloor   int
	rps              int
	merge            string
	deleteLabel      string
	dryRun           bool
	maxAge           time.Duration
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailsift-audit failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() auditConfig {
	cfgDir := flag.String("config", os.ExpandEnv("$HOME/.gmailctl"), "gmailctl auth directory")
	tokenFile := flag.String("token", "", "OAuth token file (overrides -config)")
	dbPath := flag.String("db", "mailsift.db", "snapshot cache path")
	jsonOut := flag.String("json", "", "write JSON report to path")
	overlap := flag.Float64("overlap-threshold", labels.DefaultOverlapThreshold, "Jaccard similarity above which labels are flagged redundant")
	coherence := flag.Int("coherence-floor", labels.DefaultConfig().CoherenceFloor, "coherence below which sizable labels are flagged")
	rps := flag.Int("rps", 4, "max requests per second for label mutations")
	merge := flag.String("merge", "", "merge labels, as source=target")
	deleteLabel := flag.String("delete-label", "", "delete a user label")
	dryRun := flag.Bool("dry-run", true, "log mutations instead of executing them")
	maxAge := flag.Duration("max-age", 24*time.Hour, "warn if the snapshot is older than this")
	flag.Parse()

	return auditConfig{
		cfgDir:           *cfgDir,
		tokenFile:        *tokenFile,
		dbPath:           *dbPath,
		jsonOut:          *jsonOut,
		overlapThreshold: *overlap,
		coherenceFloor:   *coherence,
		rps:              *rps,
		merge:            *merge,
		deleteLabel:      *deleteLabel,
		dryRun:           *dryRun,
		maxAge:           *maxAge,
	}
}

func run(cfg auditConfig) error {
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
	if age := time.Since(snap.TakenAt); age > cfg.maxAge {
		logger.Warn("snapshot is stale", "age", age.Round(time.Minute), "max_age", cfg.maxAge)
	}

	ix, err := snapshot.BuildIndex(snap)
	if err != nil {
		return fmt.Errorf("index snapshot: %w", err)
	}

	recommend := labels.DefaultConfig()
	recommend.CoherenceFloor = cfg.coherenceFloor
	rep := report.BuildAudit(snap, ix, report.AuditOptions{
		OverlapThreshold: cfg.overlapThreshold,
		Recommend:        recommend,
	})
	if err := report.PrintAudit(rep, os.Stdout); err != nil {
		return fmt.Errorf("print report: %w", err)
	}
	if cfg.jsonOut != "" {
		if err := report.WriteJSON(rep, cfg.jsonOut); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	}

	if cfg.merge == "" && cfg.deleteLabel == "" {
		return nil
	}
	return mutate(ctx, cfg, snap, ix)
}

func mutate(ctx context.Context, cfg auditConfig, snap *snapshot.Snapshot, ix *snapshot.Index) error {
	client, err := newClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}
	svc := &labelops.Service{
		Client: client,
		Log:    runtime.DefaultLogger(),
		Rate:   rate.NewAPILimiter(cfg.rps),
		DryRun: cfg.dryRun,
	}
	if cfg.merge != "" {
		source, target, ok := strings.Cut(cfg.merge, "=")
		if !ok || source == "" || target == "" {
			return fmt.Errorf("-merge wants source=target, got %q", cfg.merge)
		}
		if _, err := svc.Merge(ctx, snap, ix, source, target); err != nil {
			return fmt.Errorf("merge labels: %w", err)
		}
	}
	if cfg.deleteLabel != "" {
		if err := svc.Delete(ctx, snap, cfg.deleteLabel); err != nil {
			return fmt.Errorf("delete label: %w", err)
		}
	}
	return nil
}

func newClient(ctx context.Context, cfg auditConfig) (gmail.Client, error) {
	if cfg.tokenFile != "" {
		return runtime.NewGmailClientFromToken(ctx, cfg.tokenFile, runtime.ScopeModify)
	}
	return runtime.NewGmailClient(ctx, cfg.cfgDir, runtime.ScopeModify)
}
