package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/calebdoyle/mailsift/internal/label"
	"github.com/calebdoyle/mailsift/internal/rate"
	"github.com/calebdoyle/mailsift/internal/runtime"
	"github.com/calebdoyle/mailsift/internal/secrets"
)

type labelConfig struct {
	creds       string
	stateDir    string
	parentLabel string
	maxMessages int
	pageSize    int
	rps         int
	dryRun      bool
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailsift-label failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() labelConfig {
	creds := flag.String("creds", "credentials.json", "credentials file, op:// reference, or keyring:// reference")
	stateDir := flag.String("state-dir", runtime.DefaultStateDir(), "directory for OAuth token caches")
	parentLabel := flag.String("label-unsubscribe", "unsubscribe", "parent label for per-domain nested labels")
	maxMessages := flag.Int("max", 500, "most recent messages to scan")
	pageSize := flag.Int("page-size", 500, "Gmail list page size (<=500)")
	rps := flag.Int("rps", 4, "max requests per second")
	dryRun := flag.Bool("dry-run", false, "log only; skip label creation and apply")
	flag.Parse()

	return labelConfig{
		creds:       *creds,
		stateDir:    *stateDir,
		parentLabel: *parentLabel,
		maxMessages: *maxMessages,
		pageSize:    *pageSize,
		rps:         *rps,
		dryRun:      *dryRun,
	}
}

func run(cfg labelConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := runtime.DefaultLogger()
	client, err := runtime.NewGmailClient(
		ctx, secrets.FromReference(cfg.creds), cfg.creds, cfg.stateDir, runtime.ScopeModify)
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}

	var (
		limiter rate.Limiter
		bucket  *rate.TokenBucket
	)
	if cfg.rps > 0 {
		bucket = rate.NewTokenBucket(cfg.rps)
		limiter = bucket
		defer bucket.Stop()
	}

	svc := label.NewService(client, limiter, logger)
	sum, err := svc.Run(ctx, label.Spec{
		ParentLabel: cfg.parentLabel,
		Max:         cfg.maxMessages,
		PageSize:    cfg.pageSize,
		DryRun:      cfg.dryRun,
	})
	if err != nil {
		return fmt.Errorf("run labeler: %w", err)
	}

	logger.Info("labeler finished",
		"scanned", sum.Scanned,
		"matched", sum.Matched,
		"labeled", sum.Labeled,
		"skipped", sum.Skipped,
		"domains", sum.Domains)
	return nil
}
