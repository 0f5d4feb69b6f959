package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/calebdoyle/mailsift/internal/count"
	"github.com/calebdoyle/mailsift/internal/rate"
	"github.com/calebdoyle/mailsift/internal/runtime"
	"github.com/calebdoyle/mailsift/internal/secrets"
)

type countConfig struct {
	creds    string
	stateDir string
	output   string
	limit    int
	top      int
	pageSize int
	rps      int
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailsift-count failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() countConfig {
	creds := flag.String("creds", "credentials.json", "credentials file, op:// reference, or keyring:// reference")
	stateDir := flag.String("state-dir", runtime.DefaultStateDir(), "directory for OAuth token caches")
	output := flag.String("output", "sender_counts.csv", "output CSV path")
	limit := flag.Int("limit", 0, "scan only the N most recent messages (0 scans everything)")
	top := flag.Int("top", 25, "number of top senders to print")
	pageSize := flag.Int("page-size", 500, "Gmail list page size (<=500)")
	rps := flag.Int("rps", 4, "max requests per second")
	flag.Parse()

	return countConfig{
		creds:    *creds,
		stateDir: *stateDir,
		output:   *output,
		limit:    *limit,
		top:      *top,
		pageSize: *pageSize,
		rps:      *rps,
	}
}

func run(cfg countConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := runtime.DefaultLogger()
	if cfg.limit == 0 {
		logger.Warn("no --limit set; this scans the entire mailbox and may take a long time")
	}

	client, err := runtime.NewGmailClient(
		ctx, secrets.FromReference(cfg.creds), cfg.creds, cfg.stateDir, runtime.ScopeReadonly)
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

	svc := count.NewService(client, limiter, logger)
	counts, err := svc.Run(ctx, count.Options{Limit: cfg.limit, PageSize: cfg.pageSize})
	if err != nil {
		return fmt.Errorf("run counter: %w", err)
	}
	if len(counts) == 0 {
		logger.Info("no senders found")
		return nil
	}

	if printErr := count.PrintTop(counts, cfg.top, os.Stdout); printErr != nil {
		return fmt.Errorf("print summary: %w", printErr)
	}

	f, err := os.Create(cfg.output)
	if err != nil {
		return fmt.Errorf("create %s: %w", cfg.output, err)
	}
	defer func() { _ = f.Close() }()
	if writeErr := count.WriteCSV(counts, f); writeErr != nil {
		return fmt.Errorf("write csv: %w", writeErr)
	}
	if closeErr := f.Close(); closeErr != nil {
		return fmt.Errorf("close %s: %w", cfg.output, closeErr)
	}
	logger.Info("report written", "path", cfg.output, "senders", len(counts))
	return nil
}
