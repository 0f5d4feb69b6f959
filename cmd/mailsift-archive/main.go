package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/calebdoyle/mailsift/internal/archive"
	"github.com/calebdoyle/mailsift/internal/rate"
	"github.com/calebdoyle/mailsift/internal/runtime"
	"github.com/calebdoyle/mailsift/internal/secrets"
)

type archiveConfig struct {
	creds     string
	stateDir  string
	startDate string
	endDate   string
	output    string
	pageSize  int
	rps       int
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailsift-archive failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() archiveConfig {
	creds := flag.String("creds", "credentials.json", "credentials file, op:// reference, or keyring:// reference")
	stateDir := flag.String("state-dir", runtime.DefaultStateDir(), "directory for OAuth token caches")
	startDate := flag.String("start-date", "", "start of the range, YYYY-MM-DD (required)")
	endDate := flag.String("end-date", "", "end of the range, YYYY-MM-DD, inclusive (required)")
	output := flag.String("output", "email_archive.txt", "output text file")
	pageSize := flag.Int("page-size", 500, "Gmail list page size (<=500)")
	rps := flag.Int("rps", 4, "max requests per second")
	flag.Parse()

	return archiveConfig{
		creds:     *creds,
		stateDir:  *stateDir,
		startDate: *startDate,
		endDate:   *endDate,
		output:    *output,
		pageSize:  *pageSize,
		rps:       *rps,
	}
}

func run(cfg archiveConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.startDate == "" || cfg.endDate == "" {
		return fmt.Errorf("--start-date and --end-date are required")
	}
	start, err := archive.ParseDay(cfg.startDate)
	if err != nil {
		return fmt.Errorf("parse start date: %w", err)
	}
	end, err := archive.ParseDay(cfg.endDate)
	if err != nil {
		return fmt.Errorf("parse end date: %w", err)
	}

	// Open the output before touching the network so an unwritable path
	// fails fast.
	f, err := os.Create(cfg.output)
	if err != nil {
		return fmt.Errorf("create %s: %w", cfg.output, err)
	}
	defer func() { _ = f.Close() }()
	w := bufio.NewWriter(f)

	logger := runtime.DefaultLogger()
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

	svc := archive.NewService(client, limiter, logger)
	sum, runErr := svc.Run(ctx, archive.Options{
		Start:    start,
		End:      end,
		PageSize: cfg.pageSize,
	}, w)

	// Flush whatever was written even when the run failed partway; a partial
	// archive is still useful.
	if flushErr := w.Flush(); flushErr != nil && runErr == nil {
		runErr = fmt.Errorf("flush %s: %w", cfg.output, flushErr)
	}
	if closeErr := f.Close(); closeErr != nil && runErr == nil {
		runErr = fmt.Errorf("close %s: %w", cfg.output, closeErr)
	}
	if runErr != nil {
		return fmt.Errorf("run archiver: %w", runErr)
	}

	logger.Info("archive written",
		"path", cfg.output,
		"found", sum.Found,
		"archived", sum.Archived,
		"skipped", sum.Skipped)
	return nil
}
