package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/calebdoyle/mailsift/internal/analyze"
	"github.com/calebdoyle/mailsift/internal/runtime"
)

type analyzeConfig struct {
	input      string
	output     string
	model      string
	chunkBytes int
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailsift-analyze failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() analyzeConfig {
	input := flag.String("input", "email_archive.txt", "archive file produced by mailsift-archive")
	output := flag.String("output", "", "write the analysis here instead of stdout")
	model := flag.String("model", "", "completion model (defaults to gpt-4o)")
	chunkBytes := flag.Int("chunk-bytes", analyze.DefaultChunkBytes, "split archives larger than this, at message boundaries")
	flag.Parse()

	return analyzeConfig{
		input:      *input,
		output:     *output,
		model:      *model,
		chunkBytes: *chunkBytes,
	}
}

func run(cfg analyzeConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// A local .env is the easiest place to keep the API key out of shell
	// history; absence is fine.
	_ = godotenv.Load()
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}

	data, err := os.ReadFile(cfg.input) // #nosec G304 - path supplied by the user
	if err != nil {
		return fmt.Errorf("read archive %s: %w", cfg.input, err)
	}

	logger := runtime.DefaultLogger()
	svc := analyze.NewService(analyze.NewOpenAI(apiKey, cfg.model), logger)
	if cfg.chunkBytes > 0 {
		svc.ChunkBytes = cfg.chunkBytes
	}

	result, err := svc.Run(ctx, string(data))
	if err != nil {
		return fmt.Errorf("run analyzer: %w", err)
	}

	if cfg.output == "" {
		fmt.Println(result)
		return nil
	}
	if writeErr := os.WriteFile(cfg.output, []byte(result+"\n"), 0o600); writeErr != nil {
		return fmt.Errorf("write analysis %s: %w", cfg.output, writeErr)
	}
	logger.Info("analysis written", "path", cfg.output)
	return nil
}
