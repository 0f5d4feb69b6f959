// Package count aggregates mail volume per sender and writes the result as CSV.
package count

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	gc "github.com/calebdoyle/mailsift/internal/gmail"
	"github.com/calebdoyle/mailsift/internal/rate"
)

// Unparseable is the bucket for messages whose From header is missing or has
// no usable address.
const Unparseable = "unparseable"

// SenderCount is one row of the report.
type SenderCount struct {
	Sender string
	Count  int
}

// Options controls one counting run.
type Options struct {
	Limit    int // scan only the N most recent messages; 0 scans everything
	PageSize int
}

// Service tallies messages per normalized sender address.
type Service struct {
	Client  gc.Client
	Limiter rate.Limiter
	Logger  *slog.Logger
}

func NewService(client gc.Client, limiter rate.Limiter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{Client: client, Limiter: limiter, Logger: logger}
}

// Run lists messages, fetches the From header for each, and returns counts
// sorted by descending count (sender ascending on ties, for determinism).
// Per-message fetch failures land in the unparseable bucket.
func (s *Service) Run(ctx context.Context, opts Options) ([]SenderCount, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 500
	}

	counts := map[string]int{}
	token := ""
	scanned := 0
	for {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		page, err := s.Client.List(ctx, gc.Query{}, token, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		for _, id := range page.IDs {
			if opts.Limit > 0 && scanned >= opts.Limit {
				break
			}
			scanned++
			if err := s.wait(ctx); err != nil {
				return nil, err
			}
			meta, getErr := s.Client.GetMetadata(ctx, id, []string{"From"})
			if getErr != nil {
				s.Logger.WarnContext(ctx, "skipping message: fetch failed", "id", id, "error", getErr)
				counts[Unparseable]++
				continue
			}
			sender := NormalizeSender(meta.Headers["From"])
			if sender == "" {
				counts[Unparseable]++
				continue
			}
			counts[sender]++
		}
		if page.NextPageToken == "" || (opts.Limit > 0 && scanned >= opts.Limit) {
			break
		}
		token = page.NextPageToken
	}

	s.Logger.InfoContext(ctx, "counted senders", "messages", scanned, "senders", len(counts))
	return rank(counts), nil
}

// NormalizeSender reduces a From header value to a bare lower-cased address.
// The angle-bracket form wins when present; otherwise the whole value is
// treated as the address. A value with no @ at all yields the empty string.
func NormalizeSender(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return ""
	}
	addr := from
	if start := strings.LastIndex(from, "<"); start != -1 {
		if end := strings.Index(from[start:], ">"); end != -1 {
			addr = from[start+1 : start+end]
		}
	}
	addr = strings.ToLower(strings.TrimSpace(addr))
	at := strings.LastIndex(addr, "@")
	if at == -1 {
		return ""
	}
	// Keep the raw lower-cased value when the domain looks bogus; the count
	// still groups identical raw values together.
	if !strings.Contains(addr[at+1:], ".") {
		return strings.ToLower(from)
	}
	return addr
}

func rank(counts map[string]int) []SenderCount {
	out := make([]SenderCount, 0, len(counts))
	for sender, n := range counts {
		out = append(out, SenderCount{Sender: sender, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Sender < out[j].Sender
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// WriteCSV emits the report with a sender,count header row.
func WriteCSV(counts []SenderCount, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"sender", "count"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range counts {
		if err := cw.Write([]string{row.Sender, strconv.Itoa(row.Count)}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// PrintTop writes a readable top-N summary to the provided writer.
func PrintTop(counts []SenderCount, topN int, w io.Writer) error {
	if topN < len(counts) {
		counts = counts[:topN]
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "Top %d senders:\n", len(counts))
	for _, row := range counts {
		fmt.Fprintf(&builder, "  %-50s %6d\n", row.Sender, row.Count)
	}
	if _, err := io.WriteString(w, builder.String()); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.Limiter == nil {
		return nil
	}
	if err := s.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}
