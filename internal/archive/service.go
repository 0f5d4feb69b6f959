// Package archive dumps a date range of messages to a plain-text file, one
// serialized block per message.
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	gc "github.com/calebdoyle/mailsift/internal/gmail"
	"github.com/calebdoyle/mailsift/internal/rate"
)

// Options controls one archiving run. Start and End are date-only values;
// the range is inclusive at both ends.
type Options struct {
	Start    time.Time
	End      time.Time
	PageSize int
}

// Summary reports what a run wrote.
type Summary struct {
	Found    int // message ids matched by the query
	Archived int
	Skipped  int // fetch failures and out-of-range messages
}

// Service fetches and serializes messages in a date range.
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

// ParseDay parses a YYYY-MM-DD flag value as a UTC date.
func ParseDay(s string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a valid date %q, use YYYY-MM-DD: %w", s, err)
	}
	return day, nil
}

// Run writes matching messages to w in fetch order. Individual fetch
// failures are logged and skipped; a write failure is fatal because the
// output file is the whole point of the run.
func (s *Service) Run(ctx context.Context, opts Options, w io.Writer) (Summary, error) {
	if opts.Start.IsZero() || opts.End.IsZero() {
		return Summary{}, fmt.Errorf("start and end dates are required")
	}
	if opts.End.Before(opts.Start) {
		return Summary{}, fmt.Errorf("end date %s precedes start date %s",
			opts.End.Format("2006-01-02"), opts.Start.Format("2006-01-02"))
	}
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 500
	}

	// Gmail's before: predicate is exclusive, so query one day past the end
	// and keep the inclusive check local.
	rangeEnd := opts.End.AddDate(0, 0, 1)
	query := gc.Query{Raw: fmt.Sprintf("after:%s before:%s",
		opts.Start.Format("2006/01/02"), rangeEnd.Format("2006/01/02"))}

	ids, err := s.listAll(ctx, query, pageSize)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Found: len(ids)}
	s.Logger.InfoContext(ctx, "archiving messages",
		"count", len(ids),
		"start", opts.Start.Format("2006-01-02"),
		"end", opts.End.Format("2006-01-02"))

	for _, id := range ids {
		if waitErr := s.wait(ctx); waitErr != nil {
			return sum, waitErr
		}
		msg, getErr := s.Client.GetFull(ctx, id)
		if getErr != nil {
			s.Logger.WarnContext(ctx, "skipping message: fetch failed", "id", id, "error", getErr)
			sum.Skipped++
			continue
		}
		if !inRange(msg.Date, opts.Start, rangeEnd) {
			sum.Skipped++
			continue
		}
		if _, writeErr := io.WriteString(w, FormatBlock(msg)); writeErr != nil {
			return sum, fmt.Errorf("write archive: %w", writeErr)
		}
		sum.Archived++
	}
	return sum, nil
}

// inRange checks start <= date < rangeEnd, treating a missing internal date
// as in range (the server query already matched it).
func inRange(date, start, rangeEnd time.Time) bool {
	if date.IsZero() {
		return true
	}
	return !date.Before(start) && date.Before(rangeEnd)
}

func (s *Service) listAll(ctx context.Context, q gc.Query, pageSize int) ([]gc.MessageID, error) {
	var ids []gc.MessageID
	token := ""
	for {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		page, err := s.Client.List(ctx, q, token, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		ids = append(ids, page.IDs...)
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	return ids, nil
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
