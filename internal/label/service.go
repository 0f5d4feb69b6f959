package label

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	gc "github.com/calebdoyle/mailsift/internal/gmail"
	"github.com/calebdoyle/mailsift/internal/rate"
)

// applyChunk bounds one BatchModify call; Gmail allows 1000 ids per request
// but smaller chunks keep individual failures cheap.
const applyChunk = 100

// Spec controls one labeler run.
type Spec struct {
	ParentLabel string // nested labels are created under this name
	Max         int    // most recent messages to scan
	PageSize    int
	DryRun      bool
}

// Summary reports what a run did.
type Summary struct {
	Scanned int
	Matched int
	Labeled int
	Skipped int // per-message failures (malformed address, fetch error)
	Domains int
}

// Service runs the unsubscribe labeler end to end.
type Service struct {
	Client  gc.Client
	Limiter rate.Limiter
	Logger  *slog.Logger
}

// NewService constructs a Service with sane defaults.
func NewService(client gc.Client, limiter rate.Limiter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{Client: client, Limiter: limiter, Logger: logger}
}

// Run scans the most recent messages, detects unsubscribe-bearing ones,
// groups them by sender domain, and applies parent/domain labels. Per-message
// failures are logged and skipped; only listing, registry, and parent-label
// failures abort the run.
func (s *Service) Run(ctx context.Context, spec Spec) (Summary, error) {
	if spec.ParentLabel == "" {
		return Summary{}, fmt.Errorf("parent label must not be empty")
	}
	maxMessages := spec.Max
	if maxMessages <= 0 {
		maxMessages = 500
	}
	pageSize := spec.PageSize
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 500
	}

	ids, err := s.listRecent(ctx, maxMessages, pageSize)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Scanned: len(ids)}
	byDomain := map[string][]gc.MessageID{}
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
		if !DetectUnsubscribe(msg) {
			continue
		}
		sum.Matched++
		domain, domErr := DomainOf(headerValue(msg.Headers, "From"))
		if domErr != nil {
			s.Logger.WarnContext(ctx, "skipping message: bad sender", "id", id, "error", domErr)
			sum.Skipped++
			continue
		}
		byDomain[domain] = append(byDomain[domain], id)
	}
	sum.Domains = len(byDomain)

	if len(byDomain) == 0 {
		s.Logger.InfoContext(ctx, "no unsubscribe-bearing messages found", "scanned", sum.Scanned)
		return sum, nil
	}
	if spec.DryRun {
		for _, domain := range sortedDomains(byDomain) {
			s.Logger.InfoContext(ctx, "dry-run: would label",
				"label", ResolvePath(spec.ParentLabel, domain).Name(),
				"count", len(byDomain[domain]))
		}
		return sum, nil
	}

	registry, err := NewRegistry(ctx, s.Client)
	if err != nil {
		return sum, err
	}
	if _, err := registry.EnsureLabel(ctx, Path{spec.ParentLabel}); err != nil {
		return sum, fmt.Errorf("ensure parent label: %w", err)
	}

	for _, domain := range sortedDomains(byDomain) {
		msgIDs := byDomain[domain]
		path := ResolvePath(spec.ParentLabel, domain)
		labelID, ensureErr := registry.EnsureLabel(ctx, path)
		if ensureErr != nil {
			s.Logger.WarnContext(ctx, "skipping domain: label unavailable",
				"domain", domain, "error", ensureErr)
			sum.Skipped += len(msgIDs)
			continue
		}
		applied, applyErr := s.Apply(ctx, msgIDs, labelID)
		sum.Labeled += applied
		if applyErr != nil {
			s.Logger.WarnContext(ctx, "label apply incomplete",
				"label", path.Name(), "applied", applied, "error", applyErr)
			sum.Skipped += len(msgIDs) - applied
			continue
		}
		s.Logger.InfoContext(ctx, "labeled", "label", path.Name(), "count", applied)
	}
	return sum, nil
}

// Apply adds labelID to the given messages in chunks and returns how many
// were covered by successful calls.
func (s *Service) Apply(ctx context.Context, ids []gc.MessageID, labelID gc.LabelID) (int, error) {
	ops := gc.ModifyOps{AddLabels: []gc.LabelID{labelID}}
	applied := 0
	for i := 0; i < len(ids); i += applyChunk {
		j := i + applyChunk
		if j > len(ids) {
			j = len(ids)
		}
		if err := s.wait(ctx); err != nil {
			return applied, err
		}
		if err := s.Client.BatchModify(ctx, ids[i:j], ops); err != nil {
			return applied, fmt.Errorf("apply label: %w", err)
		}
		applied += j - i
	}
	return applied, nil
}

func (s *Service) listRecent(ctx context.Context, maxMessages, pageSize int) ([]gc.MessageID, error) {
	var ids []gc.MessageID
	token := ""
	for {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		page, err := s.Client.List(ctx, gc.Query{}, token, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		ids = append(ids, page.IDs...)
		if len(ids) >= maxMessages || page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	if len(ids) > maxMessages {
		ids = ids[:maxMessages]
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

func sortedDomains(byDomain map[string][]gc.MessageID) []string {
	domains := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}
