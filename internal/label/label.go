// Package label classifies unsubscribe-bearing mail and files it under
// nested per-domain labels.
package label

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	gc "github.com/calebdoyle/mailsift/internal/gmail"
)

// ErrMalformedAddress reports a sender address with no extractable domain.
// Callers skip the message rather than aborting the run.
var ErrMalformedAddress = errors.New("malformed sender address")

// Path is an ordered sequence of nested label segments.
type Path []string

// Name joins the segments with Gmail's nested-label separator.
func (p Path) Name() string { return strings.Join(p, "/") }

// ResolvePath deterministically builds the nested path for a sender domain.
func ResolvePath(parent, domain string) Path { return Path{parent, domain} }

// DomainOf extracts the lower-cased domain of a From header value. It accepts
// both RFC 5322 forms ("Name <a@x.com>") and bare addresses.
func DomainOf(sender string) (string, error) {
	addr := strings.TrimSpace(sender)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		addr = parsed.Address
	} else if start := strings.LastIndex(addr, "<"); start != -1 {
		if end := strings.Index(addr[start:], ">"); end != -1 {
			addr = addr[start+1 : start+end]
		}
	}
	addr = strings.ToLower(strings.TrimSpace(addr))
	at := strings.LastIndex(addr, "@")
	if at == -1 {
		return "", fmt.Errorf("%q: %w", sender, ErrMalformedAddress)
	}
	domain := strings.Trim(addr[at+1:], ". ")
	if domain == "" {
		return "", fmt.Errorf("%q: %w", sender, ErrMalformedAddress)
	}
	return domain, nil
}

// Registry caches the label name to identifier mapping for one run. It is the
// single source of truth within a run: resolving the same path twice returns
// the same identifier and creates the label at most once.
type Registry struct {
	client gc.Client
	byName map[string]gc.LabelID
}

// NewRegistry lists the account's labels once and seeds the cache.
func NewRegistry(ctx context.Context, client gc.Client) (*Registry, error) {
	byName, _, err := client.ListLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	if byName == nil {
		byName = map[string]gc.LabelID{}
	}
	return &Registry{client: client, byName: byName}, nil
}

// EnsureLabel returns the identifier for path, creating the label on first
// miss. A create failure because the label already exists server-side is
// resolved by re-listing and using the existing identifier.
func (r *Registry) EnsureLabel(ctx context.Context, path Path) (gc.LabelID, error) {
	name := path.Name()
	if id, ok := r.byName[name]; ok {
		return id, nil
	}
	id, createErr := r.client.CreateLabel(ctx, name)
	if createErr == nil {
		r.byName[name] = id
		return id, nil
	}
	// The label may have been created out-of-band since the registry was
	// seeded; treat exists-already as fetch-and-use.
	byName, _, listErr := r.client.ListLabels(ctx)
	if listErr != nil {
		return "", fmt.Errorf("ensure label %q: %w", name, createErr)
	}
	if id, ok := byName[name]; ok {
		r.byName[name] = id
		return id, nil
	}
	return "", fmt.Errorf("ensure label %q: %w", name, createErr)
}
