package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	gc "github.com/calebdoyle/mailsift/internal/gmail"
	"github.com/calebdoyle/mailsift/internal/secrets"
)

type Scope int

const (
	ScopeReadonly Scope = iota
	ScopeModify
)

func (s Scope) url() string {
	if s == ScopeModify {
		return gmailapi.GmailModifyScope
	}
	return gmailapi.GmailReadonlyScope
}

func (s Scope) name() string {
	if s == ScopeModify {
		return "modify"
	}
	return "readonly"
}

// NewGmailClient resolves the OAuth client secret through the secrets
// resolver, acquires or refreshes a token from the scope-specific cache file
// under stateDir, and returns the adapted Gmail client. The secret payload is
// held in memory only; the token cache is the sole state written to disk.
func NewGmailClient(
	ctx context.Context,
	resolver secrets.Resolver,
	credsRef string,
	stateDir string,
	scope Scope,
) (gc.Client, error) {
	payload, err := resolver.Resolve(ctx, credsRef)
	if err != nil {
		return nil, fmt.Errorf("resolve credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(payload, scope.url())
	if err != nil {
		return nil, fmt.Errorf("parse OAuth client secret: %w", err)
	}

	// Scope-specific token files so a readonly run never holds a modify grant.
	tokenPath := filepath.Join(stateDir, fmt.Sprintf("token.%s.json", scope.name()))
	tok, err := loadToken(tokenPath)
	if err != nil {
		tok, err = authorize(ctx, conf)
		if err != nil {
			return nil, fmt.Errorf("authorize %s scope: %w", scope.name(), err)
		}
		if saveErr := saveToken(tokenPath, tok); saveErr != nil {
			return nil, saveErr
		}
	}

	ts := conf.TokenSource(ctx, tok)
	fresh, err := ts.Token()
	if err != nil {
		// Refresh token rejected; force a new consent flow.
		fresh, err = authorize(ctx, conf)
		if err != nil {
			return nil, fmt.Errorf("re-authorize %s scope: %w", scope.name(), err)
		}
		ts = conf.TokenSource(ctx, fresh)
	}
	if saveErr := saveToken(tokenPath, fresh); saveErr != nil {
		return nil, saveErr
	}

	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return NewGoogleAPIClient(svc), nil
}

// authorize runs the browser consent flow against a loopback listener.
func authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("start callback listener: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	conf.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d", port)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errCh <- fmt.Errorf("no code in callback: %s", r.URL.Query().Get("error"))
			fmt.Fprint(w, "Authorization failed. You can close this tab.")
			return
		}
		codeCh <- code
		fmt.Fprint(w, "Authorization successful! You can close this tab.")
	})

	server := &http.Server{Handler: mux}
	go func() { _ = server.Serve(listener) }()
	defer func() { _ = server.Shutdown(ctx) }()

	url := conf.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(os.Stderr, "\nOpen this URL in your browser to authorize mailsift:\n\n  %s\n\nWaiting for authorization...\n", url)

	select {
	case code := <-codeCh:
		tok, exchErr := conf.Exchange(ctx, code)
		if exchErr != nil {
			return nil, fmt.Errorf("exchange auth code: %w", exchErr)
		}
		return tok, nil
	case cbErr := <-errCh:
		return nil, cbErr
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path derived from user-chosen state dir
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode token cache %s: %w", path, err)
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token cache %s: %w", path, err)
	}
	return nil
}

func DefaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// DefaultStateDir is where token caches live unless overridden.
func DefaultStateDir() string {
	return os.ExpandEnv("$HOME/.mailsift")
}
