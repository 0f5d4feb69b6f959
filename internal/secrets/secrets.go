// Package secrets resolves credential references to secret payloads so that
// OAuth client secrets never live in the repository or on the command line.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/zalando/go-keyring"
)

// Resolver turns an opaque secret reference into a credential payload.
type Resolver interface {
	Resolve(ctx context.Context, reference string) ([]byte, error)
}

// ErrCLINotFound indicates the secrets manager binary is not on PATH.
var ErrCLINotFound = errors.New("secrets CLI not found in PATH")

// OnePasswordCLI resolves op:// references by shelling out to the 1Password CLI.
type OnePasswordCLI struct {
	Binary string // defaults to "op"
}

// Resolve invokes `op read --no-color <reference>` and returns trimmed stdout.
func (o OnePasswordCLI) Resolve(ctx context.Context, reference string) ([]byte, error) {
	bin := o.Binary
	if bin == "" {
		bin = "op"
	}
	cmd := exec.CommandContext(ctx, bin, "read", "--no-color", reference) // #nosec G204 - binary determined by user input
	out, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCLINotFound, bin)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf(
				"read secret %q: %w (stderr: %s)",
				reference,
				err,
				strings.TrimSpace(string(exitErr.Stderr)),
			)
		}
		return nil, fmt.Errorf("read secret %q: %w", reference, err)
	}
	payload := strings.TrimSpace(string(out))
	if payload == "" {
		return nil, fmt.Errorf("secret %q resolved to empty payload", reference)
	}
	return []byte(payload), nil
}

// Keyring resolves keyring://service/user references from the OS keyring
// (macOS Keychain, Windows Credential Manager, or Linux Secret Service).
type Keyring struct{}

func (Keyring) Resolve(_ context.Context, reference string) ([]byte, error) {
	rest := strings.TrimPrefix(reference, "keyring://")
	service, user, ok := strings.Cut(rest, "/")
	if !ok || service == "" || user == "" {
		return nil, fmt.Errorf("keyring reference %q must be keyring://service/user", reference)
	}
	secret, err := keyring.Get(service, user)
	if err != nil {
		return nil, fmt.Errorf("load secret from keyring %s/%s: %w", service, user, err)
	}
	return []byte(secret), nil
}

// File reads the payload from a plain file path.
type File struct{}

func (File) Resolve(_ context.Context, reference string) ([]byte, error) {
	data, err := os.ReadFile(reference) // #nosec G304 - path supplied by the user
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return data, nil
}

// FromReference picks the resolver implied by the reference scheme.
func FromReference(reference string) Resolver {
	switch {
	case strings.HasPrefix(reference, "op://"):
		return OnePasswordCLI{}
	case strings.HasPrefix(reference, "keyring://"):
		return Keyring{}
	default:
		return File{}
	}
}
