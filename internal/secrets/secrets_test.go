package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFromReference(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		want      string
	}{
		{name: "onepassword", reference: "op://vault/item/field", want: "OnePasswordCLI"},
		{name: "keyring", reference: "keyring://mailsift/default", want: "Keyring"},
		{name: "plain-path", reference: "credentials.json", want: "File"},
		{name: "absolute-path", reference: "/etc/mailsift/credentials.json", want: "File"},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			var got string
			switch FromReference(tc.reference).(type) {
			case OnePasswordCLI:
				got = "OnePasswordCLI"
			case Keyring:
				got = "Keyring"
			case File:
				got = "File"
			}
			if got != tc.want {
				t.Fatalf("FromReference(%q) = %s, want %s", tc.reference, got, tc.want)
			}
		})
	}
}

func TestFileResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")
	if err := os.WriteFile(path, []byte(`{"installed":{}}`), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := File{}.Resolve(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `{"installed":{}}` {
		t.Fatalf("unexpected payload: %q", got)
	}

	if _, err := (File{}).Resolve(context.Background(), filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestKeyringResolveRejectsBadReference(t *testing.T) {
	tests := []string{
		"keyring://",
		"keyring://serviceonly",
		"keyring:///user",
	}
	for _, ref := range tests {
		if _, err := (Keyring{}).Resolve(context.Background(), ref); err == nil {
			t.Fatalf("expected error for reference %q", ref)
		}
	}
}

func TestOnePasswordCLIMissingBinary(t *testing.T) {
	cli := OnePasswordCLI{Binary: "definitely-not-a-real-binary"}
	_, err := cli.Resolve(context.Background(), "op://vault/item/field")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrCLINotFound) {
		t.Fatalf("expected ErrCLINotFound, got %v", err)
	}
}
