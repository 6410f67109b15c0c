package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateSecureToken(t *testing.T) {
	a, err := generateSecureToken()
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}
	b, err := generateSecureToken()
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}

	if !strings.HasPrefix(a, tokenPrefix) {
		t.Fatalf("expected prefix %q, got %q", tokenPrefix, a)
	}
	if len(a) != len(tokenPrefix)+64 {
		t.Fatalf("expected 64 hex characters, got %d", len(a)-len(tokenPrefix))
	}
	if a == b {
		t.Fatal("expected distinct tokens")
	}
}

func TestSaveTokenToFile_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".rumtrack", "tokens")

	if err := saveTokenToFile(path, "first"); err != nil {
		t.Fatalf("saving token: %v", err)
	}
	if err := saveTokenToFile(path, "second"); err != nil {
		t.Fatalf("saving token: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading token file: %v", err)
	}
	if string(data) != "first\nsecond\n" {
		t.Fatalf("unexpected token file contents %q", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat token file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("expected mode 0600, got %v", info.Mode().Perm())
	}
}

func TestMaskKey(t *testing.T) {
	tests := map[string]string{
		"":             "(not set)",
		"abc":          "****",
		"abcdef123456": "****3456",
	}
	for key, want := range tests {
		if got := maskKey(key); got != want {
			t.Errorf("maskKey(%q) = %q, want %q", key, got, want)
		}
	}
}
