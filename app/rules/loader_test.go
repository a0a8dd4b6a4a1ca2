package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleRules = `{
	// Entries older than this many days are archived unless a more
	// specific rule says otherwise.
	"max_age": 30,

	"feed_specific": [
		{"feed_id": 100, "max_age": 5},
		{"feed_id": 200, "keep_n": 3}, // trailing comma is fine
	],

	/* Patterns match anywhere in the feed title. */
	"title_regex": [
		{"title_regex": "(?i)daily", "max_age": 3},
	],
}`

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing rules file: %v", err)
	}
	return path
}

func TestLoadFile_JSONCWithComments(t *testing.T) {
	store := NewStore(60, nil)

	if err := LoadFile(writeRulesFile(t, sampleRules), store); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if got := store.MaxAge(999, ""); got != 30*24*time.Hour {
		t.Errorf("Expected global max_age from file (30 days), got %v", got)
	}
	if got := store.MaxAge(100, ""); got != 5*24*time.Hour {
		t.Errorf("Expected feed 100 max age 5 days, got %v", got)
	}
	if n, ok := store.KeepN(200, ""); !ok || n != 3 {
		t.Errorf("Expected keep-n 3 for feed 200, got %d (ok=%v)", n, ok)
	}
	if got := store.MaxAge(300, "Daily Roundup"); got != 3*24*time.Hour {
		t.Errorf("Expected title pattern max age 3 days, got %v", got)
	}
}

func TestLoadFile_SpecErrorSurfaces(t *testing.T) {
	store := NewStore(30, nil)

	err := LoadFile(writeRulesFile(t, `{"max_age": 30}`), store)
	var specErr *SpecError
	if !errors.As(err, &specErr) {
		t.Errorf("Expected SpecError for a document without rule lists, got %v", err)
	}
}

func TestLoadFile_MalformedDocument(t *testing.T) {
	store := NewStore(30, nil)

	// Non-numeric threshold is rejected at load time, not evaluation time.
	err := LoadFile(writeRulesFile(t, `{"feed_specific": [{"feed_id": 100, "max_age": "old"}]}`), store)
	if err == nil {
		t.Fatal("Expected an error for a non-numeric max_age")
	}
	var specErr *SpecError
	if errors.As(err, &specErr) {
		t.Errorf("Type mismatches should be parse errors, not SpecError: %v", err)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	store := NewStore(30, nil)

	err := LoadFile(filepath.Join(t.TempDir(), "nope.json"), store)
	if err == nil {
		t.Fatal("Expected an error for a missing rules file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected wrapped os.ErrNotExist, got %v", err)
	}
}
