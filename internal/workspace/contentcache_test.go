package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestContentCacheRoundTrip(t *testing.T) {
	cache := NewContentCache(t.TempDir(), nil)
	cache.WriteAll("user-1", map[string]string{
		"wf_1": "const a = 1",
		"wf_2": "def b(): pass",
	})
	contents := cache.ReadAll("user-1")
	if len(contents) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(contents))
	}
	if contents["wf_1"] != "const a = 1" {
		t.Fatalf("unexpected content: %q", contents["wf_1"])
	}
}

func TestContentCacheMissingIsEmpty(t *testing.T) {
	cache := NewContentCache(t.TempDir(), nil)
	contents := cache.ReadAll("nobody")
	if contents == nil || len(contents) != 0 {
		t.Fatalf("expected empty map, got %v", contents)
	}
}

func TestContentCacheCorruptIsEmpty(t *testing.T) {
	dir := t.TempDir()
	cache := NewContentCache(dir, nil)
	if err := os.WriteFile(filepath.Join(dir, "content-user-1.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt cache failed: %v", err)
	}
	contents := cache.ReadAll("user-1")
	if len(contents) != 0 {
		t.Fatalf("expected corrupt cache to read as empty, got %v", contents)
	}
}

func TestContentCacheScopedPerUser(t *testing.T) {
	cache := NewContentCache(t.TempDir(), nil)
	cache.WriteAll("alice", map[string]string{"wf_1": "alice code"})
	cache.WriteAll("bob", map[string]string{"wf_1": "bob code"})
	if got := cache.ReadAll("alice")["wf_1"]; got != "alice code" {
		t.Fatalf("expected alice's content, got %q", got)
	}
	if got := cache.ReadAll("bob")["wf_1"]; got != "bob code" {
		t.Fatalf("expected bob's content, got %q", got)
	}
}

func TestContentCacheClearRemovesOnlyThatUser(t *testing.T) {
	cache := NewContentCache(t.TempDir(), nil)
	cache.WriteAll("alice", map[string]string{"wf_1": "alice code"})
	cache.WriteAll("bob", map[string]string{"wf_2": "bob code"})
	cache.Clear("alice")
	if len(cache.ReadAll("alice")) != 0 {
		t.Fatalf("expected alice's cache cleared")
	}
	if len(cache.ReadAll("bob")) != 1 {
		t.Fatalf("expected bob's cache untouched")
	}
}

func TestContentCacheSanitizesUserKey(t *testing.T) {
	dir := t.TempDir()
	cache := NewContentCache(dir, nil)
	cache.WriteAll("user/../../etc", map[string]string{"wf_1": "x"})
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read cache dir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one cache file inside dir, got %d", len(entries))
	}
	if got := cache.ReadAll("user/../../etc")["wf_1"]; got != "x" {
		t.Fatalf("expected sanitized key round-trip, got %q", got)
	}
}
