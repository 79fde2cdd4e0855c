package workspace

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ContentCache is the per-user persisted store mapping server file id to raw
// file content. Content is policy-sensitive: it is never sent to the
// workspace API, only kept here and in memory, and the cache is keyed per
// user so switching accounts cannot leak one user's code into another's
// session. Entries are always keyed by server id; client-local ids would not
// survive reconciliation.
type ContentCache struct {
	dir    string
	logger Logger
}

func NewContentCache(dir string, logger Logger) *ContentCache {
	return &ContentCache{dir: strings.TrimSpace(dir), logger: logger}
}

func (c *ContentCache) path(userID string) string {
	return filepath.Join(c.dir, "content-"+sanitizeCacheKey(userID)+".json")
}

// ReadAll returns the stored mapping for userID. A missing or corrupt file
// is treated as empty, never as fatal.
func (c *ContentCache) ReadAll(userID string) map[string]string {
	if c == nil || c.dir == "" || userID == "" {
		return map[string]string{}
	}
	data, err := os.ReadFile(c.path(userID))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logf("content cache read failed for %s: %v", userID, err)
		}
		return map[string]string{}
	}
	var contents map[string]string
	if err := json.Unmarshal(data, &contents); err != nil {
		c.logf("content cache corrupt for %s, treating as empty: %v", userID, err)
		return map[string]string{}
	}
	if contents == nil {
		contents = map[string]string{}
	}
	return contents
}

// WriteAll persists the full mapping for userID. Write failures are logged
// only; in-memory state is unaffected, the content simply does not survive a
// restart.
func (c *ContentCache) WriteAll(userID string, contents map[string]string) {
	if c == nil || c.dir == "" || userID == "" {
		return
	}
	if contents == nil {
		contents = map[string]string{}
	}
	data, err := json.Marshal(contents)
	if err != nil {
		c.logf("content cache encode failed for %s: %v", userID, err)
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.logf("content cache mkdir failed: %v", err)
		return
	}
	if err := writeFileAtomic(c.path(userID), data, 0o600); err != nil {
		c.logf("content cache write failed for %s: %v", userID, err)
	}
}

// Clear removes all persisted content for userID.
func (c *ContentCache) Clear(userID string) {
	if c == nil || c.dir == "" || userID == "" {
		return
	}
	if err := os.Remove(c.path(userID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logf("content cache clear failed for %s: %v", userID, err)
	}
}

func (c *ContentCache) logf(format string, args ...any) {
	if c == nil || c.logger == nil {
		return
	}
	c.logger.Printf(format, args...)
}

func sanitizeCacheKey(userID string) string {
	var b strings.Builder
	for _, r := range userID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
