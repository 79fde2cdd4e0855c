package agent

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/docubench/workspacesync/internal/workspace"
)

const maxMirroredFileBytes = 1 << 20

// Mirror keeps a local source directory and the workspace file list in
// step: files on disk become workspace records, edits update them, and
// deletions remove them. Records the mirror did not create (origin other
// than upload) are left alone.
type Mirror struct {
	controller *workspace.SyncController
	root       string
	logger     workspace.Logger
}

func NewMirror(controller *workspace.SyncController, root string, logger workspace.Logger) (*Mirror, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("mirror root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("mirror root %s is not a directory", abs)
	}
	return &Mirror{controller: controller, root: abs, logger: logger}, nil
}

// SyncOnce scans the root and applies one reconciliation pass. It reports
// the number of adds, updates, and removals it performed.
func (m *Mirror) SyncOnce(ctx context.Context) (added, updated, removed int, err error) {
	onDisk, err := m.scan()
	if err != nil {
		return 0, 0, 0, err
	}

	byFilename := map[string]workspace.FileRecord{}
	for _, rec := range m.controller.Files().Files() {
		if rec.Origin != workspace.OriginUpload {
			continue
		}
		byFilename[rec.Filename] = rec
	}

	for filename, content := range onDisk {
		existing, present := byFilename[filename]
		if !present {
			m.controller.AddFileWithPersistence(ctx, workspace.NewFile{
				Filename: filename,
				Language: languageForFilename(filename),
				Content:  content,
				Origin:   workspace.OriginUpload,
			})
			added++
			continue
		}
		if existing.Content != content {
			contentCopy := content
			m.controller.UpdateFileWithPersistence(ctx, existing.ID, workspace.FileUpdate{
				Content: &contentCopy,
			})
			updated++
		}
	}

	var stale []string
	for filename, rec := range byFilename {
		if _, present := onDisk[filename]; !present {
			stale = append(stale, rec.ID)
		}
	}
	if len(stale) > 0 {
		m.controller.RemoveFilesWithPersistence(ctx, stale)
		removed = len(stale)
	}
	return added, updated, removed, nil
}

// scan collects mirrorable files keyed by their slash-separated path
// relative to the root. Hidden entries, oversized files, and binary
// content are skipped.
func (m *Mirror) scan() (map[string]string, error) {
	out := map[string]string{}
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != m.root && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > maxMirroredFileBytes {
			m.logf("skipping %s: exceeds mirror size limit", path)
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			m.logf("skipping %s: %v", path, err)
			return nil
		}
		if bytes.IndexByte(data, 0) >= 0 {
			return nil
		}
		rel, err := filepath.Rel(m.root, path)
		if err != nil {
			return nil
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mirror) logf(format string, args ...any) {
	if m.logger == nil {
		return
	}
	m.logger.Printf(format, args...)
}

var extensionLanguages = map[string]string{
	".go":    "go",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".py":    "python",
	".rb":    "ruby",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".swift": "swift",
	".md":    "markdown",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".sh":    "shell",
	".sql":   "sql",
	".html":  "html",
	".css":   "css",
}

func languageForFilename(filename string) string {
	if lang, ok := extensionLanguages[strings.ToLower(filepath.Ext(filename))]; ok {
		return lang
	}
	return "javascript"
}
