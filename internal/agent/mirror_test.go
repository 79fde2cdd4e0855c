package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/docubench/workspacesync/internal/workspace"
)

func writeTestFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func newTestMirror(t *testing.T, root string) (*Mirror, *workspace.SyncController) {
	t.Helper()
	controller := workspace.NewSyncController(workspace.SyncControllerOptions{
		Cache: workspace.NewContentCache(t.TempDir(), nil),
	})
	mirror, err := NewMirror(controller, root, nil)
	if err != nil {
		t.Fatalf("NewMirror: %v", err)
	}
	return mirror, controller
}

func TestSyncOnceAddsFilesFromDisk(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "main.go", "package main\n")
	writeTestFile(t, root, "lib/util.ts", "export const x = 1\n")

	mirror, controller := newTestMirror(t, root)
	added, updated, removed, err := mirror.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if added != 2 || updated != 0 || removed != 0 {
		t.Fatalf("expected 2 adds, got %d/%d/%d", added, updated, removed)
	}

	files := controller.Files().Files()
	byName := map[string]workspace.FileRecord{}
	for _, f := range files {
		byName[f.Filename] = f
	}
	if byName["main.go"].Language != "go" {
		t.Fatalf("expected go language, got %q", byName["main.go"].Language)
	}
	if byName["lib/util.ts"].Language != "typescript" {
		t.Fatalf("expected typescript language, got %q", byName["lib/util.ts"].Language)
	}
	if byName["main.go"].Content != "package main\n" {
		t.Fatalf("expected content mirrored, got %q", byName["main.go"].Content)
	}
}

func TestSyncOnceUpdatesChangedContent(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "main.go", "v1\n")

	mirror, controller := newTestMirror(t, root)
	if _, _, _, err := mirror.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}

	writeTestFile(t, root, "main.go", "v2\n")
	added, updated, removed, err := mirror.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if added != 0 || updated != 1 || removed != 0 {
		t.Fatalf("expected 1 update, got %d/%d/%d", added, updated, removed)
	}
	rec := controller.Files().Files()[0]
	if rec.Content != "v2\n" {
		t.Fatalf("expected refreshed content, got %q", rec.Content)
	}
	if rec.FileSize != len("v2\n") {
		t.Fatalf("expected size re-derived, got %d", rec.FileSize)
	}
}

func TestSyncOnceRemovesDeletedFiles(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "keep.go", "keep\n")
	writeTestFile(t, root, "drop.go", "drop\n")

	mirror, controller := newTestMirror(t, root)
	if _, _, _, err := mirror.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if err := os.Remove(filepath.Join(root, "drop.go")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	added, updated, removed, err := mirror.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if added != 0 || updated != 0 || removed != 1 {
		t.Fatalf("expected 1 removal, got %d/%d/%d", added, updated, removed)
	}
	files := controller.Files().Files()
	if len(files) != 1 || files[0].Filename != "keep.go" {
		t.Fatalf("expected only keep.go, got %+v", files)
	}
}

func TestSyncOnceLeavesForeignOriginsAlone(t *testing.T) {
	root := t.TempDir()
	mirror, controller := newTestMirror(t, root)
	controller.Files().AddFile(workspace.NewFile{
		Filename: "remote.go",
		Origin:   workspace.OriginGithub,
		Content:  "from github\n",
	})

	added, updated, removed, err := mirror.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if added != 0 || updated != 0 || removed != 0 {
		t.Fatalf("expected untouched workspace, got %d/%d/%d", added, updated, removed)
	}
	if controller.Files().FileCount() != 1 {
		t.Fatalf("expected github record kept")
	}
}

func TestScanSkipsHiddenAndBinaryEntries(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "code.go", "ok\n")
	writeTestFile(t, root, ".env", "SECRET=1\n")
	writeTestFile(t, root, ".git/config", "noise\n")
	writeTestFile(t, root, "node_modules/pkg/index.js", "noise\n")
	if err := os.WriteFile(filepath.Join(root, "blob.bin"), []byte{0x00, 0x01, 0x02}, 0o644); err != nil {
		t.Fatalf("write binary: %v", err)
	}

	mirror, _ := newTestMirror(t, root)
	onDisk, err := mirror.scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(onDisk) != 1 {
		t.Fatalf("expected only code.go, got %v", onDisk)
	}
	if _, ok := onDisk["code.go"]; !ok {
		t.Fatalf("expected code.go present, got %v", onDisk)
	}
}

func TestLanguageForFilename(t *testing.T) {
	if got := languageForFilename("a/b/handler.TSX"); got != "typescript" {
		t.Fatalf("expected typescript, got %q", got)
	}
	if got := languageForFilename("README"); got != "javascript" {
		t.Fatalf("expected javascript fallback, got %q", got)
	}
}
