package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type fakeRemote struct {
	mu      sync.Mutex
	files   map[string]WorkspaceFileDTO
	order   []string
	counter int

	failAdd    bool
	failDelete bool
	failList   bool

	addCalls    int
	updateCalls int
	deleteCalls int
	clearCalls  int
	listCalls   int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{files: map[string]WorkspaceFileDTO{}}
}

func (f *fakeRemote) GetWorkspace(ctx context.Context) ([]WorkspaceFileDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failList {
		return nil, errors.New("list unavailable")
	}
	out := make([]WorkspaceFileDTO, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.files[id])
	}
	return out, nil
}

func (f *fakeRemote) AddWorkspaceFile(ctx context.Context, req AddFileRequest) (WorkspaceFileDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if f.failAdd {
		return WorkspaceFileDTO{}, errors.New("add rejected")
	}
	f.counter++
	dto := WorkspaceFileDTO{
		ID:            fmt.Sprintf("srv-%d", f.counter),
		Filename:      req.Filename,
		Language:      req.Language,
		FileSizeBytes: req.FileSizeBytes,
		DocType:       req.DocType,
		Origin:        req.Origin,
		DocumentID:    req.DocumentID,
	}
	f.files[dto.ID] = dto
	f.order = append(f.order, dto.ID)
	return dto, nil
}

func (f *fakeRemote) UpdateWorkspaceFile(ctx context.Context, fileID string, req UpdateFileRequest) (WorkspaceFileDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	dto, ok := f.files[fileID]
	if !ok {
		return WorkspaceFileDTO{}, errors.New("no such file")
	}
	if req.DocumentID != nil {
		dto.DocumentID = req.DocumentID
	}
	if req.DocType != nil {
		dto.DocType = *req.DocType
	}
	f.files[fileID] = dto
	return dto, nil
}

func (f *fakeRemote) DeleteWorkspaceFile(ctx context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.failDelete {
		return errors.New("delete rejected")
	}
	delete(f.files, fileID)
	for i, id := range f.order {
		if id == fileID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeRemote) ClearWorkspace(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	n := len(f.files)
	f.files = map[string]WorkspaceFileDTO{}
	f.order = nil
	return n, nil
}

func newTestController(t *testing.T, remote RemoteClient) *SyncController {
	t.Helper()
	return NewSyncController(SyncControllerOptions{
		Client:  remote,
		Files:   NewFileList(),
		Cache:   NewContentCache(t.TempDir(), nil),
		Session: Session{UserID: "user-1", Entitled: true},
	})
}

func TestAddFileWithPersistenceRecordsMapping(t *testing.T) {
	remote := newFakeRemote()
	c := newTestController(t, remote)

	id := c.AddFileWithPersistence(context.Background(), NewFile{Filename: "a.js", Content: "x=1"})
	serverID, ok := c.ServerFileID(id)
	if !ok {
		t.Fatalf("expected a server id mapping")
	}
	clientID, ok := c.ClientFileID(serverID)
	if !ok || clientID != id {
		t.Fatalf("expected lock-step mapping, got %q", clientID)
	}
	if remote.addCalls != 1 {
		t.Fatalf("expected one remote add, got %d", remote.addCalls)
	}
}

func TestAddFileRemoteFailureKeepsLocalRecord(t *testing.T) {
	remote := newFakeRemote()
	remote.failAdd = true
	c := newTestController(t, remote)

	id := c.AddFileWithPersistence(context.Background(), NewFile{Filename: "a.js"})
	if _, ok := c.Files().FileByID(id); !ok {
		t.Fatalf("expected record to survive remote failure")
	}
	if _, ok := c.ServerFileID(id); ok {
		t.Fatalf("expected no mapping after remote failure")
	}
}

func TestAddFileWithoutEntitlementStaysLocal(t *testing.T) {
	remote := newFakeRemote()
	c := NewSyncController(SyncControllerOptions{
		Client:  remote,
		Files:   NewFileList(),
		Cache:   NewContentCache(t.TempDir(), nil),
		Session: Session{UserID: "user-1", Entitled: false},
	})
	id := c.AddFileWithPersistence(context.Background(), NewFile{Filename: "a.js"})
	if _, ok := c.Files().FileByID(id); !ok {
		t.Fatalf("expected local record")
	}
	if remote.addCalls != 0 {
		t.Fatalf("expected no remote call without entitlement, got %d", remote.addCalls)
	}
}

func TestAddFilesBatchMapsEachIndependently(t *testing.T) {
	remote := newFakeRemote()
	c := newTestController(t, remote)

	ids := c.AddFilesWithPersistence(context.Background(), []NewFile{
		{Filename: "a.js", Content: "aaa"},
		{Filename: "b.js", Content: "bbb"},
		{Filename: "c.js"},
	})
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}
	for _, id := range ids {
		if _, ok := c.ServerFileID(id); !ok {
			t.Fatalf("expected mapping for %s", id)
		}
	}
	if remote.addCalls != 3 {
		t.Fatalf("expected 3 remote adds, got %d", remote.addCalls)
	}
}

func TestRemoveFileWithPersistenceDeletesRemoteAndPurges(t *testing.T) {
	remote := newFakeRemote()
	c := newTestController(t, remote)

	id := c.AddFileWithPersistence(context.Background(), NewFile{Filename: "a.js", Content: "x=1"})
	serverID, _ := c.ServerFileID(id)

	c.RemoveFileWithPersistence(context.Background(), id)
	if _, ok := c.Files().FileByID(id); ok {
		t.Fatalf("expected local record removed")
	}
	if _, ok := c.ServerFileID(id); ok {
		t.Fatalf("expected mapping forgotten")
	}
	if _, ok := remote.files[serverID]; ok {
		t.Fatalf("expected remote file deleted")
	}
}

func TestRemoveFileRemoteFailureKeepsLocalDeletion(t *testing.T) {
	remote := newFakeRemote()
	c := newTestController(t, remote)
	id := c.AddFileWithPersistence(context.Background(), NewFile{Filename: "a.js"})
	remote.failDelete = true
	c.RemoveFileWithPersistence(context.Background(), id)
	if _, ok := c.Files().FileByID(id); ok {
		t.Fatalf("expected local deletion to stand despite remote failure")
	}
}

func TestUpdateFileSyncsOnlyRemoteAuthoritativeFields(t *testing.T) {
	remote := newFakeRemote()
	c := newTestController(t, remote)
	id := c.AddFileWithPersistence(context.Background(), NewFile{Filename: "a.js"})

	content := "new content"
	generating := true
	c.UpdateFileWithPersistence(context.Background(), id, FileUpdate{Content: &content, IsGenerating: &generating})
	if remote.updateCalls != 0 {
		t.Fatalf("expected no remote update for session-local fields, got %d", remote.updateCalls)
	}

	docID := "doc-9"
	docType := DocTypeAPI
	c.UpdateFileWithPersistence(context.Background(), id, FileUpdate{DocumentID: &docID, DocType: &docType})
	if remote.updateCalls != 1 {
		t.Fatalf("expected one remote update, got %d", remote.updateCalls)
	}
	serverID, _ := c.ServerFileID(id)
	if got := remote.files[serverID]; got.DocumentID == nil || *got.DocumentID != "doc-9" || got.DocType != "API" {
		t.Fatalf("expected remote patch applied, got %+v", got)
	}
}

func TestUpdateUnsyncedFileSkipsRemoteCall(t *testing.T) {
	remote := newFakeRemote()
	remote.failAdd = true
	c := newTestController(t, remote)
	id := c.AddFileWithPersistence(context.Background(), NewFile{Filename: "a.js"})
	remote.failAdd = false

	docID := "doc-1"
	c.UpdateFileWithPersistence(context.Background(), id, FileUpdate{DocumentID: &docID})
	if remote.updateCalls != 0 {
		t.Fatalf("expected no remote update without a mapping, got %d", remote.updateCalls)
	}
	rec, _ := c.Files().FileByID(id)
	if rec.DocumentID == nil || *rec.DocumentID != "doc-1" {
		t.Fatalf("expected local update to apply regardless")
	}
}

func TestClearFilesWithPersistenceClearsEverything(t *testing.T) {
	remote := newFakeRemote()
	c := newTestController(t, remote)
	c.AddFilesWithPersistence(context.Background(), []NewFile{
		{Filename: "a.js", Content: "aaa"},
		{Filename: "b.js", Content: "bbb"},
	})

	c.ClearFilesWithPersistence(context.Background())
	if c.Files().HasFiles() {
		t.Fatalf("expected empty local store")
	}
	if remote.clearCalls != 1 {
		t.Fatalf("expected one remote clear, got %d", remote.clearCalls)
	}
	if len(remote.files) != 0 {
		t.Fatalf("expected remote workspace cleared")
	}
}

func TestReloadWorkspaceMergesCachedContent(t *testing.T) {
	remote := newFakeRemote()
	c := newTestController(t, remote)

	id := c.AddFileWithPersistence(context.Background(), NewFile{Filename: "a.js", Content: "x=1"})
	serverID, _ := c.ServerFileID(id)
	if serverID == "" {
		t.Fatalf("expected server id after add")
	}

	if err := c.ReloadWorkspace(context.Background()); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	files := c.Files().Files()
	if len(files) != 1 {
		t.Fatalf("expected one reloaded record, got %d", len(files))
	}
	if files[0].Content != "x=1" {
		t.Fatalf("expected cached content merged on reload, got %q", files[0].Content)
	}
	if files[0].ID == id {
		t.Fatalf("expected a fresh client id after wholesale replacement")
	}
	if mapped, ok := c.ClientFileID(serverID); !ok || mapped != files[0].ID {
		t.Fatalf("expected bridge rebuilt for %s", serverID)
	}
}

func TestReloadWorkspaceUncachedContentFallsBackToEmpty(t *testing.T) {
	remote := newFakeRemote()
	if _, err := remote.AddWorkspaceFile(context.Background(), AddFileRequest{Filename: "ext.js", Language: "javascript"}); err != nil {
		t.Fatalf("seed remote failed: %v", err)
	}
	c := newTestController(t, remote)
	if err := c.ReloadWorkspace(context.Background()); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	files := c.Files().Files()
	if len(files) != 1 || files[0].Content != "" {
		t.Fatalf("expected empty content for uncached remote file, got %+v", files)
	}
}

func TestLoadIfEmptySkipsNonEmptyStore(t *testing.T) {
	remote := newFakeRemote()
	c := newTestController(t, remote)
	c.Files().AddFile(NewFile{Filename: "local.js"})
	c.LoadIfEmpty(context.Background())
	if remote.listCalls != 0 {
		t.Fatalf("expected no remote list for non-empty store, got %d", remote.listCalls)
	}
}

func TestLoadIfEmptyRequiresEligibility(t *testing.T) {
	remote := newFakeRemote()
	c := NewSyncController(SyncControllerOptions{
		Client:  remote,
		Files:   NewFileList(),
		Cache:   NewContentCache(t.TempDir(), nil),
		Session: Session{UserID: "", Entitled: true},
	})
	c.LoadIfEmpty(context.Background())
	if remote.listCalls != 0 {
		t.Fatalf("expected no remote list when unauthenticated, got %d", remote.listCalls)
	}
}

func TestLoadIfEmptyFailureLeavesStoreUsable(t *testing.T) {
	remote := newFakeRemote()
	remote.failList = true
	c := newTestController(t, remote)
	c.LoadIfEmpty(context.Background())
	if c.Files().HasFiles() {
		t.Fatalf("expected store to stay empty after failed load")
	}
	id := c.Files().AddFile(NewFile{Filename: "still-works.js"})
	if _, ok := c.Files().FileByID(id); !ok {
		t.Fatalf("expected local operations to keep working")
	}
}
