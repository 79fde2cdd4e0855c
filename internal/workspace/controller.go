package workspace

import (
	"context"
	"sync"
)

// Session describes the user the controller syncs for. An empty UserID means
// unauthenticated; Entitled reflects whether the user's plan includes the
// persisted multi-file workspace at all.
type Session struct {
	UserID   string
	Entitled bool
}

type SyncControllerOptions struct {
	Client  RemoteClient
	Files   *FileList
	Cache   *ContentCache
	Session Session
	Logger  Logger
}

// SyncController orchestrates optimistic local mutation against the
// FileList with best-effort remote synchronization. Local state is always
// authoritative for the current session: remote failures are logged and
// never roll back a user-visible action, and none of the ...WithPersistence
// operations can fail from the caller's point of view. The remote workspace
// is a convenience cache for cross-session continuity, not the record of
// truth.
type SyncController struct {
	client  RemoteClient
	files   *FileList
	cache   *ContentCache
	bridge  *idBridge
	session Session
	logger  Logger

	syncMu  sync.Mutex
	syncing bool
}

func NewSyncController(opts SyncControllerOptions) *SyncController {
	files := opts.Files
	if files == nil {
		files = NewFileList()
	}
	cache := opts.Cache
	if cache == nil {
		cache = NewContentCache("", opts.Logger)
	}
	return &SyncController{
		client:  opts.Client,
		files:   files,
		cache:   cache,
		bridge:  newIDBridge(),
		session: opts.Session,
		logger:  opts.Logger,
	}
}

// Files exposes the underlying list for read access and purely local
// mutations.
func (c *SyncController) Files() *FileList {
	return c.files
}

// ServerFileID reports the server-assigned id for a client-local record, if
// the record has been successfully persisted.
func (c *SyncController) ServerFileID(clientID string) (string, bool) {
	return c.bridge.serverID(clientID)
}

// ClientFileID is the reverse lookup of ServerFileID.
func (c *SyncController) ClientFileID(serverID string) (string, bool) {
	return c.bridge.clientID(serverID)
}

// IsSyncing reports whether a reload is in flight.
func (c *SyncController) IsSyncing() bool {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()
	return c.syncing
}

func (c *SyncController) eligible() bool {
	return c.client != nil && c.session.UserID != "" && c.session.Entitled
}

// canRemote gates every remote-touching operation: authenticated, entitled,
// and no reload currently in flight. A failed check degrades the operation
// to its pure local behavior.
func (c *SyncController) canRemote() bool {
	return c.eligible() && !c.IsSyncing()
}

func (c *SyncController) beginSync() bool {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()
	if c.syncing {
		return false
	}
	c.syncing = true
	return true
}

func (c *SyncController) endSync() {
	c.syncMu.Lock()
	c.syncing = false
	c.syncMu.Unlock()
}

func addRequestFor(rec FileRecord) AddFileRequest {
	return AddFileRequest{
		Filename:      rec.Filename,
		Language:      rec.Language,
		FileSizeBytes: rec.FileSize,
		DocType:       string(rec.DocType),
		Origin:        string(rec.Origin),
		Github:        rec.Github,
		DocumentID:    rec.DocumentID,
	}
}

// AddFileWithPersistence applies the local add immediately and then issues
// the remote add. On success the id mapping is recorded and non-empty
// content is persisted to the content cache under the new server id. The
// local id is returned either way.
func (c *SyncController) AddFileWithPersistence(ctx context.Context, f NewFile) string {
	id := c.files.AddFile(f)
	if !c.canRemote() {
		return id
	}
	rec, ok := c.files.FileByID(id)
	if !ok {
		return id
	}
	dto, err := c.client.AddWorkspaceFile(ctx, addRequestFor(rec))
	if err != nil {
		c.logf("workspace add failed for %s: %v", rec.Filename, err)
		return id
	}
	c.bridge.record(dto.ID, id)
	if rec.Content != "" {
		contents := c.cache.ReadAll(c.session.UserID)
		contents[dto.ID] = rec.Content
		c.cache.WriteAll(c.session.UserID, contents)
	}
	return id
}

// AddFilesWithPersistence is the batch variant. Remote adds are issued
// concurrently and mapped independently on success; the content cache is
// written once after all remote calls, as a single read-modify-write.
func (c *SyncController) AddFilesWithPersistence(ctx context.Context, list []NewFile) []string {
	ids := c.files.AddFiles(list)
	if len(ids) == 0 || !c.canRemote() {
		return ids
	}
	type addResult struct {
		serverID string
		content  string
	}
	results := make([]addResult, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		rec, ok := c.files.FileByID(id)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(i int, rec FileRecord) {
			defer wg.Done()
			dto, err := c.client.AddWorkspaceFile(ctx, addRequestFor(rec))
			if err != nil {
				c.logf("workspace add failed for %s: %v", rec.Filename, err)
				return
			}
			c.bridge.record(dto.ID, rec.ID)
			results[i] = addResult{serverID: dto.ID, content: rec.Content}
		}(i, rec)
	}
	wg.Wait()

	contents := c.cache.ReadAll(c.session.UserID)
	changed := false
	for _, result := range results {
		if result.serverID == "" || result.content == "" {
			continue
		}
		contents[result.serverID] = result.content
		changed = true
	}
	if changed {
		c.cache.WriteAll(c.session.UserID, contents)
	}
	return ids
}

// RemoveFileWithPersistence removes the record locally, then issues a
// best-effort remote delete when a mapping exists and purges the content
// cache entry and the mapping. A remote failure never restores the record.
func (c *SyncController) RemoveFileWithPersistence(ctx context.Context, id string) {
	c.files.RemoveFile(id)
	serverID, ok := c.bridge.serverID(id)
	if !ok {
		return
	}
	c.bridge.forget(id)
	c.purgeCachedContent([]string{serverID})
	if !c.canRemote() {
		return
	}
	if err := c.client.DeleteWorkspaceFile(ctx, serverID); err != nil {
		c.logf("workspace delete failed for %s: %v", serverID, err)
	}
}

// RemoveFilesWithPersistence removes several records locally, then issues
// the remote deletes concurrently and purges cache and mapping entries in
// one pass.
func (c *SyncController) RemoveFilesWithPersistence(ctx context.Context, ids []string) {
	serverIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		c.files.RemoveFile(id)
		if serverID, ok := c.bridge.serverID(id); ok {
			serverIDs = append(serverIDs, serverID)
			c.bridge.forget(id)
		}
	}
	if len(serverIDs) == 0 {
		return
	}
	c.purgeCachedContent(serverIDs)
	if !c.canRemote() {
		return
	}
	var wg sync.WaitGroup
	for _, serverID := range serverIDs {
		wg.Add(1)
		go func(serverID string) {
			defer wg.Done()
			if err := c.client.DeleteWorkspaceFile(ctx, serverID); err != nil {
				c.logf("workspace delete failed for %s: %v", serverID, err)
			}
		}(serverID)
	}
	wg.Wait()
}

// ClearFilesWithPersistence clears local state, the id bridge, and the
// per-user content cache, then issues one best-effort remote clear.
func (c *SyncController) ClearFilesWithPersistence(ctx context.Context) {
	c.files.ClearFiles()
	c.bridge.clear()
	c.cache.Clear(c.session.UserID)
	if !c.canRemote() {
		return
	}
	if _, err := c.client.ClearWorkspace(ctx); err != nil {
		c.logf("workspace clear failed: %v", err)
	}
}

// UpdateFileWithPersistence always applies the local update. A remote PATCH
// is issued only when the update touches documentId or docType; every other
// field is session-local by design, which keeps file content off the wire
// to this endpoint. A content change refreshes the cached copy.
func (c *SyncController) UpdateFileWithPersistence(ctx context.Context, id string, u FileUpdate) {
	c.files.UpdateFile(id, u)
	serverID, ok := c.bridge.serverID(id)
	if !ok {
		return
	}
	if u.Content != nil {
		contents := c.cache.ReadAll(c.session.UserID)
		if *u.Content == "" {
			delete(contents, serverID)
		} else {
			contents[serverID] = *u.Content
		}
		c.cache.WriteAll(c.session.UserID, contents)
	}
	if u.DocumentID == nil && u.DocType == nil {
		return
	}
	if !c.canRemote() {
		return
	}
	req := UpdateFileRequest{DocumentID: u.DocumentID}
	if u.DocType != nil {
		docType := string(*u.DocType)
		req.DocType = &docType
	}
	if _, err := c.client.UpdateWorkspaceFile(ctx, serverID, req); err != nil {
		c.logf("workspace update failed for %s: %v", serverID, err)
	}
}

// ReloadWorkspace re-fetches the authoritative list, rebuilds the id bridge
// from scratch, merges cached content per server id, and replaces the local
// list wholesale. Used at mount and whenever an external actor may have
// mutated the remote workspace. A reload already in flight makes the call a
// no-op.
func (c *SyncController) ReloadWorkspace(ctx context.Context) error {
	if !c.eligible() {
		return nil
	}
	if !c.beginSync() {
		return nil
	}
	defer c.endSync()

	dtos, err := c.client.GetWorkspace(ctx)
	if err != nil {
		return err
	}
	cached := c.cache.ReadAll(c.session.UserID)

	c.files.ClearFiles()
	c.bridge.clear()
	newFiles := make([]NewFile, 0, len(dtos))
	for _, dto := range dtos {
		f := dto.RecordFields()
		f.Content = cached[dto.ID]
		newFiles = append(newFiles, f)
	}
	ids := c.files.AddFiles(newFiles)
	for i, dto := range dtos {
		c.bridge.record(dto.ID, ids[i])
	}
	return nil
}

// LoadIfEmpty is the mount-time load: it reloads only when the user is
// eligible, the local list is empty, and no sync is in flight. Failures are
// logged, not returned.
func (c *SyncController) LoadIfEmpty(ctx context.Context) {
	if c.files.HasFiles() {
		return
	}
	if !c.eligible() {
		return
	}
	if err := c.ReloadWorkspace(ctx); err != nil {
		c.logf("workspace load failed: %v", err)
	}
}

func (c *SyncController) purgeCachedContent(serverIDs []string) {
	contents := c.cache.ReadAll(c.session.UserID)
	changed := false
	for _, serverID := range serverIDs {
		if _, present := contents[serverID]; present {
			delete(contents, serverID)
			changed = true
		}
	}
	if changed {
		c.cache.WriteAll(c.session.UserID, contents)
	}
}

func (c *SyncController) logf(format string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Printf(format, args...)
}
