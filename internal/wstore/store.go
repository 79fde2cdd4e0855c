package wstore

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// QualityScore mirrors the structured score stored alongside generated
// documentation.
type QualityScore struct {
	Overall      int `json:"overall"`
	Completeness int `json:"completeness"`
	Readability  int `json:"readability"`
	Coverage     int `json:"coverage"`
}

// File is the server-persisted workspace file record. It carries metadata
// only: file content never reaches this store.
type File struct {
	ID            string        `json:"id"`
	Filename      string        `json:"filename"`
	Language      string        `json:"language"`
	Documentation *string       `json:"documentation,omitempty"`
	QualityScore  *QualityScore `json:"quality_score,omitempty"`
	DocType       string        `json:"doc_type"`
	Origin        string        `json:"origin"`
	FileSizeBytes int           `json:"file_size_bytes"`
	DocumentID    *string       `json:"document_id,omitempty"`
	GeneratedAt   string        `json:"generated_at,omitempty"`
	BatchID       string        `json:"batch_id,omitempty"`
	ProjectID     string        `json:"project_id,omitempty"`
	ProjectName   string        `json:"project_name,omitempty"`
	GithubRepo    string        `json:"github_repo,omitempty"`
	GithubPath    string        `json:"github_path,omitempty"`
	GithubSHA     string        `json:"github_sha,omitempty"`
	GithubBranch  string        `json:"github_branch,omitempty"`
	CreatedAt     string        `json:"created_at"`
	UpdatedAt     string        `json:"updated_at"`
}

// AddFileInput is the accepted shape of a workspace add.
type AddFileInput struct {
	Filename      string
	Language      string
	FileSizeBytes int
	DocType       string
	Origin        string
	DocumentID    *string
	GithubRepo    string
	GithubPath    string
	GithubSHA     string
	GithubBranch  string
}

// UpdateFileInput carries the only two fields a client may change remotely.
type UpdateFileInput struct {
	DocumentID *string
	DocType    *string
}

// Event is one entry in a user's workspace change feed.
type Event struct {
	Type      string `json:"type"`
	FileID    string `json:"fileId,omitempty"`
	Timestamp string `json:"timestamp"`
}

const (
	EventFileAdded        = "file.added"
	EventFileUpdated      = "file.updated"
	EventFileDeleted      = "file.deleted"
	EventWorkspaceCleared = "workspace.cleared"
)

const maxStoredEvents = 500

type userWorkspace struct {
	Files  []File  `json:"files"`
	Events []Event `json:"events,omitempty"`
}

type persistedState struct {
	Users map[string]*userWorkspace `json:"users"`
}

// StateBackend persists store snapshots across restarts.
type StateBackend interface {
	Load() (*persistedState, error)
	Save(state *persistedState) error
}

type stateBackendCloser interface {
	Close() error
}

type StoreOptions struct {
	StateBackend StateBackend
	StateFile    string
	Logger       Logger
}

type Logger interface {
	Printf(format string, args ...any)
}

// Store holds every user's workspace file list in memory, mints server file
// ids, and snapshots through the configured state backend after each
// mutation. Events are in-memory only; they exist to drive the live feed,
// not for durability.
type Store struct {
	mu          sync.RWMutex
	users       map[string]*userWorkspace
	backend     StateBackend
	logger      Logger
	subMu       sync.Mutex
	subscribers map[string]map[chan Event]struct{}
}

func NewStore() *Store {
	return NewStoreWithOptions(StoreOptions{})
}

func NewStoreWithOptions(opts StoreOptions) *Store {
	backend := opts.StateBackend
	if backend == nil && strings.TrimSpace(opts.StateFile) != "" {
		backend = NewJSONFileStateBackend(opts.StateFile)
	}
	s := &Store{
		users:       map[string]*userWorkspace{},
		backend:     backend,
		logger:      opts.Logger,
		subscribers: map[string]map[chan Event]struct{}{},
	}
	s.loadFromBackend()
	return s
}

func (s *Store) Close() {
	if closer, ok := s.backend.(stateBackendCloser); ok && closer != nil {
		_ = closer.Close()
	}
}

func (s *Store) loadFromBackend() {
	if s.backend == nil {
		return
	}
	snapshot, err := s.backend.Load()
	if err != nil {
		s.logf("state load failed, starting empty: %v", err)
		return
	}
	if snapshot == nil || snapshot.Users == nil {
		return
	}
	s.users = snapshot.Users
	for _, ws := range s.users {
		ws.Events = nil
	}
}

func (s *Store) saveLocked() {
	if s.backend == nil {
		return
	}
	users := make(map[string]*userWorkspace, len(s.users))
	for userID, ws := range s.users {
		files := make([]File, len(ws.Files))
		copy(files, ws.Files)
		users[userID] = &userWorkspace{Files: files}
	}
	if err := s.backend.Save(&persistedState{Users: users}); err != nil {
		s.logf("state save failed: %v", err)
	}
}

func newServerFileID() string {
	return "wf_" + strings.ToLower(ulid.Make().String())
}

func (s *Store) ensureUserLocked(userID string) *userWorkspace {
	ws, ok := s.users[userID]
	if !ok {
		ws = &userWorkspace{}
		s.users[userID] = ws
	}
	return ws
}

// ListFiles returns the user's files in insertion order.
func (s *Store) ListFiles(userID string) []File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.users[userID]
	if !ok {
		return []File{}
	}
	out := make([]File, len(ws.Files))
	copy(out, ws.Files)
	return out
}

func (s *Store) AddFile(userID string, in AddFileInput) (File, error) {
	if userID == "" {
		return File{}, ErrInvalidInput
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	file := File{
		ID:            newServerFileID(),
		Filename:      strings.TrimSpace(in.Filename),
		Language:      strings.TrimSpace(in.Language),
		DocType:       in.DocType,
		Origin:        in.Origin,
		FileSizeBytes: in.FileSizeBytes,
		DocumentID:    in.DocumentID,
		GithubRepo:    in.GithubRepo,
		GithubPath:    in.GithubPath,
		GithubSHA:     in.GithubSHA,
		GithubBranch:  in.GithubBranch,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if file.Filename == "" {
		return File{}, ErrInvalidInput
	}
	if file.Language == "" {
		file.Language = "javascript"
	}
	if file.DocType == "" {
		file.DocType = "README"
	}
	if file.Origin == "" {
		file.Origin = "upload"
	}
	if file.FileSizeBytes < 0 {
		return File{}, ErrInvalidInput
	}

	s.mu.Lock()
	ws := s.ensureUserLocked(userID)
	ws.Files = append(ws.Files, file)
	event := s.recordEventLocked(ws, EventFileAdded, file.ID)
	s.saveLocked()
	s.mu.Unlock()
	s.publish(userID, event)
	return file, nil
}

func (s *Store) UpdateFile(userID, fileID string, in UpdateFileInput) (File, error) {
	if userID == "" || fileID == "" {
		return File{}, ErrInvalidInput
	}
	s.mu.Lock()
	ws, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return File{}, ErrNotFound
	}
	idx := -1
	for i := range ws.Files {
		if ws.Files[i].ID == fileID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return File{}, ErrNotFound
	}
	file := &ws.Files[idx]
	if in.DocumentID != nil {
		file.DocumentID = in.DocumentID
	}
	if in.DocType != nil {
		file.DocType = *in.DocType
	}
	file.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	updated := *file
	event := s.recordEventLocked(ws, EventFileUpdated, fileID)
	s.saveLocked()
	s.mu.Unlock()
	s.publish(userID, event)
	return updated, nil
}

func (s *Store) DeleteFile(userID, fileID string) error {
	if userID == "" || fileID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	ws, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	idx := -1
	for i := range ws.Files {
		if ws.Files[i].ID == fileID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	ws.Files = append(ws.Files[:idx], ws.Files[idx+1:]...)
	event := s.recordEventLocked(ws, EventFileDeleted, fileID)
	s.saveLocked()
	s.mu.Unlock()
	s.publish(userID, event)
	return nil
}

// ClearWorkspace removes every file for the user and reports how many were
// deleted. Clearing an absent workspace succeeds with a zero count.
func (s *Store) ClearWorkspace(userID string) (int, error) {
	if userID == "" {
		return 0, ErrInvalidInput
	}
	s.mu.Lock()
	ws, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return 0, nil
	}
	deleted := len(ws.Files)
	ws.Files = nil
	event := s.recordEventLocked(ws, EventWorkspaceCleared, "")
	s.saveLocked()
	s.mu.Unlock()
	s.publish(userID, event)
	return deleted, nil
}

// FileByID looks up a single record.
func (s *Store) FileByID(userID, fileID string) (File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.users[userID]
	if !ok {
		return File{}, ErrNotFound
	}
	for i := range ws.Files {
		if ws.Files[i].ID == fileID {
			return ws.Files[i], nil
		}
	}
	return File{}, ErrNotFound
}

func (s *Store) recordEventLocked(ws *userWorkspace, eventType, fileID string) Event {
	event := Event{
		Type:      eventType,
		FileID:    fileID,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	ws.Events = append(ws.Events, event)
	if len(ws.Events) > maxStoredEvents {
		ws.Events = ws.Events[len(ws.Events)-maxStoredEvents:]
	}
	return event
}

// Events returns the retained event tail for a user.
func (s *Store) Events(userID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.users[userID]
	if !ok {
		return []Event{}
	}
	out := make([]Event, len(ws.Events))
	copy(out, ws.Events)
	return out
}

// Subscribe registers a live event channel for userID. The returned cancel
// function must be called to release the subscription. Slow subscribers
// drop events rather than block mutations.
func (s *Store) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	s.subMu.Lock()
	subs, ok := s.subscribers[userID]
	if !ok {
		subs = map[chan Event]struct{}{}
		s.subscribers[userID] = subs
	}
	subs[ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if subs, ok := s.subscribers[userID]; ok {
			if _, present := subs[ch]; present {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(s.subscribers, userID)
			}
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *Store) publish(userID string, event Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers[userID] {
		select {
		case ch <- event:
		default:
		}
	}
}

func (s *Store) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
