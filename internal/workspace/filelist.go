package workspace

import (
	"sync"

	"github.com/google/uuid"
)

const (
	defaultFilename = "untitled.js"
	defaultLanguage = "javascript"
)

// FileList is the in-memory ordered collection of file records plus the
// active-file pointer. All operations are synchronous, total, and never
// perform I/O. Order is insertion order.
type FileList struct {
	mu       sync.RWMutex
	files    []FileRecord
	activeID string
}

func NewFileList() *FileList {
	return &FileList{}
}

func newLocalID() string {
	return "local_" + uuid.NewString()
}

func normalizeNewFile(f NewFile) FileRecord {
	rec := FileRecord{
		ID:            newLocalID(),
		Filename:      f.Filename,
		Language:      f.Language,
		Content:       f.Content,
		Documentation: f.Documentation,
		QualityScore:  f.QualityScore,
		DocType:       f.DocType,
		Origin:        f.Origin,
		IsGenerating:  f.IsGenerating,
		DocumentID:    f.DocumentID,
		BatchID:       f.BatchID,
		ProjectID:     f.ProjectID,
		ProjectName:   f.ProjectName,
		Github:        f.Github,
		GeneratedAt:   f.GeneratedAt,
	}
	if rec.Filename == "" {
		rec.Filename = defaultFilename
	}
	if rec.Language == "" {
		rec.Language = defaultLanguage
	}
	if rec.DocType == "" {
		rec.DocType = DocTypeReadme
	}
	if rec.Origin == "" {
		rec.Origin = OriginUpload
	}
	if f.FileSize != nil {
		rec.FileSize = *f.FileSize
	} else {
		rec.FileSize = len(f.Content)
	}
	return rec
}

// AddFile appends a record with defaults applied and returns its id. The new
// record becomes active only when no file is currently active.
func (l *FileList) AddFile(f NewFile) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := normalizeNewFile(f)
	l.files = append(l.files, rec)
	if l.activeID == "" {
		l.activeID = rec.ID
	}
	return rec.ID
}

// AddFiles is the batch form of AddFile. If the list was empty before the
// call, the first new record becomes active. Empty input is a no-op.
func (l *FileList) AddFiles(list []NewFile) []string {
	if len(list) == 0 {
		return []string{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	wasEmpty := len(l.files) == 0
	ids := make([]string, 0, len(list))
	for _, f := range list {
		rec := normalizeNewFile(f)
		l.files = append(l.files, rec)
		ids = append(ids, rec.ID)
	}
	if wasEmpty {
		l.activeID = ids[0]
	} else if l.activeID == "" {
		l.activeID = ids[0]
	}
	return ids
}

// RemoveFile deletes the matching record. If the removed record was active,
// the record now occupying the same index becomes active (or the previous
// one when the removed record was last); an emptied list clears the pointer.
func (l *FileList) RemoveFile(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexOfLocked(id)
	if idx < 0 {
		return
	}
	l.files = append(l.files[:idx], l.files[idx+1:]...)
	if l.activeID != id {
		return
	}
	if len(l.files) == 0 {
		l.activeID = ""
		return
	}
	if idx >= len(l.files) {
		idx = len(l.files) - 1
	}
	l.activeID = l.files[idx].ID
}

// UpdateFile shallow-merges the non-nil fields of u into the matching
// record. Unknown ids are a no-op. The record id never changes.
func (l *FileList) UpdateFile(id string, u FileUpdate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexOfLocked(id)
	if idx < 0 {
		return
	}
	rec := &l.files[idx]
	if u.Filename != nil {
		rec.Filename = *u.Filename
	}
	if u.Language != nil {
		rec.Language = *u.Language
	}
	if u.Content != nil {
		rec.Content = *u.Content
		if u.FileSize == nil {
			rec.FileSize = len(*u.Content)
		}
	}
	if u.Documentation != nil {
		rec.Documentation = u.Documentation
	}
	if u.QualityScore != nil {
		rec.QualityScore = u.QualityScore
	}
	if u.DocType != nil {
		rec.DocType = *u.DocType
	}
	if u.Origin != nil {
		rec.Origin = *u.Origin
	}
	if u.FileSize != nil {
		rec.FileSize = *u.FileSize
	}
	if u.IsGenerating != nil {
		rec.IsGenerating = *u.IsGenerating
	}
	if u.Error != nil {
		rec.Error = u.Error
	}
	if u.DocumentID != nil {
		rec.DocumentID = u.DocumentID
	}
	if u.BatchID != nil {
		rec.BatchID = *u.BatchID
	}
	if u.ProjectID != nil {
		rec.ProjectID = *u.ProjectID
	}
	if u.ProjectName != nil {
		rec.ProjectName = *u.ProjectName
	}
	if u.Github != nil {
		rec.Github = u.Github
	}
	if u.GeneratedAt != nil {
		rec.GeneratedAt = *u.GeneratedAt
	}
}

// ClearFiles empties the list and clears the active pointer.
func (l *FileList) ClearFiles() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files = nil
	l.activeID = ""
}

// SetActiveFile sets the active pointer only when id matches an existing
// record; otherwise the previous pointer is preserved.
func (l *FileList) SetActiveFile(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.indexOfLocked(id) < 0 {
		return
	}
	l.activeID = id
}

// FileByID returns a copy of the matching record.
func (l *FileList) FileByID(id string) (FileRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx := l.indexOfLocked(id)
	if idx < 0 {
		return FileRecord{}, false
	}
	return l.files[idx], true
}

// ActiveFile returns a copy of the active record, if any.
func (l *FileList) ActiveFile() (FileRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.activeID == "" {
		return FileRecord{}, false
	}
	idx := l.indexOfLocked(l.activeID)
	if idx < 0 {
		return FileRecord{}, false
	}
	return l.files[idx], true
}

// ActiveFileID returns the active record id, or "" when none is set.
func (l *FileList) ActiveFileID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.activeID
}

// Files returns a copy of the list in insertion order.
func (l *FileList) Files() []FileRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]FileRecord, len(l.files))
	copy(out, l.files)
	return out
}

func (l *FileList) FileCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.files)
}

func (l *FileList) HasFiles() bool {
	return l.FileCount() > 0
}

func (l *FileList) indexOfLocked(id string) int {
	for i := range l.files {
		if l.files[i].ID == id {
			return i
		}
	}
	return -1
}
