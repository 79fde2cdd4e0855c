package workspace

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// DocType selects which kind of documentation is generated for a file.
type DocType string

const (
	DocTypeReadme       DocType = "README"
	DocTypeJSDoc        DocType = "JSDOC"
	DocTypeAPI          DocType = "API"
	DocTypeArchitecture DocType = "ARCHITECTURE"
)

// Origin records how a file entered the workspace.
type Origin string

const (
	OriginUpload  Origin = "upload"
	OriginGithub  Origin = "github"
	OriginPaste   Origin = "paste"
	OriginSample  Origin = "sample"
	OriginHistory Origin = "history"
)

// QualityScore is the structured score attached to generated documentation.
type QualityScore struct {
	Overall      int `json:"overall"`
	Completeness int `json:"completeness"`
	Readability  int `json:"readability"`
	Coverage     int `json:"coverage"`
}

// GithubRef identifies the GitHub blob a file was imported from.
type GithubRef struct {
	Repo   string `json:"repo"`
	Path   string `json:"path"`
	SHA    string `json:"sha,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// FileRecord is one file the user is working with. ID is assigned once at
// creation and is the only stable handle callers may hold across operations.
// Content lives in memory (and the per-user content cache) only; it is never
// sent to the workspace API.
type FileRecord struct {
	ID            string        `json:"id"`
	Filename      string        `json:"filename"`
	Language      string        `json:"language"`
	Content       string        `json:"content"`
	Documentation *string       `json:"documentation,omitempty"`
	QualityScore  *QualityScore `json:"qualityScore,omitempty"`
	DocType       DocType       `json:"docType"`
	Origin        Origin        `json:"origin"`
	FileSize      int           `json:"fileSize"`
	IsGenerating  bool          `json:"isGenerating"`
	Error         *string       `json:"error,omitempty"`
	DocumentID    *string       `json:"documentId,omitempty"`
	BatchID       string        `json:"batchId,omitempty"`
	ProjectID     string        `json:"projectId,omitempty"`
	ProjectName   string        `json:"projectName,omitempty"`
	Github        *GithubRef    `json:"github,omitempty"`
	GeneratedAt   string        `json:"generatedAt,omitempty"`
}

// NewFile carries the caller-supplied fields for an add operation. Zero
// values fall back to the documented defaults; FileSize falls back to the
// byte length of Content when nil.
type NewFile struct {
	Filename      string
	Language      string
	Content       string
	Documentation *string
	QualityScore  *QualityScore
	DocType       DocType
	Origin        Origin
	FileSize      *int
	IsGenerating  bool
	DocumentID    *string
	BatchID       string
	ProjectID     string
	ProjectName   string
	Github        *GithubRef
	GeneratedAt   string
}

// FileUpdate is a partial update; nil fields are left untouched.
type FileUpdate struct {
	Filename      *string
	Language      *string
	Content       *string
	Documentation *string
	QualityScore  *QualityScore
	DocType       *DocType
	Origin        *Origin
	FileSize      *int
	IsGenerating  *bool
	Error         *string
	DocumentID    *string
	BatchID       *string
	ProjectID     *string
	ProjectName   *string
	Github        *GithubRef
	GeneratedAt   *string
}

// Logger matches the subset of *log.Logger the package needs.
type Logger interface {
	Printf(format string, args ...any)
}
