package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPError carries a non-2xx workspace API response.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// WorkspaceFileDTO is the wire shape of a server-persisted file record.
// Content is deliberately absent: the workspace API never carries file
// content.
type WorkspaceFileDTO struct {
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
}

// RecordFields assembles the DTO into the client-side record shape, folding
// the flat github_* columns into the nested group. Content is left empty;
// the controller merges it from the content cache.
func (d WorkspaceFileDTO) RecordFields() NewFile {
	size := d.FileSizeBytes
	f := NewFile{
		Filename:      d.Filename,
		Language:      d.Language,
		Documentation: d.Documentation,
		QualityScore:  d.QualityScore,
		DocType:       DocType(d.DocType),
		Origin:        Origin(d.Origin),
		FileSize:      &size,
		DocumentID:    d.DocumentID,
		BatchID:       d.BatchID,
		ProjectID:     d.ProjectID,
		ProjectName:   d.ProjectName,
		GeneratedAt:   d.GeneratedAt,
	}
	if d.GithubRepo != "" || d.GithubPath != "" {
		f.Github = &GithubRef{
			Repo:   d.GithubRepo,
			Path:   d.GithubPath,
			SHA:    d.GithubSHA,
			Branch: d.GithubBranch,
		}
	}
	return f
}

// AddFileRequest is the POST /api/workspace body.
type AddFileRequest struct {
	Filename      string     `json:"filename"`
	Language      string     `json:"language"`
	FileSizeBytes int        `json:"fileSizeBytes"`
	DocType       string     `json:"docType"`
	Origin        string     `json:"origin"`
	Github        *GithubRef `json:"github,omitempty"`
	DocumentID    *string    `json:"documentId,omitempty"`
}

// UpdateFileRequest is the PUT /api/workspace/{fileId} body. Only the two
// remote-authoritative fields can travel.
type UpdateFileRequest struct {
	DocumentID *string `json:"documentId,omitempty"`
	DocType    *string `json:"docType,omitempty"`
}

// RemoteClient is the workspace API boundary the sync controller talks to.
type RemoteClient interface {
	GetWorkspace(ctx context.Context) ([]WorkspaceFileDTO, error)
	AddWorkspaceFile(ctx context.Context, req AddFileRequest) (WorkspaceFileDTO, error)
	UpdateWorkspaceFile(ctx context.Context, fileID string, req UpdateFileRequest) (WorkspaceFileDTO, error)
	DeleteWorkspaceFile(ctx context.Context, fileID string) error
	ClearWorkspace(ctx context.Context) (int, error)
}

// TokenSource yields the current bearer token. An empty token is attached
// as an empty Authorization value; the server rejects it, not the client.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource for a fixed token.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

type HTTPClient struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func NewHTTPClient(baseURL string, tokens TokenSource, httpClient *http.Client) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &HTTPClient{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: httpClient,
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
		maxDelay:   2 * time.Second,
	}
}

func (c *HTTPClient) GetWorkspace(ctx context.Context) ([]WorkspaceFileDTO, error) {
	var out struct {
		Success bool               `json:"success"`
		Files   []WorkspaceFileDTO `json:"files"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/workspace", nil, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

func (c *HTTPClient) AddWorkspaceFile(ctx context.Context, req AddFileRequest) (WorkspaceFileDTO, error) {
	var out struct {
		Success bool             `json:"success"`
		File    WorkspaceFileDTO `json:"file"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/workspace", req, &out); err != nil {
		return WorkspaceFileDTO{}, err
	}
	return out.File, nil
}

func (c *HTTPClient) UpdateWorkspaceFile(ctx context.Context, fileID string, req UpdateFileRequest) (WorkspaceFileDTO, error) {
	var out struct {
		Success bool             `json:"success"`
		File    WorkspaceFileDTO `json:"file"`
	}
	path := "/api/workspace/" + url.PathEscape(fileID)
	if err := c.doJSON(ctx, http.MethodPut, path, req, &out); err != nil {
		return WorkspaceFileDTO{}, err
	}
	return out.File, nil
}

func (c *HTTPClient) DeleteWorkspaceFile(ctx context.Context, fileID string) error {
	path := "/api/workspace/" + url.PathEscape(fileID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *HTTPClient) ClearWorkspace(ctx context.Context) (int, error) {
	var out struct {
		Success      bool `json:"success"`
		DeletedCount int  `json:"deletedCount"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/api/workspace", nil, &out); err != nil {
		return 0, err
	}
	return out.DeletedCount, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, requestPath string, body, out any) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.tokens.Token())
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries {
				if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}
		payloadBytes, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil || len(payloadBytes) == 0 {
				return nil
			}
			return json.Unmarshal(payloadBytes, out)
		}

		if (resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)) && attempt < c.maxRetries {
			if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return waitErr
			}
			continue
		}

		var errPayload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(payloadBytes, &errPayload)
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Code:       errPayload.Code,
			Message:    errPayload.Message,
		}
	}
}

func (c *HTTPClient) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	maxDelay := c.maxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	if retryAfter := parseRetryAfter(retryAfterHeader); retryAfter > 0 {
		if retryAfter > maxDelay {
			return maxDelay
		}
		return retryAfter
	}
	delay := c.baseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if ts, err := time.Parse(time.RFC1123, header); err == nil {
		delta := time.Until(ts)
		if delta > 0 {
			return delta
		}
	}
	return 0
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
