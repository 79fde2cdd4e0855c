package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/docubench/workspacesync/internal/wstore"
)

type ServerConfig struct {
	JWTSecret       string
	RateLimitMax    int
	RateLimitWindow time.Duration
	MaxBodyBytes    int64
}

type Server struct {
	store       *wstore.Store
	cfg         ServerConfig
	schemas     *requestSchemas
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[string]rateEntry
}

type rateEntry struct {
	count   int
	resetAt time.Time
}

func NewServer(store *wstore.Store) *Server {
	return NewServerWithConfig(store, ServerConfig{})
}

func NewServerWithConfig(store *wstore.Store, cfg ServerConfig) *Server {
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret"
	}
	if cfg.RateLimitMax < 0 {
		cfg.RateLimitMax = 0
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	schemas, err := compileRequestSchemas()
	if err != nil {
		// Schemas are compile-time constants; failing to compile them is a
		// programming error, not a runtime condition.
		panic(err)
	}
	var limiter *rateLimiter
	if cfg.RateLimitMax > 0 {
		limiter = &rateLimiter{
			window:  cfg.RateLimitWindow,
			max:     cfg.RateLimitMax,
			entries: map[string]rateEntry{},
		}
	}
	return &Server{
		store:       store,
		cfg:         cfg,
		schemas:     schemas,
		rateLimiter: limiter,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/health" && r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	if r.URL.Path == "/dashboard" && r.Method == http.MethodGet {
		s.handleDashboard(w, r)
		return
	}

	if r.URL.Path != "/api/workspace" && !strings.HasPrefix(r.URL.Path, "/api/workspace/") {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
		return
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" && r.URL.Path == "/api/workspace/events" {
		// Browser WebSocket clients cannot set request headers, so the
		// events route also accepts the token as a query parameter.
		if token := r.URL.Query().Get("token"); token != "" {
			authHeader = "Bearer " + token
		}
	}
	claims, authErr := authorizeBearer(authHeader, s.cfg.JWTSecret, time.Now().UTC())
	if authErr != nil {
		writeError(w, authErr.status, authErr.code, authErr.message)
		return
	}
	if !claims.entitled() {
		writeError(w, http.StatusForbidden, "entitlement_required", "workspace persistence requires a paid plan")
		return
	}
	if s.rateLimiter != nil && !s.rateLimiter.allow(claims.UserID, time.Now().UTC()) {
		retryAfter := int(math.Ceil(s.rateLimiter.window.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/workspace")
	rest = strings.Trim(rest, "/")
	switch {
	case rest == "":
		switch r.Method {
		case http.MethodGet:
			s.handleListFiles(w, r, claims)
		case http.MethodPost:
			s.handleAddFile(w, r, claims)
		case http.MethodDelete:
			s.handleClearWorkspace(w, r, claims)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		}
	case rest == "events":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		s.handleEvents(w, r, claims)
	case strings.HasSuffix(rest, "/preview"):
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		s.handlePreview(w, r, claims, strings.TrimSuffix(rest, "/preview"))
	case !strings.Contains(rest, "/"):
		switch r.Method {
		case http.MethodPut:
			s.handleUpdateFile(w, r, claims, rest)
		case http.MethodDelete:
			s.handleDeleteFile(w, r, claims, rest)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		}
	default:
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	}
}

type addFileRequest struct {
	Filename      string  `json:"filename"`
	Language      string  `json:"language"`
	FileSizeBytes int     `json:"fileSizeBytes"`
	DocType       string  `json:"docType"`
	Origin        string  `json:"origin"`
	DocumentID    *string `json:"documentId"`
	Github        *struct {
		Repo   string `json:"repo"`
		Path   string `json:"path"`
		SHA    string `json:"sha"`
		Branch string `json:"branch"`
	} `json:"github"`
}

type updateFileRequest struct {
	DocumentID *string `json:"documentId"`
	DocType    *string `json:"docType"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request, claims tokenClaims) {
	files := s.store.ListFiles(claims.UserID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"files":   files,
	})
}

func (s *Server) handleAddFile(w http.ResponseWriter, r *http.Request, claims tokenClaims) {
	body, ok := s.readRequestBody(w, r)
	if !ok {
		return
	}
	if violation := validateBody(s.schemas.addFile, body); violation != "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", violation)
		return
	}
	var req addFileRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}

	in := wstore.AddFileInput{
		Filename:      req.Filename,
		Language:      req.Language,
		FileSizeBytes: req.FileSizeBytes,
		DocType:       req.DocType,
		Origin:        req.Origin,
		DocumentID:    req.DocumentID,
	}
	if req.Github != nil {
		in.GithubRepo = req.Github.Repo
		in.GithubPath = req.Github.Path
		in.GithubSHA = req.Github.SHA
		in.GithubBranch = req.Github.Branch
	}
	file, err := s.store.AddFile(claims.UserID, in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"file":    file,
	})
}

func (s *Server) handleUpdateFile(w http.ResponseWriter, r *http.Request, claims tokenClaims, fileID string) {
	body, ok := s.readRequestBody(w, r)
	if !ok {
		return
	}
	if violation := validateBody(s.schemas.updateFile, body); violation != "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", violation)
		return
	}
	var req updateFileRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}

	file, err := s.store.UpdateFile(claims.UserID, fileID, wstore.UpdateFileInput{
		DocumentID: req.DocumentID,
		DocType:    req.DocType,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"file":    file,
	})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request, claims tokenClaims, fileID string) {
	if err := s.store.DeleteFile(claims.UserID, fileID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": fileID,
	})
}

func (s *Server) handleClearWorkspace(w http.ResponseWriter, r *http.Request, claims tokenClaims) {
	deleted, err := s.store.ClearWorkspace(claims.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"deletedCount": deleted,
	})
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wstore.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, wstore.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func (s *Server) readRequestBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds configured limit")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"code":    code,
		"message": message,
	})
}

func (r *rateLimiter) allow(key string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok || now.After(entry.resetAt) {
		r.entries[key] = rateEntry{
			count:   1,
			resetAt: now.Add(r.window),
		}
		return true
	}
	if entry.count >= r.max {
		return false
	}
	entry.count++
	r.entries[key] = entry
	return true
}
