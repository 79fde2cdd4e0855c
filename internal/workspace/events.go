package workspace

import (
	"context"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// WorkspaceEvent is one entry from the server's workspace event feed.
type WorkspaceEvent struct {
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

// EventSubscriber follows the workspace event feed over a WebSocket and
// invokes the callback for every event, reconnecting with backoff until the
// context is cancelled. Callers typically trigger ReloadWorkspace from the
// callback when another actor mutated the workspace.
type EventSubscriber struct {
	baseURL   string
	tokens    TokenSource
	onEvent   func(WorkspaceEvent)
	logger    Logger
	baseDelay time.Duration
	maxDelay  time.Duration
}

func NewEventSubscriber(baseURL string, tokens TokenSource, onEvent func(WorkspaceEvent), logger Logger) *EventSubscriber {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &EventSubscriber{
		baseURL:   baseURL,
		tokens:    tokens,
		onEvent:   onEvent,
		logger:    logger,
		baseDelay: 500 * time.Millisecond,
		maxDelay:  15 * time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (s *EventSubscriber) Run(ctx context.Context) {
	delay := s.baseDelay
	for {
		err := s.followOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logf("event feed disconnected: %v", err)
		}
		if waitErr := waitWithContext(ctx, delay); waitErr != nil {
			return
		}
		delay *= 2
		if delay > s.maxDelay {
			delay = s.maxDelay
		}
	}
}

func (s *EventSubscriber) followOnce(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.tokens.Token())
	conn, _, err := websocket.Dial(ctx, s.baseURL+"/api/workspace/events", &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		var event WorkspaceEvent
		if err := wsjson.Read(ctx, conn, &event); err != nil {
			return err
		}
		if s.onEvent != nil {
			s.onEvent(event)
		}
	}
}

func (s *EventSubscriber) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
