// Package ws implements the surface channel: the WebSocket protocol
// between the shell process and the surface host that embeds the
// browser view.
package ws

import (
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/webshell/webshell/internal/shell"
)

// Inbound frame types (surface host to shell).
const (
	FrameHello             = "hello"
	FrameNavigationAttempt = "navigation_attempt"
	FramePageLoaded        = "page_loaded"
	FrameBridgeMessage     = "bridge_message"
	FrameNavigationState   = "navigation_state"
	FrameBackPressed       = "back_pressed"
	FrameLoadFailed        = "load_failed"
	FrameRetryPressed      = "retry_pressed"
)

// Outbound frame types (shell to surface host).
const (
	FrameDecision     = "decision"
	FrameInjectScript = "inject_script"
	FrameNavigate     = "navigate"
	FrameGoBack       = "go_back"
	FrameExitConfirm  = "exit_confirm"
	FrameLoadError    = "load_error"
)

// Frame is the wire envelope for the surface channel, both directions.
// Unused fields are omitted on the wire.
type Frame struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	URL       string `json:"url,omitempty"`
	Data      string `json:"data,omitempty"`
	Script    string `json:"script,omitempty"`
	Action    string `json:"action,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Session   string `json:"session,omitempty"`
	CanGoBack bool   `json:"can_go_back,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// The surface host connects over loopback; the server never binds a
// non-local interface.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Metrics receives connection lifecycle events.
type Metrics interface {
	SurfaceConnected(delta float64)
}

// Handler upgrades surface host connections and pumps frames between
// the socket and the shell.
type Handler struct {
	shell   *shell.Shell
	metrics Metrics
	logger  *zap.Logger
}

// NewHandler creates a surface channel handler.
func NewHandler(sh *shell.Shell, logger *zap.Logger) *Handler {
	return &Handler{shell: sh, logger: logger}
}

// WithMetrics attaches a metrics sink to the handler.
func (h *Handler) WithMetrics(m Metrics) *Handler {
	h.metrics = m
	return h
}

// HandleConnection upgrades the request and runs the read loop. Frames
// are handled one at a time on this goroutine, so decisions are answered
// before the next attempt is read and message order is preserved.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("surface channel upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	session := uuid.NewString()
	sc := &surfaceConn{conn: conn, logger: h.logger}

	h.shell.AttachSurface(sc)
	defer h.shell.DetachSurface()
	if h.metrics != nil {
		h.metrics.SurfaceConnected(1)
		defer h.metrics.SurfaceConnected(-1)
	}
	h.logger.Info("surface host connected", zap.String("session", session))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			h.logger.Info("surface channel closed", zap.Error(err))
			return
		}

		var frame Frame
		if err := sonic.Unmarshal(raw, &frame); err != nil {
			h.logger.Warn("discarding malformed frame", zap.Error(err))
			continue
		}
		h.handleFrame(sc, session, frame)
	}
}

func (h *Handler) handleFrame(sc *surfaceConn, session string, frame Frame) {
	switch frame.Type {
	case FrameHello:
		// Handshake: acknowledge and command the initial load.
		sc.write(Frame{Type: FrameNavigate, URL: h.shell.StartURL(), Session: session})

	case FrameNavigationAttempt:
		decision := h.shell.HandleNavigationAttempt(frame.URL)
		sc.write(Frame{Type: FrameDecision, ID: frame.ID, Action: decision.String()})

	case FramePageLoaded:
		h.shell.HandlePageLoaded(frame.URL)

	case FrameBridgeMessage:
		h.shell.HandleBridgeMessage(frame.Data)

	case FrameNavigationState:
		h.shell.HandleNavigationState(frame.URL, frame.CanGoBack)

	case FrameBackPressed:
		h.shell.HandleBackPressed()

	case FrameLoadFailed:
		h.shell.HandleLoadFailed(frame.URL, frame.Reason)

	case FrameRetryPressed:
		h.shell.HandleRetry()

	default:
		h.logger.Warn("unknown frame type", zap.String("type", frame.Type))
	}
}

// surfaceConn adapts one WebSocket connection to the shell's surface
// command interface. Writes are serialized; the push registrar's
// goroutine can command a navigation concurrently with the read loop.
type surfaceConn struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	logger *zap.Logger
}

func (s *surfaceConn) write(frame Frame) {
	payload, err := sonic.Marshal(frame)
	if err != nil {
		s.logger.Error("failed to encode frame", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.logger.Warn("surface channel write failed", zap.Error(err))
	}
}

func (s *surfaceConn) Navigate(url string) {
	s.write(Frame{Type: FrameNavigate, URL: url})
}

func (s *surfaceConn) GoBack() {
	s.write(Frame{Type: FrameGoBack})
}

func (s *surfaceConn) ConfirmExit() {
	s.write(Frame{Type: FrameExitConfirm})
}

func (s *surfaceConn) InjectScript(script string) {
	s.write(Frame{Type: FrameInjectScript, Script: script})
}

func (s *surfaceConn) ShowLoadError(reason string) {
	s.write(Frame{Type: FrameLoadError, Reason: reason, Retryable: true})
}
