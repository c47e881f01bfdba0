package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/webshell/webshell/internal/bridge"
	"github.com/webshell/webshell/internal/infrastructure/config"
	"github.com/webshell/webshell/internal/navigation"
	"github.com/webshell/webshell/internal/session"
	"github.com/webshell/webshell/internal/shell"
)

type memSecureStore struct{ data map[string]string }

func (m *memSecureStore) Get(key string) (string, error) { return m.data[key], nil }
func (m *memSecureStore) Set(key, value string) error {
	m.data[key] = value
	return nil
}
func (m *memSecureStore) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func dialTestShell(t *testing.T) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.App.URL = "https://app.example.com"
	cfg.App.Domains = []string{"app.example.com"}
	cfg.App.TrustedDomains = []string{"checkout.stripe.com"}

	logger := zap.NewNop()
	mirror := session.NewMirror(&memSecureStore{data: map[string]string{}})
	trusted := navigation.NewTrustedDomains(cfg.App.Domains, cfg.App.TrustedDomains)
	engine := navigation.NewEngine(trusted, nil, logger)
	tracker := navigation.NewTracker()

	var sh *shell.Shell
	nav := bridge.NavigatorFunc(func(url string) { sh.Navigate(url) })
	dispatcher := bridge.NewDispatcher(mirror, nil, nil, nil, nil, nav, logger)
	sh = shell.New(cfg, engine, dispatcher, tracker, mirror, logger)

	router := gin.New()
	router.GET("/surface", NewHandler(sh, logger).HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/surface"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame Frame) {
	t.Helper()
	payload, err := sonic.Marshal(frame)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

func recv(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame Frame
	require.NoError(t, sonic.Unmarshal(raw, &frame))
	return frame
}

func TestHelloCommandsInitialLoad(t *testing.T) {
	conn := dialTestShell(t)

	send(t, conn, Frame{Type: FrameHello})
	frame := recv(t, conn)
	require.Equal(t, FrameNavigate, frame.Type)
	require.Equal(t, "https://app.example.com", frame.URL)
	require.NotEmpty(t, frame.Session)
}

func TestNavigationAttemptAnswered(t *testing.T) {
	conn := dialTestShell(t)

	tests := []struct {
		name   string
		url    string
		action string
	}{
		{"internal", "https://app.example.com/orders", "load_internal"},
		{"trusted", "https://checkout.stripe.com/pay", "load_internal"},
		{"external", "https://twitter.com/share", "delegate_external"},
		{"blob", "blob:https://app.example.com/x", "passthrough"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := string(rune('a' + i))
			send(t, conn, Frame{Type: FrameNavigationAttempt, ID: id, URL: tt.url})
			frame := recv(t, conn)
			require.Equal(t, FrameDecision, frame.Type)
			require.Equal(t, id, frame.ID)
			require.Equal(t, tt.action, frame.Action)
		})
	}
}

func TestPageLoadedInjectsScript(t *testing.T) {
	conn := dialTestShell(t)

	auth := `{"type":"AUTH_TOKEN","payload":{"token":"tok-ws"}}`
	send(t, conn, Frame{Type: FrameBridgeMessage, Data: auth})
	send(t, conn, Frame{Type: FramePageLoaded, URL: "https://app.example.com/"})

	frame := recv(t, conn)
	require.Equal(t, FrameInjectScript, frame.Type)
	require.Contains(t, frame.Script, bridge.GlobalName)
	require.Contains(t, frame.Script, "tok-ws")
}

func TestBackPressedWithoutHistoryConfirmsExit(t *testing.T) {
	conn := dialTestShell(t)

	send(t, conn, Frame{Type: FrameNavigationState, URL: "https://app.example.com/", CanGoBack: false})
	send(t, conn, Frame{Type: FrameBackPressed})
	require.Equal(t, FrameExitConfirm, recv(t, conn).Type)

	send(t, conn, Frame{Type: FrameNavigationState, URL: "https://app.example.com/a", CanGoBack: true})
	send(t, conn, Frame{Type: FrameBackPressed})
	require.Equal(t, FrameGoBack, recv(t, conn).Type)
}

func TestLoadFailureAndRetry(t *testing.T) {
	conn := dialTestShell(t)

	send(t, conn, Frame{Type: FrameLoadFailed, URL: "https://app.example.com", Reason: "dns failure"})
	frame := recv(t, conn)
	require.Equal(t, FrameLoadError, frame.Type)
	require.Equal(t, "dns failure", frame.Reason)
	require.True(t, frame.Retryable)

	send(t, conn, Frame{Type: FrameRetryPressed})
	frame = recv(t, conn)
	require.Equal(t, FrameNavigate, frame.Type)
	require.Equal(t, "https://app.example.com", frame.URL)
}

func TestNavigateBridgeMessageCommandsSurface(t *testing.T) {
	conn := dialTestShell(t)

	msg := `{"type":"NAVIGATE","payload":{"url":"https://app.example.com/settings"}}`
	send(t, conn, Frame{Type: FrameBridgeMessage, Data: msg})

	frame := recv(t, conn)
	require.Equal(t, FrameNavigate, frame.Type)
	require.Equal(t, "https://app.example.com/settings", frame.URL)
}

func TestMalformedFrameIgnored(t *testing.T) {
	conn := dialTestShell(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	send(t, conn, Frame{Type: FrameHello})
	require.Equal(t, FrameNavigate, recv(t, conn).Type)
}
