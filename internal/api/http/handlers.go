// Package http contains the control-plane HTTP handlers: health,
// navigation state, and session introspection for the surface host and
// local tooling.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/webshell/webshell/internal/session"
	"github.com/webshell/webshell/internal/shell"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	shell    *shell.Shell
	mirror   *session.Mirror
	platform string
	version  string
}

// NewHandlers creates a new handler set.
func NewHandlers(sh *shell.Shell, mirror *session.Mirror, platform, version string) *Handlers {
	return &Handlers{
		shell:    sh,
		mirror:   mirror,
		platform: platform,
		version:  version,
	}
}

// Root reports service identity.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "online",
		"service":  "webshell",
		"platform": h.platform,
		"version":  h.version,
	})
}

// Health reports shell health.
func (h *Handlers) Health(c *gin.Context) {
	status := "healthy"
	if h.shell.Errored() {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"app_url": h.shell.StartURL(),
		"errored": h.shell.Errored(),
	})
}

// State reports the tracked navigation state.
func (h *Handlers) State(c *gin.Context) {
	state := h.shell.State()
	c.JSON(http.StatusOK, gin.H{
		"current_url": state.CurrentURL,
		"can_go_back": state.CanGoBack,
		"errored":     h.shell.Errored(),
	})
}

// Session reports whether a session token is mirrored. The token itself
// never leaves the shell process.
func (h *Handlers) Session(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"authenticated": h.mirror.Authenticated(),
	})
}
