// Package shell orchestrates the native side of the embedded surface: it
// gates navigation attempts through the policy engine, injects the bridge
// script on every page load, dispatches bridge messages, tracks navigation
// state for back-control, and owns the terminal load-error state.
//
// Everything here runs on the surface channel's single reader goroutine,
// so message handling is strictly ordered and needs no locking beyond the
// surface attach/detach seam.
package shell

import (
	"sync"

	"go.uber.org/zap"

	"github.com/webshell/webshell/internal/bridge"
	"github.com/webshell/webshell/internal/infrastructure/config"
	"github.com/webshell/webshell/internal/navigation"
	"github.com/webshell/webshell/internal/session"
)

// SurfaceCommands is what the shell can ask of a connected surface host.
type SurfaceCommands interface {
	// Navigate loads a URL in the surface.
	Navigate(url string)
	// GoBack steps the surface's in-surface history back.
	GoBack()
	// ConfirmExit asks the host to run its app-exit confirmation.
	ConfirmExit()
	// InjectScript runs a script in the page's execution context.
	InjectScript(script string)
	// ShowLoadError presents the terminal error screen with manual retry.
	ShowLoadError(reason string)
}

// Metrics is the subset of observability the shell itself records.
type Metrics interface {
	RecordLoadFailure()
}

// Shell mediates between one surface host and the device.
type Shell struct {
	cfg        *config.Config
	policy     *navigation.Engine
	dispatcher *bridge.Dispatcher
	tracker    *navigation.Tracker
	mirror     *session.Mirror
	metrics    Metrics
	logger     *zap.Logger

	mu      sync.Mutex
	surface SurfaceCommands
	errored bool
}

// New creates a shell. The dispatcher's Navigator should be wired to the
// value returned here (the shell forwards NAVIGATE messages to whatever
// surface is attached).
func New(cfg *config.Config, policy *navigation.Engine, dispatcher *bridge.Dispatcher, tracker *navigation.Tracker, mirror *session.Mirror, logger *zap.Logger) *Shell {
	return &Shell{
		cfg:        cfg,
		policy:     policy,
		dispatcher: dispatcher,
		tracker:    tracker,
		mirror:     mirror,
		logger:     logger,
	}
}

// WithMetrics attaches a metrics sink to the shell.
func (s *Shell) WithMetrics(m Metrics) *Shell {
	s.metrics = m
	return s
}

// StartURL is the application entry point the surface loads first.
func (s *Shell) StartURL() string {
	return s.cfg.App.URL
}

// AttachSurface binds a connected surface host. Only one surface is
// active at a time; a newcomer replaces the previous one.
func (s *Shell) AttachSurface(surface SurfaceCommands) {
	s.mu.Lock()
	s.surface = surface
	s.mu.Unlock()
	s.logger.Info("surface attached")
}

// DetachSurface unbinds the surface host on disconnect.
func (s *Shell) DetachSurface() {
	s.mu.Lock()
	s.surface = nil
	s.mu.Unlock()
	s.logger.Info("surface detached")
}

func (s *Shell) commands() SurfaceCommands {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}

// Navigate implements the dispatcher's Navigator: NAVIGATE bridge messages
// command the surface to load a URL.
func (s *Shell) Navigate(url string) {
	if cmd := s.commands(); cmd != nil {
		cmd.Navigate(url)
	}
}

// HandleNavigationAttempt gates one navigation attempt. Called
// synchronously before the surface may begin loading; a DelegateExternal
// verdict means the load is suppressed entirely (the policy engine has
// already fired the external-open side effect).
func (s *Shell) HandleNavigationAttempt(url string) navigation.Decision {
	decision := s.policy.Decide(url)
	s.logger.Debug("navigation attempt",
		zap.String("url", url),
		zap.String("decision", decision.String()),
	)
	return decision
}

// HandlePageLoaded injects the bridge script into the freshly loaded
// page, carrying the mirrored token for re-injection.
func (s *Shell) HandlePageLoaded(url string) {
	script, err := bridge.BuildScript(bridge.ScriptConfig{
		Platform: s.cfg.App.Platform,
		Version:  s.cfg.App.Version,
		Token:    s.mirror.Token(),
		Trusted:  s.trustedForScript(),
	})
	if err != nil {
		s.logger.Error("failed to build bridge script", zap.Error(err))
		return
	}
	if cmd := s.commands(); cmd != nil {
		cmd.InjectScript(script)
	}
}

// HandleBridgeMessage dispatches one raw boundary message.
func (s *Shell) HandleBridgeMessage(raw string) {
	s.dispatcher.Dispatch(raw)
}

// HandleNavigationState records a completed navigation. A successful
// navigation also clears the error state: the surface recovered.
func (s *Shell) HandleNavigationState(url string, canGoBack bool) {
	s.tracker.Update(url, canGoBack)

	s.mu.Lock()
	s.errored = false
	s.mu.Unlock()
}

// HandleBackPressed routes the host's back-control: in-surface history
// first, app-exit confirmation only when there is none.
func (s *Shell) HandleBackPressed() {
	cmd := s.commands()
	if cmd == nil {
		return
	}
	if s.tracker.CanGoBack() {
		cmd.GoBack()
	} else {
		cmd.ConfirmExit()
	}
}

// HandleLoadFailed moves the shell to the terminal error state. Recovery
// is explicitly human-triggered via HandleRetry.
func (s *Shell) HandleLoadFailed(url, reason string) {
	s.mu.Lock()
	s.errored = true
	s.mu.Unlock()

	s.logger.Error("surface failed to load application",
		zap.String("url", url),
		zap.String("reason", reason),
	)
	if s.metrics != nil {
		s.metrics.RecordLoadFailure()
	}
	if cmd := s.commands(); cmd != nil {
		cmd.ShowLoadError(reason)
	}
}

// HandleRetry re-attempts the full load from scratch.
func (s *Shell) HandleRetry() {
	s.mu.Lock()
	s.errored = false
	s.mu.Unlock()

	if cmd := s.commands(); cmd != nil {
		cmd.Navigate(s.cfg.App.URL)
	}
}

// Errored reports whether the shell sits in the terminal load-error
// state.
func (s *Shell) Errored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errored
}

// State returns the tracked navigation state.
func (s *Shell) State() navigation.State {
	return s.tracker.State()
}

// trustedForScript is the allow-list the in-page interceptor classifies
// against: the app's own domains plus the third-party set.
func (s *Shell) trustedForScript() []string {
	out := make([]string, 0, len(s.cfg.App.Domains)+len(s.cfg.App.TrustedDomains))
	out = append(out, s.cfg.App.Domains...)
	out = append(out, s.cfg.App.TrustedDomains...)
	return out
}
