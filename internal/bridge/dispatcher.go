package bridge

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/webshell/webshell/internal/session"
)

// Store is the general (non-secure) persistence cleared on logout.
type Store interface {
	Clear() error
}

// Opener hands a URL to the operating system's external handler.
type Opener interface {
	OpenExternal(url string)
}

// Sharer forwards content to the host's native sharing facility.
type Sharer interface {
	Share(url, text string)
}

// PushRegistrar (re)associates the device push identifier with the
// authenticated session.
type PushRegistrar interface {
	Associate(ctx context.Context, token string) error
}

// Navigator commands the embedded surface to load a URL.
type Navigator interface {
	Navigate(url string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(url string)

// Navigate calls f(url).
func (f NavigatorFunc) Navigate(url string) { f(url) }

// Metrics receives dispatch outcomes for observability.
type Metrics interface {
	RecordMessage(kind string)
	RecordDispatchError(reason string)
}

const pushAssociateTimeout = 15 * time.Second

// Dispatcher interprets boundary messages and triggers the matching
// shell-side effect. One call per message, never batched; handlers are
// independent, so a failure in one message never affects the next.
type Dispatcher struct {
	mirror    *session.Mirror
	userStore Store
	opener    Opener
	sharer    Sharer
	push      PushRegistrar
	navigator Navigator
	metrics   Metrics
	logger    *zap.Logger
}

// NewDispatcher wires the dispatcher to its collaborators. Any of them
// except the mirror may be nil; the matching message kinds degrade to
// logged no-ops.
func NewDispatcher(mirror *session.Mirror, userStore Store, opener Opener, sharer Sharer, push PushRegistrar, navigator Navigator, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		mirror:    mirror,
		userStore: userStore,
		opener:    opener,
		sharer:    sharer,
		push:      push,
		navigator: navigator,
		logger:    logger,
	}
}

// WithMetrics attaches a metrics sink to the dispatcher.
func (d *Dispatcher) WithMetrics(m Metrics) *Dispatcher {
	d.metrics = m
	return d
}

// Dispatch parses and handles one raw boundary message. It never returns
// an error and never panics: malformed messages are expected noise from
// third-party page scripts and are logged and discarded.
func (d *Dispatcher) Dispatch(raw string) {
	env, err := Parse(raw)
	if err != nil {
		d.logger.Debug("discarding malformed bridge message", zap.Error(err))
		d.recordError("malformed")
		return
	}

	d.recordMessage(string(env.Type))

	switch env.Type {
	case KindAuthToken:
		d.handleAuthToken(env.Payload)
	case KindLogout:
		d.handleLogout()
	case KindShare:
		d.handleShare(env.Payload)
	case KindOpenExternal:
		d.handleOpenExternal(env.Payload)
	case KindNavigate:
		d.handleNavigate(env.Payload)
	default:
		// Forward-compatibility escape hatch: log, discard, no effect.
		d.logger.Debug("discarding unknown bridge message kind")
		d.recordError("unknown_kind")
	}
}

func (d *Dispatcher) handleAuthToken(p Payload) {
	if p.Token == "" {
		d.logger.Debug("auth token message without token")
		return
	}

	if err := d.mirror.Set(p.Token); err != nil {
		d.logger.Error("failed to mirror session token", zap.Error(err))
		d.recordError("mirror_write")
	}

	if d.push == nil {
		return
	}
	// Fire and forget: push (re)association must not block the dispatcher.
	// A failure here is retried on the next natural trigger.
	token := p.Token
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pushAssociateTimeout)
		defer cancel()
		if err := d.push.Associate(ctx, token); err != nil {
			d.logger.Warn("push token association failed", zap.Error(err))
		}
	}()
}

func (d *Dispatcher) handleLogout() {
	// Best effort across both stores: one failing must never block the
	// other, and the in-memory mirror clears regardless.
	if err := d.mirror.Clear(); err != nil {
		d.logger.Error("failed to clear secure store on logout", zap.Error(err))
		d.recordError("logout_secure")
	}
	if d.userStore != nil {
		if err := d.userStore.Clear(); err != nil {
			d.logger.Error("failed to clear user store on logout", zap.Error(err))
			d.recordError("logout_store")
		}
	}
}

func (d *Dispatcher) handleShare(p Payload) {
	if p.URL == "" && p.Text == "" {
		return
	}
	if d.sharer != nil {
		d.sharer.Share(p.URL, p.Text)
	}
}

func (d *Dispatcher) handleOpenExternal(p Payload) {
	if p.URL == "" {
		return
	}
	if d.opener != nil {
		d.opener.OpenExternal(p.URL)
	}
}

func (d *Dispatcher) handleNavigate(p Payload) {
	if p.URL == "" {
		return
	}
	if d.navigator != nil {
		d.navigator.Navigate(p.URL)
	}
}

func (d *Dispatcher) recordMessage(kind string) {
	if d.metrics != nil {
		d.metrics.RecordMessage(kind)
	}
}

func (d *Dispatcher) recordError(reason string) {
	if d.metrics != nil {
		d.metrics.RecordDispatchError(reason)
	}
}
