package navigation

import (
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Decision is the routing verdict for a single navigation attempt.
type Decision int

const (
	// LoadInternal renders the URL inside the embedded surface.
	LoadInternal Decision = iota
	// DelegateExternal suppresses the in-surface load and hands the URL to
	// the OS handler. Suppress-then-delegate: allowing both would load a
	// blank page in the surface in addition to opening the handler.
	DelegateExternal
	// Passthrough lets the surface render a non-http(s) content scheme
	// natively (inline data, blob URLs).
	Passthrough
)

// String returns the string representation of the decision.
func (d Decision) String() string {
	switch d {
	case LoadInternal:
		return "load_internal"
	case DelegateExternal:
		return "delegate_external"
	case Passthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// Opener hands a URL to the operating system's external handler.
type Opener interface {
	OpenExternal(url string)
}

// Metrics receives policy outcomes for observability.
type Metrics interface {
	RecordDecision(class string, decision string)
}

// Engine evaluates routing policy for navigation attempts. Evaluation is
// synchronous with the attempt it gates and must not block.
type Engine struct {
	trusted TrustedDomains
	opener  Opener
	metrics Metrics
	logger  *zap.Logger
}

// NewEngine creates a policy engine over the given trust set. The opener is
// invoked as an immediate side effect of every DelegateExternal decision.
func NewEngine(trusted TrustedDomains, opener Opener, logger *zap.Logger) *Engine {
	return &Engine{
		trusted: trusted,
		opener:  opener,
		logger:  logger,
	}
}

// WithMetrics attaches a metrics sink to the engine.
func (e *Engine) WithMetrics(m Metrics) *Engine {
	e.metrics = m
	return e
}

// Content schemes the surface renders natively without further checks.
var passthroughSchemes = map[string]bool{
	"about": true,
	"blob":  true,
	"data":  true,
}

// Schemes owned by device-level handlers (dialer, mail client, SMS).
var deviceSchemes = map[string]bool{
	"tel":    true,
	"mailto": true,
	"sms":    true,
}

// Decide evaluates the routing policy for rawURL, in priority order. The
// defaults fail open: an embedded surface that silently blocks navigation
// with no recovery path is a worse failure mode than occasionally rendering
// a URL it did not need to trust.
func (e *Engine) Decide(rawURL string) Decision {
	scheme := schemeOf(rawURL)

	if passthroughSchemes[scheme] {
		return e.record(ClassUnparseable, Passthrough)
	}

	if deviceSchemes[scheme] {
		e.delegate(rawURL)
		return e.record(ClassUnparseable, DelegateExternal)
	}

	if scheme == "http" || scheme == "https" {
		class := Classify(rawURL, e.trusted)
		switch class {
		case ClassSameOrigin, ClassTrusted:
			return e.record(class, LoadInternal)
		case ClassUnparseable:
			// Fail open: a malformed-but-harmless URL must not strand
			// the user.
			return e.record(class, LoadInternal)
		default:
			e.delegate(rawURL)
			return e.record(class, DelegateExternal)
		}
	}

	// Unknown schemes fall through to the permissive default.
	return e.record(ClassUnparseable, LoadInternal)
}

func (e *Engine) delegate(rawURL string) {
	e.logger.Info("delegating navigation to OS handler", zap.String("url", rawURL))
	if e.opener != nil {
		e.opener.OpenExternal(rawURL)
	}
}

func (e *Engine) record(class Class, decision Decision) Decision {
	if e.metrics != nil {
		e.metrics.RecordDecision(class.String(), decision.String())
	}
	return decision
}

// schemeOf extracts the URL scheme without rejecting inputs the stdlib
// parser would. Scheme sniffing has to survive URLs like "tel:+440000"
// whose opaque part upsets stricter parsing.
func schemeOf(rawURL string) string {
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Scheme != "" {
		return strings.ToLower(parsed.Scheme)
	}
	if i := strings.Index(rawURL, ":"); i > 0 {
		candidate := strings.ToLower(rawURL[:i])
		if isAlphaOnly(candidate) {
			return candidate
		}
	}
	return ""
}

func isAlphaOnly(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return len(s) > 0
}
