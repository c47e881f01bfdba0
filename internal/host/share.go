package host

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Sharer forwards content to the host's native sharing facility. Share
// text originates inside the hosted page, so it is stripped to plain text
// before it leaves the process.
type Sharer struct {
	logger *zap.Logger
	policy *bluemonday.Policy
	opener *Opener
}

// NewSharer creates a sharer. On desktop platforms without a share sheet
// the URL falls back to the external handler.
func NewSharer(logger *zap.Logger, opener *Opener) *Sharer {
	return &Sharer{
		logger: logger,
		policy: bluemonday.StrictPolicy(),
		opener: opener,
	}
}

// Share forwards a url and/or text. Callers guarantee at least one is set.
func (s *Sharer) Share(url, text string) {
	clean := strings.TrimSpace(s.policy.Sanitize(text))

	s.logger.Info("sharing content",
		zap.String("url", url),
		zap.Int("text_len", len(clean)),
	)

	// Desktop fallback: no native share sheet, delegate the URL.
	if url != "" && s.opener != nil {
		s.opener.OpenExternal(url)
	}
}

// SanitizeText exposes the share policy for callers that present the text
// themselves.
func (s *Sharer) SanitizeText(text string) string {
	return strings.TrimSpace(s.policy.Sanitize(text))
}
