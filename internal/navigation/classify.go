package navigation

import (
	"net/url"
	"strings"
)

// Class is the classifier's verdict for a candidate URL.
type Class int

const (
	// ClassSameOrigin means the URL belongs to the application's own domain.
	ClassSameOrigin Class = iota
	// ClassTrusted means the URL belongs to a configured trusted domain.
	ClassTrusted
	// ClassExternal means the URL belongs to nobody we know.
	ClassExternal
	// ClassUnparseable means the URL could not be parsed at all. Callers
	// must treat this permissively: failing closed would brick navigation
	// on harmless non-web URLs.
	ClassUnparseable
)

// String returns the string representation of the class.
func (c Class) String() string {
	switch c {
	case ClassSameOrigin:
		return "same_origin"
	case ClassTrusted:
		return "trusted"
	case ClassExternal:
		return "external"
	case ClassUnparseable:
		return "unparseable"
	default:
		return "unknown"
	}
}

// TrustedDomains is an immutable set of base domains navigation stays
// inside the surface for. AppDomains carry the application's own hosts;
// Extra carries the third-party allow-list (payment processor, OAuth
// provider, and the like).
type TrustedDomains struct {
	AppDomains []string
	Extra      []string
}

// NewTrustedDomains normalizes the given domain lists into a trust set.
func NewTrustedDomains(appDomains, extra []string) TrustedDomains {
	return TrustedDomains{
		AppDomains: normalizeDomains(appDomains),
		Extra:      normalizeDomains(extra),
	}
}

// All returns the union of application and third-party trusted domains.
func (t TrustedDomains) All() []string {
	out := make([]string, 0, len(t.AppDomains)+len(t.Extra))
	out = append(out, t.AppDomains...)
	out = append(out, t.Extra...)
	return out
}

// Classify parses target and places its host relative to the trust set.
// Matching is suffix-based on the registrable domain with a single leading
// "www." stripped from both sides; a host matches a trusted entry if it is
// equal to it or a true subdomain of it ("evilapp.com" never matches
// "app.com").
func Classify(target string, trusted TrustedDomains) Class {
	parsed, err := url.Parse(target)
	if err != nil {
		return ClassUnparseable
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return ClassUnparseable
	}

	// Loopback is always same-origin for development use.
	if host == "localhost" || host == "127.0.0.1" {
		return ClassSameOrigin
	}

	host = stripWWW(host)

	for _, domain := range trusted.AppDomains {
		if hostMatches(host, domain) {
			return ClassSameOrigin
		}
	}
	for _, domain := range trusted.Extra {
		if hostMatches(host, domain) {
			return ClassTrusted
		}
	}

	return ClassExternal
}

// hostMatches reports whether host equals domain or is a proper subdomain
// of it. Both sides arrive lowercased with "www." already stripped.
func hostMatches(host, domain string) bool {
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}

// stripWWW removes a single leading "www." label.
func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		out = append(out, stripWWW(d))
	}
	return out
}
