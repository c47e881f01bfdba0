package bridge

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Kind identifies a message crossing the surface boundary. The set is
// closed; anything else maps to KindUnknown, the forward-compatibility
// escape hatch.
type Kind string

const (
	KindAuthToken    Kind = "AUTH_TOKEN"
	KindLogout       Kind = "LOGOUT"
	KindShare        Kind = "SHARE"
	KindOpenExternal Kind = "OPEN_EXTERNAL"
	KindNavigate     Kind = "NAVIGATE"
	KindUnknown      Kind = "UNKNOWN"
)

// normalize maps an arbitrary wire string onto the closed kind set.
func normalize(raw string) Kind {
	switch Kind(raw) {
	case KindAuthToken, KindLogout, KindShare, KindOpenExternal, KindNavigate:
		return Kind(raw)
	default:
		return KindUnknown
	}
}

// Payload carries a message's structured data. Fields are by-kind:
// AUTH_TOKEN uses Token, SHARE uses URL and/or Text, OPEN_EXTERNAL and
// NAVIGATE use URL, LOGOUT carries nothing.
type Payload struct {
	Token string `json:"token,omitempty"`
	URL   string `json:"url,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Envelope is the immutable value object exchanged across the boundary,
// serialized as a UTF-8 JSON object.
type Envelope struct {
	Type    Kind    `json:"type"`
	Payload Payload `json:"payload,omitempty"`
}

// wireEnvelope keeps the raw type string so unknown kinds survive decoding
// for logging before they are discarded.
type wireEnvelope struct {
	Type    string  `json:"type"`
	Payload Payload `json:"payload"`
}

// Parse decodes a raw boundary message. Third-party page scripts post
// unrelated messages over the same channel, so malformed input is expected
// noise: the caller logs and discards the error, never surfaces it.
func Parse(raw string) (Envelope, error) {
	var wire wireEnvelope
	if err := sonic.UnmarshalString(raw, &wire); err != nil {
		return Envelope{}, fmt.Errorf("malformed envelope: %w", err)
	}
	if wire.Type == "" {
		return Envelope{}, fmt.Errorf("malformed envelope: missing type")
	}
	return Envelope{Type: normalize(wire.Type), Payload: wire.Payload}, nil
}

// Encode serializes an envelope for the wire.
func Encode(env Envelope) (string, error) {
	out, err := sonic.MarshalString(env)
	if err != nil {
		return "", fmt.Errorf("failed to encode envelope: %w", err)
	}
	return out, nil
}
