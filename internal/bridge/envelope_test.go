package bridge

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Kind
		wantErr bool
	}{
		{"auth token", `{"type":"AUTH_TOKEN","payload":{"token":"abc123"}}`, KindAuthToken, false},
		{"logout", `{"type":"LOGOUT"}`, KindLogout, false},
		{"share", `{"type":"SHARE","payload":{"url":"https://app.com","text":"look"}}`, KindShare, false},
		{"open external", `{"type":"OPEN_EXTERNAL","payload":{"url":"https://x.com"}}`, KindOpenExternal, false},
		{"navigate", `{"type":"NAVIGATE","payload":{"url":"/settings"}}`, KindNavigate, false},
		{"unknown kind survives", `{"type":"FUTURE_THING","payload":{"x":1}}`, KindUnknown, false},
		{"not json", `not json`, KindUnknown, true},
		{"missing type", `{"payload":{}}`, KindUnknown, true},
		{"empty", ``, KindUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Parse(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if env.Type != tt.want {
				t.Errorf("Parse(%q).Type = %v, want %v", tt.raw, env.Type, tt.want)
			}
		})
	}
}

func TestParsePayloadFields(t *testing.T) {
	env, err := Parse(`{"type":"AUTH_TOKEN","payload":{"token":"tok-1"}}`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if env.Payload.Token != "tok-1" {
		t.Errorf("Token = %q, want tok-1", env.Payload.Token)
	}

	env, err = Parse(`{"type":"SHARE","payload":{"url":"https://a.com","text":"hi"}}`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if env.Payload.URL != "https://a.com" || env.Payload.Text != "hi" {
		t.Errorf("payload mismatch: %+v", env.Payload)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	env := Envelope{Type: KindNavigate, Payload: Payload{URL: "https://app.com/next"}}
	raw, err := Encode(env)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	back, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if back.Type != env.Type || back.Payload.URL != env.Payload.URL {
		t.Errorf("round trip mismatch: %+v != %+v", back, env)
	}
}
