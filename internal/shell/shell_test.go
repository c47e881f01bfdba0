package shell

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/webshell/webshell/internal/bridge"
	"github.com/webshell/webshell/internal/infrastructure/config"
	"github.com/webshell/webshell/internal/navigation"
	"github.com/webshell/webshell/internal/session"
)

type fakeSurface struct {
	navigated []string
	wentBack  int
	exits     int
	injected  []string
	errors    []string
}

func (f *fakeSurface) Navigate(url string)        { f.navigated = append(f.navigated, url) }
func (f *fakeSurface) GoBack()                    { f.wentBack++ }
func (f *fakeSurface) ConfirmExit()               { f.exits++ }
func (f *fakeSurface) InjectScript(script string) { f.injected = append(f.injected, script) }
func (f *fakeSurface) ShowLoadError(reason string) {
	f.errors = append(f.errors, reason)
}

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

func newTestShell(t *testing.T) (*Shell, *fakeSurface) {
	t.Helper()

	cfg := config.Default()
	cfg.App.URL = "https://app.example.com"
	cfg.App.Domains = []string{"app.example.com", "api.app.example.com"}
	cfg.App.TrustedDomains = []string{"checkout.stripe.com"}

	logger := zap.NewNop()
	mirror := session.NewMirror(&memSecureStore{data: map[string]string{}})
	trusted := navigation.NewTrustedDomains(cfg.App.Domains, cfg.App.TrustedDomains)
	engine := navigation.NewEngine(trusted, nil, logger)
	tracker := navigation.NewTracker()

	var sh *Shell
	nav := bridge.NavigatorFunc(func(url string) { sh.Navigate(url) })
	dispatcher := bridge.NewDispatcher(mirror, nil, nil, nil, nil, nav, logger)

	sh = New(cfg, engine, dispatcher, tracker, mirror, logger)

	surface := &fakeSurface{}
	sh.AttachSurface(surface)
	return sh, surface
}

func TestHandleNavigationAttempt(t *testing.T) {
	sh, _ := newTestShell(t)

	tests := []struct {
		name string
		url  string
		want navigation.Decision
	}{
		{"app domain", "https://app.example.com/dashboard", navigation.LoadInternal},
		{"trusted third party", "https://checkout.stripe.com/pay", navigation.LoadInternal},
		{"external", "https://twitter.com/share", navigation.DelegateExternal},
		{"blob", "blob:https://app.example.com/abc", navigation.Passthrough},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sh.HandleNavigationAttempt(tt.url); got != tt.want {
				t.Errorf("HandleNavigationAttempt(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestHandlePageLoadedInjectsScript(t *testing.T) {
	sh, surface := newTestShell(t)

	sh.HandleBridgeMessage(`{"type":"AUTH_TOKEN","payload":{"token":"tok-abc"}}`)
	sh.HandlePageLoaded("https://app.example.com/")

	if len(surface.injected) != 1 {
		t.Fatalf("expected 1 injected script, got %d", len(surface.injected))
	}
	script := surface.injected[0]
	if !strings.Contains(script, bridge.GlobalName) {
		t.Error("injected script missing bridge global")
	}
	if !strings.Contains(script, "tok-abc") {
		t.Error("injected script missing mirrored token")
	}
}

func TestHandleBackPressed(t *testing.T) {
	sh, surface := newTestShell(t)

	sh.HandleNavigationState("https://app.example.com/", false)
	sh.HandleBackPressed()
	if surface.wentBack != 0 || surface.exits != 1 {
		t.Errorf("without history: wentBack=%d exits=%d, want 0/1", surface.wentBack, surface.exits)
	}

	sh.HandleNavigationState("https://app.example.com/orders", true)
	sh.HandleBackPressed()
	if surface.wentBack != 1 || surface.exits != 1 {
		t.Errorf("with history: wentBack=%d exits=%d, want 1/1", surface.wentBack, surface.exits)
	}
}

func TestLoadFailureAndRetry(t *testing.T) {
	sh, surface := newTestShell(t)

	sh.HandleLoadFailed("https://app.example.com", "dns failure")
	if !sh.Errored() {
		t.Fatal("expected shell to enter error state")
	}
	if len(surface.errors) != 1 || surface.errors[0] != "dns failure" {
		t.Errorf("unexpected error screens: %v", surface.errors)
	}

	// No automatic recovery happens while errored.
	if sh.Errored() != true {
		t.Fatal("error state must persist until retry")
	}

	sh.HandleRetry()
	if sh.Errored() {
		t.Error("retry should clear error state")
	}
	if len(surface.navigated) != 1 || surface.navigated[0] != "https://app.example.com" {
		t.Errorf("retry should reload the entry URL, got %v", surface.navigated)
	}
}

func TestSuccessfulNavigationClearsError(t *testing.T) {
	sh, _ := newTestShell(t)

	sh.HandleLoadFailed("https://app.example.com", "timeout")
	sh.HandleNavigationState("https://app.example.com/", false)
	if sh.Errored() {
		t.Error("completed navigation should clear error state")
	}
}

func TestNavigateMessageReachesSurface(t *testing.T) {
	sh, surface := newTestShell(t)

	sh.HandleBridgeMessage(`{"type":"NAVIGATE","payload":{"url":"https://app.example.com/settings"}}`)
	if len(surface.navigated) != 1 || surface.navigated[0] != "https://app.example.com/settings" {
		t.Errorf("NAVIGATE should command the surface, got %v", surface.navigated)
	}
}

func TestDetachedSurfaceIsSafe(t *testing.T) {
	sh, _ := newTestShell(t)
	sh.DetachSurface()

	sh.HandlePageLoaded("https://app.example.com/")
	sh.HandleBackPressed()
	sh.HandleLoadFailed("https://app.example.com", "gone")
	sh.HandleRetry()
	sh.Navigate("https://app.example.com/x")
}
