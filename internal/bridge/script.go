package bridge

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/bytedance/sonic"

	"github.com/webshell/webshell/internal/session"
)

// Names of the contract surface the script establishes inside the page.
const (
	// GlobalName is the bridge object exposed on the page's global scope.
	GlobalName = "WebShell"
	// PostFunc is the surface-host function the script posts envelopes to.
	PostFunc = "__webshell_post"
	// ReadyEvent is broadcast once per page load so the hosted application
	// can detect it is running inside the shell.
	ReadyEvent = "webshellready"

	installedMarker = "__webshell_bridge_installed"
)

// ScriptConfig parameterizes one build of the injected program.
type ScriptConfig struct {
	Platform string
	Version  string
	// Token is the mirrored session token to re-inject, empty when
	// unauthenticated.
	Token string
	// Trusted is the domain allow-list the in-page link interceptor
	// classifies against.
	Trusted []string
}

// scriptParams carries the config fields already encoded as JS literals.
// Every dynamic value is JSON-encoded before substitution; nothing is
// spliced into the program text raw.
type scriptParams struct {
	Platform string
	Version  string
	Token    string
	TokenKey string
	Trusted  string
}

// BuildScript renders the bridge script for one page load. Re-running the
// result in the same execution context is safe: an installed marker on the
// window prevents double-wrapping, and page reloads reset the marker.
func BuildScript(cfg ScriptConfig) (string, error) {
	params := scriptParams{}
	for _, field := range []struct {
		dst *string
		val interface{}
	}{
		{&params.Platform, cfg.Platform},
		{&params.Version, cfg.Version},
		{&params.Token, cfg.Token},
		{&params.TokenKey, session.TokenKey},
		{&params.Trusted, normalizedTrusted(cfg.Trusted)},
	} {
		lit, err := jsLiteral(field.val)
		if err != nil {
			return "", err
		}
		*field.dst = lit
	}

	var out strings.Builder
	if err := scriptTemplate.Execute(&out, params); err != nil {
		return "", fmt.Errorf("failed to render bridge script: %w", err)
	}
	return out.String(), nil
}

// jsLiteral encodes a value as a JavaScript literal. The std-compatible
// config additionally escapes HTML metacharacters, so attacker-influenced
// values like the session token can never break out of their literal or
// close the surrounding script element.
func jsLiteral(v interface{}) (string, error) {
	lit, err := sonic.ConfigStd.MarshalToString(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode script parameter: %w", err)
	}
	return lit, nil
}

func normalizedTrusted(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, "www.")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

var scriptTemplate = template.Must(template.New("bridge").Parse(`(() => {
  try {
    if (window.` + installedMarker + `) return;
    window.` + installedMarker + ` = true;

    var PLATFORM = {{.Platform}};
    var VERSION = {{.Version}};
    var TOKEN_KEY = {{.TokenKey}};
    var MIRROR_TOKEN = {{.Token}};
    var TRUSTED = {{.Trusted}};

    function post(type, payload) {
      try {
        window.` + PostFunc + `(JSON.stringify({ type: String(type), payload: payload || {} }));
      } catch (_) {}
    }

    function stripWWW(host) { return String(host || '').replace(/^www\./, ''); }

    function isInternal(raw) {
      try {
        var u = new URL(raw, window.location.href);
        if (u.protocol !== 'http:' && u.protocol !== 'https:') return false;
        var host = stripWWW(u.hostname);
        if (host === stripWWW(window.location.hostname)) return true;
        for (var i = 0; i < TRUSTED.length; i++) {
          if (host === TRUSTED[i] || host.slice(-(TRUSTED[i].length + 1)) === '.' + TRUSTED[i]) return true;
        }
        return false;
      } catch (_) { return false; }
    }

    // Re-inject the mirrored token before the hosted app's first read.
    // Runs before the storage wrap so the write is not echoed back.
    try {
      if (MIRROR_TOKEN && !window.localStorage.getItem(TOKEN_KEY)) {
        window.localStorage.setItem(TOKEN_KEY, MIRROR_TOKEN);
      }
    } catch (_) {}

    // Observe token writes and removals. The original operation always
    // proceeds; a throw in the observer must never block it.
    try {
      var storage = window.localStorage;
      var rawSet = storage.setItem.bind(storage);
      var rawRemove = storage.removeItem.bind(storage);
      storage.setItem = function (key, value) {
        try { if (key === TOKEN_KEY) post('AUTH_TOKEN', { token: String(value) }); } catch (_) {}
        return rawSet(key, value);
      };
      storage.removeItem = function (key) {
        try { if (key === TOKEN_KEY) post('LOGOUT', {}); } catch (_) {}
        return rawRemove(key);
      };
    } catch (_) {}

    // Keep internal new-tab links inside the surface. External targets
    // fall through to default behavior; the shell's navigation hook
    // decides those at the browser level.
    try {
      document.addEventListener('click', function (ev) {
        try {
          var el = ev.target && ev.target.closest ? ev.target.closest('a[target="_blank"]') : null;
          if (!el || !el.href) return;
          if (isInternal(el.href)) {
            ev.preventDefault();
            window.location.href = el.href;
          }
        } catch (_) {}
      }, true);
    } catch (_) {}

    // Programmatic new contexts: internal targets navigate the current
    // context, external targets go to the shell. Neither creates a new
    // context.
    try {
      window.open = function (url) {
        try {
          if (!url) return null;
          var target = String(url);
          if (isInternal(target)) {
            window.location.href = target;
            return null;
          }
          post('OPEN_EXTERNAL', { url: target });
          return null;
        } catch (_) { return null; }
      };
    } catch (_) {}

    window.` + GlobalName + ` = {
      isApp: true,
      platform: PLATFORM,
      version: VERSION,
      sendMessage: function (type, payload) { post(type, payload); },
      openExternal: function (url) { if (url) post('OPEN_EXTERNAL', { url: String(url) }); }
    };

    try {
      var detail = { platform: PLATFORM, version: VERSION };
      var evt;
      try {
        evt = new CustomEvent('` + ReadyEvent + `', { detail: detail });
      } catch (_) {
        evt = document.createEvent('CustomEvent');
        evt.initCustomEvent('` + ReadyEvent + `', false, false, detail);
      }
      document.dispatchEvent(evt);
    } catch (_) {}
  } catch (_) {}
})();
`))
