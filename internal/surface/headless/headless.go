// Package headless provides a goja-backed stand-in for the embedded
// browser surface. It models just enough of the page environment
// (window, localStorage, document events, URL resolution) to execute
// the real injected bridge script, which makes the script's behavior
// testable end to end without a browser.
package headless

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Surface is one headless page context. It is recreated per page load
// the way a browser resets the execution context on navigation, while
// localStorage survives loads.
type Surface struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	logger  *zap.Logger
	storage map[string]string
	posted  []string
	current string
}

// New creates a surface with empty storage and no loaded page.
func New(logger *zap.Logger) *Surface {
	return &Surface{
		logger:  logger,
		storage: make(map[string]string),
	}
}

// Navigate loads rawURL into a fresh execution context. Storage content
// carries over; everything else (globals, wraps, markers) is reset.
func (s *Surface) Navigate(rawURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vm := goja.New()
	if err := s.setupGlobals(vm, rawURL); err != nil {
		return err
	}
	s.vm = vm
	s.current = rawURL
	return nil
}

// Inject executes a script in the current page context.
func (s *Surface) Inject(script string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vm == nil {
		return fmt.Errorf("no page loaded")
	}
	if _, err := s.vm.RunString(script); err != nil {
		return fmt.Errorf("script execution failed: %w", err)
	}
	return nil
}

// Eval runs an expression in the page context and returns its exported
// value.
func (s *Surface) Eval(expr string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vm == nil {
		return nil, fmt.Errorf("no page loaded")
	}
	val, err := s.vm.RunString(expr)
	if err != nil {
		return nil, err
	}
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, nil
	}
	return val.Export(), nil
}

// Posted returns the raw envelopes the page posted to the host so far.
func (s *Surface) Posted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.posted...)
}

// SetItem writes through the page's localStorage facade, so any
// installed storage observers fire exactly as they would in a browser.
func (s *Surface) SetItem(key, value string) error {
	_, err := s.Eval(fmt.Sprintf("window.localStorage.setItem(%s, %s)", jsStr(key), jsStr(value)))
	return err
}

// RemoveItem removes through the page's localStorage facade.
func (s *Surface) RemoveItem(key string) error {
	_, err := s.Eval(fmt.Sprintf("window.localStorage.removeItem(%s)", jsStr(key)))
	return err
}

// GetItem reads directly from the backing store.
func (s *Surface) GetItem(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.storage[key]
	return v, ok
}

// Open invokes window.open in the page.
func (s *Surface) Open(target string) error {
	_, err := s.Eval(fmt.Sprintf("window.open(%s)", jsStr(target)))
	return err
}

// ClickBlankLink simulates a captured click on an <a target="_blank">
// element and reports whether a listener prevented the default.
func (s *Surface) ClickBlankLink(href string) (bool, error) {
	expr := fmt.Sprintf(`(function () {
	  var prevented = false;
	  var el = { href: %s };
	  document.dispatchEvent({
	    type: 'click',
	    target: { closest: function (sel) { return sel === 'a[target="_blank"]' ? el : null; } },
	    preventDefault: function () { prevented = true; }
	  });
	  return prevented;
	})()`, jsStr(href))

	val, err := s.Eval(expr)
	if err != nil {
		return false, err
	}
	prevented, _ := val.(bool)
	return prevented, nil
}

// CurrentURL returns the page's location, including any in-page
// navigation a script performed by assigning location.href.
func (s *Surface) CurrentURL() string {
	val, err := s.Eval("window.location.href")
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.current
	}
	href, _ := val.(string)
	return href
}

func (s *Surface) setupGlobals(vm *goja.Runtime, rawURL string) error {
	hostname := ""
	if parsed, err := url.Parse(rawURL); err == nil {
		hostname = parsed.Hostname()
	}

	vm.Set("__webshell_post", func(raw string) {
		s.posted = append(s.posted, raw)
	})
	vm.Set("__storeGet", func(key string) goja.Value {
		if v, ok := s.storage[key]; ok {
			return vm.ToValue(v)
		}
		return goja.Null()
	})
	vm.Set("__storeSet", func(key, value string) {
		s.storage[key] = value
	})
	vm.Set("__storeRemove", func(key string) {
		delete(s.storage, key)
	})
	vm.Set("__resolveURL", func(raw, base string) map[string]interface{} {
		return resolveURL(raw, base)
	})

	prelude := fmt.Sprintf(preludeTemplate, jsStr(rawURL), jsStr(hostname))
	if _, err := vm.RunString(prelude); err != nil {
		return fmt.Errorf("failed to set up page globals: %w", err)
	}
	return nil
}

// resolveURL backs the page's URL constructor with net/url semantics.
func resolveURL(raw, base string) map[string]interface{} {
	var resolved *url.URL

	ref, err := url.Parse(raw)
	if err != nil {
		return map[string]interface{}{"error": "invalid URL"}
	}
	if ref.IsAbs() || base == "" {
		resolved = ref
	} else {
		b, err := url.Parse(base)
		if err != nil {
			return map[string]interface{}{"error": "invalid base URL"}
		}
		resolved = b.ResolveReference(ref)
	}
	if resolved.Scheme == "" {
		return map[string]interface{}{"error": "invalid URL"}
	}

	return map[string]interface{}{
		"protocol": resolved.Scheme + ":",
		"hostname": strings.ToLower(resolved.Hostname()),
		"href":     resolved.String(),
	}
}

func jsStr(s string) string {
	lit, err := sonic.ConfigStd.MarshalToString(s)
	if err != nil {
		return `""`
	}
	return lit
}

// preludeTemplate establishes the page environment. %s placeholders are
// the JSON-encoded page URL and hostname.
const preludeTemplate = `(function () {
  globalThis.window = globalThis;

  window.location = { href: %s, hostname: %s };

  window.localStorage = {
    getItem: function (k) { return __storeGet(String(k)); },
    setItem: function (k, v) { __storeSet(String(k), String(v)); },
    removeItem: function (k) { __storeRemove(String(k)); }
  };

  var listeners = {};
  window.document = {
    addEventListener: function (type, fn) {
      (listeners[type] = listeners[type] || []).push(fn);
    },
    dispatchEvent: function (ev) {
      var fns = listeners[ev.type] || [];
      for (var i = 0; i < fns.length; i++) {
        try { fns[i](ev); } catch (_) {}
      }
      return true;
    },
    createEvent: function () {
      return {
        initCustomEvent: function (type, bubbles, cancelable, detail) {
          this.type = type;
          this.detail = detail;
        }
      };
    }
  };

  globalThis.CustomEvent = function (type, opts) {
    this.type = type;
    this.detail = opts ? opts.detail : undefined;
  };

  globalThis.URL = function (raw, base) {
    var r = __resolveURL(String(raw), base === undefined ? '' : String(base));
    if (r.error) throw new Error(r.error);
    this.protocol = r.protocol;
    this.hostname = r.hostname;
    this.href = r.href;
  };
})();
`
