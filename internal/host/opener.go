// Package host adapts the shell to the device it runs on: handing URLs to
// the operating system's external handler and forwarding content to the
// native sharing facility.
package host

import (
	"os/exec"
	"runtime"

	"go.uber.org/zap"
)

// Opener hands URLs to the OS-level handler. Calls are fire-and-forget:
// a handler failure is logged, never surfaced, and never blocks the
// navigation decision that triggered it.
type Opener struct {
	logger *zap.Logger
	// run is swappable for tests.
	run func(name string, args ...string) error
}

// NewOpener creates an opener for the current platform.
func NewOpener(logger *zap.Logger) *Opener {
	return &Opener{
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
	}
}

// OpenExternal asks the OS to handle the URL with whatever application
// owns its scheme (browser, dialer, mail client).
func (o *Opener) OpenExternal(url string) {
	if url == "" {
		return
	}

	name, args := openCommand(url)
	o.logger.Info("opening URL externally", zap.String("url", url))
	if err := o.run(name, args...); err != nil {
		o.logger.Warn("external open failed", zap.String("url", url), zap.Error(err))
	}
}

func openCommand(url string) (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}
