package host

import (
	"testing"

	"go.uber.org/zap"
)

func TestOpenerInvokesHandler(t *testing.T) {
	var gotName string
	var gotArgs []string

	o := NewOpener(zap.NewNop())
	o.run = func(name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	}

	o.OpenExternal("https://example.com/map")

	if gotName == "" {
		t.Fatal("no command invoked")
	}
	found := false
	for _, a := range gotArgs {
		if a == "https://example.com/map" {
			found = true
		}
	}
	if !found {
		t.Errorf("URL not passed to handler: %s %v", gotName, gotArgs)
	}
}

func TestOpenerEmptyURL(t *testing.T) {
	o := NewOpener(zap.NewNop())
	invoked := false
	o.run = func(name string, args ...string) error {
		invoked = true
		return nil
	}

	o.OpenExternal("")
	if invoked {
		t.Error("empty URL must not invoke the handler")
	}
}

func TestSharerSanitizesText(t *testing.T) {
	s := NewSharer(zap.NewNop(), nil)

	got := s.SanitizeText(`<script>alert(1)</script>look at <b>this</b>`)
	if got != "look at this" {
		t.Errorf("SanitizeText = %q", got)
	}
}

func TestShareDelegatesURL(t *testing.T) {
	o := NewOpener(zap.NewNop())
	var opened []string
	o.run = func(name string, args ...string) error {
		opened = append(opened, args[len(args)-1])
		return nil
	}

	s := NewSharer(zap.NewNop(), o)
	s.Share("https://app.com/p/1", "check this out")

	if len(opened) != 1 || opened[0] != "https://app.com/p/1" {
		t.Errorf("opened = %v", opened)
	}
}
