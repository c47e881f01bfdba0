package bridge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildScript(t *testing.T) {
	script, err := BuildScript(ScriptConfig{
		Platform: "linux",
		Version:  "1.4.0",
		Token:    "tok-abc",
		Trusted:  []string{"app.com", "checkout.stripe.com"},
	})
	require.NoError(t, err)

	assert.Contains(t, script, installedMarker)
	assert.Contains(t, script, GlobalName)
	assert.Contains(t, script, PostFunc)
	assert.Contains(t, script, ReadyEvent)
	assert.Contains(t, script, `"linux"`)
	assert.Contains(t, script, `"1.4.0"`)
	assert.Contains(t, script, `"tok-abc"`)
	assert.Contains(t, script, `["app.com","checkout.stripe.com"]`)
}

func TestBuildScriptEscapesValues(t *testing.T) {
	// Values embedded into the program text must never break out of their
	// string literal. The token is the attacker-influenced one.
	hostile := `";window.evil=1;//</script>`
	script, err := BuildScript(ScriptConfig{
		Platform: "android",
		Version:  "2.0.0",
		Token:    hostile,
		Trusted:  []string{"app.com"},
	})
	require.NoError(t, err)

	assert.NotContains(t, script, hostile)
	assert.NotContains(t, script, "</script>")
	// The escaped form is present instead.
	assert.Contains(t, script, `\"`)
}

func TestBuildScriptNormalizesTrusted(t *testing.T) {
	script, err := BuildScript(ScriptConfig{
		Platform: "ios",
		Version:  "1.0.0",
		Trusted:  []string{" WWW.App.com ", "", "api.app.com"},
	})
	require.NoError(t, err)

	assert.Contains(t, script, `["app.com","api.app.com"]`)
}

func TestBuildScriptEmptyToken(t *testing.T) {
	script, err := BuildScript(ScriptConfig{Platform: "ios", Version: "1.0.0"})
	require.NoError(t, err)

	// An empty mirror renders as an empty literal, and the re-injection
	// branch is guarded on it.
	assert.Contains(t, script, `MIRROR_TOKEN = ""`)
	assert.True(t, strings.HasPrefix(script, "(() => {"))
}
