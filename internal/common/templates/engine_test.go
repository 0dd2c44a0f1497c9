package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter-gate/internal/common/errors"
)

func TestRenderDefaultForm(t *testing.T) {
	engine := NewEngine(nil)

	html, err := engine.RenderForm(FormDefault, FormData{
		Heading:     "Unlock by Subscribing",
		Text:        "Already Subscribed? Enter email to unlock",
		Button:      "Unlock",
		Integration: "mailchimp",
		ListID:      "abc123",
		Nonce:       "n0nce",
	})
	require.NoError(t, err)

	assert.Contains(t, html, `<div class="newslettergate">`)
	assert.Contains(t, html, `<div class="newslettergate-loader"></div>`)
	assert.Contains(t, html, `<h3>Unlock by Subscribing</h3>`)
	assert.Contains(t, html, `<p>Already Subscribed? Enter email to unlock</p>`)
	assert.Contains(t, html, `name="ng_action" value="newslettergate_check"`)
	assert.Contains(t, html, `name="ng_integration" value="mailchimp"`)
	assert.Contains(t, html, `name="ng_list" value="abc123"`)
	assert.Contains(t, html, `name="nonce" value="n0nce"`)
	assert.Contains(t, html, `>Unlock</button>`)
	assert.NotContains(t, html, "newslettergate-error")
}

func TestRenderSubscribeFormWithErrors(t *testing.T) {
	engine := NewEngine(nil)

	html, err := engine.RenderForm(FormSubscribe, FormData{
		Button: "Subscribe to Unlock",
		Email:  "reader@example.com",
		Errors: []string{"We could not subscribe you. Please contact us"},
	})
	require.NoError(t, err)

	assert.Contains(t, html, `name="ng_action" value="newslettergate_subscribe"`)
	assert.Contains(t, html, `value="reader@example.com"`)
	assert.Contains(t, html, `<div class="newslettergate-error"><p>We could not subscribe you. Please contact us</p></div>`)
	assert.NotContains(t, html, "<h3>", "empty heading is omitted")
}

func TestRenderEscapesValues(t *testing.T) {
	engine := NewEngine(nil)

	html, err := engine.RenderForm(FormDefault, FormData{
		Heading:     `<script>alert(1)</script>`,
		Integration: `x" onclick="y`,
	})
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, `x" onclick="y`)
}

func TestOverrideDirTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	formsDir := filepath.Join(dir, "newslettergate", "forms")
	require.NoError(t, os.MkdirAll(formsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(formsDir, "default.html"),
		[]byte(`<section class="theme">{{.Button}}</section>`), 0o644))

	engine := NewEngine(&EngineConfig{OverrideDir: dir, CacheTemplates: true})

	html, err := engine.RenderForm(FormDefault, FormData{Button: "Open"})
	require.NoError(t, err)
	assert.Equal(t, `<section class="theme">Open</section>`, html)
	assert.Equal(t, filepath.Join(formsDir, "default.html"), engine.Locate(FormDefault))

	// No override for the subscribe form
	html, err = engine.RenderForm(FormSubscribe, FormData{})
	require.NoError(t, err)
	assert.Contains(t, html, "newslettergate_subscribe")
	assert.Equal(t, "embedded:"+FormSubscribe, engine.Locate(FormSubscribe))
}

func TestCacheControlsReload(t *testing.T) {
	dir := t.TempDir()
	formsDir := filepath.Join(dir, "newslettergate", "forms")
	require.NoError(t, os.MkdirAll(formsDir, 0o755))
	path := filepath.Join(formsDir, "default.html")

	require.NoError(t, os.WriteFile(path, []byte(`v1`), 0o644))
	cached := NewEngine(&EngineConfig{OverrideDir: dir, CacheTemplates: true})
	live := NewEngine(&EngineConfig{OverrideDir: dir})

	first, _ := cached.Render(FormDefault, nil)
	assert.Equal(t, "v1", first)
	first, _ = live.Render(FormDefault, nil)
	assert.Equal(t, "v1", first)

	require.NoError(t, os.WriteFile(path, []byte(`v2`), 0o644))
	again, _ := cached.Render(FormDefault, nil)
	assert.Equal(t, "v1", again)
	again, _ = live.Render(FormDefault, nil)
	assert.Equal(t, "v2", again)
}

func TestRenderErrors(t *testing.T) {
	engine := NewEngine(nil)

	_, err := engine.Render("forms/missing.html", nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))

	_, err = engine.Render("../etc/passwd", nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	dir := t.TempDir()
	formsDir := filepath.Join(dir, "newslettergate", "forms")
	require.NoError(t, os.MkdirAll(formsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(formsDir, "default.html"), []byte(`{{.Broken`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(formsDir, "subscribe.html"), []byte(strings.Repeat("x", 64)), 0o644))

	broken := NewEngine(&EngineConfig{OverrideDir: dir, MaxTemplateSize: 32})
	_, err = broken.Render(FormDefault, nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
	_, err = broken.Render(FormSubscribe, nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestStyles(t *testing.T) {
	assert.Empty(t, Styles(StyleVar{Name: "--newslettergate-background"}))

	css := Styles(
		StyleVar{Name: "--newslettergate-background", Value: "#000"},
		StyleVar{Name: "--newslettergate-heading"},
		StyleVar{Name: "--newslettergate-button-text", Value: "#fff"},
	)
	assert.Equal(t, ".newslettergate { \n--newslettergate-background: #000;\n--newslettergate-button-text: #fff; }", css)
}
