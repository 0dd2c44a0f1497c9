// Package templates renders the gate's HTML forms. Each form is looked up
// in <OverrideDir>/newslettergate/ first, so a site can restyle the markup,
// and falls back to the copy embedded in the binary.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"newsletter-gate/internal/common/errors"
)

//go:embed forms/*.html
var embedded embed.FS

// Form template names
const (
	FormDefault   = "forms/default.html"
	FormSubscribe = "forms/subscribe.html"
)

// overrideSubdir is the directory searched inside OverrideDir
const overrideSubdir = "newslettergate"

// EngineConfig configures template lookup and caching
type EngineConfig struct {
	// OverrideDir is searched before the embedded templates; empty disables it
	OverrideDir string
	// CacheTemplates keeps parsed templates; disable to pick up edits live
	CacheTemplates  bool
	MaxTemplateSize int
}

// FormData is the data every form template receives
type FormData struct {
	Heading     string
	Text        string
	Button      string
	Integration string
	ListID      string
	Email       string
	Nonce       string
	Errors      []string
}

// Engine parses and caches form templates. Safe for concurrent use.
type Engine struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
	mu        sync.RWMutex
	config    *EngineConfig
}

// NewEngine creates an engine; a nil config caches with no override dir
func NewEngine(config *EngineConfig) *Engine {
	if config == nil {
		config = &EngineConfig{CacheTemplates: true}
	}
	if config.MaxTemplateSize <= 0 {
		config.MaxTemplateSize = 256 * 1024
	}

	return &Engine{
		templates: make(map[string]*template.Template),
		funcMap: template.FuncMap{
			"lower": strings.ToLower,
			"join":  strings.Join,
		},
		config: config,
	}
}

// Locate returns the path a template is read from: the override file when
// it exists, else "embedded:<name>".
func (e *Engine) Locate(name string) string {
	if path, ok := e.overridePath(name); ok {
		return path
	}
	return "embedded:" + name
}

func (e *Engine) overridePath(name string) (string, bool) {
	if e.config.OverrideDir == "" {
		return "", false
	}
	path := filepath.Join(e.config.OverrideDir, overrideSubdir, filepath.FromSlash(name))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

func (e *Engine) load(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, errors.ValidationError(fmt.Sprintf("invalid template name %q", name))
	}

	if path, ok := e.overridePath(name); ok {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.InternalError(fmt.Sprintf("failed to read template %s", path), err)
		}
		return content, nil
	}

	content, err := embedded.ReadFile(name)
	if err != nil {
		return nil, errors.NotFoundError(fmt.Sprintf("template '%s'", name))
	}
	return content, nil
}

func (e *Engine) compile(name string) (*template.Template, error) {
	if e.config.CacheTemplates {
		e.mu.RLock()
		tmpl, ok := e.templates[name]
		e.mu.RUnlock()
		if ok {
			return tmpl, nil
		}
	}

	content, err := e.load(name)
	if err != nil {
		return nil, err
	}
	if len(content) > e.config.MaxTemplateSize {
		return nil, errors.ValidationError(fmt.Sprintf("template size %d exceeds maximum %d", len(content), e.config.MaxTemplateSize))
	}

	tmpl, err := template.New(name).Funcs(e.funcMap).Parse(string(content))
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("template compilation failed: %v", err))
	}

	if e.config.CacheTemplates {
		e.mu.Lock()
		e.templates[name] = tmpl
		e.mu.Unlock()
	}
	return tmpl, nil
}

// Render executes the named template with data
func (e *Engine) Render(name string, data interface{}) (string, error) {
	tmpl, err := e.compile(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.InternalError("template execution failed", err)
	}
	return buf.String(), nil
}

// RenderForm renders one of the form templates
func (e *Engine) RenderForm(name string, data FormData) (string, error) {
	return e.Render(name, data)
}
