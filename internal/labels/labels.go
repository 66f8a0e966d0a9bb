// Package labels looks up and renders the user-facing text of the modal.
package labels

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"
	"text/template"

	"github.com/BurntSushi/toml"

	"github.com/standardbeagle/estimator/internal/apperr"
)

//go:embed labels.toml
var defaultLabels []byte

type labelFile struct {
	Labels map[string]string `toml:"labels"`
}

// Labels is safe for concurrent use.
type Labels struct {
	text map[string]string

	mu        sync.Mutex
	templates map[string]*template.Template
}

// Default returns the bundled labels.
func Default() (*Labels, error) {
	return Load("")
}

// Load reads the bundled labels and applies overrides from path, if given.
func Load(path string) (*Labels, error) {
	var base labelFile
	if _, err := toml.Decode(string(defaultLabels), &base); err != nil {
		return nil, fmt.Errorf("parse default labels: %w", err)
	}
	if path != "" {
		var override labelFile
		if _, err := toml.DecodeFile(path, &override); err != nil {
			return nil, fmt.Errorf("load labels %s: %w", path, err)
		}
		for k, v := range override.Labels {
			base.Labels[k] = v
		}
	}
	return New(base.Labels), nil
}

// New builds Labels from a key to template map.
func New(text map[string]string) *Labels {
	cp := make(map[string]string, len(text))
	for k, v := range text {
		cp[k] = v
	}
	return &Labels{text: cp, templates: make(map[string]*template.Template)}
}

// Get returns the raw label, or the key itself when it is missing.
func (l *Labels) Get(key string) string {
	if v, ok := l.text[key]; ok {
		return v
	}
	return key
}

// Render executes the label as a template against data.
func (l *Labels) Render(key string, data any) (string, error) {
	tmpl, err := l.template(key)
	if err != nil {
		return "", apperr.NewTemplateRender(key, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", apperr.NewTemplateRender(key, err)
	}
	return buf.String(), nil
}

// RenderOr renders key and falls back to fallback on any failure. The error
// is still returned so callers can log it.
func (l *Labels) RenderOr(key string, data any, fallback string) (string, error) {
	out, err := l.Render(key, data)
	if err != nil {
		return fallback, err
	}
	return out, nil
}

func (l *Labels) template(key string) (*template.Template, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.templates[key]; ok {
		return t, nil
	}
	src, ok := l.text[key]
	if !ok {
		return nil, fmt.Errorf("no label %q", key)
	}
	t, err := template.New(key).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, err
	}
	l.templates[key] = t
	return t, nil
}
