// Package templates provides a template manager with dynamic reload support.
package templates

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"psnrwanda/internal/domain"
	"psnrwanda/internal/i18n"
	"psnrwanda/internal/tracking"
)

// Manager handles template loading and caching
type Manager struct {
	dir     string
	debug   bool
	cache   map[string]*template.Template
	mu      sync.RWMutex
	funcMap template.FuncMap
}

// Options wires the helpers that need application state
type Options struct {
	Catalog *i18n.Catalog
	// APIBase is the REST base used to build document download links
	APIBase string
}

// NewManager creates a new template manager
// If debug is true, templates are reloaded on every request
// If debug is false, templates are cached in memory
func NewManager(dir string, debug bool, opts Options) (*Manager, error) {
	cleanDir := filepath.Clean(dir)
	if _, err := os.Stat(cleanDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("template directory does not exist: %s", cleanDir)
	}
	if opts.Catalog == nil {
		return nil, fmt.Errorf("translation catalog is required")
	}

	h := helpers{catalog: opts.Catalog, apiBase: opts.APIBase}
	m := &Manager{
		dir:   cleanDir,
		debug: debug,
		cache: make(map[string]*template.Template),
		funcMap: template.FuncMap{
			"t":           h.t,
			"tlist":       h.tlist,
			"plural":      h.plural,
			"statusLabel": h.statusLabel,
			"documentURL": h.documentURL,
			"statusBadge": statusBadge,
			"formatDate":  formatDate,
			"fileSize":    fileSize,
			"add":         add,
			"lower":       strings.ToLower,
		},
	}

	if !debug {
		if err := m.loadTemplates(); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// loadTemplates loads all templates from the directory
func (m *Manager) loadTemplates() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	layoutContent, err := os.ReadFile(filepath.Join(m.dir, "layouts", "base.html"))
	if err != nil {
		return fmt.Errorf("failed to read layout: %w", err)
	}

	pagesDir := filepath.Join(m.dir, "pages")
	return filepath.Walk(pagesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".html" {
			return nil
		}

		cleanPath := filepath.Clean(path)
		if !isSubPath(m.dir, cleanPath) {
			return fmt.Errorf("invalid template path detected: %s", path)
		}

		relPath, err := filepath.Rel(m.dir, cleanPath)
		if err != nil {
			return err
		}
		templateName := filepath.ToSlash(relPath)

		tmpl, err := m.parse(layoutContent, cleanPath, templateName)
		if err != nil {
			return err
		}
		m.cache[templateName] = tmpl
		return nil
	})
}

// Render renders a template with the given data
func (m *Manager) Render(w io.Writer, name string, data interface{}) error {
	if m.debug {
		if err := m.loadSingle(name); err != nil {
			return fmt.Errorf("failed to reload templates: %w", err)
		}
	}

	m.mu.RLock()
	tmpl, ok := m.cache[name]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("template not found: %s", name)
	}

	return tmpl.ExecuteTemplate(w, "base", data)
}

// loadSingle loads a single template (used in debug mode)
func (m *Manager) loadSingle(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	layoutContent, err := os.ReadFile(filepath.Join(m.dir, "layouts", "base.html"))
	if err != nil {
		return fmt.Errorf("failed to read layout: %w", err)
	}

	pagePath := filepath.Clean(filepath.Join(m.dir, name))
	if !isSubPath(m.dir, pagePath) {
		return fmt.Errorf("invalid template path detected: %s", name)
	}

	tmpl, err := m.parse(layoutContent, pagePath, name)
	if err != nil {
		return err
	}
	m.cache[name] = tmpl
	return nil
}

// parse combines the layout with one page
func (m *Manager) parse(layout []byte, pagePath, name string) (*template.Template, error) {
	pageContent, err := os.ReadFile(pagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}

	tmpl := template.New("base").Funcs(m.funcMap)
	if _, err := tmpl.Parse(string(layout)); err != nil {
		return nil, fmt.Errorf("failed to parse layout for %s: %w", name, err)
	}
	if _, err := tmpl.Parse(string(pageContent)); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return tmpl, nil
}

// isSubPath checks if child is a subpath of parent
func isSubPath(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return !filepath.IsAbs(rel) && rel != ".." && len(rel) > 0 && rel[0] != '.'
}

// helpers are the template functions bound to the translation catalog
type helpers struct {
	catalog *i18n.Catalog
	apiBase string
}

func (h helpers) t(lang i18n.Language, key string) string {
	return h.catalog.T(lang, key)
}

func (h helpers) tlist(lang i18n.Language, key string) []string {
	return h.catalog.List(lang, key)
}

func (h helpers) plural(lang i18n.Language, key string, count int) string {
	return h.catalog.Plural(lang, key, count)
}

// statusLabel translates known statuses; anything else is shown as sent
func (h helpers) statusLabel(lang i18n.Language, status domain.BookingStatus) string {
	key := tracking.StatusKey(status)
	if key == "" {
		return string(status)
	}
	return h.catalog.T(lang, key)
}

func (h helpers) documentURL(filePath string) string {
	return tracking.DocumentURL(h.apiBase, filePath)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006")
}

func fileSize(bytes int64) string {
	return domain.FormatFileSize(bytes)
}

func add(a, b int) int {
	return a + b
}

func statusBadge(status domain.BookingStatus) string {
	switch status {
	case domain.StatusPending:
		return "pending"
	case domain.StatusInProgress:
		return "progress"
	case domain.StatusCompleted:
		return "completed"
	case domain.StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}
