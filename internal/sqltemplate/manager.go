package sqltemplate

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jingxuan-bi/report-service/internal/models"
)

// Manager owns the template registry. Templates load from the
// directory at startup and reload on demand; a missing file falls back
// to the built-in text so a damaged deployment still serves queries.
type Manager struct {
	path      string
	validator *Validator

	mu        sync.RWMutex
	templates map[string]*Template
}

// NewManager creates a template manager over the given directory.
func NewManager(path string) *Manager {
	return &Manager{
		path:      path,
		validator: NewValidator(),
		templates: make(map[string]*Template),
	}
}

// Initialize loads every .sql file found in the template directory.
// Files that fail to parse are skipped with an error log. An absent
// directory is not fatal.
func (m *Manager) Initialize() error {
	entries, err := os.ReadDir(m.path)
	if err != nil {
		log.Warn().Err(err).Str("path", m.path).
			Msg("Template directory unavailable, using built-in templates")
		return nil
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".sql")
		tpl, err := LoadTemplate(m.path, name)
		if err != nil {
			log.Error().Err(err).Str("template", name).Msg("Failed to load SQL template")
			continue
		}
		m.mu.Lock()
		m.templates[name] = tpl
		m.mu.Unlock()
		loaded++
	}

	log.Info().Int("count", loaded).Str("path", m.path).Msg("SQL templates loaded")
	return nil
}

// GetTemplate returns the named template, loading it from disk on
// first use.
func (m *Manager) GetTemplate(name string) (*Template, error) {
	m.mu.RLock()
	tpl, ok := m.templates[name]
	m.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	tpl, err := LoadTemplate(m.path, name)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.templates[name] = tpl
	m.mu.Unlock()
	return tpl, nil
}

// lookup is the best-effort variant of GetTemplate: a template that
// cannot be loaded yields nil, which makes rendering fall back to the
// built-in text.
func (m *Manager) lookup(name string) *Template {
	tpl, err := m.GetTemplate(name)
	if err != nil {
		if !errors.Is(err, ErrTemplateNotFound) {
			log.Warn().Err(err).Str("template", name).Msg("Template unavailable, falling back to built-in")
		}
		return nil
	}
	return tpl
}

// Process validates params and renders the paginated statement for an
// interactive query.
func (m *Manager) Process(name string, params *models.QueryParams) (*ProcessedSQL, error) {
	return m.process(name, params, MaxQuerySpanDays, true, false)
}

// ProcessCount renders the row-count statement for an interactive
// query.
func (m *Manager) ProcessCount(name string, params *models.QueryParams) (*ProcessedSQL, error) {
	return m.process(name, params, MaxQuerySpanDays, false, true)
}

// ProcessExport renders the unpaginated statement for an export job,
// which tolerates a wider date range.
func (m *Manager) ProcessExport(name string, params *models.QueryParams) (*ProcessedSQL, error) {
	return m.process(name, params, MaxExportSpanDays, false, false)
}

// ProcessExportCount renders the preflight row-count statement for an
// export job.
func (m *Manager) ProcessExportCount(name string, params *models.QueryParams) (*ProcessedSQL, error) {
	return m.process(name, params, MaxExportSpanDays, false, true)
}

func (m *Manager) process(name string, params *models.QueryParams, maxSpanDays int, paginate, count bool) (*ProcessedSQL, error) {
	if err := ValidateParams(name, params, maxSpanDays, paginate); err != nil {
		return nil, err
	}

	tpl := m.lookup(name)
	var rendered *ProcessedSQL
	var err error
	if count {
		var countTpl *Template
		if ct := reports[name].countTemplate; ct != "" {
			countTpl = m.lookup(ct)
		}
		rendered, err = RenderCount(name, tpl, countTpl, params)
	} else {
		rendered, err = Render(name, tpl, params, paginate)
	}
	if err != nil {
		return nil, err
	}

	if violations := m.validator.Validate(rendered.SQL); len(violations) > 0 {
		return nil, fmt.Errorf("unsafe statement for %s: %s", name, strings.Join(violations, "; "))
	}
	return rendered, nil
}

// Reload replaces the cached copy of one template from disk.
func (m *Manager) Reload(name string) error {
	tpl, err := LoadTemplate(m.path, name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.templates[name] = tpl
	m.mu.Unlock()
	log.Info().Str("template", name).Msg("SQL template reloaded")
	return nil
}

// ReloadAll drops the cache and reloads every template from the
// directory. Returns the number of templates loaded.
func (m *Manager) ReloadAll() (int, error) {
	m.mu.Lock()
	m.templates = make(map[string]*Template)
	m.mu.Unlock()
	if err := m.Initialize(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.templates), nil
}

// List returns metadata for every cached template, sorted by name.
func (m *Manager) List() []*Template {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Template, 0, len(m.templates))
	for _, tpl := range m.templates {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// HealthCheck attempts a full reload and reports the outcome for the
// health endpoint. A failed reload leaves the built-in fallbacks in
// place, so the registry itself stays usable either way.
func (m *Manager) HealthCheck() map[string]interface{} {
	count, err := m.ReloadAll()
	status := map[string]interface{}{
		"healthy":       err == nil,
		"path":          m.path,
		"templateCount": count,
		"reports":       len(reports),
	}
	if err != nil {
		status["error"] = err.Error()
	}
	return status
}
