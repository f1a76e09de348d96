package sqltemplate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrTemplateNotFound is returned when a template file is absent and
// could not be loaded. Fatal and non-retryable for that report type.
var ErrTemplateNotFound = errors.New("sql template not found")

// Template is a named SQL statement loaded from disk: the description
// comes from the leading comment, the logical parameter list from a
// "-- params:" annotation, and HasPagination from a trailing
// "LIMIT ? OFFSET ?" pair.
type Template struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	SQL           string   `json:"sql"`
	Parameters    []string `json:"parameters"`
	HasPagination bool     `json:"hasPagination"`
}

var (
	paginationTailRe = regexp.MustCompile(`(?i)LIMIT\s+\?\s+OFFSET\s+\?\s*;?\s*$`)
	paramsLineRe     = regexp.MustCompile(`^--\s*params:\s*(.+)$`)
)

// LoadTemplate reads <dir>/<name>.sql and parses its metadata.
func LoadTemplate(dir, name string) (*Template, error) {
	path := filepath.Join(dir, name+".sql")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return ParseTemplate(name, string(raw))
}

// ParseTemplate extracts metadata from the template text and strips
// comment lines so the rendered SQL carries none.
func ParseTemplate(name, raw string) (*Template, error) {
	var description string
	var parameters []string
	var body []string

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") {
			if m := paramsLineRe.FindStringSubmatch(trimmed); m != nil {
				for _, p := range strings.Split(m[1], ",") {
					if p = strings.TrimSpace(p); p != "" {
						parameters = append(parameters, p)
					}
				}
				continue
			}
			if description == "" {
				description = strings.TrimSpace(strings.TrimPrefix(trimmed, "--"))
			}
			continue
		}
		body = append(body, line)
	}

	sql := strings.TrimSpace(strings.Join(body, "\n"))
	if sql == "" {
		return nil, fmt.Errorf("template %s has no SQL body", name)
	}

	return &Template{
		Name:          name,
		Description:   description,
		SQL:           sql,
		Parameters:    parameters,
		HasPagination: paginationTailRe.MatchString(sql),
	}, nil
}
