package sqltemplate

import (
	"fmt"
	"regexp"
	"strings"
)

const maxStatementLength = 50000

// Validator checks rendered statements before they reach a data
// source. Rendered report SQL must be a single read-only SELECT.
type Validator struct {
	deniedStatements []string
	patterns         map[string]*regexp.Regexp
}

// NewValidator creates a statement validator.
func NewValidator() *Validator {
	denied := []string{"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE", "GRANT", "REVOKE"}
	return &Validator{
		deniedStatements: denied,
		patterns: map[string]*regexp.Regexp{
			"line_comment":  regexp.MustCompile(`--`),
			"block_comment": regexp.MustCompile(`/\*`),
			"union":         regexp.MustCompile(`(?i)\bUNION\b`),
			"denied":        regexp.MustCompile(`(?i)\b(` + strings.Join(denied, "|") + `)\b`),
		},
	}
}

// Validate returns every safety violation found in the statement.
func (v *Validator) Validate(sql string) []string {
	var violations []string

	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		violations = append(violations, "statement is empty")
		return violations
	}
	if len(trimmed) > maxStatementLength {
		violations = append(violations, fmt.Sprintf("statement too long: %d bytes (max %d)", len(trimmed), maxStatementLength))
	}
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		violations = append(violations, "only SELECT statements are allowed")
	}
	if v.hasMultipleStatements(trimmed) {
		violations = append(violations, "multiple statements are not allowed")
	}
	if v.patterns["line_comment"].MatchString(trimmed) {
		violations = append(violations, "line comments are not allowed")
	}
	if v.patterns["block_comment"].MatchString(trimmed) {
		violations = append(violations, "block comments are not allowed")
	}
	if v.patterns["union"].MatchString(trimmed) {
		violations = append(violations, "UNION is not allowed")
	}
	seen := make(map[string]bool)
	for _, kw := range v.patterns["denied"].FindAllString(trimmed, -1) {
		kw = strings.ToUpper(kw)
		if !seen[kw] {
			seen[kw] = true
			violations = append(violations, fmt.Sprintf("statement type '%s' not allowed", kw))
		}
	}

	return violations
}

// hasMultipleStatements counts semicolons outside quoted strings. A
// single trailing semicolon is tolerated.
func (v *Validator) hasMultipleStatements(sql string) bool {
	inQuote := false
	quoteChar := rune(0)
	for i, r := range sql {
		switch {
		case inQuote:
			if r == quoteChar {
				inQuote = false
			}
		case r == '\'' || r == '"' || r == '`':
			inQuote = true
			quoteChar = r
		case r == ';':
			if strings.TrimSpace(sql[i+1:]) != "" {
				return true
			}
		}
	}
	return false
}
