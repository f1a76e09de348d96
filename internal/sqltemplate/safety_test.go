package sqltemplate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingxuan-bi/report-service/internal/models"
)

func TestValidatorAcceptsRenderedStatements(t *testing.T) {
	v := NewValidator()
	params := &models.QueryParams{
		StartTime:    "2025-08-01",
		EndTime:      "2025-08-15",
		StationCodes: "1001",
		Page:         1,
		PageSize:     20,
	}
	for name := range reports {
		result, err := Render(name, nil, params, true)
		require.NoError(t, err, name)
		// Column names like create_time must not trip the keyword scan.
		assert.Empty(t, v.Validate(result.SQL), name)
	}
}

func TestValidatorRejectsWrites(t *testing.T) {
	v := NewValidator()
	for _, sqlText := range []string{
		"INSERT INTO t VALUES (1)",
		"SELECT 1; DROP TABLE t",
		"UPDATE t SET a = 1",
		"SELECT * FROM t UNION SELECT * FROM users",
	} {
		assert.NotEmpty(t, v.Validate(sqlText), sqlText)
	}
}

func TestValidatorRejectsComments(t *testing.T) {
	v := NewValidator()
	assert.Contains(t, v.Validate("SELECT 1 -- hidden"), "line comments are not allowed")
	assert.Contains(t, v.Validate("SELECT /* hidden */ 1"), "block comments are not allowed")
}

func TestValidatorToleratesTrailingSemicolon(t *testing.T) {
	v := NewValidator()
	assert.Empty(t, v.Validate("SELECT 1;"))
}

func TestValidatorRejectsEmpty(t *testing.T) {
	v := NewValidator()
	assert.Contains(t, v.Validate("  "), "statement is empty")
}

func TestValidatorIgnoresQuotedSemicolons(t *testing.T) {
	v := NewValidator()
	assert.Empty(t, v.Validate("SELECT 1 FROM t WHERE a = 'x;y'"))
}
