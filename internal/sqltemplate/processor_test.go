package sqltemplate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingxuan-bi/report-service/internal/models"
)

func orderParams() *models.QueryParams {
	return &models.QueryParams{
		StartTime:    "2025-08-01",
		EndTime:      "2025-08-15",
		StationCodes: "1001,1002",
		Mobile:       "13812345678",
		Statuses:     []int{2, 3},
		OrderNumber:  "DD2025",
		Page:         2,
		PageSize:     50,
	}
}

func TestRenderOrderQueryBindsFiltersInOrder(t *testing.T) {
	result, err := Render("order-query", nil, orderParams(), true)
	require.NoError(t, err)

	assert.NotContains(t, result.SQL, "{{")
	assert.Equal(t, strings.Count(result.SQL, "?"), len(result.Params))
	assert.Equal(t, []interface{}{
		"2025-08-01", "2025-08-15", "1001,1002", "13812345678", 2, 3, "%DD2025%",
		50, 50, // pageSize, offset for page 2
	}, result.Params)
	assert.True(t, result.HasPagination)
}

func TestRenderOmitsEmptyFilters(t *testing.T) {
	params := &models.QueryParams{
		StartTime: "2025-08-01",
		EndTime:   "2025-08-02",
		Page:      1,
		PageSize:  20,
	}
	result, err := Render("order-query", nil, params, true)
	require.NoError(t, err)

	// The select list always projects u.user_mobile, only the filter
	// fragment must be absent.
	assert.NotContains(t, result.SQL, "u.user_mobile = ?")
	assert.NotContains(t, result.SQL, "FIND_IN_SET")
	assert.Len(t, result.Params, 4)
}

func TestRenderNormalizesChineseCommas(t *testing.T) {
	params := orderParams()
	params.StationCodes = "1001，1002， 1003"
	result, err := Render("order-query", nil, params, true)
	require.NoError(t, err)
	assert.Contains(t, result.Params, "1001,1002,1003")
}

func TestRenderPenetrationBindsValuesPerMarkerOccurrence(t *testing.T) {
	params := &models.QueryParams{
		StartTime:    "2025-08-01",
		EndTime:      "2025-08-15",
		StationCodes: "1001,1002",
		Page:         1,
		PageSize:     20,
	}
	result, err := Render("penetration-query", nil, params, true)
	require.NoError(t, err)

	assert.Equal(t, strings.Count(result.SQL, "?"), len(result.Params))
	// Two total_filters occurrences plus one filters occurrence, three
	// values each, then pagination.
	require.Len(t, result.Params, 11)
	assert.Equal(t, "1001,1002", result.Params[2])
	assert.Equal(t, "1001,1002", result.Params[5])
	assert.Equal(t, "1001,1002", result.Params[8])
}

func TestRenderWithoutPaginationStripsLimit(t *testing.T) {
	result, err := Render("order-query", nil, orderParams(), false)
	require.NoError(t, err)

	assert.NotContains(t, strings.ToUpper(result.SQL), "LIMIT")
	assert.Equal(t, strings.Count(result.SQL, "?"), len(result.Params))
	assert.False(t, result.HasPagination)
}

func TestRenderUnknownReport(t *testing.T) {
	_, err := Render("no-such-report", nil, orderParams(), true)
	assert.ErrorContains(t, err, "unknown report type")
}

func TestRenderDetectsPlaceholderMismatch(t *testing.T) {
	tpl, err := ParseTemplate("order-query", "SELECT 1 FROM t_order o WHERE a = ?\n{{filters}}")
	require.NoError(t, err)

	params := &models.QueryParams{StartTime: "2025-08-01", EndTime: "2025-08-02"}
	_, err = Render("order-query", tpl, params, false)
	assert.ErrorContains(t, err, "placeholders")
}

func TestRenderCountDerivesFromMainStatement(t *testing.T) {
	result, err := RenderCount("order-query", nil, nil, orderParams())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.SQL, "SELECT COUNT(*) AS total"))
	upper := strings.ToUpper(result.SQL)
	assert.NotContains(t, upper, "ORDER BY")
	assert.NotContains(t, upper, "LIMIT")
	// Same filter values as the main statement, without pagination.
	assert.Equal(t, []interface{}{
		"2025-08-01", "2025-08-15", "1001,1002", "13812345678", 2, 3, "%DD2025%",
	}, result.Params)
}

func TestRenderCountPrefersSiblingTemplate(t *testing.T) {
	params := &models.QueryParams{
		StartTime:    "2025-08-01",
		EndTime:      "2025-08-15",
		StationCodes: "1001",
	}
	result, err := RenderCount("penetration-query", nil, nil, params)
	require.NoError(t, err)

	// The sibling wraps the grouped statement instead of rewriting the
	// subquery-laden select list.
	assert.Contains(t, result.SQL, "FROM (")
	assert.Equal(t, []interface{}{"2025-08-01", "2025-08-15", "1001"}, result.Params)
}

func TestRenderCountSupportQueryCountsGroups(t *testing.T) {
	params := &models.QueryParams{
		StartTime: "2025-08-01",
		EndTime:   "2025-08-15",
		PartyCode: "DJ001",
	}
	result, err := RenderCount("support-query", nil, nil, params)
	require.NoError(t, err)

	// The grouped statement must count store groups, not joined order
	// rows, so the sibling wraps the GROUP BY in a subquery.
	assert.Contains(t, result.SQL, "FROM (")
	assert.Contains(t, result.SQL, "GROUP BY s.out_code")
	assert.Equal(t, []interface{}{"2025-08-01", "2025-08-15", "DJ001"}, result.Params)
}

func TestDeriveCountRejectsUnsafeShapes(t *testing.T) {
	cases := map[string]string{
		"cte":        "WITH x AS (SELECT 1) SELECT * FROM x",
		"subquery":   "SELECT a, (SELECT MAX(b) FROM t2) FROM t1",
		"not_select": "SHOW TABLES",
	}
	for name, sqlText := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := deriveCountSQL(sqlText)
			assert.Error(t, err)
		})
	}
}

func TestDeriveCountStripsGroupBy(t *testing.T) {
	out, err := deriveCountSQL("SELECT a, COUNT(*) FROM t WHERE b = ? GROUP BY a ORDER BY a")
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) AS total FROM t WHERE b = ?", strings.TrimSpace(out))
}

func TestDefaultTemplatesParse(t *testing.T) {
	for name := range defaultTemplateSQL {
		tpl, err := defaultTemplate(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, tpl.SQL, name)
		assert.NotContains(t, tpl.SQL, "--", name)
	}
}
