package sqltemplate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingxuan-bi/report-service/internal/models"
)

const testOrderTemplate = `-- 订单查询
-- params: startTime, endTime
SELECT o.order_no AS '订单号'
FROM t_order o
WHERE 1=1
{{filters}}
ORDER BY o.create_time DESC
LIMIT ? OFFSET ?
`

func writeTemplate(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".sql"), []byte(content), 0o644))
}

func TestManagerInitializeLoadsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "order-query", testOrderTemplate)

	m := NewManager(dir)
	require.NoError(t, m.Initialize())

	tpl, err := m.GetTemplate("order-query")
	require.NoError(t, err)
	assert.Equal(t, "订单查询", tpl.Description)
	assert.Equal(t, []string{"startTime", "endTime"}, tpl.Parameters)
	assert.True(t, tpl.HasPagination)
}

func TestManagerInitializeSurvivesMissingDirectory(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nope"))
	assert.NoError(t, m.Initialize())
}

func TestManagerProcessUsesLoadedTemplate(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "order-query", testOrderTemplate)

	m := NewManager(dir)
	require.NoError(t, m.Initialize())

	result, err := m.Process("order-query", validOrderParams())
	require.NoError(t, err)
	assert.Contains(t, result.SQL, "o.order_no")
	assert.Len(t, result.Params, 4)
}

func TestManagerProcessFallsBackToBuiltin(t *testing.T) {
	m := NewManager(t.TempDir())
	require.NoError(t, m.Initialize())

	result, err := m.Process("order-query", validOrderParams())
	require.NoError(t, err)
	assert.Contains(t, result.SQL, "t_order")
}

func TestManagerProcessRejectsInvalidParams(t *testing.T) {
	m := NewManager(t.TempDir())
	_, err := m.Process("order-query", &models.QueryParams{Page: 1, PageSize: 20})

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestManagerReload(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "order-query", testOrderTemplate)

	m := NewManager(dir)
	require.NoError(t, m.Initialize())

	writeTemplate(t, dir, "order-query", "-- 更新\nSELECT 1 AS a FROM t_order\n{{filters}}\n")
	require.NoError(t, m.Reload("order-query"))

	tpl, err := m.GetTemplate("order-query")
	require.NoError(t, err)
	assert.Equal(t, "更新", tpl.Description)

	assert.ErrorIs(t, m.Reload("missing"), ErrTemplateNotFound)
}

func TestManagerReloadAll(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "order-query", testOrderTemplate)
	writeTemplate(t, dir, "coupon-query", testOrderTemplate)

	m := NewManager(dir)
	require.NoError(t, m.Initialize())

	count, err := m.ReloadAll()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	names := make([]string, 0)
	for _, tpl := range m.List() {
		names = append(names, tpl.Name)
	}
	assert.Equal(t, []string{"coupon-query", "order-query"}, names)
}

func TestManagerHealthCheckReloadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "order-query", testOrderTemplate)

	m := NewManager(dir)
	require.NoError(t, m.Initialize())

	// Templates added after startup are picked up by the probe.
	writeTemplate(t, dir, "coupon-query", testOrderTemplate)
	status := m.HealthCheck()

	assert.Equal(t, true, status["healthy"])
	assert.Equal(t, 2, status["templateCount"])
	assert.NotContains(t, status, "error")
}
