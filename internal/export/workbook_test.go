package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	columns := []string{"门店编码", "下单会员数", "渗透率"}
	rows := []map[string]interface{}{
		{"门店编码": "1001", "下单会员数": int64(12), "渗透率": "8.33%"},
		{"门店编码": "1002", "下单会员数": int64(3), "渗透率": 2.5},
	}

	require.NoError(t, WriteWorkbook(path, columns, rows))

	file, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer file.Close()

	// Header row follows the column order, not map iteration order.
	for col, want := range columns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		got, err := file.GetCellValue(sheetName, cell)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	a2, _ := file.GetCellValue(sheetName, "A2")
	assert.Equal(t, "1001", a2)

	// Percentage columns keep SQL-formatted strings and format bare
	// numerics.
	c2, _ := file.GetCellValue(sheetName, "C2")
	assert.Equal(t, "8.33%", c2)
	c3, _ := file.GetCellValue(sheetName, "C3")
	assert.Equal(t, "2.50%", c3)
}

func TestWriteWorkbookEmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteWorkbook(path, []string{"订单号"}, nil))

	file, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer file.Close()

	a1, _ := file.GetCellValue(sheetName, "A1")
	assert.Equal(t, "订单号", a1)
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, "", cellValue("订单号", nil))
	assert.Equal(t, "x", cellValue("订单号", "x"))
	assert.Equal(t, "12.34%", cellValue("渗透率", "12.34%"))
	assert.Equal(t, "12.34%", cellValue("渗透率", "12.34"))
	assert.Equal(t, "50.00%", cellValue("核销率", float64(50)))
	assert.Equal(t, int64(5), cellValue("订单数", int64(5)))
}
