package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const sheetName = "数据"

// WriteWorkbook writes rows to an .xlsx file at path. Columns set both
// the header row and the cell order, since the row maps themselves
// carry no ordering. Columns whose name contains 率 are rendered as
// percentages.
func WriteWorkbook(path string, columns []string, rows []map[string]interface{}) error {
	file := excelize.NewFile()
	defer file.Close()

	index, err := file.NewSheet(sheetName)
	if err != nil {
		return err
	}
	file.SetActiveSheet(index)
	file.DeleteSheet("Sheet1")

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 12,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E0E0E0"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 2},
		},
	})
	if err != nil {
		return err
	}

	for col, header := range columns {
		cell := fmt.Sprintf("%c1", 'A'+col)
		file.SetCellValue(sheetName, cell, header)
		file.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
	for col := range columns {
		colName := fmt.Sprintf("%c", 'A'+col)
		file.SetColWidth(sheetName, colName, colName, 20)
	}

	for row, record := range rows {
		for col, header := range columns {
			cell := fmt.Sprintf("%c%d", 'A'+col, row+2)
			file.SetCellValue(sheetName, cell, cellValue(header, record[header]))
		}
	}

	if len(rows) > 0 {
		lastCol := fmt.Sprintf("%c", 'A'+len(columns)-1)
		file.AutoFilter(sheetName, fmt.Sprintf("A1:%s%d", lastCol, len(rows)+1), nil)
	}

	return file.SaveAs(path)
}

// cellValue formats one cell. Percentage columns arrive either already
// formatted by SQL or as a numeric on the 0 to 100 scale.
func cellValue(column string, value interface{}) interface{} {
	if value == nil {
		return ""
	}
	if !strings.Contains(column, "率") {
		return value
	}
	switch v := value.(type) {
	case string:
		if strings.HasSuffix(v, "%") {
			return v
		}
		return v + "%"
	case float64:
		return fmt.Sprintf("%.2f%%", v)
	case float32:
		return fmt.Sprintf("%.2f%%", v)
	default:
		return value
	}
}
