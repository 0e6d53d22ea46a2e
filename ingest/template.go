package ingest

import (
	"io"

	"github.com/xuri/excelize/v2"
)

const templateSheet = "Manifiesto"

// Template writes an empty manifest workbook with the expected header row.
func Template(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return err
	}
	for i, h := range Headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(templateSheet, cell, h)
		f.SetCellStyle(templateSheet, cell, cell, bold)
		f.SetColWidth(templateSheet, col, col, float64(len(h)+4))
	}
	_, err = f.WriteTo(w)
	return err
}
