package convert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// workbookToText emits every sheet in workbook order. Rows keep their sheet row number so the
// model can refer back to the spreadsheet; blank rows and blank cells are left out.
func workbookToText(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		sb.WriteString("Sheet: ")
		sb.WriteString(sheet)
		sb.WriteByte('\n')
		for i, row := range rows {
			cells := nonEmptyCells(row)
			if len(cells) == 0 {
				continue
			}
			sb.WriteString(strconv.Itoa(i + 1))
			sb.WriteString(": ")
			sb.WriteString(strings.Join(cells, cellSeparator))
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func nonEmptyCells(row []string) []string {
	cells := make([]string, 0, len(row))
	for _, v := range row {
		if v == "" {
			continue
		}
		cells = append(cells, v)
	}
	return cells
}
