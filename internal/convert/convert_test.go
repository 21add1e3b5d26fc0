package convert

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestConvertCSV(t *testing.T) {
	path := writeFile(t, "people.csv", "name,age\nAlice,30\nBob,25")
	got, err := Convert(path, ".csv")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := "CSV Headers: name | age\n1: Alice | 30\n2: Bob | 25"
	if got != want {
		t.Fatalf("unexpected transcript:\nwant %q\ngot  %q", want, got)
	}
}

func TestConvertCSVRowCountsAndOrder(t *testing.T) {
	headers := []string{"id", "city", "score", "note"}
	var sb strings.Builder
	sb.WriteString(strings.Join(headers, ",") + "\n")
	const k = 25
	for i := 0; i < k; i++ {
		fmt.Fprintf(&sb, "%d,city-%d,%d,n%d\n", i, i, i*10, i)
	}
	path := writeFile(t, "rows.csv", sb.String())

	got, err := Convert(path, ".csv")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	lines := strings.Split(got, "\n")
	if len(lines) != k+1 {
		t.Fatalf("expected %d lines, got %d", k+1, len(lines))
	}
	if lines[0] != "CSV Headers: id | city | score | note" {
		t.Fatalf("unexpected header line %q", lines[0])
	}
	for i, line := range lines[1:] {
		prefix := fmt.Sprintf("%d: ", i+1)
		if !strings.HasPrefix(line, prefix) {
			t.Fatalf("line %d: expected prefix %q, got %q", i+1, prefix, line)
		}
		values := strings.Split(strings.TrimPrefix(line, prefix), " | ")
		if len(values) != len(headers) {
			t.Fatalf("line %d: expected %d values, got %d", i+1, len(headers), len(values))
		}
		if values[1] != fmt.Sprintf("city-%d", i) {
			t.Fatalf("line %d out of order: %q", i+1, line)
		}
	}
}

func TestConvertCSVShortAndLongRows(t *testing.T) {
	path := writeFile(t, "ragged.csv", "a,b,c\n1\n1,2,3,4\n\"x, y\",,z\n")
	got, err := Convert(path, ".csv")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := "CSV Headers: a | b | c\n1: 1 |  | \n2: 1 | 2 | 3\n3: x, y |  | z"
	if got != want {
		t.Fatalf("unexpected transcript:\nwant %q\ngot  %q", want, got)
	}
}

func TestConvertCSVStripsBOM(t *testing.T) {
	path := writeFile(t, "bom.csv", "\ufeffname,age\nAlice,30\n")
	got, err := Convert(path, ".csv")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.HasPrefix(got, "CSV Headers: name | age") {
		t.Fatalf("bom not stripped: %q", got)
	}
}

func TestConvertCSVEmpty(t *testing.T) {
	for name, body := range map[string]string{
		"empty.csv":  "",
		"header.csv": "name,age\n",
	} {
		path := writeFile(t, name, body)
		got, err := Convert(path, ".csv")
		if err != nil {
			t.Fatalf("%s: convert: %v", name, err)
		}
		if got != "CSV file appears empty." {
			t.Fatalf("%s: unexpected transcript %q", name, got)
		}
	}
}

func TestConvertDeterministic(t *testing.T) {
	path := writeFile(t, "d.csv", "k,v\na,1\nb,2\nc,3\n")
	first, err := Convert(path, ".csv")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	second, err := Convert(path, ".csv")
	if err != nil {
		t.Fatalf("convert again: %v", err)
	}
	if first != second {
		t.Fatalf("transcripts differ:\n%q\n%q", first, second)
	}
}

func TestConvertUnsupportedFormat(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist.txt")
	_, err := Convert(missing, ".txt")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) || ufe.Ext != ".txt" {
		t.Fatalf("expected UnsupportedFormatError for .txt, got %v", err)
	}
	if !strings.Contains(err.Error(), ".xlsx, .xls, or .csv") {
		t.Fatalf("message should name accepted formats: %v", err)
	}
}

func TestConvertMissingFile(t *testing.T) {
	_, err := Convert(filepath.Join(t.TempDir(), "gone.csv"), ".csv")
	if err == nil || errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected IO error, got %v", err)
	}
}

func TestSupported(t *testing.T) {
	for ext, want := range map[string]bool{
		".xlsx": true, "XLS": true, ".CSV": true, "csv": true, ".txt": false, "": false, ".pdf": false,
	} {
		if got := Supported(ext); got != want {
			t.Fatalf("Supported(%q) = %v, want %v", ext, got, want)
		}
	}
}

func TestConvertWorkbook(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "People"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	if err := f.SetSheetRow("People", "A1", &[]interface{}{"name", "age"}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	if err := f.SetSheetRow("People", "A2", &[]interface{}{"Alice", 30}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	// Row 3 left blank, row 4 has a hole in column B.
	if err := f.SetCellValue("People", "A4", "Carol"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := f.SetCellValue("People", "C4", 41); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if _, err := f.NewSheet("Totals"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	if err := f.SetCellValue("Totals", "B2", "sum"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	f.Close()

	got, err := Convert(path, ".XLSX")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := "Sheet: People\n1: name | age\n2: Alice | 30\n4: Carol | 41\n\nSheet: Totals\n2: sum"
	if got != want {
		t.Fatalf("unexpected transcript:\nwant %q\ngot  %q", want, got)
	}
}

func TestConvertCorruptWorkbook(t *testing.T) {
	path := writeFile(t, "broken.xlsx", "definitely not a zip archive")
	got, err := Convert(path, ".xlsx")
	if err == nil {
		t.Fatalf("expected error for corrupt workbook")
	}
	if got != "" {
		t.Fatalf("expected no partial text, got %q", got)
	}
}
