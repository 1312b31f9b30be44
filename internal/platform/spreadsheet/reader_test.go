package spreadsheet

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return &buf
}

func TestReadRowsXLSX(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"city_namte ", "year", "rate", "base_min", "base_max"},
		{"佛山", 2024, 0.14, 3000, 28000},
		{"", "", "", "", ""},
		{"广州", 2024, nil, 2300, 36000},
	})

	rows, err := ReadRows(buf, "cities.XLSX")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected blank row skipped and 2 rows left, got %d", len(rows))
	}
	if rows[0]["city_namte "] != "佛山" {
		t.Fatalf("expected raw header kept verbatim, got %v", rows[0])
	}
	if rows[0]["year"] != "2024" {
		t.Fatalf("expected year text 2024, got %v", rows[0]["year"])
	}
	if v, ok := rows[1]["rate"]; !ok || v != nil {
		t.Fatalf("expected empty rate cell as nil, got %v (present=%v)", v, ok)
	}
}

func TestReadRowsDuplicateHeaders(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"name", "name", ""},
		{"a", "b", "ignored"},
	})
	rows, err := ReadRows(buf, "dup.xlsx")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if rows[0]["name"] != "a" || rows[0]["name_1"] != "b" {
		t.Fatalf("unexpected row %v", rows[0])
	}
	if len(rows[0]) != 2 {
		t.Fatalf("expected column without header dropped, got %v", rows[0])
	}
}

func TestReadRowsHeaderOnly(t *testing.T) {
	buf := buildWorkbook(t, [][]any{{"employee_id", "employee_name", "month", "salary_amount"}})
	rows, err := ReadRows(buf, "salaries.xlsx")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no data rows, got %d", len(rows))
	}
}

func TestReadRowsUnsupportedFormat(t *testing.T) {
	_, err := ReadRows(strings.NewReader("a,b\n1,2\n"), "salaries.csv")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if Supported("salaries.csv") || !Supported("cities.xls") {
		t.Fatal("unexpected Supported result")
	}
}

func TestReadRowsCorruptWorkbook(t *testing.T) {
	if _, err := ReadRows(strings.NewReader("not a zip"), "cities.xlsx"); err == nil {
		t.Fatal("expected error for corrupt workbook")
	}
}
