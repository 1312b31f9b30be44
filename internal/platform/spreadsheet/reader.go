package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format; upload an .xlsx or .xls file")
	ErrNoWorksheet       = errors.New("no worksheet found")
)

// Supported reports whether filename has an extension ReadRows can decode.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		return true
	}
	return false
}

// ReadRows decodes the first worksheet into rows keyed by the header row.
// Header text is kept verbatim; empty cells become nil and blank rows are
// skipped.
func ReadRows(r io.Reader, filename string) ([]map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var grid [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		grid, err = readXLSX(data)
	case ".xls":
		grid, err = readXLS(data)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	return rowsFromGrid(grid), nil
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, ErrNoWorksheet
	}
	return file.GetRows(sheetName)
}

func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if workbook.NumSheets() == 0 {
		return nil, ErrNoWorksheet
	}
	sheet := workbook.GetSheet(0)
	if sheet == nil {
		return nil, ErrNoWorksheet
	}

	grid := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

// rowsFromGrid turns the first non-blank line into headers. Blank headers are
// dropped; repeated headers get a numeric suffix.
func rowsFromGrid(grid [][]string) []map[string]any {
	start := 0
	for start < len(grid) && blankLine(grid[start]) {
		start++
	}
	if start == len(grid) {
		return nil
	}

	headers := make([]string, len(grid[start]))
	seen := map[string]int{}
	for i, h := range grid[start] {
		if strings.TrimSpace(h) == "" {
			continue
		}
		name := h
		if n := seen[h]; n > 0 {
			name = fmt.Sprintf("%s_%d", h, n)
		}
		seen[h]++
		headers[i] = name
	}

	var rows []map[string]any
	for _, line := range grid[start+1:] {
		if blankLine(line) {
			continue
		}
		row := make(map[string]any, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(line) && strings.TrimSpace(line[i]) != "" {
				row[h] = line[i]
			} else {
				row[h] = nil
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func blankLine(line []string) bool {
	for _, cell := range line {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
