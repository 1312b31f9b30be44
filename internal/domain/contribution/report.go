package contribution

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

const resultsSheet = "Results"

var resultHeaders = []string{
	FieldEmployeeID, FieldEmployeeName, FieldYear, "avg_salary", "contribution_base",
	"company_amount", FieldCityName, FieldRate, FieldBaseMin, FieldBaseMax,
}

// WriteResultsXLSX writes results as a single-sheet workbook.
func WriteResultsXLSX(w io.Writer, results []Result) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return err
	}
	header := make([]any, len(resultHeaders))
	for i, h := range resultHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			r.EmployeeID, r.EmployeeName, r.Year,
			r.AvgSalary.InexactFloat64(), r.ContributionBase.InexactFloat64(), r.CompanyAmount.InexactFloat64(),
			r.CityName, r.Rate.InexactFloat64(), r.BaseMin.InexactFloat64(), r.BaseMax.InexactFloat64(),
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// PDFOptions configures WriteResultsPDF. FontPath points to a UTF-8 TrueType
// font; without it the core Helvetica font is used, which cannot render CJK
// city or employee names.
type PDFOptions struct {
	FontPath string
}

// WriteResultsPDF renders results as a landscape A4 table.
func WriteResultsPDF(w io.Writer, results []Result, opts PDFOptions) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	family := "Helvetica"
	if opts.FontPath != "" {
		pdf.AddUTF8Font("report", "", opts.FontPath)
		family = "report"
	}
	pdf.AddPage()
	pdf.SetFont(family, "", 14)
	pdf.Cell(0, 10, "Employer contribution results")
	pdf.Ln(12)

	widths := []float64{28, 34, 14, 28, 30, 28, 26, 18, 26, 26}
	pdf.SetFont(family, "", 8)
	for i, h := range resultHeaders {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	total := TotalCompanyAmount(results)
	for _, r := range results {
		cells := []string{
			r.EmployeeID, r.EmployeeName, fmt.Sprint(r.Year),
			r.AvgSalary.StringFixed(amountPlaces), r.ContributionBase.StringFixed(amountPlaces),
			r.CompanyAmount.StringFixed(amountPlaces), r.CityName, r.Rate.String(),
			r.BaseMin.String(), r.BaseMax.String(),
		}
		for i, c := range cells {
			align := "R"
			if i == 0 || i == 1 || i == 6 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
	pdf.SetFont(family, "", 10)
	pdf.Cell(0, 8, fmt.Sprintf("Employees: %d    Total company amount: %s", len(results), total.StringFixed(amountPlaces)))

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}
