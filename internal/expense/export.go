package expense

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/xuri/excelize/v2"
)

type ExportFormat string

const (
	ExportXLSX ExportFormat = "xlsx"
	ExportPDF  ExportFormat = "pdf"
)

const (
	sheetExpenses = "Expenses"
	sheetSummary  = "Summary"
)

func (f ExportFormat) IsValid() bool {
	return f == ExportXLSX || f == ExportPDF
}

func (f ExportFormat) ContentType() string {
	switch f {
	case ExportPDF:
		return "application/pdf"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

func exportTimestamp() string {
	return time.Now().UTC().Format("20060102-150405")
}

func Render(format ExportFormat, list *ExpenseList) ([]byte, error) {
	switch format {
	case ExportXLSX:
		return BuildWorkbook(list)
	case ExportPDF:
		return BuildReportPDF(list)
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// BuildWorkbook writes one row per expense on the Expenses sheet and the
// category and month totals of those rows on the Summary sheet.
func BuildWorkbook(list *ExpenseList) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetExpenses)
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return nil, err
	}

	headers := []interface{}{"ID", "Date", "Title", "Category", "Amount", "Description", "Created At", "Updated At"}
	if err := f.SetSheetRow(sheetExpenses, "A1", &headers); err != nil {
		return nil, err
	}

	for i, e := range list.Data {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			e.ID,
			e.Date.Format(dateOnlyLayout),
			e.Title,
			e.Category,
			e.Amount.InexactFloat64(),
			e.Description,
			e.CreatedAt.Format(time.RFC3339),
			e.UpdatedAt.Format(time.RFC3339),
		}
		if err := f.SetSheetRow(sheetExpenses, cell, &row); err != nil {
			return nil, err
		}
	}

	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}
	if len(list.Data) > 0 {
		last := fmt.Sprintf("E%d", len(list.Data)+1)
		if err := f.SetCellStyle(sheetExpenses, "E2", last, moneyStyle); err != nil {
			return nil, err
		}
	}

	summary := [][]interface{}{
		{"Count", list.Count},
		{"Total", list.Total.InexactFloat64()},
		{},
		{"Category", "Total"},
	}
	for _, c := range SummarizeByCategory(list.Data) {
		summary = append(summary, []interface{}{c.Category, c.Total.InexactFloat64()})
	}
	summary = append(summary, []interface{}{}, []interface{}{"Month", "Total"})
	for _, m := range SummarizeByYearMonth(list.Data) {
		summary = append(summary, []interface{}{m.Key, m.Total.InexactFloat64()})
	}

	for i := range summary {
		if len(summary[i]) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetSummary, cell, &summary[i]); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(sheetSummary, "B2", fmt.Sprintf("B%d", len(summary)), moneyStyle); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportPDF is a single report with the grand total and the category
// breakdown of the listed expenses.
func BuildReportPDF(list *ExpenseList) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Expense Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Expense Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s", time.Now().UTC().Format("2006-01-02 15:04 MST")))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Expenses: %d", list.Count))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, fmt.Sprintf("Total: %s", list.Total.StringFixed(2)))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Category Breakdown")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(70, 7, "Category")
	pdf.Cell(50, 7, "Amount")
	pdf.Cell(30, 7, "%")
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "", 11)
	for _, c := range SummarizeByCategory(list.Data) {
		share := 0.0
		if !list.Total.IsZero() {
			share = c.Total.Div(list.Total).InexactFloat64() * 100
		}
		pdf.Cell(70, 7, tr(c.Category))
		pdf.Cell(50, 7, c.Total.StringFixed(2))
		pdf.Cell(30, 7, fmt.Sprintf("%.1f%%", share))
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Expenses")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	for _, e := range list.Data {
		pdf.Cell(28, 6, e.Date.Format(dateOnlyLayout))
		pdf.Cell(80, 6, tr(truncate(e.Title, 45)))
		pdf.Cell(40, 6, tr(e.Category))
		pdf.CellFormat(30, 6, e.Amount.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
