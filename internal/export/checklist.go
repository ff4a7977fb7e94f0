// Package export renders compliance views as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"csrhub/internal/compliance"
)

const (
	ChecklistSheet = "Checklist"
	SummarySheet   = "Summary"
	// XLSXContentType is the MIME type of the generated workbook
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var checklistColumns = []struct {
	title string
	width float64
}{
	{"Category", 10},
	{"Category Name", 28},
	{"Document", 48},
	{"Status", 14},
	{"File", 50},
	{"Remarks", 36},
	{"Last Updated", 22},
}

// WriteChecklist writes a two-sheet workbook: the entries and a completeness summary
func WriteChecklist(w io.Writer, projectTitle string, cl compliance.Checklist) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ChecklistSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range checklistColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ChecklistSheet, cell, col.title); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(ChecklistSheet, name, name, col.width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(checklistColumns), 1)
	if err := f.SetCellStyle(ChecklistSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for r, e := range cl.Entries {
		row := []interface{}{e.Category, e.CategoryName, e.DocName, e.Status, "", "", ""}
		if e.Doc != nil {
			row[4] = e.Doc.URL
			row[5] = e.Doc.Remarks
			if !e.Doc.LastUpdated.IsZero() {
				row[6] = e.Doc.LastUpdated.Format("2006-01-02 15:04:05")
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(ChecklistSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	if err := f.SetPanes(ChecklistSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}
	if len(cl.Entries) > 0 {
		if err := f.AutoFilter(ChecklistSheet, "A1:"+last, nil); err != nil {
			return fmt.Errorf("failed to add filter: %w", err)
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Project", projectTitle},
		{"Submitted", cl.Submitted},
		{"Total", cl.Total},
		{"Completeness %", cl.Completeness},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	_ = f.SetColWidth(SummarySheet, "A", "A", 18)
	_ = f.SetColWidth(SummarySheet, "B", "B", 40)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
