package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"csrhub/internal/compliance"
	"csrhub/internal/model"
)

func TestWriteChecklist(t *testing.T) {
	docs := []model.ComplianceDoc{
		{Category: "A", DocName: "PAN Card", Status: model.DocStatusSubmitted, URL: "http://files/pan.pdf", LastUpdated: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	}
	cl := compliance.BuildChecklist(docs)

	var buf bytes.Buffer
	require.NoError(t, WriteChecklist(&buf, "Clean Water", cl))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ChecklistSheet)
	require.NoError(t, err)
	require.Len(t, rows, compliance.TotalDocs()+1)
	assert.Equal(t, "Category", rows[0][0])
	assert.Equal(t, "Document", rows[0][2])

	var found bool
	for _, row := range rows[1:] {
		if len(row) > 4 && row[2] == "PAN Card" {
			found = true
			assert.Equal(t, model.DocStatusSubmitted, row[3])
			assert.Equal(t, "http://files/pan.pdf", row[4])
		}
	}
	assert.True(t, found)

	completeness, err := f.GetCellValue(SummarySheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "4", completeness)

	title, err := f.GetCellValue(SummarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Clean Water", title)
}
