package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/amishk599/jobdigest/internal/model"
)

func testDigest() model.Digest {
	posted := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	top := model.Job{
		Title:    "HR Business Partner",
		Company:  "Acme",
		Location: "Milan, IT",
		PostedAt: &posted,
		Source:   "jsearch",
		URL:      "https://acme.example/1",
		Match:    &model.Match{Score: 88, Reason: "Strong fit."},
	}
	other := model.Job{Title: "Recruiter", Company: "Globex", Match: &model.Match{Score: 40}}
	return model.Digest{
		RunID:       "run-1",
		GeneratedAt: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC),
		Jobs:        []model.Job{top},
		Ranked:      []model.Job{top, other},
	}
}

func TestWorkbook(t *testing.T) {
	data, err := Workbook(testDigest())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{topSheet, rankedSheet}, f.GetSheetList())

	title, err := f.GetCellValue(topSheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "HR Business Partner", title)

	score, err := f.GetCellValue(topSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "88", score)

	rows, err := f.GetRows(rankedSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3, "header plus two jobs")
	assert.Equal(t, "Globex", rows[2][3])
}

func TestWorkbook_WithoutRanked(t *testing.T) {
	d := testDigest()
	d.Ranked = nil
	data, err := Workbook(d)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{topSheet}, f.GetSheetList())
}

func TestSaveWorkbook_AddsExtension(t *testing.T) {
	path, err := SaveWorkbook(testDigest(), filepath.Join(t.TempDir(), "report"))
	require.NoError(t, err)

	assert.Equal(t, ".xlsx", filepath.Ext(path))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSaveWorkbook_Directory(t *testing.T) {
	dir := t.TempDir()
	path, err := SaveWorkbook(testDigest(), dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "jobs-2026-10-19.xlsx"), path)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "jobs-2026-10-19.xlsx", FileName(testDigest()))
}
