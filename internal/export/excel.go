// Package export writes the run's ranked jobs to an Excel workbook.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/amishk599/jobdigest/internal/model"
)

const (
	topSheet    = "Top Jobs"
	rankedSheet = "All Scored"
)

var columns = []struct {
	title string
	width float64
}{
	{"Rank", 6},
	{"Score", 7},
	{"Title", 40},
	{"Company", 25},
	{"Location", 25},
	{"Posted", 18},
	{"Source", 12},
	{"Reason", 60},
	{"URL", 50},
}

// Workbook renders the digest jobs and, when present, every ranked job into
// an .xlsx document.
func Workbook(d model.Digest) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", topSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"0077B5"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeSheet(f, topSheet, d.Jobs, headerStyle); err != nil {
		return nil, err
	}
	if len(d.Ranked) > 0 {
		if _, err := f.NewSheet(rankedSheet); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", rankedSheet, err)
		}
		if err := writeSheet(f, rankedSheet, d.Ranked, headerStyle); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveWorkbook writes the workbook for d to path, adding the .xlsx extension
// when missing. A path naming an existing directory gets FileName(d) inside it.
func SaveWorkbook(d model.Digest, path string) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, FileName(d))
	}
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	path = filepath.Clean(path)

	data, err := Workbook(d)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

// FileName is the attachment name used for the digest of d.
func FileName(d model.Digest) string {
	return "jobs-" + d.GeneratedAt.Format("2006-01-02") + ".xlsx"
}

func writeSheet(f *excelize.File, sheet string, jobs []model.Job, headerStyle int) error {
	for i, c := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetCellValue(sheet, col+"1", c.title); err != nil {
			return fmt.Errorf("%s header: %w", sheet, err)
		}
		if err := f.SetColWidth(sheet, col, col, c.width); err != nil {
			return fmt.Errorf("%s width: %w", sheet, err)
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}

	for i, j := range jobs {
		posted := ""
		if j.PostedAt != nil {
			posted = j.PostedAt.Format("2006-01-02 15:04")
		}
		reason := ""
		if j.Match != nil {
			reason = j.Match.Reason
		}
		row := []any{i + 1, j.Score(), j.Title, j.Company, j.Location, posted, j.Source, reason, j.URL}

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
		if j.URL != "" {
			urlCell, _ := excelize.CoordinatesToCellName(len(columns), i+2)
			if err := f.SetCellHyperLink(sheet, urlCell, j.URL, "External"); err != nil {
				return fmt.Errorf("%s link %d: %w", sheet, i+2, err)
			}
		}
	}
	return nil
}
