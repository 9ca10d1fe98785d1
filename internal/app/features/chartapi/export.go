// internal/app/features/chartapi/export.go
package chartapi

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/dalemusser/stratadash/internal/app/system/numfmt"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"github.com/xuri/excelize/v2"
)

// defaultSeriesLabel names a dataset that has no label.
const defaultSeriesLabel = "Series"

// sheetName is the single worksheet of an XLSX export.
const sheetName = "Data"

// Grid is a chart's data as a table: one row per label, one column per
// dataset. A nil cell is a missing value.
type Grid struct {
	Header []string
	Rows   [][]any
}

// GridOf flattens a chart payload. Only charts with both labels and
// datasets produce a grid.
func GridOf(p viz.Payload) (Grid, bool) {
	c, ok := p.(viz.Chart)
	if !ok {
		if cp, isPtr := p.(*viz.Chart); isPtr && cp != nil {
			c, ok = *cp, true
		}
	}
	if !ok || c.Data == nil {
		return Grid{}, false
	}
	labels := toSlice(c.Data["labels"])
	datasets := toSlice(c.Data["datasets"])
	if len(labels) == 0 || len(datasets) == 0 {
		return Grid{}, false
	}

	g := Grid{Header: []string{"Label"}}
	columns := make([][]any, len(datasets))
	for j, raw := range datasets {
		ds, _ := raw.(map[string]any)
		label, _ := ds["label"].(string)
		if label == "" {
			label = defaultSeriesLabel
		}
		g.Header = append(g.Header, label)
		columns[j] = toSlice(ds["data"])
	}
	for i, l := range labels {
		row := []any{fmt.Sprint(l)}
		for _, col := range columns {
			var cell any
			if i < len(col) {
				cell = col[i]
			}
			row = append(row, cell)
		}
		g.Rows = append(g.Rows, row)
	}
	return g, true
}

// toSlice accepts the slice shapes builders and the JSON decoder produce.
func toSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	case []float64:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	case []int:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	case []map[string]any:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	}
	return nil
}

// cellText renders a cell for CSV. Numbers use the shortest exact form.
func cellText(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := numfmt.ToFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

type exporter struct {
	ext         string
	contentType string
	write       func(w io.Writer, g Grid, title string) error
}

var csvExport = exporter{
	ext:         "csv",
	contentType: "text/csv; charset=utf-8",
	write:       WriteCSV,
}

var xlsxExport = exporter{
	ext:         "xlsx",
	contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	write:       WriteXLSX,
}

// WriteCSV writes the grid as CSV. The title is not part of the output.
func WriteCSV(w io.Writer, g Grid, _ string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(g.Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range g.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = cellText(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the grid as a single-sheet workbook with a bold header
// row. Numeric cells stay numeric.
func WriteXLSX(w io.Writer, g Grid, title string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if title != "" {
		if err := f.SetDocProps(&excelize.DocProperties{Title: title}); err != nil {
			return fmt.Errorf("set doc props: %w", err)
		}
	}

	for j, h := range g.Header {
		cell, _ := excelize.CoordinatesToCellName(j+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, row := range g.Rows {
		for j, v := range row {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if n, ok := numfmt.ToFloat(v); ok {
				if _, isString := v.(string); !isString {
					v = n
				}
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
