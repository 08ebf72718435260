package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderTable renders rows under headers in the rounded style shared by
// all curator output. Columns whose every cell is a count or a byte
// quantity are right-aligned; everything else stays left-aligned, so
// call sites never carry alignment plumbing.
func renderTable(headers []string, rows [][]string) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if numericColumn(rows, i) {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// numericColumn reports whether every non-empty cell in the column is a
// quantity. Empty columns stay left-aligned.
func numericColumn(rows [][]string, col int) bool {
	seen := false
	for _, row := range rows {
		if col >= len(row) || row[col] == "" {
			continue
		}
		if !numericCell(row[col]) {
			return false
		}
		seen = true
	}
	return seen
}

var byteUnits = map[string]bool{
	"B": true, "KiB": true, "MiB": true, "GiB": true, "TiB": true, "PiB": true,
}

// numericCell accepts plain integers and humanized byte strings such as
// "1.5 MiB".
func numericCell(cell string) bool {
	fields := strings.Fields(cell)
	if len(fields) == 0 || len(fields) > 2 {
		return false
	}
	if len(fields) == 2 && !byteUnits[fields[1]] {
		return false
	}
	dot := false
	for _, r := range fields[0] {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && !dot:
			dot = true
		case r == ',':
		default:
			return false
		}
	}
	return true
}
