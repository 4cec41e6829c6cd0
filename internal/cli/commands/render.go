// Package commands holds the symlie subcommands.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/mat"

	"github.com/njchilds90/symlie"
)

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTable prints title on its own line; a go-pretty title wraps to the table width.
func newTable(w io.Writer, title string, cols int) table.Writer {
	if title != "" {
		fmt.Fprintln(w, title)
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	header := make(table.Row, cols+1)
	header[0] = ""
	for j := 0; j < cols; j++ {
		header[j+1] = "c" + strconv.Itoa(j)
	}
	t.AppendHeader(header)
	return t
}

func symbolicTable(w io.Writer, title string, m *symlie.Matrix) {
	t := newTable(w, title, m.Cols())
	for i := 0; i < m.Rows(); i++ {
		row := table.Row{"r" + strconv.Itoa(i)}
		for j := 0; j < m.Cols(); j++ {
			row = append(row, m.Get(i, j).String())
		}
		t.AppendRow(row)
	}
	t.Render()
}

func numericTable(w io.Writer, title string, m *mat.Dense) {
	rows, cols := m.Dims()
	t := newTable(w, title, cols)
	for i := 0; i < rows; i++ {
		row := table.Row{"r" + strconv.Itoa(i)}
		for j := 0; j < cols; j++ {
			row = append(row, formatFloat(m.At(i, j)))
		}
		t.AppendRow(row)
	}
	t.Render()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }

func denseRows(m *mat.Dense) [][]float64 {
	rows, _ := m.Dims()
	out := make([][]float64, rows)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

// numericLaTeX writes m as a bmatrix.
func numericLaTeX(m *mat.Dense) string {
	rows, cols := m.Dims()
	lines := make([]string, rows)
	for i := 0; i < rows; i++ {
		cells := make([]string, cols)
		for j := 0; j < cols; j++ {
			cells[j] = formatFloat(m.At(i, j))
		}
		lines[i] = strings.Join(cells, " & ")
	}
	return "\\begin{bmatrix}" + strings.Join(lines, " \\\\ ") + "\\end{bmatrix}"
}

func unknownOutput(format string) error {
	return fmt.Errorf("unknown output %q", format)
}
