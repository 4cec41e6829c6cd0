package codegen

import (
	"errors"
	"fmt"
	"slices"

	"github.com/njchilds90/symlie"
)

// Output is one matrix returned by a generated function.
type Output struct {
	Name   string
	Matrix *symlie.Matrix
}

// GenerateFunction emits a function called name taking the scalar inputs, in order, and
// returning each output matrix. Every free symbol of the outputs must be an input.
func GenerateFunction(p *Printer, name string, inputs []string, outputs []Output) (string, error) {
	if len(outputs) == 0 {
		return "", errors.New("codegen: function has no outputs")
	}
	for _, in := range inputs {
		if _, err := p.Print(symlie.S(in)); err != nil {
			return "", fmt.Errorf("input: %w", err)
		}
	}

	entries := make([][][]string, len(outputs))
	for k, out := range outputs {
		for _, sym := range symlie.SortedFreeSymbols(out.Matrix.ToFlatList()...) {
			if !slices.Contains(inputs, sym) {
				return "", fmt.Errorf("codegen: output %s uses %q, which is not an input", out.Name, sym)
			}
		}
		rows := make([][]string, out.Matrix.Rows())
		for i := range rows {
			rows[i] = make([]string, out.Matrix.Cols())
			for j := range rows[i] {
				s, err := p.Print(out.Matrix.Get(i, j))
				if err != nil {
					return "", fmt.Errorf("output %s[%d,%d]: %w", out.Name, i, j, err)
				}
				rows[i][j] = s
			}
		}
		entries[k] = rows
	}
	return p.function(p, name, inputs, outputs, entries)
}
