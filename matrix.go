package symlie

import (
	"fmt"
	"strings"
)

// ============================================================
// Matrix: symbolic matrix
// ============================================================

// Matrix is a dense rows×cols grid of expressions. Every operation below returns a new
// Matrix; Set is only meant for filling a matrix the caller has just allocated.
type Matrix struct {
	rows, cols int
	data       [][]Expr
}

func NewMatrix(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("symlie: invalid matrix shape %dx%d", rows, cols))
	}
	data := make([][]Expr, rows)
	for i := range data {
		data[i] = make([]Expr, cols)
		for j := range data[i] {
			data[i][j] = N(0)
		}
	}
	return &Matrix{rows: rows, cols: cols, data: data}
}

// MatrixFromSlice fills a rows×cols matrix from entries in row-major order.
func MatrixFromSlice(rows, cols int, entries []Expr) *Matrix {
	if len(entries) != rows*cols {
		panic(fmt.Sprintf("symlie: MatrixFromSlice needs %d entries, got %d", rows*cols, len(entries)))
	}
	m := NewMatrix(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.data[i][j] = entries[i*cols+j]
		}
	}
	return m
}

// ColumnVector builds an n×1 matrix.
func ColumnVector(entries []Expr) *Matrix { return MatrixFromSlice(len(entries), 1, entries) }

// Zeros is NewMatrix under the name callers reach for when the zeros matter.
func Zeros(rows, cols int) *Matrix { return NewMatrix(rows, cols) }

// BlockDiag places the blocks along the diagonal of a new matrix.
func BlockDiag(blocks ...*Matrix) *Matrix {
	rows, cols := 0, 0
	for _, b := range blocks {
		rows += b.rows
		cols += b.cols
	}
	out := NewMatrix(rows, cols)
	r, c := 0, 0
	for _, b := range blocks {
		for i := 0; i < b.rows; i++ {
			copy(out.data[r+i][c:c+b.cols], b.data[i])
		}
		r += b.rows
		c += b.cols
	}
	return out
}

func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.data[i][i] = N(1)
	}
	return m
}

func (m *Matrix) checkBounds(row, col int) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("symlie: matrix index out of range [%d,%d] for %dx%d", row, col, m.rows, m.cols))
	}
}

func (m *Matrix) Get(row, col int) Expr {
	m.checkBounds(row, col)
	return m.data[row][col]
}
func (m *Matrix) Set(row, col int, val Expr) {
	m.checkBounds(row, col)
	m.data[row][col] = val
}
func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

// ToFlatList returns the entries in row-major order.
func (m *Matrix) ToFlatList() []Expr {
	out := make([]Expr, 0, m.rows*m.cols)
	for i := 0; i < m.rows; i++ {
		out = append(out, m.data[i]...)
	}
	return out
}

func (m *Matrix) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < m.rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("[")
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(m.data[i][j].String())
		}
		sb.WriteString("]")
	}
	sb.WriteString("]")
	return sb.String()
}

func (m *Matrix) LaTeX() string {
	var sb strings.Builder
	sb.WriteString("\\begin{pmatrix}")
	for i := 0; i < m.rows; i++ {
		if i > 0 {
			sb.WriteString(" \\\\ ")
		}
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteString(" & ")
			}
			sb.WriteString(m.data[i][j].LaTeX())
		}
	}
	sb.WriteString("\\end{pmatrix}")
	return sb.String()
}

// Equal reports structural equality of shape and every entry.
func (m *Matrix) Equal(other *Matrix) bool {
	if m.rows != other.rows || m.cols != other.cols {
		return false
	}
	for i := 0; i < m.rows; i++ {
		if !equalAll(m.data[i], other.data[i]) {
			return false
		}
	}
	return true
}

// Map returns a matrix of the same shape with fn applied to every entry.
func (m *Matrix) Map(fn func(Expr) Expr) *Matrix {
	result := NewMatrix(m.rows, m.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			result.data[i][j] = fn(m.data[i][j])
		}
	}
	return result
}

// MatAdd is the entrywise sum. Both operands must have the same shape.
func (m *Matrix) MatAdd(other *Matrix) *Matrix {
	return m.entrywise("MatAdd", other, func(a, b Expr) Expr { return AddOf(a, b) })
}

// MatSub is the entrywise difference m - other.
func (m *Matrix) MatSub(other *Matrix) *Matrix {
	return m.entrywise("MatSub", other, SubOf)
}

func (m *Matrix) entrywise(op string, other *Matrix, fn func(a, b Expr) Expr) *Matrix {
	if m.rows != other.rows || m.cols != other.cols {
		panic(fmt.Sprintf("symlie: %s shape mismatch %dx%d vs %dx%d", op, m.rows, m.cols, other.rows, other.cols))
	}
	out := NewMatrix(m.rows, m.cols)
	for i, row := range m.data {
		for j, e := range row {
			out.data[i][j] = fn(e, other.data[i][j])
		}
	}
	return out
}

func (m *Matrix) MatMul(other *Matrix) *Matrix {
	if m.cols != other.rows {
		panic(fmt.Sprintf("symlie: MatMul shape mismatch %dx%d * %dx%d", m.rows, m.cols, other.rows, other.cols))
	}
	out := NewMatrix(m.rows, other.cols)
	products := make([]Expr, m.cols)
	for i, row := range m.data {
		for j := 0; j < other.cols; j++ {
			for k, e := range row {
				products[k] = MulOf(e, other.data[k][j])
			}
			out.data[i][j] = AddOf(products...)
		}
	}
	return out
}

// Scale multiplies every entry by scalar.
func (m *Matrix) Scale(scalar Expr) *Matrix {
	return m.Map(func(e Expr) Expr { return MulOf(scalar, e) })
}

func (m *Matrix) Transpose() *Matrix {
	out := NewMatrix(m.cols, m.rows)
	for i, row := range m.data {
		for j, e := range row {
			out.data[j][i] = e
		}
	}
	return out
}

func (m *Matrix) mustBeSquare(op string) {
	if m.rows != m.cols {
		panic(fmt.Sprintf("symlie: %s needs a square matrix, got %dx%d", op, m.rows, m.cols))
	}
}

func (m *Matrix) Trace() Expr {
	m.mustBeSquare("Trace")
	diag := make([]Expr, m.rows)
	for i := range diag {
		diag[i] = m.data[i][i]
	}
	return AddOf(diag...)
}

// Det expands along the first row. The empty matrix has determinant 1.
func (m *Matrix) Det() Expr {
	m.mustBeSquare("Det")
	if m.rows == 0 {
		return N(1)
	}
	terms := make([]Expr, m.cols)
	for j, e := range m.data[0] {
		terms[j] = MulOf(e, m.cofactor(0, j))
	}
	return AddOf(terms...)
}

// minor drops row r and column c.
func (m *Matrix) minor(r, c int) *Matrix {
	out := NewMatrix(m.rows-1, m.cols-1)
	for i, oi := 0, 0; i < m.rows; i++ {
		if i == r {
			continue
		}
		copy(out.data[oi], m.data[i][:c])
		copy(out.data[oi][c:], m.data[i][c+1:])
		oi++
	}
	return out
}

func (m *Matrix) cofactor(r, c int) Expr {
	d := m.minor(r, c).Det()
	if (r+c)%2 == 1 {
		return Neg(d)
	}
	return d
}

// Inverse returns the transposed cofactor matrix divided by the determinant. A determinant
// that simplifies to the number zero is reported as singular; a symbolic one is trusted.
func (m *Matrix) Inverse() (*Matrix, error) {
	if m.rows != m.cols {
		return nil, fmt.Errorf("symlie: Inverse requires a square matrix, got %dx%d", m.rows, m.cols)
	}
	det := m.Det()
	if dn, ok := det.Eval(); ok && dn.IsZero() {
		return nil, fmt.Errorf("symlie: matrix is singular")
	}
	adj := NewMatrix(m.rows, m.cols)
	for i := range adj.data {
		for j := range adj.data[i] {
			adj.data[j][i] = m.cofactor(i, j)
		}
	}
	return adj.Scale(PowOf(det, N(-1))), nil
}

func (m *Matrix) ApplySub(varName string, value Expr) *Matrix {
	return m.Map(func(e Expr) Expr { return e.Sub(varName, value) })
}

// Subs replaces every occurrence of old in every entry with new.
func (m *Matrix) Subs(old, new Expr) *Matrix {
	return m.Map(func(e Expr) Expr { return Subs(e, old, new) })
}
