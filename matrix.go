package slh

import (
	"fmt"
	"strings"
)

// ============================================================
// Matrix — dense matrix of scalar expressions
// ============================================================

type Matrix struct {
	rows, cols int
	data       [][]Expr
}

func NewMatrix(rows, cols int) *Matrix {
	if rows <= 0 || cols <= 0 {
		panic("slh: matrix dimensions must be positive")
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

func MatrixFromSlice(rows, cols int, entries []Expr) *Matrix {
	if len(entries) != rows*cols {
		panic(fmt.Sprintf("slh: expected %d entries, got %d", rows*cols, len(entries)))
	}
	m := NewMatrix(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.data[i][j] = entries[i*cols+j].Simplify()
		}
	}
	return m
}

func (m *Matrix) checkBounds(row, col int) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("slh: index (%d,%d) out of range for %dx%d matrix", row, col, m.rows, m.cols))
	}
}

func (m *Matrix) Get(row, col int) Expr {
	m.checkBounds(row, col)
	return m.data[row][col]
}

func (m *Matrix) Set(row, col int, val Expr) {
	m.checkBounds(row, col)
	m.data[row][col] = val.Simplify()
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) String() string {
	var sb strings.Builder
	for i := 0; i < m.rows; i++ {
		parts := make([]string, m.cols)
		for j := 0; j < m.cols; j++ {
			parts[j] = m.data[i][j].String()
		}
		sb.WriteString("[" + strings.Join(parts, ", ") + "]")
		if i < m.rows-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (m *Matrix) LaTeX() string {
	var sb strings.Builder
	sb.WriteString("\\begin{pmatrix}")
	for i := 0; i < m.rows; i++ {
		parts := make([]string, m.cols)
		for j := 0; j < m.cols; j++ {
			parts[j] = m.data[i][j].LaTeX()
		}
		sb.WriteString(strings.Join(parts, " & "))
		if i < m.rows-1 {
			sb.WriteString(" \\\\ ")
		}
	}
	sb.WriteString("\\end{pmatrix}")
	return sb.String()
}

func (m *Matrix) MatAdd(other *Matrix) *Matrix {
	if m.rows != other.rows || m.cols != other.cols {
		panic("slh: matrix dimensions do not match for addition")
	}
	out := NewMatrix(m.rows, m.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.data[i][j] = AddOf(m.data[i][j], other.data[i][j])
		}
	}
	return out
}

func (m *Matrix) MatMul(other *Matrix) *Matrix {
	if m.cols != other.rows {
		panic("slh: matrix dimensions do not match for multiplication")
	}
	out := NewMatrix(m.rows, other.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < other.cols; j++ {
			terms := make([]Expr, m.cols)
			for k := 0; k < m.cols; k++ {
				terms[k] = MulOf(m.data[i][k], other.data[k][j])
			}
			out.data[i][j] = AddOf(terms...)
		}
	}
	return out
}

func (m *Matrix) Scale(scalar Expr) *Matrix {
	out := NewMatrix(m.rows, m.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.data[i][j] = MulOf(scalar, m.data[i][j])
		}
	}
	return out
}

func (m *Matrix) Transpose() *Matrix {
	out := NewMatrix(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.data[j][i] = m.data[i][j]
		}
	}
	return out
}

// Dagger returns the conjugate transpose.
func (m *Matrix) Dagger() *Matrix {
	out := m.Transpose()
	for i := 0; i < out.rows; i++ {
		for j := 0; j < out.cols; j++ {
			out.data[i][j] = ConjOf(out.data[i][j])
		}
	}
	return out
}

func (m *Matrix) ApplySub(name string, value Expr) *Matrix {
	out := NewMatrix(m.rows, m.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.data[i][j] = m.data[i][j].Sub(name, value)
		}
	}
	return out
}

// IsZero reports whether every entry simplifies to exactly zero.
func (m *Matrix) IsZero() bool {
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			if !m.data[i][j].Equal(N(0)) {
				return false
			}
		}
	}
	return true
}

func (m *Matrix) Equal(other *Matrix) bool {
	if m.rows != other.rows || m.cols != other.cols {
		return false
	}
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			if !m.data[i][j].Equal(other.data[i][j]) {
				return false
			}
		}
	}
	return true
}

func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.data[i][i] = N(1)
	}
	return m
}

// BlockDiag stacks two square blocks into a block-diagonal matrix.
func BlockDiag(a, b *Matrix) *Matrix {
	out := NewMatrix(a.rows+b.rows, a.cols+b.cols)
	for i := 0; i < a.rows; i++ {
		for j := 0; j < a.cols; j++ {
			out.data[i][j] = a.data[i][j]
		}
	}
	for i := 0; i < b.rows; i++ {
		for j := 0; j < b.cols; j++ {
			out.data[a.rows+i][a.cols+j] = b.data[i][j]
		}
	}
	return out
}

// PermuteOutputs reindexes rows: row i of the result is row p⁻¹(i) of
// m, so output channel i carries what previously left channel p⁻¹(i).
func (m *Matrix) PermuteOutputs(p Permutation) *Matrix {
	if len(p) != m.rows {
		panic("slh: permutation size does not match row count")
	}
	out := NewMatrix(m.rows, m.cols)
	for i := 0; i < m.rows; i++ {
		copy(out.data[p[i]], m.data[i])
	}
	return out
}

// PermuteInputs reindexes columns the same way.
func (m *Matrix) PermuteInputs(p Permutation) *Matrix {
	if len(p) != m.cols {
		panic("slh: permutation size does not match column count")
	}
	out := NewMatrix(m.rows, m.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.data[i][p[j]] = m.data[i][j]
		}
	}
	return out
}

// ScatteringDefect returns S·S† − I, the symbolic distance of a
// square scattering matrix from unitarity. With all entries numeric
// the defect of a physical matrix folds to the exact zero matrix;
// symbolic entries stay as unevaluated expressions.
func ScatteringDefect(s *Matrix) *Matrix {
	if s.rows != s.cols {
		panic("slh: scattering matrix must be square")
	}
	return s.MatMul(s.Dagger()).MatAdd(Identity(s.rows).Scale(N(-1)))
}

// ============================================================
// Scalar-matrix × operator-vector products
// ============================================================

// ApplyToOps computes the operator vector S·L for a scalar matrix S
// and operator column L.
func (m *Matrix) ApplyToOps(l []Op) []Op {
	if m.cols != len(l) {
		panic("slh: operator vector length does not match column count")
	}
	out := make([]Op, m.rows)
	for i := 0; i < m.rows; i++ {
		terms := make([]Op, m.cols)
		for j := 0; j < m.cols; j++ {
			terms[j] = Scale(m.data[i][j], l[j])
		}
		out[i] = AddOps(terms...)
	}
	return out
}

// addOpVecs adds two operator vectors of equal length.
func addOpVecs(a, b []Op) []Op {
	if len(a) != len(b) {
		panic("slh: operator vector lengths differ")
	}
	out := make([]Op, len(a))
	for i := range a {
		out[i] = AddOps(a[i], b[i])
	}
	return out
}
