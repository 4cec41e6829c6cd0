package geo

import (
	"github.com/njchilds90/symlie"
	"github.com/njchilds90/symlie/ops"
)

// Scalar is a single expression under addition.
type Scalar struct {
	V symlie.Expr
}

func SymbolicScalar(name string) Scalar { return Scalar{V: symlie.S(name)} }

func (s Scalar) StorageDim() int { return 1 }
func (s Scalar) ToStorage() []symlie.Expr { return []symlie.Expr{s.V} }
func (s Scalar) FromStorage(vec []symlie.Expr) ops.Storage {
	checkLen("Scalar", vec, 1)
	return Scalar{V: vec[0]}
}
func (s Scalar) TangentDim() int { return 1 }
func (s Scalar) StorageDTangent(symlie.Expr) *symlie.Matrix { return symlie.Identity(1) }
func (s Scalar) TangentDStorage(symlie.Expr) *symlie.Matrix { return symlie.Identity(1) }

func (s Scalar) Compose(b Scalar) Scalar { return Scalar{V: symlie.AddOf(s.V, b.V)} }
func (s Scalar) Inverse() Scalar { return Scalar{V: symlie.Neg(s.V)} }

// Mul is the ordinary product. It is not the group operation.
func (s Scalar) Mul(b Scalar) Scalar { return Scalar{V: symlie.MulOf(s.V, b.V)} }

func (s Scalar) Retract(vec []symlie.Expr, _ symlie.Expr) ops.Manifold {
	checkLen("Scalar tangent", vec, 1)
	return Scalar{V: symlie.AddOf(s.V, vec[0])}
}

func (s Scalar) LocalCoordinates(b ops.Manifold, _ symlie.Expr) []symlie.Expr {
	return []symlie.Expr{symlie.SubOf(mustBe[Scalar](b).V, s.V)}
}

// Vector is an n-dimensional vector of expressions under addition.
type Vector []symlie.Expr

// SymbolicVector returns name_0 … name_{n-1}.
func SymbolicVector(name string, n int) Vector {
	return Vector(symlie.SymbolicVector(name+"_", n))
}

// Vector3 builds a 3-vector.
func Vector3(x, y, z symlie.Expr) Vector { return Vector{x, y, z} }

func (v Vector) StorageDim() int { return len(v) }
func (v Vector) ToStorage() []symlie.Expr {
	out := make([]symlie.Expr, len(v))
	copy(out, v)
	return out
}
func (v Vector) FromStorage(vec []symlie.Expr) ops.Storage {
	checkLen("Vector", vec, len(v))
	out := make(Vector, len(vec))
	copy(out, vec)
	return out
}
func (v Vector) TangentDim() int { return len(v) }
func (v Vector) StorageDTangent(symlie.Expr) *symlie.Matrix { return symlie.Identity(len(v)) }
func (v Vector) TangentDStorage(symlie.Expr) *symlie.Matrix { return symlie.Identity(len(v)) }

func (v Vector) Add(b Vector) Vector {
	checkLen("Vector", b, len(v))
	out := make(Vector, len(v))
	for i := range v {
		out[i] = symlie.AddOf(v[i], b[i])
	}
	return out
}

func (v Vector) Sub(b Vector) Vector { return v.Add(b.Neg()) }

func (v Vector) Neg() Vector {
	out := make(Vector, len(v))
	for i := range v {
		out[i] = symlie.Neg(v[i])
	}
	return out
}

// Dot returns the inner product.
func (v Vector) Dot(b Vector) symlie.Expr {
	checkLen("Vector", b, len(v))
	terms := make([]symlie.Expr, len(v))
	for i := range v {
		terms[i] = symlie.MulOf(v[i], b[i])
	}
	return symlie.AddOf(terms...)
}

func (v Vector) Compose(b Vector) Vector { return v.Add(b) }
func (v Vector) Inverse() Vector { return v.Neg() }

func (v Vector) Retract(vec []symlie.Expr, _ symlie.Expr) ops.Manifold { return v.Add(Vector(vec)) }

func (v Vector) LocalCoordinates(b ops.Manifold, _ symlie.Expr) []symlie.Expr {
	return mustBe[Vector](b).Sub(v)
}

// Column returns v as an n×1 matrix.
func (v Vector) Column() *symlie.Matrix { return symlie.ColumnVector(v) }

func vectorFromColumn(m *symlie.Matrix) Vector { return Vector(m.ToFlatList()) }
