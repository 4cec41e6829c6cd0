package geo

import (
	"github.com/njchilds90/symlie"
	"github.com/njchilds90/symlie/ops"
)

// Rot2 is a planar rotation stored as the unit complex number Re + i·Im.
type Rot2 struct {
	Re, Im symlie.Expr
}

func Rot2Identity() Rot2 { return Rot2{Re: symlie.N(1), Im: symlie.N(0)} }

// SymbolicRot2 returns name_re, name_im.
func SymbolicRot2(name string) Rot2 {
	s := symbols(name, "re", "im")
	return Rot2{Re: s[0], Im: s[1]}
}

// Rot2FromAngle is the exponential map.
func Rot2FromAngle(theta symlie.Expr) Rot2 {
	return Rot2{Re: symlie.CosOf(theta), Im: symlie.SinOf(theta)}
}

func (r Rot2) StorageDim() int { return 2 }
func (r Rot2) ToStorage() []symlie.Expr { return []symlie.Expr{r.Re, r.Im} }
func (r Rot2) FromStorage(vec []symlie.Expr) ops.Storage {
	checkLen("Rot2", vec, 2)
	return Rot2{Re: vec[0], Im: vec[1]}
}
func (r Rot2) TangentDim() int { return 1 }

func (r Rot2) StorageDTangent(symlie.Expr) *symlie.Matrix {
	return symlie.MatrixFromSlice(2, 1, []symlie.Expr{symlie.Neg(r.Im), r.Re})
}

func (r Rot2) TangentDStorage(symlie.Expr) *symlie.Matrix {
	return symlie.MatrixFromSlice(1, 2, []symlie.Expr{symlie.Neg(r.Im), r.Re})
}

func (r Rot2) Compose(b Rot2) Rot2 {
	return Rot2{
		Re: symlie.SubOf(symlie.MulOf(r.Re, b.Re), symlie.MulOf(r.Im, b.Im)),
		Im: symlie.AddOf(symlie.MulOf(r.Im, b.Re), symlie.MulOf(r.Re, b.Im)),
	}
}

func (r Rot2) Inverse() Rot2 { return Rot2{Re: r.Re, Im: symlie.Neg(r.Im)} }

func (r Rot2) Between(b Rot2) Rot2 { return r.Inverse().Compose(b) }

// Angle is the logarithm map, regularised by epsilon. It is singular only at a rotation
// of exactly π.
func (r Rot2) Angle(epsilon symlie.Expr) symlie.Expr {
	norm := symlie.SqrtOf(symlie.AddOf(sq(r.Re), sq(r.Im), sq(epsilon)))
	return two(symlie.AtanOf(symlie.DivOf(r.Im, symlie.AddOf(norm, r.Re))))
}

// Matrix returns the 2×2 rotation matrix.
func (r Rot2) Matrix() *symlie.Matrix {
	return symlie.MatrixFromSlice(2, 2, []symlie.Expr{r.Re, symlie.Neg(r.Im), r.Im, r.Re})
}

func (r Rot2) Rotate(p Vector) Vector {
	checkLen("Rot2 point", p, 2)
	return vectorFromColumn(r.Matrix().MatMul(p.Column()))
}

func (r Rot2) Retract(vec []symlie.Expr, _ symlie.Expr) ops.Manifold {
	checkLen("Rot2 tangent", vec, 1)
	return r.Compose(Rot2FromAngle(vec[0]))
}

func (r Rot2) LocalCoordinates(b ops.Manifold, epsilon symlie.Expr) []symlie.Expr {
	return []symlie.Expr{r.Between(mustBe[Rot2](b)).Angle(epsilon)}
}
