package geo

import (
	"github.com/njchilds90/symlie"
	"github.com/njchilds90/symlie/ops"
)

// Rot3 is a spatial rotation stored as the quaternion [X, Y, Z, W] (W is the real part).
// Its tangent space is so(3) with perturbations applied on the right: Retract(R, v) is
// R · exp(v).
type Rot3 struct {
	X, Y, Z, W symlie.Expr
}

func Rot3Identity() Rot3 {
	return Rot3{X: symlie.N(0), Y: symlie.N(0), Z: symlie.N(0), W: symlie.N(1)}
}

// SymbolicRot3 returns name_x, name_y, name_z, name_w.
func SymbolicRot3(name string) Rot3 {
	s := symbols(name, "x", "y", "z", "w")
	return Rot3{X: s[0], Y: s[1], Z: s[2], W: s[3]}
}

func (r Rot3) StorageDim() int { return 4 }
func (r Rot3) ToStorage() []symlie.Expr { return []symlie.Expr{r.X, r.Y, r.Z, r.W} }
func (r Rot3) FromStorage(vec []symlie.Expr) ops.Storage {
	checkLen("Rot3", vec, 4)
	return Rot3{X: vec[0], Y: vec[1], Z: vec[2], W: vec[3]}
}
func (r Rot3) TangentDim() int { return 3 }

// StorageDTangent is the derivative of the storage of R · [v/2, 1] at v = 0.
func (r Rot3) StorageDTangent(symlie.Expr) *symlie.Matrix {
	x, y, z, w := r.X, r.Y, r.Z, r.W
	neg := symlie.Neg
	return symlie.MatrixFromSlice(4, 3, []symlie.Expr{
		half(w), half(neg(z)), half(y),
		half(z), half(w), half(neg(x)),
		half(neg(y)), half(x), half(w),
		half(neg(x)), half(neg(y)), half(neg(z)),
	})
}

// TangentDStorage is the left inverse of StorageDTangent on unit quaternions.
func (r Rot3) TangentDStorage(symlie.Expr) *symlie.Matrix {
	x, y, z, w := r.X, r.Y, r.Z, r.W
	neg := symlie.Neg
	return symlie.MatrixFromSlice(3, 4, []symlie.Expr{
		two(w), two(z), two(neg(y)), two(neg(x)),
		two(neg(z)), two(w), two(x), two(neg(y)),
		two(y), two(neg(x)), two(w), two(neg(z)),
	})
}

// Compose is the quaternion product r·b.
func (r Rot3) Compose(b Rot3) Rot3 {
	m := symlie.MulOf
	return Rot3{
		X: symlie.AddOf(m(r.W, b.X), m(r.X, b.W), m(r.Y, b.Z), symlie.Neg(m(r.Z, b.Y))),
		Y: symlie.AddOf(m(r.W, b.Y), symlie.Neg(m(r.X, b.Z)), m(r.Y, b.W), m(r.Z, b.X)),
		Z: symlie.AddOf(m(r.W, b.Z), m(r.X, b.Y), symlie.Neg(m(r.Y, b.X)), m(r.Z, b.W)),
		W: symlie.AddOf(m(r.W, b.W), symlie.Neg(m(r.X, b.X)), symlie.Neg(m(r.Y, b.Y)), symlie.Neg(m(r.Z, b.Z))),
	}
}

// Inverse is the conjugate, which inverts unit quaternions.
func (r Rot3) Inverse() Rot3 {
	return Rot3{X: symlie.Neg(r.X), Y: symlie.Neg(r.Y), Z: symlie.Neg(r.Z), W: r.W}
}

func (r Rot3) Between(b Rot3) Rot3 { return r.Inverse().Compose(b) }

// Matrix returns the 3×3 rotation matrix.
func (r Rot3) Matrix() *symlie.Matrix {
	x, y, z, w := r.X, r.Y, r.Z, r.W
	one := symlie.N(1)
	m := symlie.MulOf
	return symlie.MatrixFromSlice(3, 3, []symlie.Expr{
		symlie.SubOf(one, two(symlie.AddOf(sq(y), sq(z)))), two(symlie.SubOf(m(x, y), m(w, z))), two(symlie.AddOf(m(x, z), m(w, y))),
		two(symlie.AddOf(m(x, y), m(w, z))), symlie.SubOf(one, two(symlie.AddOf(sq(x), sq(z)))), two(symlie.SubOf(m(y, z), m(w, x))),
		two(symlie.SubOf(m(x, z), m(w, y))), two(symlie.AddOf(m(y, z), m(w, x))), symlie.SubOf(one, two(symlie.AddOf(sq(x), sq(y)))),
	})
}

// Adjoint maps tangent vectors through conjugation by r. For rotations it is the rotation
// matrix itself.
func (r Rot3) Adjoint() *symlie.Matrix { return r.Matrix() }

// Rotate applies the rotation to a 3-vector.
func (r Rot3) Rotate(p Vector) Vector {
	checkLen("Rot3 point", p, 3)
	return vectorFromColumn(r.Matrix().MatMul(p.Column()))
}

// Rot3FromTangent is the exponential map. The angle is regularised as
// sqrt(|v|² + epsilon²) so the result is smooth at v = 0.
func Rot3FromTangent(v []symlie.Expr, epsilon symlie.Expr) Rot3 {
	checkLen("Rot3 tangent", v, 3)
	theta := symlie.SqrtOf(symlie.AddOf(sq(v[0]), sq(v[1]), sq(v[2]), sq(epsilon)))
	halfTheta := half(theta)
	s := symlie.DivOf(symlie.SinOf(halfTheta), theta)
	return Rot3{
		X: symlie.MulOf(s, v[0]),
		Y: symlie.MulOf(s, v[1]),
		Z: symlie.MulOf(s, v[2]),
		W: symlie.CosOf(halfTheta),
	}
}

// ToTangent is the logarithm map. Quaternions with W < 0 are first flipped to the
// equivalent W > 0 hemisphere, so the returned angle lies in [0, π].
func (r Rot3) ToTangent(epsilon symlie.Expr) []symlie.Expr {
	norm := symlie.SqrtOf(symlie.AddOf(sq(r.X), sq(r.Y), sq(r.Z), sq(epsilon)))
	theta := two(halfAngleAtan2(norm, symlie.AbsOf(r.W)))
	scale := symlie.MulOf(theta, symlie.PowOf(norm, symlie.N(-1)), symlie.SignNoZeroOf(r.W))
	return []symlie.Expr{
		symlie.MulOf(scale, r.X),
		symlie.MulOf(scale, r.Y),
		symlie.MulOf(scale, r.Z),
	}
}

func (r Rot3) Retract(vec []symlie.Expr, epsilon symlie.Expr) ops.Manifold {
	return r.Compose(Rot3FromTangent(vec, epsilon))
}

func (r Rot3) LocalCoordinates(b ops.Manifold, epsilon symlie.Expr) []symlie.Expr {
	return r.Between(mustBe[Rot3](b)).ToTangent(epsilon)
}
