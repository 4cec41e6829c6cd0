package geo

import (
	"github.com/njchilds90/symlie"
	"github.com/njchilds90/symlie/ops"
)

// Pose3 is a rigid transform stored as [qx, qy, qz, qw, tx, ty, tz]. Its tangent vector
// is [ω, v]: Retract(P, [ω, v]) = (R · exp(ω), t + v).
type Pose3 struct {
	R Rot3
	T Vector
}

func Pose3Identity() Pose3 {
	return Pose3{R: Rot3Identity(), T: Vector3(symlie.N(0), symlie.N(0), symlie.N(0))}
}

// SymbolicPose3 returns name_qx … name_qw and name_tx … name_tz.
func SymbolicPose3(name string) Pose3 {
	s := symbols(name, "qx", "qy", "qz", "qw", "tx", "ty", "tz")
	return Pose3{R: Rot3{X: s[0], Y: s[1], Z: s[2], W: s[3]}, T: Vector(s[4:])}
}

func (p Pose3) StorageDim() int { return 7 }
func (p Pose3) ToStorage() []symlie.Expr {
	return append(p.R.ToStorage(), p.T...)
}
func (p Pose3) FromStorage(vec []symlie.Expr) ops.Storage {
	checkLen("Pose3", vec, 7)
	t := make(Vector, 3)
	copy(t, vec[4:])
	return Pose3{R: Rot3{X: vec[0], Y: vec[1], Z: vec[2], W: vec[3]}, T: t}
}
func (p Pose3) TangentDim() int { return 6 }

func (p Pose3) StorageDTangent(epsilon symlie.Expr) *symlie.Matrix {
	return symlie.BlockDiag(p.R.StorageDTangent(epsilon), symlie.Identity(3))
}

func (p Pose3) TangentDStorage(epsilon symlie.Expr) *symlie.Matrix {
	return symlie.BlockDiag(p.R.TangentDStorage(epsilon), symlie.Identity(3))
}

// Compose returns p·b = (R₁R₂, t₁ + R₁t₂).
func (p Pose3) Compose(b Pose3) Pose3 {
	return Pose3{R: p.R.Compose(b.R), T: p.T.Add(p.R.Rotate(b.T))}
}

func (p Pose3) Inverse() Pose3 {
	inv := p.R.Inverse()
	return Pose3{R: inv, T: inv.Rotate(p.T).Neg()}
}

func (p Pose3) Between(b Pose3) Pose3 { return p.Inverse().Compose(b) }

// TransformPoint maps a point from the pose's frame into the parent frame.
func (p Pose3) TransformPoint(pt Vector) Vector { return p.R.Rotate(pt).Add(p.T) }

func (p Pose3) Retract(vec []symlie.Expr, epsilon symlie.Expr) ops.Manifold {
	checkLen("Pose3 tangent", vec, 6)
	return Pose3{
		R: p.R.Compose(Rot3FromTangent(vec[:3], epsilon)),
		T: p.T.Add(Vector(vec[3:])),
	}
}

func (p Pose3) LocalCoordinates(b ops.Manifold, epsilon symlie.Expr) []symlie.Expr {
	other := mustBe[Pose3](b)
	return append(p.R.LocalCoordinates(other.R, epsilon), other.T.Sub(p.T)...)
}
