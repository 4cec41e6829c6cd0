// Package geo is a small catalog of symbolic manifold elements: scalars, vectors, planar
// and spatial rotations, and rigid poses.
//
// Every type stores plain symlie expressions, so the same value can hold free symbols,
// exact numbers or any mix of the two. All types implement ops.Manifold; rotation
// charts are regularised with an epsilon so they stay differentiable at the identity.
package geo

import (
	"fmt"

	"github.com/njchilds90/symlie"
	"github.com/njchilds90/symlie/ops"
)

var (
	_ ops.Manifold = Scalar{}
	_ ops.Manifold = Vector{}
	_ ops.Manifold = Rot2{}
	_ ops.Manifold = Rot3{}
	_ ops.Manifold = Pose3{}
)

func checkLen(kind string, vec []symlie.Expr, n int) {
	if len(vec) != n {
		panic(fmt.Sprintf("geo: %s needs %d entries, got %d", kind, n, len(vec)))
	}
}

func mustBe[T ops.Manifold](b ops.Manifold) T {
	v, ok := b.(T)
	if !ok {
		var want T
		panic(fmt.Sprintf("geo: expected %T, got %T", want, b))
	}
	return v
}

func symbols(name string, suffixes ...string) []symlie.Expr {
	out := make([]symlie.Expr, len(suffixes))
	for i, s := range suffixes {
		out[i] = symlie.S(name + "_" + s)
	}
	return out
}

// halfAngleAtan2 returns atan2(a, b) for a ≥ 0 as 2·atan(a / (sqrt(a² + b²) + b)), which
// only uses functions the kernel can differentiate.
func halfAngleAtan2(a, b symlie.Expr) symlie.Expr {
	r := symlie.SqrtOf(symlie.AddOf(symlie.PowOf(a, symlie.N(2)), symlie.PowOf(b, symlie.N(2))))
	return symlie.MulOf(symlie.N(2), symlie.AtanOf(symlie.DivOf(a, symlie.AddOf(r, b))))
}

func sq(e symlie.Expr) symlie.Expr { return symlie.PowOf(e, symlie.N(2)) }

func two(e ...symlie.Expr) symlie.Expr { return symlie.MulOf(append([]symlie.Expr{symlie.N(2)}, e...)...) }

func half(e ...symlie.Expr) symlie.Expr {
	return symlie.MulOf(append([]symlie.Expr{symlie.F(1, 2)}, e...)...)
}
