package jacobian_test

import (
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/njchilds90/symlie"
	"github.com/njchilds90/symlie/geo"
	"github.com/njchilds90/symlie/ops"
)

const tol = 1e-9

// randomValues returns storage values for a valid element of e's type: unit quaternions
// and unit complex numbers for rotations, anything for the vector spaces.
func randomValues(rng *rand.Rand, e ops.Storage) []float64 {
	switch v := e.(type) {
	case geo.Rot3:
		return randomQuat(rng)
	case geo.Rot2:
		a := rng.Float64()*2*math.Pi - math.Pi
		return []float64{math.Cos(a), math.Sin(a)}
	case geo.Pose3:
		return append(randomQuat(rng), rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
	default:
		out := make([]float64, v.StorageDim())
		for i := range out {
			out[i] = rng.NormFloat64()
		}
		return out
	}
}

func randomQuat(rng *rand.Rand) []float64 {
	q := []float64{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
	n := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	for i := range q {
		q[i] /= n
	}
	return q
}

func bindRandom(t *testing.T, rng *rand.Rand, env map[string]float64, elems ...ops.Storage) {
	t.Helper()
	for _, e := range elems {
		require.NoError(t, ops.Bind(env, e, randomValues(rng, e)))
	}
}

func evalAll(t *testing.T, jacs []*symlie.Matrix, env map[string]float64) []*mat.Dense {
	t.Helper()
	out := make([]*mat.Dense, len(jacs))
	for i, j := range jacs {
		m, err := symlie.EvalMatrix(j, env)
		require.NoError(t, err)
		out[i] = m
	}
	return out
}

func evalOne(t *testing.T, m *symlie.Matrix, env map[string]float64) *mat.Dense {
	t.Helper()
	return evalAll(t, []*symlie.Matrix{m}, env)[0]
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func requireApprox(t *testing.T, want, got mat.Matrix, msgAndArgs ...any) {
	t.Helper()
	require.True(t, mat.EqualApprox(want, got, tol),
		append([]any{"want\n%v\ngot\n%v", mat.Formatted(want), mat.Formatted(got)}, msgAndArgs...)...)
}

// problem is an expression together with the symbolic elements it is built from.
type problem struct {
	name string
	expr ops.LieGroup
	args []ops.LieGroup
}

func problems() []problem {
	r0, r1 := geo.SymbolicRot3("R0"), geo.SymbolicRot3("R1")
	a, b := geo.SymbolicRot2("a"), geo.SymbolicRot2("b")
	p, q := geo.SymbolicPose3("P"), geo.SymbolicPose3("Q")
	pt := geo.SymbolicVector("pt", 3)
	s, u := geo.SymbolicScalar("s"), geo.SymbolicScalar("u")
	return []problem{
		{"rot3_compose", r0.Compose(r1), []ops.LieGroup{r0, r1}},
		{"rot3_inverse", r0.Inverse(), []ops.LieGroup{r0}},
		{"rot3_rotate_point", r0.Rotate(pt), []ops.LieGroup{r0, pt}},
		{"rot2_compose", a.Compose(b), []ops.LieGroup{a, b}},
		{"pose3_compose", p.Compose(q), []ops.LieGroup{p, q}},
		{"pose3_between", p.Between(q), []ops.LieGroup{p, q}},
		{"pose3_transform_point", p.TransformPoint(pt), []ops.LieGroup{p, pt}},
		{"scalar_product", s.Mul(u), []ops.LieGroup{s, u}},
	}
}

// skipSlow skips the symbolic Pose3 problems under -short; their expressions are large
// enough to dominate the package's run time.
func skipSlow(t *testing.T, name string) {
	t.Helper()
	if testing.Short() && strings.HasPrefix(name, "pose3") {
		t.Skipf("%s: skipped in short mode", name)
	}
}

func bindProblem(t *testing.T, rng *rand.Rand, env map[string]float64, pr problem) {
	t.Helper()
	for _, arg := range pr.args {
		bindRandom(t, rng, env, arg)
	}
}
