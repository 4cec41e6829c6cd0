package verify_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/njchilds90/symlie"
	"github.com/njchilds90/symlie/geo"
	"github.com/njchilds90/symlie/internal/scenario"
	"github.com/njchilds90/symlie/jacobian"
	"github.com/njchilds90/symlie/ops"
	"github.com/njchilds90/symlie/verify"
)

func TestCheckScenarios(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	opts := verify.Options{Epsilon: symlie.NFloat(1e-9), Concurrent: true}
	for _, s := range scenario.All() {
		t.Run(s.Name, func(t *testing.T) {
			for trial := 0; trial < 2; trial++ {
				env, err := s.RandomPoint(rng)
				require.NoError(t, err)

				results, err := verify.Check(s.Expr, s.Args, env, opts)
				require.NoError(t, err)
				require.Len(t, results, len(s.Args))
				for i, r := range results {
					assert.Equal(t, i, r.Arg)
					rows, cols := r.Numerical.Dims()
					assert.Equal(t, s.Expr.TangentDim(), rows)
					assert.Equal(t, s.Args[i].TangentDim(), cols)
					assert.Less(t, r.MaxDiff, 1e-6, "arg %d\nnumerical\n%v\nfirst order\n%v",
						i, mat.Formatted(r.Numerical), mat.Formatted(r.FirstOrder))
				}
			}
		})
	}
}

func TestSymbolicEpsilonMustBeBound(t *testing.T) {
	s, err := scenario.Lookup("rot3_compose")
	require.NoError(t, err)
	env, err := s.RandomPoint(rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)

	opts := verify.Options{Epsilon: symlie.S("epsilon")}
	_, err = verify.NumericalTangentJacobians(s.Expr, s.Args, env, opts)
	var unbound *symlie.UnboundSymbolError
	require.ErrorAs(t, err, &unbound)
	assert.Equal(t, "epsilon", unbound.Name)

	env["epsilon"] = 1e-9
	got, err := verify.NumericalTangentJacobians(s.Expr, s.Args, env, opts)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFormulas(t *testing.T) {
	r := geo.SymbolicRot3("R")
	v := geo.SymbolicVector("v", 3)
	expr := r.Rotate(v)
	args := []ops.Manifold{r, v}

	env := map[string]float64{}
	require.NoError(t, ops.Bind(env, r, scenario.RandomValues(rand.New(rand.NewPCG(3, 4)), r)))
	require.NoError(t, ops.Bind(env, v, []float64{1, -2, 0.5}))

	eps := symlie.NFloat(1e-9)
	want, err := verify.Evaluate(jacobian.TangentJacobians(expr, []ops.LieGroup{r, v}, eps), env)
	require.NoError(t, err)

	tests := []struct {
		formula string
		tol     float64
	}{
		{"central", 1e-7},
		{"", 1e-7},
		{"forward", 1e-5},
		{"backward", 1e-5},
	}
	for _, tt := range tests {
		t.Run("formula_"+tt.formula, func(t *testing.T) {
			got, err := verify.NumericalTangentJacobians(expr, args, env, verify.Options{Epsilon: eps, Formula: tt.formula})
			require.NoError(t, err)
			assert.NoError(t, verify.Compare(want, got, tt.tol))
		})
	}

	_, err = verify.NumericalTangentJacobians(expr, args, env, verify.Options{Formula: "spline"})
	assert.ErrorContains(t, err, `unknown finite-difference formula "spline"`)
}

// Caller symbols that look like the verifier's own temporaries must not be captured.
func TestTemporaryNamesAvoidCallerSymbols(t *testing.T) {
	a := geo.Vector{symlie.S("__verify_t_0"), symlie.S("__verify_b_0")}
	expr := geo.Vector{symlie.MulOf(symlie.N(3), a[0]), symlie.AddOf(a[0], a[1])}
	env := map[string]float64{"__verify_t_0": 0.3, "__verify_b_0": -1.2}

	got, err := verify.NumericalTangentJacobians(expr, []ops.Manifold{a}, env, verify.Options{})
	require.NoError(t, err)
	want := mat.NewDense(2, 2, []float64{3, 0, 1, 1})
	assert.True(t, mat.EqualApprox(want, got[0], 1e-8), "%v", mat.Formatted(got[0]))
}

func TestTemporaryNamesAvoidBoundSymbols(t *testing.T) {
	// The rotation never mentions these names. Only env and the epsilon do, and the
	// Rot2 chart reads epsilon, so a clobbered epsilon shows up in the result.
	r := geo.SymbolicRot2("r")
	env := map[string]float64{
		"r_re":         math.Cos(0.4),
		"r_im":         math.Sin(0.4),
		"__verify_t_0": 7,
		"__verify_b_0": 0,
	}

	got, err := verify.NumericalTangentJacobians(r, []ops.Manifold{r}, env, verify.Options{Epsilon: symlie.S("__verify_b_0")})
	require.NoError(t, err)
	want := mat.NewDense(1, 1, []float64{1})
	assert.True(t, mat.EqualApprox(want, got[0], 1e-8), "%v", mat.Formatted(got[0]))
}

func TestCompare(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	b := mat.NewDense(2, 2, []float64{1, 2, 3, 4.5})

	assert.NoError(t, verify.Compare([]*mat.Dense{a}, []*mat.Dense{a}, 0))
	assert.NoError(t, verify.Compare([]*mat.Dense{a}, []*mat.Dense{b}, 0.5))

	err := verify.Compare([]*mat.Dense{a}, []*mat.Dense{b}, 0.1)
	assert.ErrorIs(t, err, verify.ErrMismatch)
	assert.ErrorContains(t, err, "jacobian 0 differs by 0.5")

	err = verify.Compare([]*mat.Dense{a}, nil, 1)
	assert.ErrorIs(t, err, verify.ErrMismatch)

	assert.Equal(t, 0.5, verify.MaxAbsDiff(a, b))
	assert.True(t, verify.MaxAbsDiff(a, mat.NewDense(1, 2, nil)) > 1e300)
}

func TestEvaluate(t *testing.T) {
	x := symlie.S("x")
	m := symlie.MatrixFromSlice(1, 2, []symlie.Expr{x, symlie.MulOf(symlie.N(2), x)})

	got, err := verify.Evaluate([]*symlie.Matrix{m}, map[string]float64{"x": 1.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 3}, got[0].RawRowView(0))

	_, err = verify.Evaluate([]*symlie.Matrix{m}, nil)
	assert.ErrorContains(t, err, "jacobian 0")
}
