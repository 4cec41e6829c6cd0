package jacobian_test

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/njchilds90/symlie"
	"github.com/njchilds90/symlie/geo"
	"github.com/njchilds90/symlie/internal/testutil"
	"github.com/njchilds90/symlie/jacobian"
	"github.com/njchilds90/symlie/ops"
)

var eps = symlie.S("epsilon")

func TestShape(t *testing.T) {
	for _, pr := range problems() {
		t.Run(pr.name, func(t *testing.T) {
			skipSlow(t, pr.name)
			for _, jacs := range [][]*symlie.Matrix{
				jacobian.TangentJacobiansFirstOrder(pr.expr, pr.args, eps),
				jacobian.TangentJacobiansChainRule(pr.expr, pr.args, eps),
			} {
				require.Len(t, jacs, len(pr.args))
				for i, arg := range pr.args {
					assert.Equal(t, pr.expr.TangentDim(), jacs[i].Rows(), "arg %d rows", i)
					assert.Equal(t, arg.TangentDim(), jacs[i].Cols(), "arg %d cols", i)
				}
			}
		})
	}
}

func TestNoInternalSymbolsInOutput(t *testing.T) {
	for _, pr := range problems() {
		t.Run(pr.name, func(t *testing.T) {
			skipSlow(t, pr.name)
			jacs := jacobian.TangentJacobians(pr.expr, pr.args, eps)
			for _, j := range jacs {
				for _, name := range symlie.SortedFreeSymbols(j.ToFlatList()...) {
					assert.NotContains(t, name, "__symlie")
				}
			}
		})
	}
}

func TestStrategiesAgree(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, pr := range problems() {
		t.Run(pr.name, func(t *testing.T) {
			skipSlow(t, pr.name)
			first := jacobian.TangentJacobiansFirstOrder(pr.expr, pr.args, eps)
			chain := jacobian.TangentJacobiansChainRule(pr.expr, pr.args, eps)
			for _, epsValue := range []float64{1e-3, 1e-9, 0.5} {
				for trial := 0; trial < 3; trial++ {
					env := map[string]float64{"epsilon": epsValue}
					bindProblem(t, rng, env, pr)
					a, b := evalAll(t, first, env), evalAll(t, chain, env)
					for i := range a {
						requireApprox(t, a[i], b[i], "arg %d, epsilon %g", i, epsValue)
					}
				}
			}
		})
	}
}

func TestIdentity(t *testing.T) {
	t.Run("vector spaces are exact", func(t *testing.T) {
		for _, arg := range []ops.LieGroup{geo.SymbolicScalar("s"), geo.SymbolicVector("v", 3)} {
			for _, jacs := range [][]*symlie.Matrix{
				jacobian.TangentJacobiansFirstOrder(arg, []ops.LieGroup{arg}, eps),
				jacobian.TangentJacobiansChainRule(arg, []ops.LieGroup{arg}, eps),
			} {
				assert.True(t, jacs[0].Equal(symlie.Identity(arg.TangentDim())), "%s", jacs[0])
			}
		}
	})

	t.Run("rotations at unit storage", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(3, 4))
		for _, arg := range []ops.LieGroup{geo.SymbolicRot2("a"), geo.SymbolicRot3("R"), geo.SymbolicPose3("P")} {
			jacs := jacobian.TangentJacobians(arg, []ops.LieGroup{arg}, eps)
			env := map[string]float64{"epsilon": 1e-6}
			bindRandom(t, rng, env, arg)
			requireApprox(t, eye(arg.TangentDim()), evalOne(t, jacs[0], env))
		}
	})
}

// R2 = R0 · R1: the Jacobian w.r.t. R1 is the identity and the one w.r.t. R0 is the
// adjoint of R1⁻¹, i.e. the transposed adjoint of R1.
func TestRot3ComposeScenario(t *testing.T) {
	r0, r1 := geo.SymbolicRot3("R0"), geo.SymbolicRot3("R1")
	jacs := jacobian.TangentJacobians(r0.Compose(r1), []ops.LieGroup{r0, r1}, eps)
	require.Len(t, jacs, 2)

	t.Run("at identity", func(t *testing.T) {
		env := map[string]float64{"epsilon": 1e-9}
		require.NoError(t, ops.Bind(env, r0, []float64{0, 0, 0, 1}))
		require.NoError(t, ops.Bind(env, r1, []float64{0, 0, 0, 1}))
		got := evalAll(t, jacs, env)
		requireApprox(t, eye(3), got[0])
		requireApprox(t, eye(3), got[1])
	})

	t.Run("general rotation", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(5, 6))
		env := map[string]float64{"epsilon": 1e-9}
		bindRandom(t, rng, env, r0, r1)
		got := evalAll(t, jacs, env)

		requireApprox(t, evalOne(t, r1.Adjoint().Transpose(), env), got[0])
		requireApprox(t, evalOne(t, r1.Inverse().Adjoint(), env), got[0])
		requireApprox(t, eye(3), got[1])
	})
}

// The Jacobian of g(h(x)) equals Jg evaluated at h(x) times Jh.
func TestChainRuleThroughEngine(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))

	t.Run("rot3", func(t *testing.T) {
		x, c, s := geo.SymbolicRot3("X"), geo.SymbolicRot3("C"), geo.SymbolicRot3("S")
		h := x.Compose(c)
		checkComposition(t, rng, h.Inverse(), h, s.Inverse(), s, x, c)
	})

	t.Run("pose3", func(t *testing.T) {
		skipSlow(t, "pose3_between_inverse")
		x, c, s := geo.SymbolicPose3("X"), geo.SymbolicPose3("C"), geo.SymbolicPose3("S")
		h := c.Between(x)
		checkComposition(t, rng, h.Inverse(), h, s.Inverse(), s, x, c)
	})
}

func checkComposition(t *testing.T, rng *rand.Rand, total, h, g ops.LieGroup, s, x, c ops.LieGroup) {
	t.Helper()
	jTotal := jacobian.TangentJacobians(total, []ops.LieGroup{x}, eps)[0]
	jh := jacobian.TangentJacobians(h, []ops.LieGroup{x}, eps)[0]
	jg := jacobian.TangentJacobians(g, []ops.LieGroup{s}, eps)[0]
	jgAtH := ops.SubsMatrix(jg, s, h)

	env := map[string]float64{"epsilon": 1e-9}
	bindRandom(t, rng, env, x, c)

	var want mat.Dense
	want.Mul(evalOne(t, jgAtH, env), evalOne(t, jh, env))
	requireApprox(t, &want, evalOne(t, jTotal, env))
}

func TestCollisionRobustness(t *testing.T) {
	// Caller symbols deliberately reuse the engine's reserved names.
	clash := geo.Rot3{
		X: symlie.S(jacobian.TangentPrefix + "0"),
		Y: symlie.S(jacobian.TangentPrefix + "1"),
		Z: symlie.S(jacobian.PlaceholderPrefix + "0"),
		W: symlie.S(jacobian.PlaceholderPrefix + "3"),
	}
	other := geo.Rot3{
		X: symlie.S(jacobian.PlaceholderPrefix + "1"),
		Y: symlie.S(jacobian.PlaceholderPrefix + "2"),
		Z: symlie.S(jacobian.TangentPrefix + "2"),
		W: symlie.S(jacobian.TangentPrefix + "1_0"),
	}
	plain, plainOther := geo.SymbolicRot3("A"), geo.SymbolicRot3("B")

	rng := rand.New(rand.NewPCG(9, 10))
	qa, qb := randomQuat(rng), randomQuat(rng)
	env := map[string]float64{"epsilon": 1e-9}
	require.NoError(t, ops.Bind(env, clash, qa))
	require.NoError(t, ops.Bind(env, other, qb))
	require.NoError(t, ops.Bind(env, plain, qa))
	require.NoError(t, ops.Bind(env, plainOther, qb))

	for name, fn := range map[string]func(ops.LieGroup, []ops.LieGroup, symlie.Expr) []*symlie.Matrix{
		"first_order": jacobian.TangentJacobiansFirstOrder,
		"chain_rule":  jacobian.TangentJacobiansChainRule,
	} {
		t.Run(name, func(t *testing.T) {
			got := evalAll(t, fn(clash.Compose(other), []ops.LieGroup{clash, other}, eps), env)
			want := evalAll(t, fn(plain.Compose(plainOther), []ops.LieGroup{plain, plainOther}, eps), env)
			for i := range want {
				requireApprox(t, want[i], got[i], "arg %d", i)
			}
		})
	}
}

func TestArgNotInExpressionGivesZeroBlock(t *testing.T) {
	expr := geo.SymbolicRot3("A")
	unrelated := geo.SymbolicPose3("P")
	for _, jacs := range [][]*symlie.Matrix{
		jacobian.TangentJacobiansFirstOrder(expr, []ops.LieGroup{unrelated}, eps),
		jacobian.TangentJacobiansChainRule(expr, []ops.LieGroup{unrelated}, eps),
	} {
		require.Len(t, jacs, 1)
		assert.True(t, jacs[0].Equal(symlie.Zeros(3, 6)), "%s", jacs[0])
	}
}

func TestEmptyArgs(t *testing.T) {
	assert.Empty(t, jacobian.TangentJacobians(geo.SymbolicRot3("A"), nil, eps))
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    jacobian.Strategy
		wantErr bool
	}{
		{"first_order", jacobian.FirstOrder, false},
		{"chain_rule", jacobian.ChainRule, false},
		{"", jacobian.FirstOrder, false},
		{"numeric", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := jacobian.ParseStrategy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// broken panics when asked for its linearization.
type broken struct{ geo.Scalar }

func (broken) StorageDTangent(symlie.Expr) *symlie.Matrix { panic("no linearization") }

func TestEngine(t *testing.T) {
	r0, r1 := geo.SymbolicRot3("R0"), geo.SymbolicRot3("R1")
	expr := r0.Compose(r1)
	args := []ops.LieGroup{r0, r1}

	t.Run("matches free functions", func(t *testing.T) {
		for _, strategy := range []jacobian.Strategy{jacobian.FirstOrder, jacobian.ChainRule} {
			eng := jacobian.New(jacobian.Options{
				Strategy: strategy,
				Epsilon:  eps,
				Workers:  4,
				Logger:   testutil.NewTestLogger(t),
			})
			got, err := eng.Compute(context.Background(), expr, args)
			require.NoError(t, err)

			want := jacobian.TangentJacobiansChainRule(expr, args, eps)
			if strategy == jacobian.FirstOrder {
				want = jacobian.TangentJacobiansFirstOrder(expr, args, eps)
			}
			require.Len(t, got, len(want))
			for i := range want {
				assert.True(t, want[i].Equal(got[i]), "arg %d", i)
			}
		}
	})

	t.Run("defaults", func(t *testing.T) {
		eng := jacobian.New(jacobian.Options{})
		assert.Equal(t, jacobian.FirstOrder, eng.Strategy())
		assert.Equal(t, "0", eng.Epsilon().String())
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := jacobian.New(jacobian.Options{}).Compute(ctx, expr, args)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("element panic becomes error", func(t *testing.T) {
		b := broken{geo.SymbolicScalar("s")}
		_, err := jacobian.New(jacobian.Options{Logger: testutil.NewTestLogger(t)}).
			Compute(context.Background(), b, []ops.LieGroup{b})
		assert.ErrorContains(t, err, "no linearization")
	})
}
