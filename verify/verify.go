// Package verify checks symbolic tangent Jacobians against finite differences of the
// true manifold charts.
//
// The reference Jacobian for an argument x of f is the derivative of
// LocalCoordinates(f(x), f(Retract(x, t))) at t = 0, approximated numerically with
// gonum's diff/fd. Unlike the symbolic engine it uses the charts themselves, not their
// linearizations, so it catches inconsistent StorageDTangent/TangentDStorage
// implementations as well as engine bugs.
package verify

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/njchilds90/symlie"
	"github.com/njchilds90/symlie/jacobian"
	"github.com/njchilds90/symlie/ops"
)

// Options configures the numerical reference.
type Options struct {
	// Epsilon regularises the charts. Nil means symlie.N(0); a symbolic epsilon must be
	// bound in the evaluation environment.
	Epsilon symlie.Expr
	// Formula is "central" (default), "forward" or "backward".
	Formula string
	// Step is the finite-difference step. Zero selects the formula's default.
	Step float64
	// Concurrent evaluates the difference quotients in parallel.
	Concurrent bool
}

func (o Options) formula() (fd.Formula, error) {
	switch o.Formula {
	case "", "central":
		return fd.Central, nil
	case "forward":
		return fd.Forward, nil
	case "backward":
		return fd.Backward, nil
	}
	return fd.Formula{}, fmt.Errorf("verify: unknown finite-difference formula %q", o.Formula)
}

func (o Options) epsilon() symlie.Expr {
	if o.Epsilon == nil {
		return symlie.N(0)
	}
	return o.Epsilon
}

// NumericalTangentJacobians approximates the tangent Jacobian of expr with respect to every
// arg at the point given by env. Every storage entry of every arg must be a symbol.
func NumericalTangentJacobians(expr ops.Manifold, args []ops.Manifold, env map[string]float64, opts Options) ([]*mat.Dense, error) {
	formula, err := opts.formula()
	if err != nil {
		return nil, err
	}
	out := make([]*mat.Dense, len(args))
	for i, arg := range args {
		jac, err := numericalJacobian(expr, arg, env, formula, opts)
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		out[i] = jac
	}
	return out, nil
}

func numericalJacobian(expr, arg ops.Manifold, env map[string]float64, formula fd.Formula, opts Options) (*mat.Dense, error) {
	eps := opts.epsilon()
	argNames, err := symlie.SymbolNames(arg.ToStorage())
	if err != nil {
		return nil, err
	}

	// Temporary names must not shadow anything the caller binds or the epsilon refers to.
	seen := append(expr.ToStorage(), arg.ToStorage()...)
	seen = append(seen, eps)
	for name := range env {
		seen = append(seen, symlie.S(name))
	}
	t := symlie.SymbolicVector(symlie.FreshPrefix("__verify_t_", seen...), arg.TangentDim())
	tNames, _ := symlie.SymbolNames(t)
	retracted := arg.Retract(t, eps).ToStorage()

	b := ops.Symbolic[ops.Manifold](expr, symlie.FreshPrefix("__verify_b_", seen...))
	bNames, _ := symlie.SymbolNames(b.ToStorage())
	local := expr.LocalCoordinates(b, eps)
	exprStorage := expr.ToStorage()

	var (
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error, y []float64) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		for i := range y {
			y[i] = math.NaN()
		}
	}

	f := func(y, x []float64) {
		point := withEnv(env, len(tNames)+len(argNames))
		for i, name := range tNames {
			point[name] = x[i]
		}
		moved, err := symlie.EvalVector(retracted, point)
		if err != nil {
			fail(err, y)
			return
		}
		for i, name := range argNames {
			point[name] = moved[i]
		}
		image, err := symlie.EvalVector(exprStorage, point)
		if err != nil {
			fail(err, y)
			return
		}

		point = withEnv(env, len(bNames))
		for i, name := range bNames {
			point[name] = image[i]
		}
		v, err := symlie.EvalVector(local, point)
		if err != nil {
			fail(err, y)
			return
		}
		copy(y, v)
	}

	dst := mat.NewDense(expr.TangentDim(), arg.TangentDim(), nil)
	fd.Jacobian(dst, f, make([]float64, arg.TangentDim()), &fd.JacobianSettings{
		Formula:    formula,
		Step:       opts.Step,
		Concurrent: opts.Concurrent,
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return dst, nil
}

// withEnv copies env into a map private to one callback invocation.
func withEnv(env map[string]float64, extra int) map[string]float64 {
	out := make(map[string]float64, len(env)+extra)
	for k, v := range env {
		out[k] = v
	}
	return out
}

// Evaluate evaluates symbolic Jacobians at env.
func Evaluate(jacs []*symlie.Matrix, env map[string]float64) ([]*mat.Dense, error) {
	out := make([]*mat.Dense, len(jacs))
	for i, j := range jacs {
		m, err := symlie.EvalMatrix(j, env)
		if err != nil {
			return nil, fmt.Errorf("jacobian %d: %w", i, err)
		}
		out[i] = m
	}
	return out, nil
}

// ErrMismatch is returned by Compare when two Jacobians differ by more than the tolerance.
var ErrMismatch = errors.New("verify: jacobians differ")

// MaxAbsDiff returns the largest entry-wise difference, or +Inf when the shapes differ.
func MaxAbsDiff(a, b *mat.Dense) float64 {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return math.Inf(1)
	}
	return floats.Distance(mat.DenseCopyOf(a).RawMatrix().Data, mat.DenseCopyOf(b).RawMatrix().Data, math.Inf(1))
}

// Compare checks that a and b hold the same number of matrices and that they agree within
// tol.
func Compare(a, b []*mat.Dense, tol float64) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: %d vs %d matrices", ErrMismatch, len(a), len(b))
	}
	for i := range a {
		if d := MaxAbsDiff(a[i], b[i]); !(d <= tol) {
			return fmt.Errorf("%w: jacobian %d differs by %g (tolerance %g)", ErrMismatch, i, d, tol)
		}
	}
	return nil
}

// Result holds the three evaluations of one argument's Jacobian.
type Result struct {
	Arg        int
	FirstOrder *mat.Dense
	ChainRule  *mat.Dense
	Numerical  *mat.Dense
	// MaxDiff is the largest difference between any two of the three.
	MaxDiff float64
}

// Check evaluates both symbolic strategies and the numerical reference at env.
func Check(expr ops.Manifold, args []ops.Manifold, env map[string]float64, opts Options) ([]Result, error) {
	groups := make([]ops.LieGroup, len(args))
	for i, a := range args {
		groups[i] = a
	}
	eps := opts.epsilon()

	first, err := Evaluate(jacobian.TangentJacobiansFirstOrder(expr, groups, eps), env)
	if err != nil {
		return nil, fmt.Errorf("first order: %w", err)
	}
	chain, err := Evaluate(jacobian.TangentJacobiansChainRule(expr, groups, eps), env)
	if err != nil {
		return nil, fmt.Errorf("chain rule: %w", err)
	}
	numerical, err := NumericalTangentJacobians(expr, args, env, opts)
	if err != nil {
		return nil, fmt.Errorf("numerical: %w", err)
	}

	results := make([]Result, len(args))
	for i := range args {
		results[i] = Result{
			Arg:        i,
			FirstOrder: first[i],
			ChainRule:  chain[i],
			Numerical:  numerical[i],
			MaxDiff: max(
				MaxAbsDiff(first[i], chain[i]),
				MaxAbsDiff(first[i], numerical[i]),
				MaxAbsDiff(chain[i], numerical[i]),
			),
		}
	}
	return results, nil
}
