package symlie

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrNonFinite is returned when numeric evaluation produces NaN or ±Inf.
var ErrNonFinite = errors.New("symlie: evaluation is not finite")

// UnboundSymbolError reports a symbol that has no value in the evaluation environment.
type UnboundSymbolError struct {
	Name string
}

func (e *UnboundSymbolError) Error() string {
	return fmt.Sprintf("symlie: symbol %q has no value", e.Name)
}

// EvalFloat evaluates e in float64 arithmetic with symbol values taken from env.
func EvalFloat(e Expr, env map[string]float64) (float64, error) {
	v, err := evalFloat(e, env)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s", ErrNonFinite, e.String())
	}
	return v, nil
}

func evalFloat(e Expr, env map[string]float64) (float64, error) {
	switch v := e.(type) {
	case *Num:
		return v.Float64(), nil
	case *Sym:
		val, ok := env[v.name]
		if !ok {
			return 0, &UnboundSymbolError{Name: v.name}
		}
		return val, nil
	case *Add:
		sum := 0.0
		for _, t := range v.terms {
			tv, err := evalFloat(t, env)
			if err != nil {
				return 0, err
			}
			sum += tv
		}
		return sum, nil
	case *Mul:
		prod := 1.0
		for _, f := range v.factors {
			fv, err := evalFloat(f, env)
			if err != nil {
				return 0, err
			}
			prod *= fv
		}
		return prod, nil
	case *Pow:
		b, err := evalFloat(v.base, env)
		if err != nil {
			return 0, err
		}
		x, err := evalFloat(v.exp, env)
		if err != nil {
			return 0, err
		}
		return math.Pow(b, x), nil
	case *Func:
		fn, ok := floatFuncs[v.name]
		if !ok {
			return 0, fmt.Errorf("symlie: no numeric rule for function %q", v.name)
		}
		a, err := evalFloat(v.arg, env)
		if err != nil {
			return 0, err
		}
		return fn(a), nil
	}
	return 0, fmt.Errorf("symlie: cannot evaluate %s node", e.exprType())
}

// EvalVector evaluates every entry of exprs.
func EvalVector(exprs []Expr, env map[string]float64) ([]float64, error) {
	out := make([]float64, len(exprs))
	for i, e := range exprs {
		v, err := EvalFloat(e, env)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// EvalMatrix evaluates m into a dense float64 matrix. Empty matrices evaluate to nil,
// since gonum has no zero-sized Dense.
func EvalMatrix(m *Matrix, env map[string]float64) (*mat.Dense, error) {
	if m.rows == 0 || m.cols == 0 {
		return nil, nil
	}
	out := mat.NewDense(m.rows, m.cols, nil)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			v, err := EvalFloat(m.data[i][j], env)
			if err != nil {
				return nil, fmt.Errorf("entry [%d,%d]: %w", i, j, err)
			}
			out.Set(i, j, v)
		}
	}
	return out, nil
}
