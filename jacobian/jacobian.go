// Package jacobian computes tangent-space Jacobians of expressions built from Lie-group
// elements.
//
// For an expression f and an argument x, the tangent Jacobian is the derivative of
// LocalCoordinates(f(x), f(Retract(x, t))) with respect to t at t = 0. Neither chart is
// ever differentiated directly. Both strategies below replace them by their first-order
// linearizations, StorageDTangent and TangentDStorage, which leaves the derivative at
// t = 0 unchanged:
//
//   - FirstOrder perturbs the argument's storage by StorageDTangent·xi, substitutes it into
//     the expression, projects the change back through TangentDStorage and differentiates
//     with respect to xi at xi = 0.
//   - ChainRule multiplies TangentDStorage(f) · ∂storage(f)/∂storage(x) · StorageDTangent(x).
//
// Both evaluate to the same numbers; FirstOrder usually yields smaller expressions.
//
// An argument that does not occur in the expression is not rejected: its Jacobian is a
// zero block of the right shape.
package jacobian

import (
	"fmt"

	"github.com/njchilds90/symlie"
	"github.com/njchilds90/symlie/ops"
)

// Reserved prefixes for engine temporaries. A prefix is extended with a numeric suffix
// whenever a caller symbol already starts with it, so the names never reach the output.
const (
	TangentPrefix     = "__symlie_xi_"
	PlaceholderPrefix = "__symlie_tmp_"
)

// Strategy selects how per-argument Jacobians are computed.
type Strategy string

const (
	FirstOrder Strategy = "first_order"
	ChainRule  Strategy = "chain_rule"
)

// ParseStrategy accepts the names used in configuration files and flags.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case FirstOrder, ChainRule:
		return Strategy(s), nil
	case "":
		return FirstOrder, nil
	}
	return "", fmt.Errorf("unknown jacobian strategy %q (want %q or %q)", s, FirstOrder, ChainRule)
}

// TangentJacobians returns one TangentDim(expr) × TangentDim(arg) matrix per arg, in
// argument order, using the first-order strategy.
func TangentJacobians(expr ops.LieGroup, args []ops.LieGroup, epsilon symlie.Expr) []*symlie.Matrix {
	return TangentJacobiansFirstOrder(expr, args, epsilon)
}

// TangentJacobiansFirstOrder computes every Jacobian by substituting a linearly perturbed
// argument into expr.
func TangentJacobiansFirstOrder(expr ops.LieGroup, args []ops.LieGroup, epsilon symlie.Expr) []*symlie.Matrix {
	out := make([]*symlie.Matrix, len(args))
	for i, arg := range args {
		out[i] = firstOrder(expr, arg, epsilon)
	}
	return out
}

// TangentJacobiansChainRule computes every Jacobian as a product of the two linearizations
// and the flat storage Jacobian.
func TangentJacobiansChainRule(expr ops.LieGroup, args []ops.LieGroup, epsilon symlie.Expr) []*symlie.Matrix {
	out := make([]*symlie.Matrix, len(args))
	for i, arg := range args {
		out[i] = chainRule(expr, arg, epsilon)
	}
	return out
}

func compute(strategy Strategy, expr, arg ops.LieGroup, epsilon symlie.Expr) *symlie.Matrix {
	if strategy == ChainRule {
		return chainRule(expr, arg, epsilon)
	}
	return firstOrder(expr, arg, epsilon)
}

func firstOrder(expr, arg ops.LieGroup, epsilon symlie.Expr) *symlie.Matrix {
	avoid := visibleSymbols(expr, arg, epsilon)
	xi := symlie.SymbolicVector(symlie.FreshPrefix(TangentPrefix, avoid...), arg.TangentDim())

	delta := arg.StorageDTangent(epsilon).MatMul(symlie.ColumnVector(xi))
	perturbed := ops.StorageColumn(arg).MatAdd(delta)
	argPerturbed := ops.FromStorage[ops.Storage](arg, perturbed.ToFlatList())

	exprPerturbed := safeSubs(expr, arg, argPerturbed)

	change := ops.StorageColumn(exprPerturbed).MatSub(ops.StorageColumn(expr))
	residual := expr.TangentDStorage(epsilon).MatMul(change)

	names, err := symlie.SymbolNames(xi)
	if err != nil {
		panic(err)
	}
	jac := symlie.Jacobian(residual.ToFlatList(), names)
	for _, name := range names {
		jac = jac.ApplySub(name, symlie.N(0))
	}
	return jac
}

func chainRule(expr, arg ops.LieGroup, epsilon symlie.Expr) *symlie.Matrix {
	flat := symlie.JacobianWrt(expr.ToStorage(), arg.ToStorage())
	return expr.TangentDStorage(epsilon).MatMul(flat).MatMul(arg.StorageDTangent(epsilon))
}

// safeSubs replaces old by new inside e through a placeholder element of old's shape whose
// symbols occur nowhere else, so entries of new that mention symbols of old are never
// rewritten a second time.
func safeSubs[T ops.Storage](e T, old, new ops.Storage) T {
	var seen []symlie.Expr
	for _, s := range []ops.Storage{e, old, new} {
		seen = append(seen, s.ToStorage()...)
	}
	prefix := symlie.FreshPrefix(PlaceholderPrefix, seen...)
	placeholder := ops.Symbolic(old, prefix)
	return ops.Subs(ops.Subs(e, old, placeholder), placeholder, new)
}

func visibleSymbols(expr, arg ops.Storage, epsilon symlie.Expr) []symlie.Expr {
	avoid := append(expr.ToStorage(), arg.ToStorage()...)
	if epsilon != nil {
		avoid = append(avoid, epsilon)
	}
	return avoid
}
