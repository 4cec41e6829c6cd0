package symlie

import (
	"fmt"
	"sort"
)

// ============================================================
// Substitution
// ============================================================

func Sub(expr Expr, varName string, value Expr) Expr { return expr.Sub(varName, value) }

// Subs replaces every occurrence of old inside e with new. When old is a symbol this is the
// node-level Sub; any other old is matched structurally, subtree by subtree.
func Subs(e, old, new Expr) Expr {
	if s, ok := old.(*Sym); ok {
		return e.Sub(s.name, new)
	}
	return replace(e, old, new)
}

func replace(e, old, new Expr) Expr {
	if e.Equal(old) {
		return new
	}
	ops := e.operands()
	if len(ops) == 0 {
		return e
	}
	children := make([]Expr, len(ops))
	changed := false
	for i, c := range ops {
		children[i] = replace(c, old, new)
		if children[i] != c {
			changed = true
		}
	}
	if !changed {
		return e
	}
	return e.rebuild(children)
}

// SubsAll applies Subs(olds[i], news[i]) one pair at a time, in order. A replacement may
// therefore be rewritten again by a later pair; callers that need capture-free
// substitution go through fresh intermediate symbols.
func SubsAll(e Expr, olds, news []Expr) Expr {
	if len(olds) != len(news) {
		panic(fmt.Sprintf("symlie: SubsAll got %d old and %d new expressions", len(olds), len(news)))
	}
	for i := range olds {
		e = Subs(e, olds[i], news[i])
	}
	return e
}

// SubsVector applies SubsAll to every entry of es.
func SubsVector(es, olds, news []Expr) []Expr {
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = SubsAll(e, olds, news)
	}
	return out
}

// ============================================================
// Differentiation
// ============================================================

func Diff(expr Expr, varName string) Expr { return expr.Diff(varName) }

// DiffWrt differentiates e with respect to an arbitrary expression. Non-symbol targets are
// swapped for a fresh symbol, differentiated, and swapped back.
func DiffWrt(e, wrt Expr) Expr {
	if s, ok := wrt.(*Sym); ok {
		return e.Diff(s.name)
	}
	tmp := S(FreshPrefix("__symlie_wrt", e, wrt))
	d := replace(e, wrt, tmp).Diff(tmp.name)
	return d.Sub(tmp.name, wrt)
}

// Jacobian returns the m×n matrix of partial derivatives of exprs with respect to the
// named symbols.
func Jacobian(exprs []Expr, varNames []string) *Matrix {
	mat := NewMatrix(len(exprs), len(varNames))
	for i, e := range exprs {
		for j, v := range varNames {
			mat.Set(i, j, e.Diff(v))
		}
	}
	return mat
}

// JacobianWrt is Jacobian over arbitrary expressions instead of symbol names.
func JacobianWrt(exprs, wrt []Expr) *Matrix {
	mat := NewMatrix(len(exprs), len(wrt))
	for i, e := range exprs {
		for j, w := range wrt {
			mat.Set(i, j, DiffWrt(e, w))
		}
	}
	return mat
}

// Gradient returns the partial derivatives of expr, one per name.
func Gradient(expr Expr, varNames []string) []Expr {
	result := make([]Expr, len(varNames))
	for i, v := range varNames {
		result[i] = expr.Diff(v)
	}
	return result
}

// ============================================================
// Free Symbols and op counts
// ============================================================

func FreeSymbols(e Expr) map[string]struct{} {
	result := map[string]struct{}{}
	collectSymbols(e, result)
	return result
}

// SortedFreeSymbols returns the free symbol names of all exprs in lexical order.
func SortedFreeSymbols(exprs ...Expr) []string {
	set := map[string]struct{}{}
	for _, e := range exprs {
		collectSymbols(e, set)
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectSymbols(e Expr, out map[string]struct{}) {
	if s, ok := e.(*Sym); ok {
		out[s.name] = struct{}{}
		return
	}
	for _, c := range e.operands() {
		collectSymbols(c, out)
	}
}

// CountOps counts arithmetic operations and function calls in e, the way generated code
// would spend them: n-1 for an n-ary sum or product, one per power and per function.
func CountOps(e Expr) int {
	ops := e.operands()
	count := 0
	switch e.(type) {
	case *Add, *Mul:
		count = len(ops) - 1
	case *Pow, *Func:
		count = 1
	}
	for _, c := range ops {
		count += CountOps(c)
	}
	return count
}

// CountMatrixOps sums CountOps over every entry of m.
func CountMatrixOps(m *Matrix) int {
	total := 0
	for _, e := range m.ToFlatList() {
		total += CountOps(e)
	}
	return total
}
