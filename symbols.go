package symlie

import (
	"fmt"
	"strconv"
	"strings"
)

// SymbolicVector returns n symbols named prefix0 … prefix{n-1}.
func SymbolicVector(prefix string, n int) []Expr {
	out := make([]Expr, n)
	for i := range out {
		out[i] = S(prefix + strconv.Itoa(i))
	}
	return out
}

// FreshPrefix returns base, or base with a numeric suffix, such that no free symbol of the
// avoid expressions starts with the returned prefix. Any name built by appending to it is
// therefore unused by the avoid expressions.
func FreshPrefix(base string, avoid ...Expr) string {
	used := map[string]struct{}{}
	for _, e := range avoid {
		collectSymbols(e, used)
	}
	candidate := base
	for i := 1; hasPrefixIn(used, candidate); i++ {
		candidate = fmt.Sprintf("%s%d_", base, i)
	}
	return candidate
}

func hasPrefixIn(names map[string]struct{}, prefix string) bool {
	for name := range names {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// SymbolNames returns the names of exprs, which must all be symbols.
func SymbolNames(exprs []Expr) ([]string, error) {
	names := make([]string, len(exprs))
	for i, e := range exprs {
		s, ok := e.(*Sym)
		if !ok {
			return nil, fmt.Errorf("symlie: entry %d is %s, not a symbol", i, e.String())
		}
		names[i] = s.name
	}
	return names, nil
}
