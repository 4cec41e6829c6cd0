// Package codegen prints kernel expressions as source code.
//
// A Printer owns a dispatch table keyed by node kind: "num", "sym", "add", "mul", "pow" and
// "func:<name>" for each function application. The table is filled in when the printer is
// constructed, so an expression containing a node with no entry fails with an
// *UnsupportedError instead of printing something the target cannot run.
package codegen

import (
	"fmt"
	"strings"

	"github.com/njchilds90/symlie"
)

// UnsupportedError reports a node kind the printer has no rule for.
type UnsupportedError struct {
	Language string
	Key      string
	Expr     string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("codegen: %s printer cannot print %s node %s", e.Language, e.Key, e.Expr)
}

type rule func(p *Printer, e symlie.Expr) (string, error)

// Printer renders expressions for one target language.
type Printer struct {
	language string
	rules    map[string]rule
	function func(p *Printer, name string, inputs []string, outputs []Output, entries [][][]string) (string, error)
}

// Language names the target, e.g. "torch" or "go".
func (p *Printer) Language() string { return p.language }

// Supports reports whether the printer has a rule for key.
func (p *Printer) Supports(key string) bool {
	_, ok := p.rules[key]
	return ok
}

// Key is the dispatch key of e's top-level node.
func Key(e symlie.Expr) string {
	if f, ok := e.(*symlie.Func); ok {
		return "func:" + f.FuncName()
	}
	return symlie.Kind(e)
}

// Print renders e.
func (p *Printer) Print(e symlie.Expr) (string, error) {
	key := Key(e)
	r, ok := p.rules[key]
	if !ok {
		return "", &UnsupportedError{Language: p.language, Key: key, Expr: e.String()}
	}
	return r(p, e)
}

func (p *Printer) printAll(exprs []symlie.Expr) ([]string, error) {
	out := make([]string, len(exprs))
	for i, e := range exprs {
		s, err := p.Print(e)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// printSum writes terms with subtraction for negated ones and wraps the result in
// parentheses, so callers never need to know operator precedence.
func printSum(p *Printer, e symlie.Expr) (string, error) {
	var b strings.Builder
	b.WriteByte('(')
	for i, t := range e.(*symlie.Add).Terms() {
		positive, negated := splitSign(t)
		s, err := p.Print(positive)
		if err != nil {
			return "", err
		}
		switch {
		case i == 0 && negated:
			b.WriteString("-")
		case negated:
			b.WriteString(" - ")
		case i > 0:
			b.WriteString(" + ")
		}
		b.WriteString(s)
	}
	b.WriteByte(')')
	return b.String(), nil
}

// splitSign returns |c|*rest and true when t is a product with a negative leading
// coefficient or a negative number.
func splitSign(t symlie.Expr) (symlie.Expr, bool) {
	switch v := t.(type) {
	case *symlie.Num:
		if v.IsNegative() {
			return symlie.Neg(v), true
		}
	case *symlie.Mul:
		factors := v.Factors()
		if c, ok := factors[0].(*symlie.Num); ok && c.IsNegative() {
			rest := append([]symlie.Expr{symlie.Neg(c)}, factors[1:]...)
			return symlie.MulOf(rest...), true
		}
	}
	return t, false
}

func printProduct(p *Printer, e symlie.Expr) (string, error) {
	parts, err := p.printAll(e.(*symlie.Mul).Factors())
	if err != nil {
		return "", err
	}
	return strings.Join(parts, " * "), nil
}

func call(fn string) rule {
	return func(p *Printer, e symlie.Expr) (string, error) {
		arg, err := p.Print(e.(*symlie.Func).Arg())
		if err != nil {
			return "", err
		}
		return fn + "(" + arg + ")", nil
	}
}
