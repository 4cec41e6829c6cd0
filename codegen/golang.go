package codegen

import (
	"fmt"
	"go/format"
	"go/token"
	"strings"

	"github.com/njchilds90/symlie"
)

var goFuncs = map[string]string{
	"sin":   "math.Sin",
	"cos":   "math.Cos",
	"tan":   "math.Tan",
	"exp":   "math.Exp",
	"ln":    "math.Log",
	"abs":   "math.Abs",
	"asin":  "math.Asin",
	"acos":  "math.Acos",
	"atan":  "math.Atan",
	"sinh":  "math.Sinh",
	"cosh":  "math.Cosh",
	"tanh":  "math.Tanh",
	"floor": "math.Floor",
	"ceil":  "math.Ceil",
}

// NewGoPrinter prints float64 Go expressions using package math. sign has no single call
// in math and is not supported.
func NewGoPrinter() *Printer {
	p := &Printer{
		language: "go",
		rules: map[string]rule{
			"num": goNum,
			"sym": goSym,
			"add": printSum,
			"mul": printProduct,
			"pow": goPow,
			"func:signnz": func(p *Printer, e symlie.Expr) (string, error) {
				arg, err := p.Print(e.(*symlie.Func).Arg())
				if err != nil {
					return "", err
				}
				// Copysign keeps the sign bit of -0; signnz treats it as positive.
				return "math.Copysign(1, " + arg + "+0)", nil
			},
		},
		function: goFunction,
	}
	for name, fn := range goFuncs {
		p.rules["func:"+name] = call(fn)
	}
	return p
}

func goNum(_ *Printer, e symlie.Expr) (string, error) {
	r := e.(*symlie.Num).Rat()
	s := r.Num().String() + ".0"
	if !r.IsInt() {
		s = s + "/" + r.Denom().String()
	}
	if r.Sign() < 0 || !r.IsInt() {
		s = "(" + s + ")"
	}
	return s, nil
}

func goSym(_ *Printer, e symlie.Expr) (string, error) {
	name := e.(*symlie.Sym).Name()
	if !token.IsIdentifier(name) {
		return "", fmt.Errorf("codegen: symbol %q is not a Go identifier", name)
	}
	return name, nil
}

func goPow(p *Printer, e symlie.Expr) (string, error) {
	pw := e.(*symlie.Pow)
	base, err := p.Print(pw.Base())
	if err != nil {
		return "", err
	}
	if n, ok := pw.ExpExpr().(*symlie.Num); ok {
		switch n.String() {
		case "1/2":
			return "math.Sqrt(" + base + ")", nil
		case "-1":
			return "(1 / " + base + ")", nil
		case "2":
			return "(" + base + " * " + base + ")", nil
		}
	}
	exp, err := p.Print(pw.ExpExpr())
	if err != nil {
		return "", err
	}
	return "math.Pow(" + base + ", " + exp + ")", nil
}

func goFunction(_ *Printer, name string, inputs []string, outputs []Output, entries [][][]string) (string, error) {
	var b strings.Builder
	names := make([]string, len(outputs))
	for k, out := range outputs {
		names[k] = out.Name
	}
	params := ""
	if len(inputs) > 0 {
		params = strings.Join(inputs, ", ") + " float64"
	}
	fmt.Fprintf(&b, "func %s(%s) (%s [][]float64) {\n", name, params, strings.Join(names, ", "))
	for k, out := range outputs {
		fmt.Fprintf(&b, "%s = [][]float64{\n", out.Name)
		for _, row := range entries[k] {
			fmt.Fprintf(&b, "{%s},\n", strings.Join(row, ", "))
		}
		b.WriteString("}\n")
	}
	b.WriteString("return\n}\n")

	src, err := format.Source([]byte(b.String()))
	if err != nil {
		return "", fmt.Errorf("codegen: format generated go: %w", err)
	}
	return string(src), nil
}
