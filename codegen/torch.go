package codegen

import (
	"fmt"
	"slices"
	"strings"

	"github.com/njchilds90/symlie"
)

var torchFuncs = map[string]string{
	"sin":   "torch.sin",
	"cos":   "torch.cos",
	"tan":   "torch.tan",
	"exp":   "torch.exp",
	"ln":    "torch.log",
	"abs":   "torch.abs",
	"asin":  "torch.asin",
	"acos":  "torch.acos",
	"atan":  "torch.atan",
	"sinh":  "torch.sinh",
	"cosh":  "torch.cosh",
	"tanh":  "torch.tanh",
	"floor": "torch.floor",
	"ceil":  "torch.ceil",
	"sign":  "torch.sign",
}

var pythonKeywords = []string{
	"False", "None", "True", "and", "as", "assert", "async", "await", "break", "class",
	"continue", "def", "del", "elif", "else", "except", "finally", "for", "from", "global",
	"if", "import", "in", "is", "lambda", "nonlocal", "not", "or", "pass", "raise", "return",
	"try", "while", "with", "yield",
}

// NewTorchPrinter prints PyTorch code. Every constant becomes a tensor built with the
// caller's tensor_kwargs so device and dtype follow the inputs.
func NewTorchPrinter() *Printer {
	p := &Printer{
		language: "torch",
		rules: map[string]rule{
			"num": torchNum,
			"sym": torchSym,
			"add": printSum,
			"mul": printProduct,
			"pow": torchPow,
			"func:signnz": func(p *Printer, e symlie.Expr) (string, error) {
				arg, err := p.Print(e.(*symlie.Func).Arg())
				if err != nil {
					return "", err
				}
				return "torch.copysign(torch.tensor(1.0, **tensor_kwargs), " + arg + ")", nil
			},
		},
		function: torchFunction,
	}
	for name, fn := range torchFuncs {
		p.rules["func:"+name] = call(fn)
	}
	return p
}

func torchNum(_ *Printer, e symlie.Expr) (string, error) {
	r := e.(*symlie.Num).Rat()
	if r.IsInt() {
		return "torch.tensor(" + r.Num().String() + ", **tensor_kwargs)", nil
	}
	return "torch.tensor(" + r.Num().String() + "/" + r.Denom().String() + ", **tensor_kwargs)", nil
}

func torchSym(_ *Printer, e symlie.Expr) (string, error) {
	name := e.(*symlie.Sym).Name()
	if slices.Contains(pythonKeywords, name) {
		return "", fmt.Errorf("codegen: symbol %q is a reserved keyword in Python", name)
	}
	return name, nil
}

func torchPow(p *Printer, e symlie.Expr) (string, error) {
	pw := e.(*symlie.Pow)
	base, err := p.Print(pw.Base())
	if err != nil {
		return "", err
	}
	exp, err := p.Print(pw.ExpExpr())
	if err != nil {
		return "", err
	}
	return "torch.pow(" + base + ", " + exp + ")", nil
}

func torchFunction(_ *Printer, name string, inputs []string, outputs []Output, entries [][][]string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "def %s(%s, tensor_kwargs=None):\n", name, strings.Join(inputs, ", "))
	b.WriteString("    tensor_kwargs = tensor_kwargs or {}\n")
	names := make([]string, len(outputs))
	for k, out := range outputs {
		names[k] = out.Name
		rows := make([]string, len(entries[k]))
		for i, row := range entries[k] {
			rows[i] = "torch.stack([" + strings.Join(row, ", ") + "])"
		}
		fmt.Fprintf(&b, "    %s = torch.stack([\n", out.Name)
		for _, r := range rows {
			fmt.Fprintf(&b, "        %s,\n", r)
		}
		b.WriteString("    ])\n")
	}
	fmt.Fprintf(&b, "    return %s\n", strings.Join(names, ", "))
	return b.String(), nil
}
