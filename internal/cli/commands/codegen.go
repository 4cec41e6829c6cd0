package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/njchilds90/symlie"
	"github.com/njchilds90/symlie/codegen"
	"github.com/njchilds90/symlie/internal/config"
	"github.com/njchilds90/symlie/internal/scenario"
	"github.com/njchilds90/symlie/jacobian"
)

// NewCodegenCommand creates the codegen command.
func NewCodegenCommand() *cobra.Command {
	var (
		lang string
		name string
	)
	cmd := &cobra.Command{
		Use:   "codegen <scenario>",
		Short: "Emit code that evaluates a scenario's Jacobians",
		Long: `Emit a function taking every free symbol of the Jacobians and returning one
matrix per argument. Epsilon stays symbolic and becomes an input when the
linearizations use it.`,
		Example: `  symlie codegen rot3_compose
  symlie codegen pose3_transform_point --lang go --name TransformJacobians`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCodegen(cmd, args[0], lang, name)
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "torch", "Target language (torch|go)")
	cmd.Flags().StringVar(&name, "name", "", "Function name (default: <scenario>_jacobians)")
	return cmd
}

func printerFor(lang string) (*codegen.Printer, error) {
	switch lang {
	case "torch":
		return codegen.NewTorchPrinter(), nil
	case "go":
		return codegen.NewGoPrinter(), nil
	}
	return nil, fmt.Errorf("unknown language %q (want torch or go)", lang)
}

func runCodegen(cmd *cobra.Command, scenarioName, lang, fnName string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)

	p, err := printerFor(lang)
	if err != nil {
		return err
	}
	s, err := scenario.Lookup(scenarioName)
	if err != nil {
		return err
	}
	opts := cfg.EngineOptions(config.GetLogger(ctx))
	opts.Epsilon = symlie.S("epsilon")
	jacs, err := jacobian.New(opts).Compute(ctx, s.Expr, s.Groups())
	if err != nil {
		return err
	}

	var all []symlie.Expr
	outputs := make([]codegen.Output, len(jacs))
	for i, j := range jacs {
		outputs[i] = codegen.Output{Name: fmt.Sprintf("J%d", i), Matrix: j}
		all = append(all, j.ToFlatList()...)
	}
	if fnName == "" {
		fnName = scenarioName + "_jacobians"
	}
	src, err := codegen.GenerateFunction(p, fnName, symlie.SortedFreeSymbols(all...), outputs)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), src)
	return err
}
