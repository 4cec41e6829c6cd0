package commands

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/njchilds90/symlie"
	"github.com/njchilds90/symlie/internal/config"
	"github.com/njchilds90/symlie/internal/scenario"
	"github.com/njchilds90/symlie/jacobian"
	"github.com/njchilds90/symlie/verify"
)

// NewJacobianCommand creates the jacobian command.
func NewJacobianCommand() *cobra.Command {
	var (
		eval bool
		seed uint64
	)
	cmd := &cobra.Command{
		Use:   "jacobian <scenario>",
		Short: "Compute the tangent Jacobians of a scenario",
		Long: `Compute one tangent-space Jacobian per argument of a built-in scenario.

The matrices are printed symbolically, or evaluated at a random valid point
with --eval.`,
		Example: `  symlie jacobian rot3_compose
  symlie jacobian pose3_between --strategy chain_rule -o latex
  symlie jacobian rot3_rotate_point --eval --seed 7 -o json`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return scenario.Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJacobian(cmd, args[0], eval, seed)
		},
	}
	cmd.Flags().BoolVar(&eval, "eval", false, "Evaluate at a random valid point")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Seed for the evaluation point")
	return cmd
}

type symbolicResult struct {
	Scenario  string                       `json:"scenario"`
	Strategy  string                       `json:"strategy"`
	Jacobians [][][]map[string]interface{} `json:"jacobians"`
	Ops       []int                        `json:"ops"`
}

type numericResult struct {
	Scenario  string             `json:"scenario"`
	Strategy  string             `json:"strategy"`
	Point     map[string]float64 `json:"point"`
	Jacobians [][][]float64      `json:"jacobians"`
}

func runJacobian(cmd *cobra.Command, name string, eval bool, seed uint64) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	w := cmd.OutOrStdout()

	s, err := scenario.Lookup(name)
	if err != nil {
		return err
	}
	eng := jacobian.New(cfg.EngineOptions(config.GetLogger(ctx)))

	jacs, err := eng.Compute(ctx, s.Expr, s.Groups())
	if err != nil {
		return fmt.Errorf("compute %s: %w", name, err)
	}
	strategy := string(eng.Strategy())

	if eval {
		env, err := s.RandomPoint(rand.New(rand.NewPCG(seed, seed)))
		if err != nil {
			return err
		}
		dense, err := verify.Evaluate(jacs, env)
		if err != nil {
			return err
		}
		switch cfg.Output {
		case "json":
			res := numericResult{Scenario: name, Strategy: strategy, Point: env}
			for _, d := range dense {
				res.Jacobians = append(res.Jacobians, denseRows(d))
			}
			return renderJSON(w, res)
		case "latex":
			for i, d := range dense {
				_, _ = fmt.Fprintf(w, "J_{%d} = %s\n", i, numericLaTeX(d))
			}
			return nil
		case "table":
			for i, d := range dense {
				numericTable(w, fmt.Sprintf("J%d (%s)", i, s.ArgTypes()[i]), d)
			}
			return nil
		}
		return unknownOutput(cfg.Output)
	}

	switch cfg.Output {
	case "json":
		res := symbolicResult{Scenario: name, Strategy: strategy}
		for _, j := range jacs {
			res.Jacobians = append(res.Jacobians, symlie.MatrixJSONValue(j))
			res.Ops = append(res.Ops, symlie.CountMatrixOps(j))
		}
		return renderJSON(w, res)
	case "latex":
		for i, j := range jacs {
			_, _ = fmt.Fprintf(w, "J_{%d} = %s\n", i, j.LaTeX())
		}
		return nil
	case "table":
		for i, j := range jacs {
			symbolicTable(w, fmt.Sprintf("J%d (%s, %d ops)", i, s.ArgTypes()[i], symlie.CountMatrixOps(j)), j)
		}
		return nil
	}
	return unknownOutput(cfg.Output)
}
