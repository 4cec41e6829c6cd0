package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/njchilds90/symlie/internal/config"
	"github.com/njchilds90/symlie/internal/scenario"
)

// NewScenariosCommand creates the scenarios command.
func NewScenariosCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the built-in Jacobian problems",
		Example: `  symlie scenarios
  symlie scenarios -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScenarios(cmd)
		},
	}
}

type scenarioInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Args        []string `json:"args"`
	Rows        int      `json:"rows"`
	Cols        []int    `json:"cols"`
}

func describe(s scenario.Scenario) scenarioInfo {
	info := scenarioInfo{
		Name:        s.Name,
		Description: s.Description,
		Args:        s.ArgTypes(),
		Rows:        s.Expr.TangentDim(),
	}
	for _, a := range s.Args {
		info.Cols = append(info.Cols, a.TangentDim())
	}
	return info
}

func runScenarios(cmd *cobra.Command) error {
	cfg := config.FromContext(cmd.Context())
	w := cmd.OutOrStdout()

	var infos []scenarioInfo
	for _, s := range scenario.All() {
		infos = append(infos, describe(s))
	}

	switch cfg.Output {
	case "json":
		return renderJSON(w, infos)
	case "table", "latex":
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Name", "Expression", "Args", "Jacobian shapes"})
		for _, info := range infos {
			shapes := make([]string, len(info.Cols))
			for i, c := range info.Cols {
				shapes[i] = fmt.Sprintf("%dx%d", info.Rows, c)
			}
			t.AppendRow(table.Row{info.Name, info.Description, strings.Join(info.Args, ", "), strings.Join(shapes, ", ")})
		}
		t.Render()
		return nil
	}
	return unknownOutput(cfg.Output)
}
