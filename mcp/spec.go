package mcp

import "encoding/json"

var (
	exprProps   = map[string]string{"expr": "object"}
	matrixProps = map[string]string{"matrix": "array"}
)

// ToolSpec returns the JSON tool schema used for agent registration.
func ToolSpec() string {
	tools := []map[string]interface{}{
		ts("simplify", "Simplify a symbolic expression", []string{"expr"}, exprProps),
		ts("substitute", "Substitute var with value", []string{"expr", "var", "value"}, map[string]string{"expr": "object", "var": "string", "value": "object"}),
		ts("diff", "First derivative d/dvar", []string{"expr", "var"}, map[string]string{"expr": "object", "var": "string"}),
		ts("jacobian", "Flat Jacobian matrix. Requires exprs (array) and vars (array)", []string{"exprs", "vars"}, map[string]string{"exprs": "array", "vars": "array"}),
		ts("free_symbols", "Return sorted free symbol names", []string{"expr"}, exprProps),
		ts("to_latex", "Convert to LaTeX", []string{"expr"}, exprProps),
		ts("count_ops", "Count arithmetic and function nodes", []string{"expr"}, exprProps),
		ts("eval", "Evaluate to a float. env maps symbol names to numbers", []string{"expr"}, map[string]string{"expr": "object", "env": "object"}),
		ts("matrix_transpose", "Transpose a matrix given as rows of expression objects", []string{"matrix"}, matrixProps),
		ts("matrix_mul", "Matrix product a*b", []string{"a", "b"}, map[string]string{"a": "array", "b": "array"}),
		ts("matrix_det", "Determinant of a square matrix", []string{"matrix"}, matrixProps),
		ts("matrix_trace", "Trace of a square matrix", []string{"matrix"}, matrixProps),
		ts("matrix_inv", "Inverse of a square matrix; fails when the determinant is zero", []string{"matrix"}, matrixProps),
		ts("list_scenarios", "List the built-in Lie-group scenarios", []string{}, map[string]string{}),
		ts("tangent_jacobians", "Tangent-space Jacobians of a scenario. Optional: strategy (first_order|chain_rule), epsilon, eval, seed",
			[]string{"scenario"}, map[string]string{"scenario": "string", "strategy": "string", "epsilon": "number", "eval": "boolean", "seed": "integer"}),
		ts("verify", "Compare both strategies with finite differences at a random point", []string{"scenario"}, map[string]string{"scenario": "string", "seed": "integer"}),
		ts("mcp_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
