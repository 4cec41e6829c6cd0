package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symlie"
	"github.com/njchilds90/symlie/internal/config"
	"github.com/njchilds90/symlie/internal/testutil"
)

func exprParam(t *testing.T, e symlie.Expr) map[string]interface{} {
	t.Helper()
	raw, err := symlie.ToJSON(e)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func newHandler(t *testing.T) *Handler {
	return NewHandler(config.Default(), testutil.NewTestLogger(t))
}

func call(t *testing.T, h *Handler, tool string, p map[string]interface{}) ToolResponse {
	t.Helper()
	return h.HandleToolCall(context.Background(), ToolRequest{Tool: tool, Params: p})
}

func TestKernelTools(t *testing.T) {
	h := newHandler(t)
	x, y := symlie.S("x"), symlie.S("y")
	e := symlie.AddOf(symlie.MulOf(x, x, y), symlie.SinOf(y))

	resp := call(t, h, "simplify", map[string]interface{}{"expr": exprParam(t, e)})
	require.Empty(t, resp.Error)
	assert.Equal(t, e.String(), resp.String)
	assert.Equal(t, e.LaTeX(), resp.LaTeX)

	resp = call(t, h, "diff", map[string]interface{}{"expr": exprParam(t, e), "var": "x"})
	require.Empty(t, resp.Error)
	assert.Equal(t, symlie.Diff(e, "x").String(), resp.String)

	resp = call(t, h, "substitute", map[string]interface{}{
		"expr":  exprParam(t, e),
		"var":   "y",
		"value": exprParam(t, symlie.N(0)),
	})
	require.Empty(t, resp.Error)
	assert.Equal(t, symlie.Sub(e, "y", symlie.N(0)).String(), resp.String)

	resp = call(t, h, "free_symbols", map[string]interface{}{"expr": exprParam(t, e)})
	assert.Equal(t, []string{"x", "y"}, resp.Result)

	resp = call(t, h, "count_ops", map[string]interface{}{"expr": exprParam(t, e)})
	assert.Equal(t, symlie.CountOps(e), resp.Result)

	resp = call(t, h, "to_latex", map[string]interface{}{"expr": exprParam(t, e)})
	assert.Equal(t, e.LaTeX(), resp.LaTeX)

	resp = call(t, h, "eval", map[string]interface{}{
		"expr": exprParam(t, e),
		"env":  map[string]interface{}{"x": 2.0, "y": 0.0},
	})
	require.Empty(t, resp.Error)
	assert.Equal(t, 0.0, resp.Result)

	resp = call(t, h, "jacobian", map[string]interface{}{
		"exprs": []interface{}{exprParam(t, e), exprParam(t, x)},
		"vars":  []interface{}{"x", "y"},
	})
	require.Empty(t, resp.Error)
	assert.Equal(t, symlie.Jacobian([]symlie.Expr{e, x}, []string{"x", "y"}).String(), resp.String)
}

func matrixParam(t *testing.T, m *symlie.Matrix) []interface{} {
	t.Helper()
	rows := make([]interface{}, m.Rows())
	for i := range rows {
		row := make([]interface{}, m.Cols())
		for j := range row {
			row[j] = exprParam(t, m.Get(i, j))
		}
		rows[i] = row
	}
	return rows
}

func TestMatrixTools(t *testing.T) {
	h := newHandler(t)
	a, b, c, d := symlie.S("a"), symlie.S("b"), symlie.S("c"), symlie.S("d")
	m := symlie.MatrixFromSlice(2, 2, []symlie.Expr{a, b, c, d})
	col := symlie.ColumnVector([]symlie.Expr{symlie.N(1), symlie.N(2)})

	resp := call(t, h, "matrix_det", map[string]interface{}{"matrix": matrixParam(t, m)})
	require.Empty(t, resp.Error)
	assert.Equal(t, m.Det().String(), resp.String)
	v, err := symlie.EvalFloat(m.Det(), map[string]float64{"a": 1, "b": 2, "c": 3, "d": 4})
	require.NoError(t, err)
	assert.Equal(t, -2.0, v)

	resp = call(t, h, "matrix_trace", map[string]interface{}{"matrix": matrixParam(t, m)})
	require.Empty(t, resp.Error)
	assert.Equal(t, symlie.AddOf(a, d).String(), resp.String)

	resp = call(t, h, "matrix_transpose", map[string]interface{}{"matrix": matrixParam(t, col)})
	require.Empty(t, resp.Error)
	assert.Equal(t, col.Transpose().String(), resp.String)

	resp = call(t, h, "matrix_mul", map[string]interface{}{"a": matrixParam(t, m), "b": matrixParam(t, col)})
	require.Empty(t, resp.Error)
	assert.Equal(t, m.MatMul(col).String(), resp.String)

	diag := symlie.MatrixFromSlice(2, 2, []symlie.Expr{symlie.N(2), symlie.N(0), symlie.N(0), symlie.N(4)})
	resp = call(t, h, "matrix_inv", map[string]interface{}{"matrix": matrixParam(t, diag)})
	require.Empty(t, resp.Error)
	want := symlie.MatrixFromSlice(2, 2, []symlie.Expr{symlie.F(1, 2), symlie.N(0), symlie.N(0), symlie.F(1, 4)})
	assert.Equal(t, want.String(), resp.String)

	errs := []struct {
		tool   string
		params map[string]interface{}
		want   string
	}{
		{"matrix_det", map[string]interface{}{"matrix": matrixParam(t, col)}, "must be square, got 2x1"},
		{"matrix_trace", map[string]interface{}{"matrix": []interface{}{}}, "non-empty array of rows"},
		{"matrix_inv", map[string]interface{}{"matrix": matrixParam(t, symlie.MatrixFromSlice(2, 2, []symlie.Expr{
			symlie.N(1), symlie.N(2), symlie.N(2), symlie.N(4)}))}, "singular"},
		{"matrix_mul", map[string]interface{}{"a": matrixParam(t, col), "b": matrixParam(t, col)}, "cannot multiply 2x1 by 2x1"},
		{"matrix_transpose", map[string]interface{}{"matrix": []interface{}{
			[]interface{}{exprParam(t, a), exprParam(t, b)},
			[]interface{}{exprParam(t, c)},
		}}, "row 1 has 1 entries, want 2"},
	}
	for _, tt := range errs {
		t.Run(tt.tool, func(t *testing.T) {
			resp := call(t, h, tt.tool, tt.params)
			assert.Contains(t, resp.Error, tt.want)
			assert.Nil(t, resp.Result)
		})
	}
}

func TestParamErrors(t *testing.T) {
	h := newHandler(t)
	tests := []struct {
		tool   string
		params map[string]interface{}
		want   string
	}{
		{"simplify", nil, "missing param: expr"},
		{"simplify", map[string]interface{}{"expr": "x"}, "invalid type for param expr"},
		{"simplify", map[string]interface{}{"expr": map[string]interface{}{"type": "nope"}}, "unknown expression type"},
		{"diff", map[string]interface{}{"expr": map[string]interface{}{"type": "sym", "name": "x"}, "var": 1.0}, "param var must be a string"},
		{"jacobian", map[string]interface{}{"exprs": []interface{}{"x"}, "vars": []interface{}{}}, "param exprs[0] must be expression object"},
		{"eval", map[string]interface{}{"expr": map[string]interface{}{"type": "sym", "name": "x"}}, "has no value"},
		{"eval", map[string]interface{}{"expr": map[string]interface{}{"type": "sym", "name": "x"}, "env": map[string]interface{}{"x": "1"}}, "param env.x must be a number"},
		{"tangent_jacobians", map[string]interface{}{"scenario": "nope"}, "unknown scenario"},
		{"tangent_jacobians", map[string]interface{}{"scenario": "rot2_compose", "strategy": "numeric"}, "strategy"},
		{"tangent_jacobians", map[string]interface{}{"scenario": "rot2_compose", "epsilon": -1.0}, "epsilon must be >= 0"},
		{"tangent_jacobians", map[string]interface{}{"scenario": "rot2_compose", "eval": "yes"}, "param eval must be a boolean"},
		{"frobnicate", nil, "unknown tool: frobnicate"},
	}
	for _, tt := range tests {
		t.Run(tt.tool+"/"+tt.want, func(t *testing.T) {
			resp := call(t, h, tt.tool, tt.params)
			assert.Contains(t, resp.Error, tt.want)
			assert.Nil(t, resp.Result)
		})
	}
}

func TestTangentJacobians(t *testing.T) {
	h := newHandler(t)

	resp := call(t, h, "tangent_jacobians", map[string]interface{}{"scenario": "rot3_compose", "strategy": "chain_rule"})
	require.Empty(t, resp.Error)
	jacs, ok := resp.Result.([][][]map[string]interface{})
	require.True(t, ok)
	require.Len(t, jacs, 2)
	assert.Len(t, jacs[0], 3)
	assert.Len(t, jacs[0][0], 3)
	assert.True(t, strings.HasPrefix(resp.LaTeX, `\begin{pmatrix}`))

	resp = call(t, h, "tangent_jacobians", map[string]interface{}{
		"scenario": "scalar_product",
		"eval":     true,
		"seed":     4.0,
		"epsilon":  map[string]interface{}{"type": "num", "value": "0"},
	})
	require.Empty(t, resp.Error)
	res := resp.Result.(map[string]interface{})
	point := res["point"].(map[string]float64)
	values := res["jacobians"].([][][]float64)
	require.Len(t, values, 2)

	// d(s*u)/du = s
	require.Len(t, values[1], 1)
	assert.InDelta(t, point["s"], values[1][0][0], 1e-12)
	assert.InDelta(t, point["u"], values[0][0][0], 1e-12)
}

func TestVerifyTool(t *testing.T) {
	h := newHandler(t)
	resp := call(t, h, "verify", map[string]interface{}{"scenario": "pose3_transform_point", "seed": 2.0})
	require.Empty(t, resp.Error)
	res := resp.Result.(map[string]interface{})
	assert.Equal(t, true, res["ok"])
	assert.Len(t, res["max_diff"], 2)
}

func TestListScenarios(t *testing.T) {
	resp := call(t, newHandler(t), "list_scenarios", nil)
	require.Empty(t, resp.Error)
	infos := resp.Result.([]map[string]interface{})
	assert.Len(t, infos, 8)
	assert.Contains(t, resp.String, "rot3_compose")
}

func TestToolSpec(t *testing.T) {
	var spec struct {
		Tools []struct {
			Name        string `json:"name"`
			InputSchema struct {
				Required []string `json:"required"`
			} `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal([]byte(ToolSpec()), &spec))

	h := newHandler(t)
	for _, tool := range spec.Tools {
		resp := call(t, h, tool.Name, nil)
		assert.NotContains(t, resp.Error, "unknown tool", "tool %s is advertised but not handled", tool.Name)
	}
	assert.Len(t, spec.Tools, 17)
}

func post(t *testing.T, srv *httptest.Server, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/tool", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestRouter(t *testing.T) {
	srv := httptest.NewServer(NewRouter(newHandler(t)))
	defer srv.Close()

	t.Run("tool", func(t *testing.T) {
		body := `{"tool":"diff","params":{"expr":{"type":"pow","base":{"type":"sym","name":"x"},"exp":{"type":"num","value":"3"}},"var":"x"}}`
		resp, out := post(t, srv, body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		want := symlie.Diff(symlie.PowOf(symlie.S("x"), symlie.N(3)), "x")
		assert.Equal(t, want.String(), out["string"])
		assert.NotContains(t, out, "error")
	})

	t.Run("unknown field", func(t *testing.T) {
		resp, out := post(t, srv, `{"tool":"simplify","args":{}}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, out["error"], "unknown field")
	})

	t.Run("trailing data", func(t *testing.T) {
		resp, out := post(t, srv, `{"tool":"mcp_spec"} {"tool":"mcp_spec"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid JSON: trailing data", out["error"])
	})

	t.Run("too large", func(t *testing.T) {
		big := `{"tool":"` + strings.Repeat("a", maxBodyBytes) + `"}`
		rec := httptest.NewRecorder()
		NewRouter(newHandler(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tool", strings.NewReader(big)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "too large")
	})

	t.Run("method", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/tool")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("schema", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/schema")
		require.NoError(t, err)
		defer resp.Body.Close()
		var buf bytes.Buffer
		_, err = buf.ReadFrom(resp.Body)
		require.NoError(t, err)
		assert.JSONEq(t, ToolSpec(), buf.String())
	})

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, "ok", out["status"])
	})
}
