// Package mcp exposes the symlie kernel and the tangent Jacobian engine as agent tools.
//
// A tool call is a JSON object naming the tool and its parameters. Expressions travel in the
// object form produced by symlie.JSONValue, matrices as nested arrays of such objects.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/njchilds90/symlie"
	"github.com/njchilds90/symlie/internal/config"
	"github.com/njchilds90/symlie/internal/scenario"
	"github.com/njchilds90/symlie/jacobian"
	"github.com/njchilds90/symlie/verify"
)

type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	LaTeX  string      `json:"latex,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func errResponse(err error) ToolResponse { return ToolResponse{Error: err.Error()} }

// Handler answers tool calls. Engine defaults come from the configuration it was built
// with; individual calls may override strategy and epsilon.
type Handler struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandler creates a Handler. A nil cfg means config.Default().
func NewHandler(cfg *config.Config, logger *slog.Logger) *Handler {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{cfg: cfg, logger: logger}
}

type params map[string]interface{}

func (p params) expr(key string) (symlie.Expr, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("missing param: %s", key)
	}
	val, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid type for param %s", key)
	}
	e, err := symlie.FromJSON(val)
	if err != nil {
		return nil, fmt.Errorf("param %s: %w", key, err)
	}
	return e, nil
}

func (p params) str(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing param: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %s must be a string", key)
	}
	return s, nil
}

func (p params) strings(key string) ([]string, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("missing param: %s", key)
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("param %s must be array", key)
	}
	result := make([]string, len(raw))
	for i, r := range raw {
		s, ok := r.(string)
		if !ok {
			return nil, fmt.Errorf("param %s[%d] must be string", key, i)
		}
		result[i] = s
	}
	return result, nil
}

func (p params) exprList(key string) ([]symlie.Expr, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("missing param: %s", key)
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("param %s must be array", key)
	}
	result := make([]symlie.Expr, len(raw))
	for i, r := range raw {
		m, ok := r.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("param %s[%d] must be expression object", key, i)
		}
		e, err := symlie.FromJSON(m)
		if err != nil {
			return nil, fmt.Errorf("param %s[%d]: %w", key, i, err)
		}
		result[i] = e
	}
	return result, nil
}

// matrix reads a non-empty array of equally long rows of expression objects.
func (p params) matrix(key string) (*symlie.Matrix, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("missing param: %s", key)
	}
	rows, ok := v.([]interface{})
	if !ok || len(rows) == 0 {
		return nil, fmt.Errorf("param %s must be a non-empty array of rows", key)
	}
	var entries []symlie.Expr
	cols := -1
	for i, r := range rows {
		row := params{key: r}
		exprs, err := row.exprList(key)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if cols >= 0 && len(exprs) != cols {
			return nil, fmt.Errorf("param %s row %d has %d entries, want %d", key, i, len(exprs), cols)
		}
		cols = len(exprs)
		entries = append(entries, exprs...)
	}
	return symlie.MatrixFromSlice(len(rows), cols, entries), nil
}

func (p params) square(key string) (*symlie.Matrix, error) {
	m, err := p.matrix(key)
	if err != nil {
		return nil, err
	}
	if m.Rows() != m.Cols() {
		return nil, fmt.Errorf("param %s must be square, got %dx%d", key, m.Rows(), m.Cols())
	}
	return m, nil
}

// env reads an object of numbers. A missing key is an empty environment.
func (p params) env(key string) (map[string]float64, error) {
	out := make(map[string]float64)
	v, ok := p[key]
	if !ok {
		return out, nil
	}
	raw, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("param %s must be an object of numbers", key)
	}
	for name, x := range raw {
		f, ok := x.(float64)
		if !ok {
			return nil, fmt.Errorf("param %s.%s must be a number", key, name)
		}
		out[name] = f
	}
	return out, nil
}

// number returns def when key is absent.
func (p params) number(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("param %s must be a number", key)
	}
	return f, nil
}

func (p params) boolean(key string) (bool, error) {
	v, ok := p[key]
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("param %s must be a boolean", key)
	}
	return b, nil
}

func respond(e symlie.Expr) ToolResponse {
	return ToolResponse{Result: symlie.JSONValue(e), LaTeX: e.LaTeX(), String: e.String()}
}

func respondMatrix(m *symlie.Matrix) ToolResponse {
	return ToolResponse{Result: symlie.MatrixJSONValue(m), LaTeX: m.LaTeX(), String: m.String()}
}

// HandleToolCall runs one tool. Failures are reported in ToolResponse.Error; the returned
// response is always safe to encode.
func (h *Handler) HandleToolCall(ctx context.Context, req ToolRequest) ToolResponse {
	p := params(req.Params)

	switch req.Tool {
	case "simplify":
		e, err := p.expr("expr")
		if err != nil {
			return errResponse(err)
		}
		return respond(e.Simplify())

	case "substitute":
		e, err := p.expr("expr")
		if err != nil {
			return errResponse(err)
		}
		v, err := p.str("var")
		if err != nil {
			return errResponse(err)
		}
		val, err := p.expr("value")
		if err != nil {
			return errResponse(err)
		}
		return respond(symlie.Sub(e, v, val))

	case "diff":
		e, err := p.expr("expr")
		if err != nil {
			return errResponse(err)
		}
		v, err := p.str("var")
		if err != nil {
			return errResponse(err)
		}
		return respond(symlie.Diff(e, v))

	case "jacobian":
		exprs, err := p.exprList("exprs")
		if err != nil {
			return errResponse(err)
		}
		vars, err := p.strings("vars")
		if err != nil {
			return errResponse(err)
		}
		return respondMatrix(symlie.Jacobian(exprs, vars))

	case "free_symbols":
		e, err := p.expr("expr")
		if err != nil {
			return errResponse(err)
		}
		names := symlie.SortedFreeSymbols(e)
		return ToolResponse{Result: names, String: strings.Join(names, ", ")}

	case "to_latex":
		e, err := p.expr("expr")
		if err != nil {
			return errResponse(err)
		}
		return ToolResponse{Result: e.LaTeX(), LaTeX: e.LaTeX()}

	case "count_ops":
		e, err := p.expr("expr")
		if err != nil {
			return errResponse(err)
		}
		n := symlie.CountOps(e)
		return ToolResponse{Result: n, String: fmt.Sprint(n)}

	case "eval":
		e, err := p.expr("expr")
		if err != nil {
			return errResponse(err)
		}
		env, err := p.env("env")
		if err != nil {
			return errResponse(err)
		}
		v, err := symlie.EvalFloat(e, env)
		if err != nil {
			return errResponse(err)
		}
		return ToolResponse{Result: v, String: fmt.Sprint(v)}

	case "matrix_transpose":
		m, err := p.matrix("matrix")
		if err != nil {
			return errResponse(err)
		}
		return respondMatrix(m.Transpose())

	case "matrix_mul":
		a, err := p.matrix("a")
		if err != nil {
			return errResponse(err)
		}
		b, err := p.matrix("b")
		if err != nil {
			return errResponse(err)
		}
		if a.Cols() != b.Rows() {
			return errResponse(fmt.Errorf("cannot multiply %dx%d by %dx%d", a.Rows(), a.Cols(), b.Rows(), b.Cols()))
		}
		return respondMatrix(a.MatMul(b))

	case "matrix_det":
		m, err := p.square("matrix")
		if err != nil {
			return errResponse(err)
		}
		return respond(m.Det())

	case "matrix_trace":
		m, err := p.square("matrix")
		if err != nil {
			return errResponse(err)
		}
		return respond(m.Trace())

	case "matrix_inv":
		m, err := p.square("matrix")
		if err != nil {
			return errResponse(err)
		}
		inv, err := m.Inverse()
		if err != nil {
			return errResponse(err)
		}
		return respondMatrix(inv)

	case "list_scenarios":
		infos := make([]map[string]interface{}, 0, len(scenario.Names()))
		for _, s := range scenario.All() {
			infos = append(infos, map[string]interface{}{
				"name":        s.Name,
				"description": s.Description,
				"expr":        fmt.Sprintf("%T", s.Expr),
				"args":        s.ArgTypes(),
			})
		}
		return ToolResponse{Result: infos, String: strings.Join(scenario.Names(), ", ")}

	case "tangent_jacobians":
		return h.tangentJacobians(ctx, p)

	case "verify":
		return h.verify(p)

	case "mcp_spec":
		return ToolResponse{Result: ToolSpec(), String: "MCP tool specification"}
	}

	return ToolResponse{Error: fmt.Sprintf("unknown tool: %s", req.Tool)}
}

// engineOptions applies the optional strategy and epsilon overrides of a call.
func (h *Handler) engineOptions(p params) (jacobian.Options, error) {
	opts := h.cfg.EngineOptions(h.logger)
	if _, ok := p["strategy"]; ok {
		s, err := p.str("strategy")
		if err != nil {
			return opts, err
		}
		if opts.Strategy, err = jacobian.ParseStrategy(s); err != nil {
			return opts, err
		}
	}
	if v, ok := p["epsilon"]; ok {
		switch eps := v.(type) {
		case float64:
			if eps < 0 {
				return opts, fmt.Errorf("param epsilon must be >= 0")
			}
			opts.Epsilon = symlie.NFloat(eps)
		case map[string]interface{}:
			e, err := symlie.FromJSON(eps)
			if err != nil {
				return opts, fmt.Errorf("param epsilon: %w", err)
			}
			opts.Epsilon = e
		default:
			return opts, fmt.Errorf("param epsilon must be a number or expression")
		}
	}
	return opts, nil
}

func (h *Handler) tangentJacobians(ctx context.Context, p params) ToolResponse {
	name, err := p.str("scenario")
	if err != nil {
		return errResponse(err)
	}
	s, err := scenario.Lookup(name)
	if err != nil {
		return errResponse(err)
	}
	opts, err := h.engineOptions(p)
	if err != nil {
		return errResponse(err)
	}
	eval, err := p.boolean("eval")
	if err != nil {
		return errResponse(err)
	}
	seed, err := p.number("seed", 1)
	if err != nil {
		return errResponse(err)
	}

	jacs, err := jacobian.New(opts).Compute(ctx, s.Expr, s.Groups())
	if err != nil {
		return errResponse(err)
	}

	latex := make([]string, len(jacs))
	strs := make([]string, len(jacs))
	for i, j := range jacs {
		latex[i] = j.LaTeX()
		strs[i] = j.String()
	}
	resp := ToolResponse{LaTeX: strings.Join(latex, ",\\ "), String: strings.Join(strs, "; ")}

	if !eval {
		out := make([][][]map[string]interface{}, len(jacs))
		for i, j := range jacs {
			out[i] = symlie.MatrixJSONValue(j)
		}
		resp.Result = out
		return resp
	}

	env, err := s.RandomPoint(rand.New(rand.NewPCG(uint64(seed), uint64(seed))))
	if err != nil {
		return errResponse(err)
	}
	dense, err := verify.Evaluate(jacs, env)
	if err != nil {
		return errResponse(err)
	}
	values := make([][][]float64, len(dense))
	for i, d := range dense {
		r, c := d.Dims()
		values[i] = make([][]float64, r)
		for row := range values[i] {
			values[i][row] = make([]float64, c)
			for col := range values[i][row] {
				values[i][row][col] = d.At(row, col)
			}
		}
	}
	resp.Result = map[string]interface{}{"point": env, "jacobians": values}
	return resp
}

func (h *Handler) verify(p params) ToolResponse {
	name, err := p.str("scenario")
	if err != nil {
		return errResponse(err)
	}
	s, err := scenario.Lookup(name)
	if err != nil {
		return errResponse(err)
	}
	seed, err := p.number("seed", 1)
	if err != nil {
		return errResponse(err)
	}
	env, err := s.RandomPoint(rand.New(rand.NewPCG(uint64(seed), uint64(seed))))
	if err != nil {
		return errResponse(err)
	}
	results, err := verify.Check(s.Expr, s.Args, env, h.cfg.VerifyOptions())
	if err != nil {
		return errResponse(err)
	}

	diffs := make([]float64, len(results))
	ok := true
	for i, r := range results {
		diffs[i] = r.MaxDiff
		if r.MaxDiff > h.cfg.Tolerance {
			ok = false
			h.logger.Warn("jacobian mismatch", "scenario", name, "arg", r.Arg, "max_diff", r.MaxDiff)
		}
	}
	return ToolResponse{
		Result: map[string]interface{}{"max_diff": diffs, "tolerance": h.cfg.Tolerance, "ok": ok},
		String: fmt.Sprintf("%s: max diffs %v (tolerance %g)", name, diffs, h.cfg.Tolerance),
	}
}
