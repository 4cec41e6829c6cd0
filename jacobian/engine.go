package jacobian

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/njchilds90/symlie"
	"github.com/njchilds90/symlie/ops"
)

// Options configures an Engine.
type Options struct {
	Strategy Strategy
	// Epsilon is threaded into every linearization. Nil means symlie.N(0).
	Epsilon symlie.Expr
	// Workers bounds how many arguments are differentiated concurrently. Values below 1
	// mean one.
	Workers int
	Logger  *slog.Logger
}

// Engine computes tangent Jacobians on behalf of a caller, with logging, cancellation and
// optional parallelism across arguments.
type Engine struct {
	strategy Strategy
	epsilon  symlie.Expr
	workers  int
	logger   *slog.Logger
}

// New creates an Engine.
func New(opts Options) *Engine {
	e := &Engine{
		strategy: opts.Strategy,
		epsilon:  opts.Epsilon,
		workers:  opts.Workers,
		logger:   opts.Logger,
	}
	if e.strategy == "" {
		e.strategy = FirstOrder
	}
	if e.epsilon == nil {
		e.epsilon = symlie.N(0)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e
}

// Strategy reports how the engine computes tangent Jacobians.
func (e *Engine) Strategy() Strategy { return e.strategy }

// Epsilon returns the chart regulariser passed to StorageDTangent and TangentDStorage.
func (e *Engine) Epsilon() symlie.Expr { return e.epsilon }

// Compute returns one Jacobian per arg, in argument order. A panic raised by an element
// implementation is returned as an error instead of crashing the caller.
func (e *Engine) Compute(ctx context.Context, expr ops.LieGroup, args []ops.LieGroup) ([]*symlie.Matrix, error) {
	start := time.Now()
	out := make([]*symlie.Matrix, len(args))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, arg := range args {
		g.Go(func() (err error) {
			if err := ctx.Err(); err != nil {
				return err
			}
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("jacobian for arg %d: %v", i, r)
				}
			}()
			jac := compute(e.strategy, expr, arg, e.epsilon)
			e.logger.Debug("computed tangent jacobian",
				slog.Int("arg", i),
				slog.Int("rows", jac.Rows()),
				slog.Int("cols", jac.Cols()),
				slog.String("strategy", string(e.strategy)),
				slog.Int("ops", symlie.CountMatrixOps(jac)))
			out[i] = jac
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Info("tangent jacobians complete",
		slog.Int("args", len(args)),
		slog.String("strategy", string(e.strategy)),
		slog.Duration("elapsed", time.Since(start)))
	return out, nil
}
