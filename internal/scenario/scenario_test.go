package scenario_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symlie/geo"
	"github.com/njchilds90/symlie/internal/scenario"
	"github.com/njchilds90/symlie/ops"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{
		"pose3_between",
		"pose3_compose",
		"pose3_transform_point",
		"rot2_compose",
		"rot3_compose",
		"rot3_inverse",
		"rot3_rotate_point",
		"scalar_product",
	}, scenario.Names())
}

func TestLookup(t *testing.T) {
	s, err := scenario.Lookup("rot3_compose")
	require.NoError(t, err)
	assert.Equal(t, "rot3_compose", s.Name)
	assert.Equal(t, []string{"geo.Rot3", "geo.Rot3"}, s.ArgTypes())
	assert.Len(t, s.Groups(), 2)
	assert.Equal(t, 3, s.Expr.TangentDim())

	_, err = scenario.Lookup("rot4_compose")
	assert.ErrorContains(t, err, `unknown scenario "rot4_compose"`)
}

func TestRandomPoint(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	for _, s := range scenario.All() {
		t.Run(s.Name, func(t *testing.T) {
			env, err := s.RandomPoint(rng)
			require.NoError(t, err)

			// Every free symbol of the expression is bound.
			_, err = ops.Evaluate(s.Expr, env)
			require.NoError(t, err)

			for _, arg := range s.Args {
				values, err := ops.Evaluate(arg, env)
				require.NoError(t, err)
				switch arg.(type) {
				case geo.Rot3, geo.Pose3:
					n := math.Sqrt(values[0]*values[0] + values[1]*values[1] + values[2]*values[2] + values[3]*values[3])
					assert.InDelta(t, 1, n, 1e-12)
				case geo.Rot2:
					assert.InDelta(t, 1, math.Hypot(values[0], values[1]), 1e-12)
				}
			}
		})
	}
}
