// Package scenario is the registry of named Jacobian problems shared by the CLI and the MCP
// server.
package scenario

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/njchilds90/symlie/geo"
	"github.com/njchilds90/symlie/ops"
)

// Scenario is an expression together with the symbolic elements it is differentiated by.
type Scenario struct {
	Name        string
	Description string
	Expr        ops.Manifold
	Args        []ops.Manifold
}

// Groups returns Args as the engine's argument type.
func (s Scenario) Groups() []ops.LieGroup {
	out := make([]ops.LieGroup, len(s.Args))
	for i, a := range s.Args {
		out[i] = a
	}
	return out
}

// ArgTypes lists the Go type of each argument, e.g. "geo.Rot3".
func (s Scenario) ArgTypes() []string {
	out := make([]string, len(s.Args))
	for i, a := range s.Args {
		out[i] = fmt.Sprintf("%T", a)
	}
	return out
}

// RandomPoint binds every argument to a random valid value: unit quaternions and unit complex
// numbers for rotations, standard normal entries for vector spaces.
func (s Scenario) RandomPoint(rng *rand.Rand) (map[string]float64, error) {
	env := make(map[string]float64)
	for i, a := range s.Args {
		if err := ops.Bind(env, a, RandomValues(rng, a)); err != nil {
			return nil, fmt.Errorf("scenario %s arg %d: %w", s.Name, i, err)
		}
	}
	return env, nil
}

// RandomValues returns storage values for a valid element of e's type.
func RandomValues(rng *rand.Rand, e ops.Storage) []float64 {
	switch e.(type) {
	case geo.Rot3:
		return randomQuat(rng)
	case geo.Rot2:
		a := rng.Float64()*2*math.Pi - math.Pi
		return []float64{math.Cos(a), math.Sin(a)}
	case geo.Pose3:
		return append(randomQuat(rng), rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
	}
	out := make([]float64, e.StorageDim())
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}

func randomQuat(rng *rand.Rand) []float64 {
	q := []float64{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
	n := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	for i := range q {
		q[i] /= n
	}
	return q
}

type builder func() Scenario

var registry = map[string]builder{
	"rot3_compose": func() Scenario {
		r0, r1 := geo.SymbolicRot3("R0"), geo.SymbolicRot3("R1")
		return Scenario{Description: "R2 = R0 * R1", Expr: r0.Compose(r1), Args: []ops.Manifold{r0, r1}}
	},
	"rot3_inverse": func() Scenario {
		r := geo.SymbolicRot3("R")
		return Scenario{Description: "R^-1", Expr: r.Inverse(), Args: []ops.Manifold{r}}
	},
	"rot3_rotate_point": func() Scenario {
		r, p := geo.SymbolicRot3("R"), geo.SymbolicVector("p", 3)
		return Scenario{Description: "R * p", Expr: r.Rotate(p), Args: []ops.Manifold{r, p}}
	},
	"rot2_compose": func() Scenario {
		a, b := geo.SymbolicRot2("a"), geo.SymbolicRot2("b")
		return Scenario{Description: "a * b in SO(2)", Expr: a.Compose(b), Args: []ops.Manifold{a, b}}
	},
	"pose3_compose": func() Scenario {
		a, b := geo.SymbolicPose3("A"), geo.SymbolicPose3("B")
		return Scenario{Description: "A * B in SE(3)", Expr: a.Compose(b), Args: []ops.Manifold{a, b}}
	},
	"pose3_transform_point": func() Scenario {
		t, p := geo.SymbolicPose3("T"), geo.SymbolicVector("p", 3)
		return Scenario{Description: "T * p", Expr: t.TransformPoint(p), Args: []ops.Manifold{t, p}}
	},
	"pose3_between": func() Scenario {
		a, b := geo.SymbolicPose3("A"), geo.SymbolicPose3("B")
		return Scenario{Description: "A^-1 * B", Expr: a.Between(b), Args: []ops.Manifold{a, b}}
	},
	"scalar_product": func() Scenario {
		s, u := geo.SymbolicScalar("s"), geo.SymbolicScalar("u")
		return Scenario{Description: "s * u", Expr: s.Mul(u), Args: []ops.Manifold{s, u}}
	},
}

// Names returns the registered scenario names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup builds the named scenario. Every call returns freshly built elements.
func Lookup(name string) (Scenario, error) {
	build, ok := registry[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario %q", name)
	}
	s := build()
	s.Name = name
	return s, nil
}

// All builds every registered scenario, sorted by name.
func All() []Scenario {
	names := Names()
	out := make([]Scenario, len(names))
	for i, name := range names {
		out[i], _ = Lookup(name)
	}
	return out
}
