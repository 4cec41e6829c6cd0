// Package ops defines the capabilities the tangent Jacobian engine needs from a manifold
// element, and the generic helpers built on top of them.
//
// An element is anything that can be flattened into a storage vector of expressions and
// rebuilt from one. Lie-group elements additionally report their tangent dimension and the
// local linearizations between storage and tangent space. Concrete element types live in
// the geo package; nothing here depends on them.
package ops

import (
	"fmt"

	"github.com/njchilds90/symlie"
)

// Storage converts an element to and from its flat storage vector.
type Storage interface {
	StorageDim() int
	// ToStorage returns the storage entries in the element's fixed order.
	ToStorage() []symlie.Expr
	// FromStorage builds an element of the receiver's shape from vec. The receiver only
	// serves as a template; its own entries are ignored.
	FromStorage(vec []symlie.Expr) Storage
}

// LieGroup adds the tangent space and its local linearizations at the element.
type LieGroup interface {
	Storage
	TangentDim() int
	// StorageDTangent is the storage_dim × tangent_dim derivative of the storage of
	// Retract(element, v) with respect to v at v = 0.
	StorageDTangent(epsilon symlie.Expr) *symlie.Matrix
	// TangentDStorage is the tangent_dim × storage_dim derivative of
	// LocalCoordinates(element, b) with respect to the storage of b at b = element.
	TangentDStorage(epsilon symlie.Expr) *symlie.Matrix
}

// Manifold is a LieGroup with its retraction and local coordinate charts. Only numerical
// verification needs the charts themselves; the engine works from the linearizations.
type Manifold interface {
	LieGroup
	Retract(vec []symlie.Expr, epsilon symlie.Expr) Manifold
	// LocalCoordinates returns the tangent vector taking the receiver to b. b must have
	// the receiver's concrete type.
	LocalCoordinates(b Manifold, epsilon symlie.Expr) []symlie.Expr
}

func checkSameShape(old, new Storage) {
	if old.StorageDim() != new.StorageDim() {
		panic(fmt.Sprintf("ops: substitution between storage dims %d and %d", old.StorageDim(), new.StorageDim()))
	}
}

// Subs substitutes the storage entries of old by those of new inside every storage entry
// of e. Pairs are applied one entry at a time, so a later pair may rewrite what an earlier
// pair inserted.
func Subs[T Storage](e T, old, new Storage) T {
	checkSameShape(old, new)
	vec := symlie.SubsVector(e.ToStorage(), old.ToStorage(), new.ToStorage())
	return FromStorage(e, vec)
}

// SubsExpr is Subs for a bare expression.
func SubsExpr(e symlie.Expr, old, new Storage) symlie.Expr {
	checkSameShape(old, new)
	return symlie.SubsAll(e, old.ToStorage(), new.ToStorage())
}

// SubsMatrix is Subs applied to every entry of m.
func SubsMatrix(m *symlie.Matrix, old, new Storage) *symlie.Matrix {
	checkSameShape(old, new)
	olds, news := old.ToStorage(), new.ToStorage()
	return m.Map(func(e symlie.Expr) symlie.Expr { return symlie.SubsAll(e, olds, news) })
}

// FromStorage rebuilds an element of template's concrete type from vec.
func FromStorage[T Storage](template T, vec []symlie.Expr) T {
	if len(vec) != template.StorageDim() {
		panic(fmt.Sprintf("ops: FromStorage needs %d entries, got %d", template.StorageDim(), len(vec)))
	}
	out, ok := template.FromStorage(vec).(T)
	if !ok {
		panic(fmt.Sprintf("ops: %T.FromStorage returned a different type", template))
	}
	return out
}

// Symbolic returns an element shaped like template whose storage entries are the fresh
// symbols prefix0, prefix1, ….
func Symbolic[T Storage](template T, prefix string) T {
	return FromStorage(template, symlie.SymbolicVector(prefix, template.StorageDim()))
}

// StorageColumn returns the storage of e as a column vector.
func StorageColumn(e Storage) *symlie.Matrix { return symlie.ColumnVector(e.ToStorage()) }

// Evaluate returns the numeric storage of e.
func Evaluate(e Storage, env map[string]float64) ([]float64, error) {
	return symlie.EvalVector(e.ToStorage(), env)
}

// Bind adds the numeric storage values to env under the names of e's storage symbols.
// Every storage entry of e must be a symbol.
func Bind(env map[string]float64, e Storage, values []float64) error {
	names, err := symlie.SymbolNames(e.ToStorage())
	if err != nil {
		return err
	}
	if len(values) != len(names) {
		return fmt.Errorf("ops: element has %d storage entries, got %d values", len(names), len(values))
	}
	for i, name := range names {
		env[name] = values[i]
	}
	return nil
}
