package symlie

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// ============================================================
// JSON Serialization
// ============================================================

// ToJSON renders e as a JSON document of nested {"type": ...} objects.
func ToJSON(e Expr) (string, error) {
	b, err := json.Marshal(e.toJSON())
	return string(b), err
}

// JSONValue returns the object tree ToJSON would marshal.
func JSONValue(e Expr) map[string]interface{} { return e.toJSON() }

// MatrixJSONValue renders m as rows of expression objects.
func MatrixJSONValue(m *Matrix) [][]map[string]interface{} {
	out := make([][]map[string]interface{}, m.rows)
	for i := range out {
		out[i] = listJSON(m.data[i])
	}
	return out
}

// jsonObject is one decoded expression object with typed field accessors.
type jsonObject struct {
	typ  string
	data map[string]interface{}
}

func (o jsonObject) object(field string) (map[string]interface{}, error) {
	v, ok := o.data[field]
	if !ok {
		return nil, fmt.Errorf("%s: missing %q", o.typ, field)
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: %q must be an object", o.typ, field)
	}
	return m, nil
}

func (o jsonObject) str(field string) (string, error) {
	v, ok := o.data[field]
	if !ok {
		return "", fmt.Errorf("%s: missing %q", o.typ, field)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%s: %q must be a non-empty string", o.typ, field)
	}
	return s, nil
}

func (o jsonObject) child(field string) (Expr, error) {
	m, err := o.object(field)
	if err != nil {
		return nil, err
	}
	e, err := FromJSON(m)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", o.typ, field, err)
	}
	return e, nil
}

func (o jsonObject) children(field string) ([]Expr, error) {
	v, ok := o.data[field]
	if !ok {
		return nil, fmt.Errorf("%s: missing %q", o.typ, field)
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: %q must be an array", o.typ, field)
	}
	out := make([]Expr, len(raw))
	for i, it := range raw {
		m, ok := it.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q[%d] must be an object", o.typ, field, i)
		}
		e, err := FromJSON(m)
		if err != nil {
			return nil, fmt.Errorf("%s: %s[%d]: %w", o.typ, field, i, err)
		}
		out[i] = e
	}
	return out, nil
}

var jsonDecoders map[string]func(jsonObject) (Expr, error)

func init() {
	jsonDecoders = map[string]func(jsonObject) (Expr, error){
		"num": func(o jsonObject) (Expr, error) {
			val, err := o.str("value")
			if err != nil {
				return nil, err
			}
			r, ok := new(big.Rat).SetString(val)
			if !ok {
				return nil, fmt.Errorf("invalid num value: %s", val)
			}
			return &Num{val: r}, nil
		},
		"sym": func(o jsonObject) (Expr, error) {
			name, err := o.str("name")
			if err != nil {
				return nil, err
			}
			return S(name), nil
		},
		"add": func(o jsonObject) (Expr, error) {
			terms, err := o.children("terms")
			if err != nil {
				return nil, err
			}
			return AddOf(terms...), nil
		},
		"mul": func(o jsonObject) (Expr, error) {
			factors, err := o.children("factors")
			if err != nil {
				return nil, err
			}
			return MulOf(factors...), nil
		},
		"pow": func(o jsonObject) (Expr, error) {
			base, err := o.child("base")
			if err != nil {
				return nil, err
			}
			exp, err := o.child("exp")
			if err != nil {
				return nil, err
			}
			return PowOf(base, exp), nil
		},
		"func": func(o jsonObject) (Expr, error) {
			name, err := o.str("name")
			if err != nil {
				return nil, err
			}
			arg, err := o.child("arg")
			if err != nil {
				return nil, err
			}
			return FuncOf(name, arg), nil
		},
	}
}

// FromJSON decodes an expression object produced by ToJSON (after json.Unmarshal into
// map[string]interface{}).
func FromJSON(data map[string]interface{}) (Expr, error) {
	if data == nil {
		return nil, fmt.Errorf("expression must be an object")
	}
	typ, ok := data["type"].(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("field 'type' must be a non-empty string")
	}
	decode, ok := jsonDecoders[typ]
	if !ok {
		return nil, fmt.Errorf("unknown expression type: %s", typ)
	}
	return decode(jsonObject{typ: typ, data: data})
}

// ParseJSON is FromJSON over raw bytes.
func ParseJSON(raw []byte) (Expr, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode expression: %w", err)
	}
	return FromJSON(data)
}
