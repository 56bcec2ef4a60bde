package slh

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// ============================================================
// JSON Serialization
// ============================================================
//
// The JSON tree is a read-only view for diagram and inspection
// tooling: export never re-simplifies and import always runs through
// the simplifying constructors.

func ExprToJSON(e Expr) (string, error) {
	b, err := json.Marshal(e.toJSON())
	return string(b), err
}

func OpToJSON(op Op) (string, error) {
	b, err := json.Marshal(op.toJSON())
	return string(b), err
}

func CircuitToJSON(c Circuit) (string, error) {
	b, err := json.Marshal(c.toJSON())
	return string(b), err
}

func ExprFromJSON(data map[string]interface{}) (Expr, error) {
	if data == nil {
		return nil, fmt.Errorf("expression must be an object")
	}
	typAny, ok := data["type"]
	if !ok {
		return nil, fmt.Errorf("missing 'type' field")
	}
	typ, ok := typAny.(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("field 'type' must be a non-empty string")
	}

	subObj := func(field string) (map[string]interface{}, error) {
		v, ok := data[field]
		if !ok {
			return nil, fmt.Errorf("%s: missing %q", typ, field)
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an object", typ, field)
		}
		return m, nil
	}

	subList := func(field string) ([]Expr, error) {
		v, ok := data[field]
		if !ok {
			return nil, fmt.Errorf("%s: missing %q", typ, field)
		}
		raw, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an array", typ, field)
		}
		out := make([]Expr, len(raw))
		for i, it := range raw {
			m, ok := it.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%s: %q[%d] must be an object", typ, field, i)
			}
			e, err := ExprFromJSON(m)
			if err != nil {
				return nil, fmt.Errorf("%s: %q[%d]: %w", typ, field, i, err)
			}
			out[i] = e
		}
		return out, nil
	}

	subString := func(field string) (string, error) {
		v, ok := data[field]
		if !ok {
			return "", fmt.Errorf("%s: missing %q", typ, field)
		}
		s, ok := v.(string)
		if !ok || s == "" {
			return "", fmt.Errorf("%s: %q must be a non-empty string", typ, field)
		}
		return s, nil
	}

	switch typ {
	case "num":
		reStr, err := subString("re")
		if err != nil {
			return nil, err
		}
		imStr, err := subString("im")
		if err != nil {
			return nil, err
		}
		re := new(big.Rat)
		if _, ok := re.SetString(reStr); !ok {
			return nil, fmt.Errorf("invalid num re: %s", reStr)
		}
		im := new(big.Rat)
		if _, ok := im.SetString(imStr); !ok {
			return nil, fmt.Errorf("invalid num im: %s", imStr)
		}
		return newNum(re, im), nil

	case "sym":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		return S(name), nil

	case "wild":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		return W(name), nil

	case "add":
		terms, err := subList("terms")
		if err != nil {
			return nil, err
		}
		return AddOf(terms...), nil

	case "mul":
		factors, err := subList("factors")
		if err != nil {
			return nil, err
		}
		return MulOf(factors...), nil

	case "pow":
		baseM, err := subObj("base")
		if err != nil {
			return nil, err
		}
		expM, err := subObj("exp")
		if err != nil {
			return nil, err
		}
		base, err := ExprFromJSON(baseM)
		if err != nil {
			return nil, fmt.Errorf("pow: base: %w", err)
		}
		exp, err := ExprFromJSON(expM)
		if err != nil {
			return nil, fmt.Errorf("pow: exp: %w", err)
		}
		return PowOf(base, exp), nil

	case "conj":
		argM, err := subObj("arg")
		if err != nil {
			return nil, err
		}
		arg, err := ExprFromJSON(argM)
		if err != nil {
			return nil, fmt.Errorf("conj: arg: %w", err)
		}
		return ConjOf(arg), nil

	case "func":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		argM, err := subObj("arg")
		if err != nil {
			return nil, err
		}
		arg, err := ExprFromJSON(argM)
		if err != nil {
			return nil, fmt.Errorf("func: arg: %w", err)
		}
		return funcOf(name, arg).Simplify(), nil
	}
	return nil, fmt.Errorf("unknown expression type: %s", typ)
}

// parseScalar accepts a rational literal ("3", "1/2") or a parameter
// name ("kappa").
func parseScalar(s string) Expr {
	r := new(big.Rat)
	if _, ok := r.SetString(s); ok {
		return newNum(r, new(big.Rat))
	}
	return S(s)
}

// CircuitFromJSON builds a circuit from a netlist object. Leaves are
// the component library; interior nodes are the four compositions.
func CircuitFromJSON(data map[string]interface{}) (Circuit, error) {
	if data == nil {
		return nil, fmt.Errorf("circuit must be an object")
	}
	typAny, ok := data["type"]
	if !ok {
		return nil, fmt.Errorf("missing 'type' field")
	}
	typ, ok := typAny.(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("field 'type' must be a non-empty string")
	}

	scalarField := func(field string) (Expr, error) {
		v, ok := data[field]
		if !ok {
			return nil, fmt.Errorf("%s: missing %q", typ, field)
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s: %q must be a string", typ, field)
		}
		return parseScalar(s), nil
	}

	intField := func(field string) (int, error) {
		v, ok := data[field]
		if !ok {
			return 0, fmt.Errorf("%s: missing %q", typ, field)
		}
		n, ok := v.(float64)
		if !ok {
			return 0, fmt.Errorf("%s: %q must be a number", typ, field)
		}
		return int(n), nil
	}

	operandsField := func() ([]Circuit, error) {
		v, ok := data["operands"]
		if !ok {
			return nil, fmt.Errorf("%s: missing \"operands\"", typ)
		}
		raw, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: \"operands\" must be an array", typ)
		}
		out := make([]Circuit, len(raw))
		for i, it := range raw {
			m, ok := it.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%s: operands[%d] must be an object", typ, i)
			}
			c, err := CircuitFromJSON(m)
			if err != nil {
				return nil, fmt.Errorf("%s: operands[%d]: %w", typ, i, err)
			}
			out[i] = c
		}
		return out, nil
	}

	switch typ {
	case "beamsplitter":
		r, err := scalarField("r")
		if err != nil {
			return nil, err
		}
		return Beamsplitter(r), nil

	case "phaseshifter":
		phi, err := scalarField("phi")
		if err != nil {
			return nil, err
		}
		return PhaseShifter(phi), nil

	case "cavity":
		label, okL := data["mode"].(string)
		if !okL || label == "" {
			return nil, fmt.Errorf("cavity: \"mode\" must be a non-empty string")
		}
		kappa, err := scalarField("kappa")
		if err != nil {
			return nil, err
		}
		delta, err := scalarField("delta")
		if err != nil {
			return nil, err
		}
		return Cavity(label, kappa, delta), nil

	case "cid":
		n, err := intField("n")
		if err != nil {
			return nil, err
		}
		if n < 1 {
			return nil, fmt.Errorf("cid: n must be positive")
		}
		return CIdentity(n), nil

	case "displace":
		alpha, err := scalarField("alpha")
		if err != nil {
			return nil, err
		}
		return Displace(alpha), nil

	case "series":
		ops, err := operandsField()
		if err != nil {
			return nil, err
		}
		return Series(ops...)

	case "concat":
		ops, err := operandsField()
		if err != nil {
			return nil, err
		}
		return Concat(ops...)

	case "perm":
		v, ok := data["image"]
		if !ok {
			return nil, fmt.Errorf("perm: missing \"image\"")
		}
		raw, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("perm: \"image\" must be an array")
		}
		image := make([]int, len(raw))
		for i, it := range raw {
			f, ok := it.(float64)
			if !ok {
				return nil, fmt.Errorf("perm: image[%d] must be a number", i)
			}
			image[i] = int(f)
		}
		p, err := NewPermutation(image...)
		if err != nil {
			return nil, err
		}
		return PermutationCircuit(p), nil

	case "symbol":
		name, ok := data["name"].(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("symbol: \"name\" must be a non-empty string")
		}
		n, err := intField("channels")
		if err != nil {
			return nil, err
		}
		return NewCircuitSymbol(name, n)

	case "feedback":
		innerAny, ok := data["inner"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("feedback: \"inner\" must be an object")
		}
		inner, err := CircuitFromJSON(innerAny)
		if err != nil {
			return nil, fmt.Errorf("feedback: inner: %w", err)
		}
		out, err := intField("out")
		if err != nil {
			return nil, err
		}
		in, err := intField("in")
		if err != nil {
			return nil, err
		}
		return FeedbackOf(inner, out, in)
	}
	return nil, fmt.Errorf("unknown circuit type: %s", typ)
}
