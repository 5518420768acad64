package term

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Decode parses the engine's JSON answer payload (spec.md §4.B) into a
// normalized Term tree.
func Decode(data []byte) (Term, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Term{}, fmt.Errorf("decode term json: %w", err)
	}
	return convert(raw)
}

func convert(v interface{}) (Term, error) {
	switch x := v.(type) {
	case nil:
		return Term{}, fmt.Errorf("term: unexpected JSON null")
	case string:
		if x == "[]" {
			return List(nil), nil
		}
		return Atom(x), nil
	case json.Number:
		return convertNumber(x)
	case []interface{}:
		if len(x) == 0 {
			return List(nil), nil
		}
		items := make([]Term, 0, len(x))
		for _, e := range x {
			elem, err := convert(e)
			if err != nil {
				return Term{}, err
			}
			items = append(items, elem)
		}
		return List(items), nil
	case map[string]interface{}:
		return convertObject(x)
	default:
		return Term{}, fmt.Errorf("term: unsupported JSON value %T", v)
	}
}

func convertNumber(n json.Number) (Term, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		i, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return Term{}, fmt.Errorf("term: malformed integer literal %q", s)
		}
		return Integer(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Term{}, fmt.Errorf("term: malformed float literal %q: %w", s, err)
	}
	return Float(f), nil
}

func convertObject(obj map[string]interface{}) (Term, error) {
	functorRaw, hasFunctor := obj["functor"]
	argsRaw, hasArgs := obj["args"]
	if !hasFunctor || !hasArgs {
		return Term{}, fmt.Errorf("term: compound object missing functor/args keys")
	}
	functor, ok := functorRaw.(string)
	if !ok {
		return Term{}, fmt.Errorf("term: compound functor is not a string")
	}
	argList, ok := argsRaw.([]interface{})
	if !ok {
		return Term{}, fmt.Errorf("term: compound args is not an array")
	}

	switch functor {
	case "variable":
		if len(argList) != 1 {
			return Term{}, fmt.Errorf("term: variable compound expects exactly 1 arg, got %d", len(argList))
		}
		name, ok := argList[0].(string)
		if !ok {
			return Term{}, fmt.Errorf("term: variable name is not a string")
		}
		return Variable(name), nil
	case "string":
		if len(argList) != 1 {
			return Term{}, fmt.Errorf("term: string compound expects exactly 1 arg, got %d", len(argList))
		}
		s, ok := argList[0].(string)
		if !ok {
			return Term{}, fmt.Errorf("term: string payload is not a string")
		}
		return String(s), nil
	}

	args := make([]Term, 0, len(argList))
	for _, a := range argList {
		arg, err := convert(a)
		if err != nil {
			return Term{}, err
		}
		args = append(args, arg)
	}
	return Compound(functor, args...), nil
}

// Encode renders a Term back into the canonical JSON wire shape. It is the
// inverse of Decode and is used for the decode→encode→decode round-trip
// property (spec.md §8 invariant 6) and by any component that needs to
// re-serialize a term (e.g. logging a query goal built programmatically).
func Encode(t Term) (json.RawMessage, error) {
	v, err := encodeValue(t)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func encodeValue(t Term) (interface{}, error) {
	switch t.Kind {
	case KindAtom:
		return t.atom, nil
	case KindInteger:
		if t.integer == nil {
			return json.Number("0"), nil
		}
		return json.Number(t.integer.String()), nil
	case KindFloat:
		return json.Number(formatFloat(t.float)), nil
	case KindString:
		return map[string]interface{}{
			"functor": "string",
			"args":    []interface{}{t.str},
		}, nil
	case KindList:
		items := make([]interface{}, 0, len(t.list))
		for _, e := range t.list {
			v, err := encodeValue(e)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case KindCompound:
		args := make([]interface{}, 0, len(t.args))
		for _, a := range t.args {
			v, err := encodeValue(a)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		return map[string]interface{}{
			"functor": t.functor,
			"args":    args,
		}, nil
	case KindVariable:
		return map[string]interface{}{
			"functor": "variable",
			"args":    []interface{}{t.varName},
		}, nil
	default:
		return nil, fmt.Errorf("term: cannot encode invalid term")
	}
}

// formatFloat ensures the rendered number always carries a '.' or exponent
// so that re-decoding it takes the Float branch rather than Integer.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
