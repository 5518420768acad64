package grpcapi

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/oriys/mqi/internal/mqierr"
	"github.com/oriys/mqi/internal/session"
	"github.com/oriys/mqi/internal/term"
	"google.golang.org/protobuf/types/known/structpb"
)

// timeoutFromStruct reads a timeout out of req using the "timeout_mode"
// ("default" | "unlimited" | "seconds", default "default") and
// "timeout_seconds" fields.
func timeoutFromStruct(req *structpb.Struct) session.Timeout {
	mode := stringField(req, "timeout_mode", "default")
	switch mode {
	case "unlimited":
		return session.Unlimited()
	case "seconds":
		return session.Seconds(numberField(req, "timeout_seconds", 0))
	default:
		return session.DefaultTimeout()
	}
}

func stringField(s *structpb.Struct, key, def string) string {
	if s == nil || s.Fields == nil {
		return def
	}
	v, ok := s.Fields[key]
	if !ok {
		return def
	}
	if sv := v.GetStringValue(); sv != "" {
		return sv
	}
	return def
}

func numberField(s *structpb.Struct, key string, def float64) float64 {
	if s == nil || s.Fields == nil {
		return def
	}
	v, ok := s.Fields[key]
	if !ok {
		return def
	}
	return v.GetNumberValue()
}

func boolField(s *structpb.Struct, key string, def bool) bool {
	if s == nil || s.Fields == nil {
		return def
	}
	v, ok := s.Fields[key]
	if !ok {
		return def
	}
	return v.GetBoolValue()
}

func intField(s *structpb.Struct, key string, def int) int {
	return int(numberField(s, key, float64(def)))
}

// termToValue renders a term.Term as a tagged structpb.Value so that it
// survives the protobuf wire without losing the Kind discriminant that a
// plain JSON round-trip through structpb.Value would otherwise collapse
// (e.g. an Atom and a String both becoming a bare string).
func termToValue(t term.Term) (*structpb.Value, error) {
	fields := map[string]interface{}{"kind": t.Kind.String()}
	switch t.Kind {
	case term.KindAtom:
		name, _ := t.AsAtom()
		fields["atom"] = name
	case term.KindInteger:
		v, _ := t.AsInteger()
		if v == nil {
			v = big.NewInt(0)
		}
		fields["value"] = v.String()
	case term.KindFloat:
		v, _ := t.AsFloat()
		fields["value"] = v
	case term.KindString:
		v, _ := t.AsString()
		fields["value"] = v
	case term.KindVariable:
		name, _ := t.AsVariable()
		fields["name"] = name
	case term.KindList:
		items, _ := t.AsList()
		encoded := make([]interface{}, 0, len(items))
		for _, it := range items {
			v, err := termToValue(it)
			if err != nil {
				return nil, err
			}
			encoded = append(encoded, v.AsInterface())
		}
		fields["items"] = encoded
	case term.KindCompound:
		fields["functor"] = t.Functor()
		args := t.Args()
		encoded := make([]interface{}, 0, len(args))
		for _, a := range args {
			v, err := termToValue(a)
			if err != nil {
				return nil, err
			}
			encoded = append(encoded, v.AsInterface())
		}
		fields["args"] = encoded
	default:
		return nil, fmt.Errorf("grpcapi: unknown term kind %v", t.Kind)
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return structpb.NewStructValue(st), nil
}

func solutionsToValue(solutions []session.Solution) (*structpb.Value, error) {
	encoded := make([]interface{}, 0, len(solutions))
	for _, sol := range solutions {
		bindings := make([]interface{}, 0, len(sol))
		for _, b := range sol {
			v, err := termToValue(b.Value)
			if err != nil {
				return nil, err
			}
			bv, err := structpb.NewStruct(map[string]interface{}{
				"name":  b.Name,
				"value": v.AsInterface(),
			})
			if err != nil {
				return nil, err
			}
			bindings = append(bindings, structpb.NewStructValue(bv).AsInterface())
		}
		encoded = append(encoded, bindings)
	}
	return structpb.NewValue(encoded)
}

// errorKindOf extracts the wire-visible error kind string from err, for
// populating an RPC response's error_kind field instead of collapsing
// every failure into the generic gRPC status.
func errorKindOf(err error) string {
	var e *mqierr.Error
	if !errors.As(err, &e) {
		return ""
	}
	return string(e.Kind)
}
