package grpcapi

import (
	"math/big"
	"testing"

	"github.com/oriys/mqi/internal/mqierr"
	"github.com/oriys/mqi/internal/session"
	"github.com/oriys/mqi/internal/term"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestTermToValueAtom(t *testing.T) {
	v, err := termToValue(term.Atom("ok"))
	if err != nil {
		t.Fatalf("termToValue: %v", err)
	}
	st := v.GetStructValue()
	if st.Fields["kind"].GetStringValue() != "atom" || st.Fields["atom"].GetStringValue() != "ok" {
		t.Fatalf("unexpected struct: %v", st)
	}
}

func TestTermToValueInteger(t *testing.T) {
	v, err := termToValue(term.Integer(big.NewInt(42)))
	if err != nil {
		t.Fatalf("termToValue: %v", err)
	}
	st := v.GetStructValue()
	if st.Fields["value"].GetStringValue() != "42" {
		t.Fatalf("expected integer rendered as string \"42\", got %v", st.Fields["value"])
	}
}

func TestTermToValueCompound(t *testing.T) {
	v, err := termToValue(term.Compound("point", term.IntegerFromInt64(1), term.IntegerFromInt64(2)))
	if err != nil {
		t.Fatalf("termToValue: %v", err)
	}
	st := v.GetStructValue()
	if st.Fields["functor"].GetStringValue() != "point" {
		t.Fatalf("expected functor point, got %v", st.Fields["functor"])
	}
	args := st.Fields["args"].GetListValue().GetValues()
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
}

func TestSolutionsToValue(t *testing.T) {
	solutions := []session.Solution{
		{{Name: "X", Value: term.Atom("a")}},
	}
	v, err := solutionsToValue(solutions)
	if err != nil {
		t.Fatalf("solutionsToValue: %v", err)
	}
	if len(v.GetListValue().GetValues()) != 1 {
		t.Fatalf("expected 1 solution, got %v", v)
	}
}

func TestTimeoutFromStruct(t *testing.T) {
	req, _ := structpb.NewStruct(map[string]interface{}{
		"timeout_mode":    "seconds",
		"timeout_seconds": 2.5,
	})
	tm := timeoutFromStruct(req)
	if got := tm.WireString(); got != "2.5" {
		t.Fatalf("expected wire string 2.5, got %s", got)
	}
}

func TestTimeoutFromStructDefaultsToDefault(t *testing.T) {
	tm := timeoutFromStruct(nil)
	if got := tm.WireString(); got != "_" {
		t.Fatalf("expected default wire string _, got %s", got)
	}
}

func TestErrorKindOf(t *testing.T) {
	err := mqierr.New(mqierr.TimeoutExceeded, "too slow")
	if got := errorKindOf(err); got != string(mqierr.TimeoutExceeded) {
		t.Fatalf("expected %s, got %s", mqierr.TimeoutExceeded, got)
	}
	if got := errorKindOf(nil); got != "" {
		t.Fatalf("expected empty kind for nil error, got %s", got)
	}
}
