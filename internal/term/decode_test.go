package term

import (
	"math/big"
	"testing"
)

func TestDecode_Atom(t *testing.T) {
	tm, err := Decode([]byte(`"hello"`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if name, ok := tm.AsAtom(); !ok || name != "hello" {
		t.Fatalf("expected atom %q, got %v", "hello", tm)
	}
}

func TestDecode_EmptyListAtomNormalized(t *testing.T) {
	tm, err := Decode([]byte(`"[]"`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !tm.IsList() {
		t.Fatalf("expected atom \"[]\" to normalize to List, got %v", tm)
	}
	items, _ := tm.AsList()
	if len(items) != 0 {
		t.Fatalf("expected empty list, got %d items", len(items))
	}
}

func TestDecode_EmptyArray(t *testing.T) {
	tm, err := Decode([]byte(`[]`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !tm.IsList() {
		t.Fatalf("expected List, got %v", tm)
	}
}

func TestDecode_Integer(t *testing.T) {
	tm, err := Decode([]byte(`42`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	i, ok := tm.AsInt64()
	if !ok || i != 42 {
		t.Fatalf("expected integer 42, got %v", tm)
	}
}

func TestDecode_BigInteger(t *testing.T) {
	tm, err := Decode([]byte(`123456789012345678901234567890`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	got, ok := tm.AsInteger()
	if !ok {
		t.Fatalf("expected integer term, got %v", tm)
	}
	want, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	if got.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestDecode_Float(t *testing.T) {
	tm, err := Decode([]byte(`3.14`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	f, ok := tm.AsFloat()
	if !ok || f != 3.14 {
		t.Fatalf("expected float 3.14, got %v", tm)
	}
}

func TestDecode_List(t *testing.T) {
	tm, err := Decode([]byte(`[1, 2, "a"]`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	items, ok := tm.AsList()
	if !ok || len(items) != 3 {
		t.Fatalf("expected list of 3, got %v", tm)
	}
	if n, _ := items[0].AsInt64(); n != 1 {
		t.Fatalf("expected first element 1, got %v", items[0])
	}
	if name, _ := items[2].AsAtom(); name != "a" {
		t.Fatalf("expected third element atom a, got %v", items[2])
	}
}

func TestDecode_Compound(t *testing.T) {
	tm, err := Decode([]byte(`{"functor":"point","args":[1,2]}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !tm.IsCompoundNamed("point", 2) {
		t.Fatalf("expected compound point/2, got %v", tm)
	}
}

func TestDecode_Variable(t *testing.T) {
	tm, err := Decode([]byte(`{"functor":"variable","args":["X"]}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	name, ok := tm.AsVariable()
	if !ok || name != "X" {
		t.Fatalf("expected variable X, got %v", tm)
	}
}

func TestDecode_BindingCompound(t *testing.T) {
	tm, err := Decode([]byte(`{"functor":"=","args":[{"functor":"variable","args":["X"]},1]}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !tm.IsCompoundNamed("=", 2) {
		t.Fatalf("expected binding compound =/2, got %v", tm)
	}
	lhs, _ := tm.Arg(0)
	if name, ok := lhs.AsVariable(); !ok || name != "X" {
		t.Fatalf("expected lhs variable X, got %v", lhs)
	}
}

func TestDecode_StringCompound(t *testing.T) {
	tm, err := Decode([]byte(`{"functor":"string","args":["hi"]}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	s, ok := tm.AsString()
	if !ok || s != "hi" {
		t.Fatalf("expected string \"hi\", got %v", tm)
	}
}

func TestDecode_MalformedCompound(t *testing.T) {
	if _, err := Decode([]byte(`{"functor":"x"}`)); err == nil {
		t.Fatalf("expected error for compound missing args")
	}
}

func TestRoundTrip(t *testing.T) {
	corpus := []Term{
		Atom("member"),
		IntegerFromInt64(-7),
		Float(2.5),
		String("hi there"),
		List(nil),
		List([]Term{IntegerFromInt64(1), IntegerFromInt64(2), IntegerFromInt64(3)}),
		Compound("point", IntegerFromInt64(1), IntegerFromInt64(2)),
		Variable("X"),
		Compound("=", Variable("X"), Atom("a")),
		List([]Term{Compound("=", Variable("X"), IntegerFromInt64(1)), Compound("=", Variable("Y"), List(nil))}),
	}
	for _, original := range corpus {
		encoded, err := Encode(original)
		if err != nil {
			t.Fatalf("Encode(%v) failed: %v", original, err)
		}
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%s) failed: %v", encoded, err)
		}
		if !Equal(original, decoded) {
			t.Fatalf("round trip mismatch: %v != %v (via %s)", original, decoded, encoded)
		}
	}
}
