// Package term implements the answer-term deserializer (spec component B):
// it turns the engine's JSON answer payload into a tagged Term tree that the
// rest of the client can pattern-match on.
package term

import (
	"fmt"
	"math/big"
)

// Kind identifies which variant of the tagged Term union a value holds.
type Kind int

const (
	KindAtom Kind = iota
	KindInteger
	KindFloat
	KindString
	KindList
	KindCompound
	KindVariable
)

func (k Kind) String() string {
	switch k {
	case KindAtom:
		return "atom"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindCompound:
		return "compound"
	case KindVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// Term is the recursive tagged representation from spec.md §3: atoms,
// arbitrary-precision integers, floats, strings, lists, compounds and
// variables. Only the fields relevant to Kind are populated.
type Term struct {
	Kind    Kind
	atom    string
	integer *big.Int
	float   float64
	str     string
	list    []Term
	functor string
	args    []Term
	varName string
}

// Atom builds an Atom term. The empty-list atom "[]" is normalized to
// List(nil) per spec.md §3/§4.B — callers should use List(nil) directly;
// Atom itself does not perform the normalization so that round-tripping
// through Decode/Encode stays predictable for callers who already hold a
// normalized tree.
func Atom(name string) Term { return Term{Kind: KindAtom, atom: name} }

// Integer builds an arbitrary-precision Integer term.
func Integer(v *big.Int) Term { return Term{Kind: KindInteger, integer: v} }

// IntegerFromInt64 is a convenience constructor for small integers.
func IntegerFromInt64(v int64) Term { return Integer(big.NewInt(v)) }

// Float builds a Float term.
func Float(v float64) Term { return Term{Kind: KindFloat, float: v} }

// String builds a String term (distinct from Atom; see spec.md §3).
func String(v string) Term { return Term{Kind: KindString, str: v} }

// List builds a List term from an ordered sequence of elements. A nil or
// empty slice is the normalized empty list.
func List(items []Term) Term {
	if len(items) == 0 {
		return Term{Kind: KindList, list: nil}
	}
	return Term{Kind: KindList, list: items}
}

// Compound builds a Compound{functor, args} term.
func Compound(functor string, args ...Term) Term {
	return Term{Kind: KindCompound, functor: functor, args: args}
}

// Variable builds a Variable(name) term.
func Variable(name string) Term { return Term{Kind: KindVariable, varName: name} }

// IsAtom reports whether t is an Atom.
func (t Term) IsAtom() bool { return t.Kind == KindAtom }

// AsAtom returns the atom's name, or ("", false) if t is not an Atom.
func (t Term) AsAtom() (string, bool) {
	if t.Kind != KindAtom {
		return "", false
	}
	return t.atom, true
}

// IsInteger reports whether t is an Integer.
func (t Term) IsInteger() bool { return t.Kind == KindInteger }

// AsInteger returns the big.Int value, or (nil, false) if t is not an Integer.
func (t Term) AsInteger() (*big.Int, bool) {
	if t.Kind != KindInteger {
		return nil, false
	}
	return t.integer, true
}

// AsInt64 is a convenience accessor for integers that fit in an int64.
func (t Term) AsInt64() (int64, bool) {
	if t.Kind != KindInteger || t.integer == nil || !t.integer.IsInt64() {
		return 0, false
	}
	return t.integer.Int64(), true
}

// IsFloat reports whether t is a Float.
func (t Term) IsFloat() bool { return t.Kind == KindFloat }

// AsFloat returns the float64 value, or (0, false) if t is not a Float.
func (t Term) AsFloat() (float64, bool) {
	if t.Kind != KindFloat {
		return 0, false
	}
	return t.float, true
}

// IsString reports whether t is a String.
func (t Term) IsString() bool { return t.Kind == KindString }

// AsString returns the string value, or ("", false) if t is not a String.
func (t Term) AsString() (string, bool) {
	if t.Kind != KindString {
		return "", false
	}
	return t.str, true
}

// IsList reports whether t is a List.
func (t Term) IsList() bool { return t.Kind == KindList }

// AsList returns the ordered elements, or (nil, false) if t is not a List.
func (t Term) AsList() ([]Term, bool) {
	if t.Kind != KindList {
		return nil, false
	}
	return t.list, true
}

// IsCompound reports whether t is a Compound; see IsCompoundNamed to also
// check functor/arity.
func (t Term) IsCompound() bool { return t.Kind == KindCompound }

// IsCompoundNamed reports whether t is a Compound with the given functor and arity.
func (t Term) IsCompoundNamed(functor string, arity int) bool {
	return t.Kind == KindCompound && t.functor == functor && len(t.args) == arity
}

// Functor returns the compound's functor name, or "" if t is not a Compound.
func (t Term) Functor() string {
	if t.Kind != KindCompound {
		return ""
	}
	return t.functor
}

// Args returns the compound's arguments, or nil if t is not a Compound.
func (t Term) Args() []Term {
	if t.Kind != KindCompound {
		return nil
	}
	return t.args
}

// Arity returns the number of compound arguments, or 0 if t is not a Compound.
func (t Term) Arity() int { return len(t.Args()) }

// Arg returns the i-th argument (0-based), or the zero Term and false if out of range.
func (t Term) Arg(i int) (Term, bool) {
	args := t.Args()
	if i < 0 || i >= len(args) {
		return Term{}, false
	}
	return args[i], true
}

// IsVariable reports whether t is a Variable.
func (t Term) IsVariable() bool { return t.Kind == KindVariable }

// AsVariable returns the variable's name, or ("", false) if t is not a Variable.
func (t Term) AsVariable() (string, bool) {
	if t.Kind != KindVariable {
		return "", false
	}
	return t.varName, true
}

// String renders a Term for logs and error messages; it is not a wire format.
func (t Term) String() string {
	switch t.Kind {
	case KindAtom:
		return t.atom
	case KindInteger:
		if t.integer == nil {
			return "0"
		}
		return t.integer.String()
	case KindFloat:
		return fmt.Sprintf("%g", t.float)
	case KindString:
		return fmt.Sprintf("%q", t.str)
	case KindList:
		return fmt.Sprintf("%v", t.list)
	case KindCompound:
		return fmt.Sprintf("%s(%v)", t.functor, t.args)
	case KindVariable:
		return "_" + t.varName
	default:
		return "<invalid term>"
	}
}

// Equal reports deep structural equality between two terms, used by the
// decode→encode→decode round-trip property (spec.md §8 invariant 6).
func Equal(a, b Term) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindAtom:
		return a.atom == b.atom
	case KindInteger:
		if (a.integer == nil) != (b.integer == nil) {
			return false
		}
		if a.integer == nil {
			return true
		}
		return a.integer.Cmp(b.integer) == 0
	case KindFloat:
		return a.float == b.float
	case KindString:
		return a.str == b.str
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindCompound:
		if a.functor != b.functor || len(a.args) != len(b.args) {
			return false
		}
		for i := range a.args {
			if !Equal(a.args[i], b.args[i]) {
				return false
			}
		}
		return true
	case KindVariable:
		return a.varName == b.varName
	default:
		return true
	}
}
