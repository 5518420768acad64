package session

import (
	"fmt"

	"github.com/oriys/mqi/internal/mqierr"
	"github.com/oriys/mqi/internal/term"
)

// Binding is one variable-name/term pair within a Solution.
type Binding struct {
	Name  string
	Value term.Term
}

// Solution is one ordered sequence of bindings produced by a single
// unification (spec.md §3). Name lookup is linear, which is the right
// trade-off for the handful of bindings a typical query produces; order is
// the thing callers actually rely on.
type Solution []Binding

// Get returns the term bound to name, if present.
func (s Solution) Get(name string) (term.Term, bool) {
	for _, b := range s {
		if b.Name == name {
			return b.Value, true
		}
	}
	return term.Term{}, false
}

// ResultKind distinguishes the two successful shapes a query can return.
// Failures are surfaced as a Go error (*mqierr.Error), not as a ResultKind,
// matching spec.md §3's QueryResult = False | Solutions | Failure(ErrorKind)
// union the idiomatic way for this language.
type ResultKind int

const (
	ResultFalse ResultKind = iota
	ResultSolutions
)

// QueryResult is the outcome of a successful run_sync call.
type QueryResult struct {
	Kind      ResultKind
	Solutions []Solution
}

// PollOutcome enumerates the shapes a poll() call can return (spec.md §4.F).
type PollOutcome int

const (
	PollSolution PollOutcome = iota
	PollNoMore
	PollNotReady
	PollTerminal
)

// PollResult is the outcome of a poll() call.
type PollResult struct {
	Outcome   PollOutcome
	Solutions []Solution
	Err       *mqierr.Error // populated when Outcome == PollTerminal
}

// extractSolutions converts the list-of-answers argument of a true(...)
// reply into ordered Solutions (spec.md §4.B "Binding extraction").
func extractSolutions(answers term.Term) ([]Solution, error) {
	items, ok := answers.AsList()
	if !ok {
		return nil, fmt.Errorf("expected list of answers, got %s", answers.Kind)
	}
	solutions := make([]Solution, 0, len(items))
	for _, ans := range items {
		bindings, ok := ans.AsList()
		if !ok {
			return nil, fmt.Errorf("expected list of bindings, got %s", ans.Kind)
		}
		sol := make(Solution, 0, len(bindings))
		for _, b := range bindings {
			if !b.IsCompoundNamed("=", 2) {
				return nil, fmt.Errorf("expected =/2 binding, got %s", b)
			}
			lhs, _ := b.Arg(0)
			rhs, _ := b.Arg(1)
			name, ok := bindingName(lhs)
			if !ok {
				return nil, fmt.Errorf("binding left-hand side is not a name-bearing term: %s", lhs)
			}
			sol = append(sol, Binding{Name: name, Value: rhs})
		}
		solutions = append(solutions, sol)
	}
	return solutions, nil
}

// bindingName extracts a variable name from a binding's left-hand side.
// Most engine versions wrap it as Variable(name); some emit a bare atom
// instead (spec.md §4.B / §9 Open Questions) — both are accepted.
func bindingName(t term.Term) (string, bool) {
	if name, ok := t.AsVariable(); ok {
		return name, true
	}
	if name, ok := t.AsAtom(); ok {
		return name, true
	}
	return "", false
}
