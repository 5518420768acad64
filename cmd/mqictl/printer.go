package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/oriys/mqi/internal/session"
)

// printQueryResult renders a QueryResult either as JSON (--json) or as the
// plain "Name = Value" lines a REPL user expects, one solution per blank
// line, matching the shape the teacher's output package renders tables in
// spirit (text by default, JSON on request) if not in mechanism.
func printQueryResult(result session.QueryResult) error {
	if jsonOutput {
		return printJSON(map[string]interface{}{
			"kind":      resultKindName(result.Kind),
			"solutions": solutionsAsMaps(result.Solutions),
		})
	}
	if result.Kind == session.ResultFalse {
		fmt.Println("false.")
		return nil
	}
	if len(result.Solutions) == 0 {
		fmt.Println("true.")
		return nil
	}
	for i, sol := range result.Solutions {
		if i > 0 {
			fmt.Println()
		}
		if len(sol) == 0 {
			fmt.Println("true.")
			continue
		}
		for _, b := range sol {
			fmt.Printf("%s = %s\n", b.Name, b.Value.String())
		}
	}
	return nil
}

func resultKindName(k session.ResultKind) string {
	if k == session.ResultSolutions {
		return "solutions"
	}
	return "false"
}

func solutionsAsMaps(solutions []session.Solution) []map[string]string {
	out := make([]map[string]string, 0, len(solutions))
	for _, sol := range solutions {
		m := make(map[string]string, len(sol))
		for _, b := range sol {
			m[b.Name] = b.Value.String()
		}
		out = append(out, m)
	}
	return out
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
