// Package validation holds structural checks over a space's action
// graph that are naturally expressed as a standalone graph walk rather
// than folded into the type checker's expression-by-expression pass.
package validation

import (
	"fmt"
	"strings"

	"github.com/pepl-lang/pepl/core/ast"
	"github.com/pepl-lang/pepl/core/span"
)

// RecursionError reports a cycle discovered in the action call graph.
type RecursionError struct {
	Action  string
	Cycle   []string
	Span    span.Span
	Message string
}

func (e *RecursionError) Error() string { return e.Message }

type callEdge struct {
	callee string
	sp     span.Span
}

// DetectActionRecursion builds a call graph of action-to-action calls
// and returns the first direct-or-transitive cycle found, checking
// actions in declaration order so results are deterministic. Actions
// dispatch via snapshot-and-commit with no call stack, so any cycle
// here can never terminate at runtime.
func DetectActionRecursion(actions []ast.ActionDecl) *RecursionError {
	known := make(map[string]*ast.ActionDecl, len(actions))
	for i := range actions {
		known[actions[i].Name.Name] = &actions[i]
	}

	edges := make(map[string][]callEdge, len(actions))
	for i := range actions {
		edges[actions[i].Name.Name] = findActionCalls(&actions[i], known)
	}

	for _, a := range actions {
		if err := detectRecursion(a.Name.Name, edges, nil, map[string]bool{}); err != nil {
			return err
		}
	}
	return nil
}

func detectRecursion(name string, edges map[string][]callEdge, path []string, visiting map[string]bool) *RecursionError {
	if visiting[name] {
		cycleStart := -1
		for i, n := range path {
			if n == name {
				cycleStart = i
				break
			}
		}
		var cycle []string
		if cycleStart >= 0 {
			cycle = append(append([]string{}, path[cycleStart:]...), name)
		} else {
			cycle = append(append([]string{}, path...), name)
		}

		var sp span.Span
		if len(path) > 0 {
			for _, e := range edges[path[len(path)-1]] {
				if e.callee == name {
					sp = e.sp
					break
				}
			}
		}

		return &RecursionError{
			Action:  name,
			Cycle:   cycle,
			Span:    sp,
			Message: fmt.Sprintf("cycle: %s", strings.Join(cycle, " -> ")),
		}
	}

	visiting[name] = true
	newPath := append(append([]string{}, path...), name)
	for _, e := range edges[name] {
		if err := detectRecursion(e.callee, edges, newPath, visiting); err != nil {
			return err
		}
	}
	delete(visiting, name)
	return nil
}

// findActionCalls walks one action's body for calls that name another
// known action, recording the call-site span for diagnostics.
func findActionCalls(action *ast.ActionDecl, known map[string]*ast.ActionDecl) []callEdge {
	var edges []callEdge
	ast.Walk(action, func(n ast.Node) bool {
		if expr, ok := n.(*ast.Expr); ok {
			if call, ok := expr.Kind.(ast.Call); ok {
				if _, exists := known[call.Name.Name]; exists {
					edges = append(edges, callEdge{callee: call.Name.Name, sp: expr.Span()})
				}
			}
		}
		return true
	})
	return edges
}
