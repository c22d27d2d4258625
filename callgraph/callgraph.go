// Package callgraph builds a project-wide, best-effort call graph by
// suffix-matching call names against function ids, and runs the
// interprocedural taint pass over it. Neither resolves imports,
// aliasing or dynamic dispatch; both intentionally favor recall.
package callgraph

import (
	"fmt"

	"github.com/vigilscan/vigil/callname"
	"github.com/vigilscan/vigil/model"
)

// FunctionID is "filePath::functionName", unique modulo name overloads.
type FunctionID string

// Graph owns the function index, the best-effort call edges, and a
// file-path -> source-text map for line extraction during the
// interprocedural pass. It borrows SyntaxNodes by reference from the
// ParsedFile records it was built from; its lifetime must not outlive
// them.
type Graph struct {
	Functions    map[FunctionID]*model.SyntaxNode
	Edges        map[FunctionID]map[FunctionID]bool
	FileContents map[string]string
}

// Build constructs the call graph from all parsed files in a single
// pass over function definitions, then a second pass over call sites.
func Build(files []*model.ParsedFile) *Graph {
	g := &Graph{
		Functions:    make(map[FunctionID]*model.SyntaxNode),
		Edges:        make(map[FunctionID]map[FunctionID]bool),
		FileContents: make(map[string]string, len(files)),
	}

	for _, f := range files {
		g.FileContents[f.Path] = f.Text
		if f.Tree == nil {
			continue
		}
		model.Walk(f.Tree, func(n *model.SyntaxNode) {
			if n.Kind != "FunctionDef" && n.Kind != "AsyncFunctionDef" {
				return
			}
			name, ok := n.FieldString("id")
			if !ok {
				return
			}
			g.Functions[FunctionID(fmt.Sprintf("%s::%s", f.Path, name))] = n
		})
	}

	for id, fnNode := range g.Functions {
		edges := make(map[FunctionID]bool)
		model.Walk(fnNode, func(n *model.SyntaxNode) {
			if n.Kind != "Call" {
				return
			}
			name := callname.Of(n)
			if name == "" {
				return
			}
			suffix := "::" + name
			for candidate := range g.Functions {
				if hasSuffix(string(candidate), suffix) {
					edges[candidate] = true
				}
			}
		})
		g.Edges[id] = edges
	}

	return g
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
