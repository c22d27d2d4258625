package callgraph

import (
	"strings"

	"github.com/vigilscan/vigil/callname"
	"github.com/vigilscan/vigil/model"
)

// scopedVar keys the flow-insensitive tainted set by (function, name).
type scopedVar struct {
	function FunctionID
	name     string
}

// AnalyzeTaint runs the flow-insensitive interprocedural pass: seed
// every source assignment across every function, then flag every sink
// call whose vulnerable argument is a tainted name in the same
// function's scope. It complements the CFG-based pass for structural
// shapes that pass misses, at the cost of the bug-compatible symmetric
// substring matching it deliberately preserves.
func (g *Graph) AnalyzeTaint(cat *model.Catalog) []model.Finding {
	tainted := make(map[scopedVar]bool)

	for fid, fnNode := range g.Functions {
		model.Walk(fnNode, func(n *model.SyntaxNode) {
			if n.Kind != "Assign" {
				return
			}
			value := n.Child("value")
			if value == nil || value.Kind != "Call" {
				return
			}
			call := callname.Of(value)
			for _, src := range cat.Sources {
				if !symmetricContains(call, src.FunctionCall) {
					continue
				}
				for _, target := range n.ChildList("targets") {
					if name, ok := callname.NameOf(target); ok {
						tainted[scopedVar{fid, name}] = true
					}
				}
			}
		})
	}

	var findings []model.Finding
	for fid, fnNode := range g.Functions {
		filePath := fileOf(fid)
		content := g.FileContents[filePath]

		model.Walk(fnNode, func(n *model.SyntaxNode) {
			if n.Kind != "Call" {
				return
			}
			call := callname.Of(n)
			args := n.ChildList("args")
			for _, sink := range cat.Sinks {
				if !symmetricContains(call, sink.FunctionCall) {
					continue
				}
				if sink.VulnerableParameterIdx < 0 || sink.VulnerableParameterIdx >= len(args) {
					continue
				}
				argName, ok := callname.NameOf(args[sink.VulnerableParameterIdx])
				if !ok || !tainted[scopedVar{fid, argName}] {
					continue
				}
				vulnRule, found := cat.RuleByID(sink.VulnerabilityID)
				if !found {
					continue
				}
				file := &model.ParsedFile{Text: content}
				findings = append(findings, model.NewFinding(
					vulnRule.ID, vulnRule.Description, filePath, n.Line, file.Line(n.Line),
					vulnRule.Severity, vulnRule.Confidence, vulnRule.Remediation,
				))
			}
		})
	}

	return findings
}

// symmetricContains is a deliberately bug-compatible match: a either
// contains b or b contains a. It over-triggers on short call names
// (e.g. "eval") but is faithfully reproduced pending clarification on
// the intended stricter matching rule.
func symmetricContains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func fileOf(id FunctionID) string {
	s := string(id)
	if idx := strings.Index(s, "::"); idx >= 0 {
		return s[:idx]
	}
	return s
}
