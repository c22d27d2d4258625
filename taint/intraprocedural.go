// Package taint implements the intraprocedural taint data-flow: a
// monotone forward fixpoint over one function's control-flow graph,
// detecting source->sink paths that stay within that function.
package taint

import (
	"sort"

	"github.com/vigilscan/vigil/callname"
	"github.com/vigilscan/vigil/cfg"
	"github.com/vigilscan/vigil/model"
)

// tag carries the originating source rule id. Tags are treated as
// equivalent for reporting: on a join collision the first-encountered
// tag wins.
type tag struct {
	sourceRuleID string
}

// state maps a variable name to its current taint tag.
type state map[string]tag

func (s state) clone() state {
	out := make(state, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (a state) equal(b state) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// plainNameOf returns the id of a bare Name reference node. Unlike
// callname.NameOf, it does not also resolve Attribute nodes: this
// engine tracks taint per local variable name, and an Attribute's
// bare attr string (e.g. "foo" in "obj.foo") is not the same binding
// as a local variable spelled "foo", so treating the two as
// interchangeable would let an unrelated tainted local leak into an
// attribute read it has nothing to do with.
func plainNameOf(n *model.SyntaxNode) (string, bool) {
	if n == nil || n.Kind != "Name" {
		return "", false
	}
	return n.FieldString("id")
}

// AnalyzeFunction runs the fixpoint over g and returns every sink
// reached by tainted data. Findings may be re-issued across fixpoint
// iterations; the orchestrator's fingerprint dedup absorbs that.
func AnalyzeFunction(g *cfg.Graph, cat *model.Catalog, filePath string, file *model.ParsedFile) []model.Finding {
	var findings []model.Finding

	in := make(map[cfg.BlockID]state, len(g.Blocks))
	out := make(map[cfg.BlockID]state, len(g.Blocks))
	for id := range g.Blocks {
		in[id] = state{}
		out[id] = state{}
	}

	order := make([]cfg.BlockID, 0, len(g.Blocks))
	for id := range g.Blocks {
		order = append(order, id)
	}
	// Block-processing order is an optimization hint only; any order
	// reaches the same fixpoint. Reverse-sorted matches the reference
	// implementation's worklist order.
	sort.Slice(order, func(i, j int) bool { return order[i] > order[j] })

	changed := true
	for changed {
		changed = false
		for _, id := range order {
			block := g.Blocks[id]

			merged := state{}
			for pred := range block.Predecessors {
				for name, t := range out[pred] {
					if _, exists := merged[name]; !exists {
						merged[name] = t
					}
				}
			}
			in[id] = merged

			current := merged.clone()
			for _, s := range block.Statements {
				findings = append(findings, transfer(s, cat, current, filePath, file)...)
			}

			if !out[id].equal(current) {
				out[id] = current
				changed = true
			}
		}
	}

	return findings
}

// transfer applies one statement's effect to current and returns the
// sink findings that statement triggers (nil if none).
func transfer(stmt *model.SyntaxNode, cat *model.Catalog, current state, filePath string, file *model.ParsedFile) []model.Finding {
	switch stmt.Kind {
	case "Assign":
		applyAssign(stmt, cat, current)
		return nil
	case "Expr":
		return applyExprSink(stmt, cat, current, filePath, file)
	default:
		return nil
	}
}

func applyAssign(stmt *model.SyntaxNode, cat *model.Catalog, current state) {
	tgt := stmt.Child("targets")
	value := stmt.Child("value")
	if tgt == nil || value == nil {
		return
	}
	if tgt.Kind != "Name" {
		// Only plain name targets are tracked; other target shapes
		// (tuples, attribute assignment) are outside the syntactic
		// surface this pass tracks.
		return
	}
	targetName, _ := plainNameOf(tgt)

	if value.Kind == "Call" {
		callName := callname.Of(value)
		for _, src := range cat.Sources {
			if callName == src.FunctionCall {
				current[targetName] = tag{sourceRuleID: src.ID}
				return
			}
		}
	}

	if value.Kind == "JoinedStr" {
		for _, formatted := range value.ChildList("values") {
			inner := formatted.Child("value")
			name, ok := plainNameOf(inner)
			if !ok {
				continue
			}
			if t, tainted := current[name]; tainted {
				current[targetName] = t
				break // first taint wins; the whole joined string is tainted
			}
		}
	}
}

func applyExprSink(stmt *model.SyntaxNode, cat *model.Catalog, current state, filePath string, file *model.ParsedFile) []model.Finding {
	call := stmt.Child("value")
	if call == nil || call.Kind != "Call" {
		return nil
	}
	callName := callname.Of(call)
	args := call.ChildList("args")

	var findings []model.Finding
	for _, sink := range cat.Sinks {
		if callName != sink.FunctionCall {
			continue
		}
		if sink.VulnerableParameterIdx < 0 || sink.VulnerableParameterIdx >= len(args) {
			continue
		}
		arg := args[sink.VulnerableParameterIdx]
		argName, ok := plainNameOf(arg)
		if !ok {
			continue
		}
		if _, tainted := current[argName]; !tainted {
			continue
		}
		vulnRule, found := cat.RuleByID(sink.VulnerabilityID)
		if !found {
			continue
		}
		findings = append(findings, model.NewFinding(
			vulnRule.ID, vulnRule.Description, filePath, stmt.Line, file.Line(stmt.Line),
			vulnRule.Severity, vulnRule.Confidence, vulnRule.Remediation,
		))
	}
	return findings
}
