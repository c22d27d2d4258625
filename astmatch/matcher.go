// Package astmatch implements the structural matcher: a recursive
// pre-order walk of a parsed file's syntax tree, evaluating each
// AST-pattern rule's compact query language against every node.
package astmatch

import (
	"strconv"
	"strings"

	"github.com/vigilscan/vigil/model"
)

// Scan walks root and emits one finding per node that matches an
// AST-pattern rule. Only rules with a non-empty ASTMatch participate;
// a malformed query never panics, it simply never matches (the
// query-malformed error class is absorbed here, not propagated).
func Scan(root *model.SyntaxNode, path, text string, cat *model.Catalog) []model.Finding {
	if root == nil {
		return nil
	}
	var astRules []model.Rule
	for _, r := range cat.Rules {
		if r.ASTMatch != "" {
			astRules = append(astRules, r)
		}
	}
	if len(astRules) == 0 {
		return nil
	}

	var findings []model.Finding
	file := &model.ParsedFile{Path: path, Text: text}
	model.Walk(root, func(n *model.SyntaxNode) {
		for _, r := range astRules {
			if matchQuery(n, r.ASTMatch) {
				findings = append(findings, model.NewFinding(
					r.ID, r.Description, path, n.Line, file.Line(n.Line),
					r.Severity, r.Confidence, r.Remediation,
				))
			}
		}
	})
	return findings
}

// matchQuery evaluates a single compact query against node n:
//
//	Kind                     — kind tag equality
//	Kind(a=v)                — kind tag AND field a == v
//	Kind(a.b=v)               — descend child role a's first child, match field b
//	Kind(a.*.b=v)             — descend role a, succeed if any child satisfies the rest
//
// An empty or unparsable query never matches.
func matchQuery(n *model.SyntaxNode, query string) bool {
	if n == nil || query == "" {
		return false
	}

	kind := query
	var propsStr string
	hasProps := false
	if open := strings.Index(query, "("); open >= 0 {
		kind = query[:open]
		close := strings.LastIndex(query, ")")
		if close < open {
			return false
		}
		propsStr = query[open+1 : close]
		hasProps = true
	}

	if n.Kind != kind {
		return false
	}
	if !hasProps || propsStr == "" {
		return true
	}

	for _, prop := range strings.Split(propsStr, ",") {
		prop = strings.TrimSpace(prop)
		path, expected, ok := strings.Cut(prop, "=")
		if !ok {
			return false
		}
		if !hasProperty(n, strings.Split(path, "."), expected) {
			return false
		}
	}
	return true
}

// hasProperty recursively descends path through n's children, matching
// the final field against expected. A "*" path segment succeeds if any
// child in the preceding role satisfies the remainder.
func hasProperty(n *model.SyntaxNode, path []string, expected string) bool {
	if n == nil || len(path) == 0 {
		return false
	}
	head, rest := path[0], path[1:]

	if len(rest) == 0 {
		return fieldEquals(n, head, expected)
	}

	kids := n.ChildList(head)
	if len(kids) == 0 {
		return false
	}
	if rest[0] == "*" {
		afterWildcard := rest[1:]
		for _, kid := range kids {
			if hasProperty(kid, afterWildcard, expected) {
				return true
			}
		}
		return false
	}
	return hasProperty(kids[0], rest, expected)
}

// fieldEquals compares a scalar field value against expected using
// the original's per-type stringification rules: strings literally,
// booleans case-insensitively, numbers by decimal string.
func fieldEquals(n *model.SyntaxNode, field, expected string) bool {
	v, ok := n.FieldValue(field)
	if !ok {
		return false
	}
	switch val := v.(type) {
	case string:
		return val == expected
	case bool:
		return strings.EqualFold(strconv.FormatBool(val), expected)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64) == expected
	default:
		return false
	}
}
