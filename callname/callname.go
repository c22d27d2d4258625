// Package callname computes the fully-qualified name of a call
// expression node. It is shared by the intraprocedural taint engine,
// the call-graph builder, and the interprocedural taint engine, which
// all need the identical resolution rule.
package callname

import "github.com/vigilscan/vigil/model"

// Of returns the fully-qualified name of call's callee:
//
//   - a bare Name func resolves to that name's id
//   - an Attribute chain (a.b.c()) resolves by walking value links and
//     joining collected attr fields with the base name, e.g. "a.b.c"
//   - anything else resolves to "", which never matches a rule
func Of(call *model.SyntaxNode) string {
	fn := call.Child("func")
	if fn == nil {
		return ""
	}
	switch fn.Kind {
	case "Name":
		id, _ := fn.FieldString("id")
		return id
	case "Attribute":
		return attributeChain(fn)
	default:
		return ""
	}
}

func attributeChain(attr *model.SyntaxNode) string {
	var parts []string
	current := attr
	for current != nil && current.Kind == "Attribute" {
		if a, ok := current.FieldString("attr"); ok {
			parts = append(parts, a)
		}
		current = current.Child("value")
	}
	if current != nil && current.Kind == "Name" {
		if base, ok := current.FieldString("id"); ok {
			parts = append(parts, base)
		}
	}
	if len(parts) == 0 {
		return ""
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	joined := parts[0]
	for _, p := range parts[1:] {
		joined += "." + p
	}
	return joined
}

// NameOf returns the identifying name of a Name or Attribute reference
// node, used to recognize assignment targets and tainted arguments.
func NameOf(n *model.SyntaxNode) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind {
	case "Name":
		return n.FieldString("id")
	case "Attribute":
		return n.FieldString("attr")
	default:
		return "", false
	}
}
