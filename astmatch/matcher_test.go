package astmatch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vigilscan/vigil/model"
)

func raw(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func callInsecureNode(literal bool) *model.SyntaxNode {
	name := &model.SyntaxNode{Kind: "Name", Fields: map[string]json.RawMessage{"id": raw("call_insecure")}}
	constant := &model.SyntaxNode{Kind: "Constant", Fields: map[string]json.RawMessage{"value": raw(literal)}}
	keyword := &model.SyntaxNode{Kind: "keyword", Children: map[string][]*model.SyntaxNode{"value": {constant}}}
	call := &model.SyntaxNode{
		Kind: "Call",
		Line: 7,
		Children: map[string][]*model.SyntaxNode{
			"func":     {name},
			"keywords": {keyword},
		},
	}
	return &model.SyntaxNode{
		Kind:     "Module",
		Children: map[string][]*model.SyntaxNode{"body": {call}},
	}
}

func TestScanASTMatchTrueLiteral(t *testing.T) {
	root := callInsecureNode(true)
	cat := &model.Catalog{Rules: []model.Rule{{
		ID: "R2", Description: "insecure call", Severity: model.SeverityHigh,
		ASTMatch: "Call(func.id=call_insecure,keywords.*.value.value=True)",
	}}}
	findings := Scan(root, "app.py", "line1\nline2\nline3\nline4\nline5\nline6\ncall_insecure(foo=True)\n", cat)
	require.Len(t, findings, 1)
	require.Equal(t, 7, findings[0].LineNumber)
}

func TestScanASTMatchFalseLiteralNoMatch(t *testing.T) {
	root := callInsecureNode(false)
	cat := &model.Catalog{Rules: []model.Rule{{
		ID: "R2", ASTMatch: "Call(func.id=call_insecure,keywords.*.value.value=True)",
	}}}
	require.Empty(t, Scan(root, "app.py", "", cat))
}

func TestMatchQuerySimpleKind(t *testing.T) {
	n := &model.SyntaxNode{Kind: "If"}
	require.True(t, matchQuery(n, "If"))
	require.False(t, matchQuery(n, "For"))
}

func TestMatchQueryUnknownFieldFails(t *testing.T) {
	n := &model.SyntaxNode{Kind: "Call"}
	require.False(t, matchQuery(n, "Call(nope=1)"))
}

func TestMatchQueryMalformedNeverPanics(t *testing.T) {
	n := &model.SyntaxNode{Kind: "Call"}
	require.NotPanics(t, func() {
		matchQuery(n, "Call(no-equals-here")
	})
}
