// Package regexscan implements the line-based regex matcher: the
// cheapest of the engine's three strategies, and the only one that
// runs against every file the orchestrator sees, parsed or not.
package regexscan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"github.com/vigilscan/vigil/model"
)

// compiledRule pre-compiles the parts of a model.Rule the scanner
// needs repeatedly, so a catalog is compiled once per scan rather than
// once per file.
type compiledRule struct {
	rule     model.Rule
	pattern  *regexp.Regexp
	fileGlob glob.Glob // nil when the rule has no file_pattern
}

// Rules is a catalog's regex rules, compiled once and shared read-only
// across workers.
type Rules struct {
	compiled []compiledRule
}

// Compile builds Rules from a catalog, skipping AST-only rules (those
// with no Pattern). An invalid regex or glob is a catalog-invalid
// error.
func Compile(cat *model.Catalog) (*Rules, error) {
	rs := &Rules{}
	for _, r := range cat.Rules {
		if r.Pattern == "" {
			continue
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: invalid pattern: %w", r.ID, err)
		}
		var g glob.Glob
		if r.FilePattern != "" {
			g, err = glob.Compile(r.FilePattern)
			if err != nil {
				return nil, fmt.Errorf("rule %s: invalid file_pattern: %w", r.ID, err)
			}
		}
		rs.compiled = append(rs.compiled, compiledRule{rule: r, pattern: re, fileGlob: g})
	}
	return rs, nil
}

// Scan runs every applicable regex rule over text's lines, skipping
// lines the suppression heuristic flags as comments or string
// literals. Findings are grouped by rule in catalog order, and are in
// top-down line order within each rule.
func Scan(path, text string, rules *Rules) []model.Finding {
	if rules == nil || len(rules.compiled) == 0 {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var findings []model.Finding
	for _, cr := range rules.compiled {
		if cr.fileGlob != nil && !cr.fileGlob.Match(path) {
			continue
		}
		for i, line := range lines {
			if Suppressed(line) {
				continue
			}
			if cr.pattern.MatchString(line) {
				findings = append(findings, model.NewFinding(
					cr.rule.ID, cr.rule.Description, path, i+1, line,
					cr.rule.Severity, cr.rule.Confidence, cr.rule.Remediation,
				))
			}
		}
	}
	return findings
}

// Suppressed reports whether line should be skipped as a comment or
// string-literal line, per the target language's block-comment and
// string conventions. It is a pure function of line, so applying it
// twice yields the same verdict.
func Suppressed(line string) bool {
	trimmed := strings.TrimSpace(line)

	if strings.HasPrefix(trimmed, "#") {
		return true
	}

	if tripleQuoted(trimmed, `"""`) || tripleQuoted(trimmed, "'''") {
		return true
	}

	if quotedLiteral(trimmed, '"') || quotedLiteral(trimmed, '\'') {
		return true
	}

	if (strings.Contains(trimmed, `"""`) || strings.Contains(trimmed, "'''")) &&
		!strings.Contains(trimmed, "=") && !strings.Contains(trimmed, "(") {
		return true
	}

	return false
}

func tripleQuoted(trimmed, marker string) bool {
	return strings.HasPrefix(trimmed, marker) && strings.HasSuffix(trimmed, marker) && len(trimmed) > 6
}

func quotedLiteral(trimmed string, quote byte) bool {
	if len(trimmed) < 2 || trimmed[0] != quote || trimmed[len(trimmed)-1] != quote {
		return false
	}
	return !strings.Contains(trimmed, " = ")
}
