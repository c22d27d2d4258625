package model

import (
	"crypto/sha1" //nolint:gosec // fingerprint identity, not a cryptographic guarantee
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Finding is an immutable diagnostic. Its identity for deduplication
// purposes is entirely captured by Fingerprint(); two findings that
// differ only in, say, Remediation text but agree on
// (RuleID, FilePath, LineNumber, trimmed Code) are considered the same
// finding.
type Finding struct {
	RuleID      string
	Description string
	FilePath    string
	LineNumber  int
	Code        string
	Severity    Severity
	Confidence  string
	Remediation string
}

// NewFinding trims Code the way the original Issue constructor does,
// so Fingerprint is stable regardless of how callers format snippets.
func NewFinding(ruleID, description, filePath string, line int, code string, severity Severity, confidence, remediation string) Finding {
	return Finding{
		RuleID:      ruleID,
		Description: description,
		FilePath:    filePath,
		LineNumber:  line,
		Code:        strings.TrimSpace(code),
		Severity:    severity,
		Confidence:  confidence,
		Remediation: remediation,
	}
}

// Fingerprint is the hex-lowercase SHA-1 of
// "ruleId|filePath|lineNumber|trimmedSnippet" — the sole identity used
// for deduplication across regex, AST, and taint passes.
func (f Finding) Fingerprint() string {
	unique := fmt.Sprintf("%s|%s|%s|%s", f.RuleID, f.FilePath, strconv.Itoa(f.LineNumber), strings.TrimSpace(f.Code))
	sum := sha1.Sum([]byte(unique)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
