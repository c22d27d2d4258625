package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	sarif "github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/vigilscan/vigil/model"
)

// relativeTo returns path relative to root, falling back to path
// unchanged if it isn't under root or root is unset.
func relativeTo(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

// WriteFindings renders findings to w in opts.Format. A nil opts uses
// NewDefaultOptions.
func WriteFindings(w io.Writer, findings []model.Finding, opts *OutputOptions) error {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	switch opts.Format {
	case FormatJSON:
		return writeJSON(w, findings)
	case FormatCSV:
		return writeCSV(w, findings, opts)
	case FormatSARIF:
		return writeSARIF(w, findings, opts)
	default:
		return writeText(w, findings, opts)
	}
}

func writeJSON(w io.Writer, findings []model.Finding) error {
	if len(findings) == 0 {
		_, err := fmt.Fprintln(w, "[]")
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

func writeText(w io.Writer, findings []model.Finding, opts *OutputOptions) error {
	if len(findings) == 0 {
		_, err := fmt.Fprintln(w, "No findings.")
		return err
	}
	for _, f := range findings {
		path := relativeTo(opts.ProjectRoot, f.FilePath)
		if _, err := fmt.Fprintf(w, "[%s] %s:%d %s (%s)\n", f.Severity, path, f.LineNumber, f.Description, f.RuleID); err != nil {
			return err
		}
		if f.Code != "" {
			if _, err := fmt.Fprintf(w, "    %s\n", f.Code); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeCSV(w io.Writer, findings []model.Finding, opts *OutputOptions) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"severity", "confidence", "rule_id", "file", "line", "message", "code"}); err != nil {
		return err
	}
	for _, f := range findings {
		path := relativeTo(opts.ProjectRoot, f.FilePath)
		row := []string{
			string(f.Severity), f.Confidence, f.RuleID, path, strconv.Itoa(f.LineNumber), f.Description, f.Code,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeSARIF(w io.Writer, findings []model.Finding, opts *OutputOptions) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return err
	}
	run := sarif.NewRunWithInformationURI("vigil", "")

	seenRules := make(map[string]bool, len(findings))
	for _, f := range findings {
		if seenRules[f.RuleID] {
			continue
		}
		seenRules[f.RuleID] = true
		run.AddRule(f.RuleID).
			WithDescription(f.Description).
			WithDefaultConfiguration(sarif.NewReportingConfiguration().WithLevel(severityToSARIFLevel(f.Severity)))
	}

	for _, f := range findings {
		path := relativeTo(opts.ProjectRoot, f.FilePath)
		result := run.CreateResultForRule(f.RuleID).WithMessage(sarif.NewTextMessage(f.Description))
		region := sarif.NewRegion().WithStartLine(f.LineNumber)
		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(path)).
				WithRegion(region),
		)
		result.AddLocation(location)
	}

	report.AddRun(run)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func severityToSARIFLevel(s model.Severity) string {
	switch s {
	case model.SeverityCritical, model.SeverityHigh:
		return "error"
	case model.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
