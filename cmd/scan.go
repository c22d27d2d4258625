package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vigilscan/vigil/astload"
	"github.com/vigilscan/vigil/config"
	"github.com/vigilscan/vigil/model"
	"github.com/vigilscan/vigil/orchestrator"
	"github.com/vigilscan/vigil/output"
	"github.com/vigilscan/vigil/ruleset"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a project for vulnerabilities using a rule catalog",
	Long: `Scan a project directory against a TOML rule catalog.

Examples:
  # Scan non-.py files with regex rules only (.py files need --asts)
  vigil scan --rules rules.toml --project /path/to/project

  # Also scan .py files with regex, AST and taint analysis, using
  # pre-parsed syntax trees
  vigil scan --rules rules.toml --project . --asts ./asts`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if settings.RulesPath == "" {
		return fmt.Errorf("--rules flag is required")
	}
	if settings.ProjectPath == "" {
		return fmt.Errorf("--project flag is required")
	}

	verbosity := output.VerbosityDefault
	if settings.Debug {
		verbosity = output.VerbosityDebug
	} else if settings.Verbose {
		verbosity = output.VerbosityVerbose
	}
	logger := output.NewLogger(verbosity)

	opts := output.NewDefaultOptions()
	opts.Verbosity = verbosity
	opts.ProjectRoot = settings.ProjectPath
	if format, _ := cmd.Flags().GetString("format"); format != "" {
		opts.Format = output.OutputFormat(format)
	}
	if contextLines, _ := cmd.Flags().GetInt("context-lines"); contextLines >= 0 {
		opts.ContextLines = contextLines
	}

	runID := uuid.New().String()
	logger.Debug("scan run %s starting", runID)
	if opts.ShouldShowDebug() {
		logger.Debug("output format=%s context-lines=%d", opts.Format, opts.ContextLines)
	}

	logger.Progress("Loading rule catalog from %s...", settings.RulesPath)
	done := logger.StartTiming("load-catalog")
	cat, err := ruleset.Load(settings.RulesPath)
	done()
	if err != nil {
		return fmt.Errorf("failed to load rule catalog: %w", err)
	}
	logger.Statistic("Catalog loaded: %d rules, %d sources, %d sinks, %d sanitizers",
		len(cat.Rules), len(cat.Sources), len(cat.Sinks), len(cat.Sanitizers))

	var parsedFiles []*model.ParsedFile
	if settings.ASTsDir != "" {
		logger.Progress("Loading syntax trees from %s...", settings.ASTsDir)
		parsedFiles, err = astload.Load(settings.ASTsDir, settings.ProjectPath)
		if err != nil {
			return fmt.Errorf("failed to load syntax trees: %w", err)
		}
		logger.Statistic("Syntax trees loaded: %d files", len(parsedFiles))
	}

	done = logger.StartTiming("scan")
	findings, err := orchestrator.Run(settings.ProjectPath, cat, settings.Orchestrator(), parsedFiles, logger)
	done()
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	reported := filterBySeverity(findings, settings.MinSeverity)
	if opts.ShouldShowStatistics() {
		logger.Statistic("Scan complete: %d findings (%d at or above %s)", len(findings), len(reported), settings.MinSeverity)
		logger.Statistic("Findings by severity: %s", severityBreakdown(reported))
	}
	logger.PrintTimingSummary()

	if err := output.WriteFindings(os.Stdout, reported, opts); err != nil {
		return err
	}

	if len(reported) > 0 {
		os.Exit(1)
	}
	return nil
}

func filterBySeverity(findings []model.Finding, min model.Severity) []model.Finding {
	threshold := min.Rank()
	out := make([]model.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity.Rank() >= threshold {
			out = append(out, f)
		}
	}
	return out
}

// severityBreakdown renders a "Critical: 1, High: 2" style count line.
func severityBreakdown(findings []model.Finding) string {
	counts := map[model.Severity]int{}
	for _, f := range findings {
		counts[f.Severity]++
	}
	order := []model.Severity{model.SeverityCritical, model.SeverityHigh, model.SeverityMedium, model.SeverityLow}
	parts := make([]string, 0, len(order))
	for _, sev := range order {
		if n := counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", sev, n))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringP("rules", "r", "", "path to TOML rule catalog (required)")
	scanCmd.Flags().StringP("project", "p", "", "path to project directory to scan (required)")
	scanCmd.Flags().String("asts", "", "directory of pre-serialized JSON syntax trees for taint analysis")
	scanCmd.Flags().StringSlice("exclude", nil, "glob/substring patterns to exclude from scanning")
	scanCmd.Flags().String("min-severity", "", "minimum severity to report (default low)")
	scanCmd.Flags().String("format", "", "output format: text, json, csv, or sarif (default text)")
	scanCmd.Flags().Int("context-lines", -1, "lines of source context around each finding, recorded in the output options (default 3); the renderers print only the matched line")
}
