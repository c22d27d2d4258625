// Package orchestrator walks a project root, dispatches per-file work
// across a bounded pool of goroutines, builds the project-wide call
// graph, runs the interprocedural taint pass, and deduplicates the
// merged findings by fingerprint.
package orchestrator

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/vigilscan/vigil/astmatch"
	"github.com/vigilscan/vigil/callgraph"
	"github.com/vigilscan/vigil/cfg"
	"github.com/vigilscan/vigil/model"
	"github.com/vigilscan/vigil/output"
	"github.com/vigilscan/vigil/regexscan"
	"github.com/vigilscan/vigil/taint"
)

// SourceExtension is the target language's source file extension.
// Files with this extension are expected to arrive pre-parsed in the
// ParsedFiles argument to Run rather than be content-read off disk.
const SourceExtension = ".py"

// Config mirrors the host-supplied configuration record from spec §6:
// currently just the exclusion list.
type Config struct {
	Exclude []string
}

// Run scans rootPath and parsedFiles against cat, returning a
// deduplicated, order-nondeterministic (but set-deterministic) list of
// findings. parsedFiles is the host's pre-parsed target-language
// files; everything else under rootPath is scanned as a generic file.
// logger may be nil; when non-nil, a progress bar tracks per-file
// dispatch completion across both the generic and parsed-file passes.
func Run(rootPath string, cat *model.Catalog, config Config, parsedFiles []*model.ParsedFile, logger *output.Logger) ([]model.Finding, error) {
	regexRules, err := regexscan.Compile(cat)
	if err != nil {
		return nil, err
	}

	exclusions, err := compileExclusions(config.Exclude)
	if err != nil {
		return nil, err
	}

	genericPaths, err := discoverGenericFiles(rootPath, exclusions)
	if err != nil {
		return nil, err
	}

	total := len(genericPaths) + len(parsedFiles)
	if logger != nil {
		if err := logger.StartProgress("Scanning files", total); err != nil {
			return nil, err
		}
	}

	var mu sync.Mutex
	var all []model.Finding
	collect := func(shard []model.Finding) {
		mu.Lock()
		defer mu.Unlock()
		if len(shard) > 0 {
			all = append(all, shard...)
		}
		if logger != nil {
			logger.UpdateProgress(1) //nolint:errcheck
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(max(1, runtime.GOMAXPROCS(0))) //nolint:gomnd

	for _, path := range genericPaths {
		path := path
		g.Go(func() error {
			collect(scanGenericFile(path, regexRules))
			return nil
		})
	}

	for _, pf := range parsedFiles {
		pf := pf
		if excluded(pf.Path, exclusions) {
			continue
		}
		g.Go(func() error {
			collect(scanParsedFile(pf, cat, regexRules))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.FinishProgress() //nolint:errcheck
	}

	cg := callgraph.Build(parsedFiles)
	all = append(all, cg.AnalyzeTaint(cat)...)

	return dedup(all), nil
}

// scanGenericFile reads a non-target-language file and runs only the
// regex scanner against it. An unreadable file is skipped silently.
func scanGenericFile(path string, regexRules *regexscan.Rules) []model.Finding {
	text, err := readFile(path)
	if err != nil {
		return nil
	}
	return regexscan.Scan(path, text, regexRules)
}

// scanParsedFile runs the regex scanner, the AST matcher, and
// per-function CFG-based taint analysis against one host-supplied
// parsed file. A missing Tree (parser failure) still gets the regex
// pass; the AST and taint passes are skipped.
func scanParsedFile(pf *model.ParsedFile, cat *model.Catalog, regexRules *regexscan.Rules) []model.Finding {
	findings := regexscan.Scan(pf.Path, pf.Text, regexRules)

	if pf.Tree == nil {
		return findings
	}

	findings = append(findings, astmatch.Scan(pf.Tree, pf.Path, pf.Text, cat)...)

	var functions []*model.SyntaxNode
	model.Walk(pf.Tree, func(n *model.SyntaxNode) {
		if n.Kind == "FunctionDef" || n.Kind == "AsyncFunctionDef" {
			functions = append(functions, n)
		}
	})
	for _, fn := range functions {
		graph := cfg.Build(fn)
		findings = append(findings, taint.AnalyzeFunction(graph, cat, pf.Path, pf)...)
	}

	return findings
}

// dedup retains the first occurrence of each distinct fingerprint,
// preserving the incoming order (which is itself scheduler-dependent
// across files, but deterministic in its resulting set).
func dedup(findings []model.Finding) []model.Finding {
	seen := make(map[string]bool, len(findings))
	out := make([]model.Finding, 0, len(findings))
	for _, f := range findings {
		fp := f.Fingerprint()
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, f)
	}
	return out
}

type compiledExclusion struct {
	raw      string
	baseGlob glob.Glob
}

func compileExclusions(patterns []string) ([]compiledExclusion, error) {
	out := make([]compiledExclusion, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclusion pattern %q: %w", p, err)
		}
		out = append(out, compiledExclusion{raw: p, baseGlob: g})
	}
	return out, nil
}

// excluded reports whether path is excluded: each exclusion triggers
// exclusion if it is a substring of the absolute path, or if the
// path's basename matches it as a wildcard glob.
func excluded(path string, exclusions []compiledExclusion) bool {
	base := filepath.Base(path)
	for _, ex := range exclusions {
		if strings.Contains(path, ex.raw) {
			return true
		}
		if ex.baseGlob.Match(base) {
			return true
		}
	}
	return false
}

// discoverGenericFiles recursively walks root, returning every regular
// file whose extension is not the target language's source extension
// and which is not excluded. Unreadable directories are skipped
// silently, matching the filesystem surface's "unreadable files are
// silently skipped" contract.
func discoverGenericFiles(root string, exclusions []compiledExclusion) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	var paths []string
	walkErr := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) == SourceExtension {
			return nil
		}
		if excluded(path, exclusions) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	sort.Strings(paths) // deterministic dispatch order; scheduling may still reorder results
	return paths, nil
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
