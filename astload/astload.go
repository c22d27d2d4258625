// Package astload reads the host-supplied pre-serialized syntax trees
// from a directory of JSON files and pairs each with its corresponding
// source text.
package astload

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vigilscan/vigil/model"
)

// SourceExtension mirrors orchestrator.SourceExtension; kept as its own
// constant so this package has no import-cycle dependency on
// orchestrator.
const SourceExtension = ".py"

// Load walks astsDir for *.json tree files and, for each, looks up the
// sibling source file under projectRoot at the same relative path with
// SourceExtension substituted for .json. A tree whose source file is
// missing or unreadable is skipped; a tree that fails to unmarshal is
// reported as an error naming the offending file.
func Load(astsDir, projectRoot string) ([]*model.ParsedFile, error) {
	var files []*model.ParsedFile

	walkErr := filepath.Walk(astsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		rel, err := filepath.Rel(astsDir, path)
		if err != nil {
			return nil
		}
		sourceRel := strings.TrimSuffix(rel, ".json") + SourceExtension
		sourcePath := filepath.Join(projectRoot, sourceRel)

		text, err := os.ReadFile(sourcePath)
		if err != nil {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		var tree model.SyntaxNode
		if err := json.Unmarshal(raw, &tree); err != nil {
			return fmt.Errorf("astload: failed to parse %s: %w", path, err)
		}

		files = append(files, &model.ParsedFile{
			Path: sourcePath,
			Text: string(text),
			Tree: &tree,
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return files, nil
}
