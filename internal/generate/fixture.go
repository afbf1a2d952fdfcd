package generate

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kartoza/rue-api/internal/domain"
	"github.com/kartoza/rue-api/internal/steps"
)

// FixtureGenerator copies canned artifacts for a step from a fixture tree
// laid out as <NN>-<step>/<files>. Existing files in outDir are overwritten,
// matching forced-regeneration semantics.
type FixtureGenerator struct {
	FS fs.FS
}

func (g FixtureGenerator) Generate(_ context.Context, _ domain.Project, step steps.Step, outDir string) ([]string, error) {
	src := step.Folder()
	if _, err := fs.Stat(g.FS, src); err != nil {
		return nil, fmt.Errorf("fixture data for step %s: %w", step.Folder(), err)
	}
	var written []string
	err := fs.WalkDir(g.FS, src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(outDir, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		data, err := fs.ReadFile(g.FS, path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return err
		}
		written = append(written, dst)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return written, nil
}
