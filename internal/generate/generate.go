// Package generate holds the per-step artifact generators. Each pipeline
// step maps to one Generator; steps whose geometry algorithms are not
// integrated yet use the fixture-copy variant.
package generate

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kartoza/rue-api/internal/domain"
	"github.com/kartoza/rue-api/internal/steps"
)

//go:embed fixtures
var fixturesFS embed.FS

// Generator produces the artifact files for one step into outDir and returns
// the paths it wrote. Any error is treated as a computation failure by the
// executor.
type Generator interface {
	Generate(ctx context.Context, project domain.Project, step steps.Step, outDir string) ([]string, error)
}

// Registry maps step name to its generator.
type Registry map[string]Generator

// Default wires the production generators: site and streets produce real
// output from project inputs, the remaining steps copy fixture artifacts.
// fixtureDir, when non-empty, overrides the embedded fixtures.
func Default(reg steps.Registry, fixtureDir string) (Registry, error) {
	var fixtures fs.FS
	if fixtureDir != "" {
		fixtures = os.DirFS(fixtureDir)
	} else {
		sub, err := fs.Sub(fixturesFS, "fixtures")
		if err != nil {
			return nil, err
		}
		fixtures = sub
	}
	out := Registry{
		"site":    SiteGenerator{},
		"streets": StreetsGenerator{},
	}
	fixture := FixtureGenerator{FS: fixtures}
	for _, name := range reg.Names() {
		if _, ok := out[name]; !ok {
			out[name] = fixture
		}
	}
	return out, nil
}

// For returns the generator registered for a step.
func (r Registry) For(step steps.Step) (Generator, error) {
	g, ok := r[step.Name]
	if !ok {
		return nil, fmt.Errorf("no generator for step %q", step.Name)
	}
	return g, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// emptyModel is a minimal valid glTF 2.0 document used until real 3D export
// is wired in; the frontend only needs a parseable scene.
func emptyModel(name string) map[string]any {
	return map[string]any{
		"asset":  map[string]any{"version": "2.0", "generator": "rue-api"},
		"scene":  0,
		"scenes": []map[string]any{{"name": name, "nodes": []int{}}},
	}
}

func writeModel(step steps.Step, outDir string) (string, error) {
	path := filepath.Join(outDir, step.Filename(steps.ExtGLTF))
	if err := writeJSON(path, emptyModel(step.Name)); err != nil {
		return "", err
	}
	return path, nil
}
