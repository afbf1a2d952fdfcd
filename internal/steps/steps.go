// Package steps holds the fixed, ordered registry of pipeline stages and the
// addressing scheme mapping (project, step, extension) to artifact paths.
package steps

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Artifact extensions each step is expected to produce.
const (
	ExtGeoJSON = "geojson"
	ExtGLTF    = "gltf"
)

var (
	ErrUnknownStep      = errors.New("unknown step")
	ErrUnknownExtension = errors.New("unknown extension")
)

// Step is one registry entry. The ordinal index defines execution order.
type Step struct {
	Index      int
	Name       string
	Extensions []string
}

// Folder returns the step's directory name, e.g. "01-streets".
func (s Step) Folder() string {
	return fmt.Sprintf("%02d-%s", s.Index, s.Name)
}

// Filename returns the artifact file name for an extension, e.g.
// "streets.geojson". The extension is not checked here; use Locate.
func (s Step) Filename(ext string) string {
	return s.Name + "." + ext
}

func (s Step) hasExtension(ext string) bool {
	for _, e := range s.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Registry is the ordered sequence of steps. It is fixed and global to the
// deployment, not per-project; build it once at startup and pass it in.
type Registry struct {
	steps  []Step
	byName map[string]int
}

// Default returns the production registry.
func Default() Registry {
	names := []string{
		"site",
		"streets",
		"clusters",
		"public",
		"subdivision",
		"footprint",
		"building_start",
		"building_max",
	}
	steps := make([]Step, len(names))
	for i, name := range names {
		steps[i] = Step{Index: i, Name: name, Extensions: []string{ExtGeoJSON, ExtGLTF}}
	}
	return New(steps)
}

// New builds a registry from an ordered step list, normalizing indexes.
func New(list []Step) Registry {
	r := Registry{byName: make(map[string]int, len(list))}
	for i, s := range list {
		s.Index = i
		r.steps = append(r.steps, s)
		r.byName[s.Name] = i
	}
	return r
}

func (r Registry) Len() int { return len(r.steps) }

// At returns the step at ordinal index.
func (r Registry) At(index int) (Step, error) {
	if index < 0 || index >= len(r.steps) {
		return Step{}, fmt.Errorf("%w: index %d", ErrUnknownStep, index)
	}
	return r.steps[index], nil
}

// ByName resolves a step by canonical name.
func (r Registry) ByName(name string) (Step, error) {
	i, ok := r.byName[name]
	if !ok {
		return Step{}, fmt.Errorf("%w: %q", ErrUnknownStep, name)
	}
	return r.steps[i], nil
}

// Names returns step names in execution order.
func (r Registry) Names() []string {
	out := make([]string, len(r.steps))
	for i, s := range r.steps {
		out[i] = s.Name
	}
	return out
}

// ProjectDir returns the root directory for a project's artifacts.
func ProjectDir(dataDir, projectUUID string) string {
	return filepath.Join(dataDir, projectUUID)
}

// StepDir returns the output directory for a step of a project.
func (r Registry) StepDir(dataDir, projectUUID string, index int) (string, error) {
	s, err := r.At(index)
	if err != nil {
		return "", err
	}
	return filepath.Join(ProjectDir(dataDir, projectUUID), s.Folder()), nil
}

// Locate maps (project, step, extension) to the artifact path. It is a pure
// function of its inputs: no I/O, stable across restarts.
func (r Registry) Locate(dataDir, projectUUID, stepName, ext string) (string, error) {
	s, err := r.ByName(stepName)
	if err != nil {
		return "", err
	}
	if !s.hasExtension(ext) {
		return "", fmt.Errorf("%w: %q for step %q", ErrUnknownExtension, ext, stepName)
	}
	return filepath.Join(ProjectDir(dataDir, projectUUID), s.Folder(), s.Filename(ext)), nil
}
