package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/rue-api/internal/domain"
	"github.com/kartoza/rue-api/internal/generate"
	"github.com/kartoza/rue-api/internal/pipeline"
	"github.com/kartoza/rue-api/internal/steps"
)

// syncQueue runs each job inline, so a whole chained run completes before
// Submit returns to the test.
type syncQueue struct{}

func (syncQueue) Submit(job func(ctx context.Context)) { job(context.Background()) }

// recordingGenerator writes both artifacts and logs the step order. failAt
// makes one step return a computation error.
type recordingGenerator struct {
	mu     sync.Mutex
	ran    []string
	failAt string
}

func (g *recordingGenerator) Generate(ctx context.Context, project domain.Project, step steps.Step, outDir string) ([]string, error) {
	g.mu.Lock()
	g.ran = append(g.ran, step.Name)
	g.mu.Unlock()
	if step.Name == g.failAt {
		return nil, fmt.Errorf("synthetic failure in %s", step.Name)
	}
	var out []string
	for _, ext := range step.Extensions {
		path := filepath.Join(outDir, step.Filename(ext))
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	return out, nil
}

type stubProjects struct{}

func (stubProjects) GetProject(ctx context.Context, uuid string) (domain.Project, error) {
	return domain.Project{UUID: uuid, Name: "test"}, nil
}

func newTestDriver(t *testing.T, gen *recordingGenerator) (pipeline.Driver, string) {
	t.Helper()
	dataDir := t.TempDir()
	reg := steps.Default()
	gens := generate.Registry{}
	for _, name := range reg.Names() {
		gens[name] = gen
	}
	taskSeq := 0
	ex := pipeline.Executor{
		DataDir:    dataDir,
		Registry:   reg,
		Generators: gens,
		Projects:   stubProjects{},
		NewTaskID: func() string {
			taskSeq++
			return fmt.Sprintf("task-%d", taskSeq)
		},
	}
	return pipeline.Driver{Executor: ex, Queue: syncQueue{}}, dataDir
}

func readTask(t *testing.T, dataDir, projectUUID, folder string) domain.TaskRecord {
	t.Helper()
	rec, ok, err := pipeline.ReadStatus(filepath.Join(dataDir, projectUUID, folder))
	require.NoError(t, err)
	require.True(t, ok, "expected task record in %s", folder)
	return rec
}

func TestDriverRunsFullChainInOrder(t *testing.T) {
	gen := &recordingGenerator{}
	d, dataDir := newTestDriver(t, gen)

	d.Start("p1", 0, pipeline.NoMaxStep)

	want := steps.Default().Names()
	assert.Equal(t, want, gen.ran)
	for _, name := range want {
		s, err := steps.Default().ByName(name)
		require.NoError(t, err)
		rec := readTask(t, dataDir, "p1", s.Folder())
		assert.Equal(t, domain.StatusSuccess, rec.Status)
		assert.Equal(t, "STEP "+s.Folder(), rec.Message)
		assert.NotEmpty(t, rec.TaskID)
		for _, ext := range s.Extensions {
			_, err := os.Stat(filepath.Join(dataDir, "p1", s.Folder(), s.Filename(ext)))
			assert.NoError(t, err, "missing artifact %s.%s", name, ext)
		}
	}
}

func TestDriverStopsBeforeMaxStep(t *testing.T) {
	gen := &recordingGenerator{}
	d, dataDir := newTestDriver(t, gen)

	d.Start("p1", 0, 3)

	assert.Equal(t, []string{"site", "streets", "clusters"}, gen.ran)
	_, err := os.Stat(filepath.Join(dataDir, "p1", "03-public"))
	assert.True(t, os.IsNotExist(err), "step past max must not run")
}

func TestDriverOutOfRangeTerminatesSilently(t *testing.T) {
	gen := &recordingGenerator{}
	d, dataDir := newTestDriver(t, gen)

	err := d.Advance(context.Background(), "p1", steps.Default().Len(), pipeline.NoMaxStep)
	require.NoError(t, err)
	err = d.Advance(context.Background(), "p1", -1, pipeline.NoMaxStep)
	require.NoError(t, err)

	assert.Empty(t, gen.ran)
	_, statErr := os.Stat(filepath.Join(dataDir, "p1"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestMissingPrerequisiteRecordedAndReturned(t *testing.T) {
	gen := &recordingGenerator{}
	d, dataDir := newTestDriver(t, gen)

	err := d.Advance(context.Background(), "p1", 2, pipeline.NoMaxStep)

	var perr pipeline.MissingPrerequisiteError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "01-streets", perr.Missing)
	assert.Empty(t, gen.ran, "generator must not run without prerequisite")

	rec := readTask(t, dataDir, "p1", "02-clusters")
	assert.Equal(t, domain.StatusFailed, rec.Status)
	assert.Contains(t, rec.Message, "missing previous step folder")

	_, statErr := os.Stat(filepath.Join(dataDir, "p1", "02-clusters", "clusters.geojson"))
	assert.True(t, os.IsNotExist(statErr), "no artifact on precondition failure")
}

func TestComputationFailureStopsChainQuietly(t *testing.T) {
	gen := &recordingGenerator{failAt: "public"}
	d, dataDir := newTestDriver(t, gen)

	d.Start("p1", 0, pipeline.NoMaxStep)

	assert.Equal(t, []string{"site", "streets", "clusters", "public"}, gen.ran)

	rec := readTask(t, dataDir, "p1", "03-public")
	assert.Equal(t, domain.StatusFailed, rec.Status)
	assert.Contains(t, rec.Message, "synthetic failure")

	_, statErr := os.Stat(filepath.Join(dataDir, "p1", "04-subdivision"))
	assert.True(t, os.IsNotExist(statErr), "successor must not be attempted after failure")
}

func TestRerunOverwritesExistingArtifacts(t *testing.T) {
	gen := &recordingGenerator{}
	d, dataDir := newTestDriver(t, gen)

	d.Start("p1", 0, pipeline.NoMaxStep)
	first := readTask(t, dataDir, "p1", "00-site")

	d.Start("p1", 0, pipeline.NoMaxStep)
	second := readTask(t, dataDir, "p1", "00-site")

	assert.Equal(t, 16, len(gen.ran), "every step runs again on re-generation")
	assert.NotEqual(t, first.TaskID, second.TaskID)
	assert.Equal(t, domain.StatusSuccess, second.Status)
}

func TestResumeFromMidChain(t *testing.T) {
	gen := &recordingGenerator{}
	d, _ := newTestDriver(t, gen)

	d.Start("p1", 0, 4)
	gen.ran = nil

	d.Start("p1", 4, pipeline.NoMaxStep)
	assert.Equal(t, []string{"subdivision", "footprint", "building_start", "building_max"}, gen.ran)
}

func TestReadStatusMissingFile(t *testing.T) {
	rec, ok, err := pipeline.ReadStatus(t.TempDir())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.TaskRecord{}, rec)
}
