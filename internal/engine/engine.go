package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kartoza/rue-api/internal/config"
	"github.com/kartoza/rue-api/internal/domain"
	"github.com/kartoza/rue-api/internal/events"
	"github.com/kartoza/rue-api/internal/geojson"
	"github.com/kartoza/rue-api/internal/pipeline"
	"github.com/kartoza/rue-api/internal/repo"
	"github.com/kartoza/rue-api/internal/steps"
)

type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Events   events.Writer
	Config   *config.Config
	Registry steps.Registry
	Driver   pipeline.Driver
	Now      func() time.Time
	NewUUID  func() string
}

func New(db *sql.DB, cfg *config.Config, registry steps.Registry, driver pipeline.Driver) Engine {
	return Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Events:   events.Writer{DB: db},
		Config:   cfg,
		Registry: registry,
		Driver:   driver,
		Now:      time.Now,
		NewUUID:  func() string { return uuid.New().String() },
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// CreateProjectOptions are the client-supplied project fields.
type CreateProjectOptions struct {
	Name        string
	Description string
	Metadata    map[string]any
	Parameters  *domain.ProjectParameters
	Site        map[string]any
	Roads       map[string]any
}

// CreateProject validates inputs and makes the full project row durable
// before returning, so generation may start immediately afterwards.
func (e Engine) CreateProject(ctx context.Context, opts CreateProjectOptions) (domain.Project, error) {
	if opts.Name == "" {
		return domain.Project{}, errors.New("name is required")
	}
	if opts.Site != nil {
		if err := geojson.ValidateFeatureCollection(opts.Site, geojson.TypePolygon); err != nil {
			return domain.Project{}, fmt.Errorf("site: %w", err)
		}
	}
	if opts.Roads != nil {
		if err := geojson.ValidateFeatureCollection(opts.Roads, geojson.TypeLineString); err != nil {
			return domain.Project{}, fmt.Errorf("roads: %w", err)
		}
	}
	p := domain.Project{
		UUID:        e.NewUUID(),
		Name:        opts.Name,
		Description: opts.Description,
		Metadata:    opts.Metadata,
		Parameters:  opts.Parameters,
		Site:        opts.Site,
		Roads:       opts.Roads,
		CreatedAt:   e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertProjectTx(ctx, tx, p); err != nil {
		return domain.Project{}, err
	}
	if err := e.Events.AppendTx(ctx, tx, "project.create", p.UUID, "", events.EventPayload{"name": p.Name}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// StartPipeline kicks off generation for a project from fromStep. maxStep
// bounds the run to steps [fromStep, maxStep); pass pipeline.NoMaxStep to run
// through the end of the registry (subject to the configured bound).
func (e Engine) StartPipeline(ctx context.Context, projectUUID string, fromStep, maxStep int) error {
	if _, err := e.Repo.GetProject(ctx, projectUUID); err != nil {
		return err
	}
	if maxStep == pipeline.NoMaxStep && e.Config != nil && e.Config.Pipeline.MaxStep != nil {
		maxStep = *e.Config.Pipeline.MaxStep
	}
	e.Driver.Start(projectUUID, fromStep, maxStep)
	return nil
}

// StepStatus returns the most recent task record for a step. A step that was
// never attempted yields a blank record, not an error.
func (e Engine) StepStatus(ctx context.Context, projectUUID, stepName string) (domain.TaskRecord, error) {
	if _, err := e.Repo.GetProject(ctx, projectUUID); err != nil {
		return domain.TaskRecord{}, err
	}
	step, err := e.Registry.ByName(stepName)
	if err != nil {
		return domain.TaskRecord{}, err
	}
	stepDir, err := e.Registry.StepDir(e.Config.DataDir, projectUUID, step.Index)
	if err != nil {
		return domain.TaskRecord{}, err
	}
	rec, _, err := pipeline.ReadStatus(stepDir)
	return rec, err
}

// ArtifactPath resolves a step artifact to its on-disk location, verifying
// it exists.
func (e Engine) ArtifactPath(ctx context.Context, projectUUID, stepName, ext string) (string, error) {
	if _, err := e.Repo.GetProject(ctx, projectUUID); err != nil {
		return "", err
	}
	path, err := e.Registry.Locate(e.Config.DataDir, projectUUID, stepName, ext)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file %s.%s %w", stepName, ext, repo.ErrNotFound)
		}
		return "", err
	}
	return path, nil
}

// StepOverview is one row of a project's per-step status summary.
type StepOverview struct {
	Step     string            `json:"step"`
	Folder   string            `json:"folder"`
	Task     domain.TaskRecord `json:"task"`
	Artifact bool              `json:"artifact"`
}

// StepOverviews reports every registry step's status and whether its primary
// artifact exists. The artifact check is the authoritative completion
// signal; the task record is informational.
func (e Engine) StepOverviews(ctx context.Context, projectUUID string) ([]StepOverview, error) {
	if _, err := e.Repo.GetProject(ctx, projectUUID); err != nil {
		return nil, err
	}
	out := make([]StepOverview, 0, e.Registry.Len())
	for _, name := range e.Registry.Names() {
		step, err := e.Registry.ByName(name)
		if err != nil {
			return nil, err
		}
		stepDir, err := e.Registry.StepDir(e.Config.DataDir, projectUUID, step.Index)
		if err != nil {
			return nil, err
		}
		rec, _, err := pipeline.ReadStatus(stepDir)
		if err != nil {
			return nil, err
		}
		path, err := e.Registry.Locate(e.Config.DataDir, projectUUID, name, steps.ExtGeoJSON)
		if err != nil {
			return nil, err
		}
		_, statErr := os.Stat(path)
		out = append(out, StepOverview{
			Step:     name,
			Folder:   step.Folder(),
			Task:     rec,
			Artifact: statErr == nil,
		})
	}
	return out, nil
}
