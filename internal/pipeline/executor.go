package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/kartoza/rue-api/internal/domain"
	"github.com/kartoza/rue-api/internal/events"
	"github.com/kartoza/rue-api/internal/generate"
	"github.com/kartoza/rue-api/internal/steps"
)

// MissingPrerequisiteError reports that a step was attempted before its
// predecessor produced any output. It is a hard precondition failure, not a
// transient condition to retry.
type MissingPrerequisiteError struct {
	Missing string // folder name of the absent previous step
}

func (e MissingPrerequisiteError) Error() string {
	return fmt.Sprintf("missing previous step folder: %s", e.Missing)
}

// ProjectSource provides the project fields generators read. Satisfied by
// repo.Repo.
type ProjectSource interface {
	GetProject(ctx context.Context, uuid string) (domain.Project, error)
}

// StepResult reports one executor run. Err holds an absorbed computation
// failure: it is recorded in the step's task.json and must not crash the
// worker, so RunStep does not return it as its own error.
type StepResult struct {
	Step      steps.Step
	TaskID    string
	Status    string
	Message   string
	Artifacts []string
}

// Failed reports whether the step ended in a FAILED record.
func (r StepResult) Failed() bool { return r.Status != domain.StatusSuccess }

// Executor runs one step's computation and maintains its status record.
type Executor struct {
	DataDir    string
	Registry   steps.Registry
	Generators generate.Registry
	Projects   ProjectSource
	Events     events.Writer
	NewTaskID  func() string
}

func (ex Executor) taskID() string {
	if ex.NewTaskID != nil {
		return ex.NewTaskID()
	}
	return uuid.New().String()
}

// RunStep executes one step for a project. The returned error covers
// infrastructure faults and precondition violations (unknown step, unusable
// output directory, missing prerequisite); generator failures are recorded
// as FAILED in the step's task.json and reported through the result only.
// In every attempted run the status file is written before computation
// starts, so observers see the in-progress record rather than stale state.
func (ex Executor) RunStep(ctx context.Context, projectUUID string, stepIndex int) (StepResult, error) {
	step, err := ex.Registry.At(stepIndex)
	if err != nil {
		return StepResult{}, err
	}
	stepDir, err := ex.Registry.StepDir(ex.DataDir, projectUUID, stepIndex)
	if err != nil {
		return StepResult{}, err
	}
	if err := os.MkdirAll(stepDir, 0o755); err != nil {
		return StepResult{}, fmt.Errorf("create step dir: %w", err)
	}

	res := StepResult{Step: step, TaskID: ex.taskID(), Status: domain.StatusPending}
	if err := WriteStatus(stepDir, domain.TaskRecord{TaskID: res.TaskID, Status: domain.StatusPending}); err != nil {
		return res, err
	}
	ex.event(ctx, "step.start", projectUUID, step, events.EventPayload{"task_id": res.TaskID})

	if stepIndex > 0 {
		prev, _ := ex.Registry.At(stepIndex - 1)
		prevDir, _ := ex.Registry.StepDir(ex.DataDir, projectUUID, stepIndex-1)
		if _, statErr := os.Stat(prevDir); os.IsNotExist(statErr) {
			perr := MissingPrerequisiteError{Missing: prev.Folder()}
			ex.recordFailure(ctx, projectUUID, stepDir, &res, perr)
			return res, perr
		}
	}

	project, err := ex.Projects.GetProject(ctx, projectUUID)
	if err != nil {
		ex.recordFailure(ctx, projectUUID, stepDir, &res, err)
		return res, err
	}

	gen, err := ex.Generators.For(step)
	if err != nil {
		ex.recordFailure(ctx, projectUUID, stepDir, &res, err)
		return res, err
	}

	artifacts, genErr := gen.Generate(ctx, project, step, stepDir)
	if genErr != nil {
		// Computation failure is terminal for the chain but must not
		// propagate: the FAILED record is the only trace.
		ex.recordFailure(ctx, projectUUID, stepDir, &res, genErr)
		return res, nil
	}

	res.Status = domain.StatusSuccess
	res.Message = fmt.Sprintf("STEP %s", step.Folder())
	res.Artifacts = artifacts
	if err := WriteStatus(stepDir, domain.TaskRecord{TaskID: res.TaskID, Status: domain.StatusSuccess, Message: res.Message}); err != nil {
		return res, err
	}
	ex.event(ctx, "step.success", projectUUID, step, events.EventPayload{"task_id": res.TaskID, "artifacts": len(artifacts)})
	return res, nil
}

func (ex Executor) recordFailure(ctx context.Context, projectUUID, stepDir string, res *StepResult, cause error) {
	res.Status = domain.StatusFailed
	res.Message = cause.Error()
	_ = WriteStatus(stepDir, domain.TaskRecord{TaskID: res.TaskID, Status: domain.StatusFailed, Message: res.Message})
	ex.event(ctx, "step.failed", projectUUID, res.Step, events.EventPayload{"task_id": res.TaskID, "error": res.Message})
}

func (ex Executor) event(ctx context.Context, evtType, projectUUID string, step steps.Step, payload events.EventPayload) {
	if ex.Events.DB == nil {
		return
	}
	_ = ex.Events.Append(ctx, evtType, projectUUID, step.Name, payload)
}
