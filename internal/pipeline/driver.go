package pipeline

import (
	"context"
	"log"
)

// NoMaxStep disables the upper bound on Advance.
const NoMaxStep = -1

// Driver is the chaining state machine: it runs one step synchronously and,
// on success, submits the next step as a fresh unit of work.
type Driver struct {
	Executor Executor
	Queue    Queue
}

// Start submits the first unit of work for a run beginning at fromStep.
func (d Driver) Start(projectUUID string, fromStep, maxStep int) {
	d.Queue.Submit(func(ctx context.Context) {
		if err := d.Advance(ctx, projectUUID, fromStep, maxStep); err != nil {
			log.Printf("pipeline: project %s step %d: %v", projectUUID, fromStep, err)
		}
	})
}

// Advance executes stepIndex for the project and chains the successor.
//
//   - stepIndex outside the registry terminates silently; falling off the end
//     is the designed way a full run finishes.
//   - maxStep >= 0 bounds the run to steps [fromStep, maxStep).
//   - A successful step submits Advance(stepIndex+1) and returns without
//     waiting for it. A failed step submits nothing; the failure is visible
//     only through that step's task.json.
//
// There is no existing-artifact short-circuit: re-advancing a completed step
// re-runs and overwrites it, which is how forced regeneration works.
func (d Driver) Advance(ctx context.Context, projectUUID string, stepIndex, maxStep int) error {
	if stepIndex < 0 || stepIndex >= d.Executor.Registry.Len() {
		return nil
	}
	if maxStep >= 0 && stepIndex == maxStep {
		return nil
	}
	res, err := d.Executor.RunStep(ctx, projectUUID, stepIndex)
	if err != nil {
		return err
	}
	if res.Failed() {
		return nil
	}
	next := stepIndex + 1
	d.Queue.Submit(func(ctx context.Context) {
		if err := d.Advance(ctx, projectUUID, next, maxStep); err != nil {
			log.Printf("pipeline: project %s step %d: %v", projectUUID, next, err)
		}
	})
	return nil
}
