package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kartoza/rue-api/internal/domain"
)

// TaskFileName is the per-step status file written next to the step's
// artifacts.
const TaskFileName = "task.json"

// WriteStatus persists the step's task record, replacing any earlier record.
func WriteStatus(stepDir string, rec domain.TaskRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal task record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(stepDir, TaskFileName), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", TaskFileName, err)
	}
	return nil
}

// ReadStatus loads the step's task record. A missing file is not an error:
// it returns a blank record and ok=false, meaning the step was never
// attempted.
func ReadStatus(stepDir string) (domain.TaskRecord, bool, error) {
	data, err := os.ReadFile(filepath.Join(stepDir, TaskFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.TaskRecord{}, false, nil
		}
		return domain.TaskRecord{}, false, err
	}
	var rec domain.TaskRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.TaskRecord{}, false, fmt.Errorf("decode %s: %w", TaskFileName, err)
	}
	return rec, true, nil
}
