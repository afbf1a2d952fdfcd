package domain

// Task statuses for a single pipeline step.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

type Project struct {
	UUID        string             `json:"uuid"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
	Parameters  *ProjectParameters `json:"parameters,omitempty"`
	Site        map[string]any     `json:"site,omitempty"`
	Roads       map[string]any     `json:"roads,omitempty"`
	CreatedAt   string             `json:"created_at" format:"date-time"`
}

// TaskRecord is the per-step status record persisted as task.json inside the
// step's output directory. A later write always supersedes an earlier one.
type TaskRecord struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status" enum:"pending,running,success,failed"`
	Message string `json:"message"`
}

type Event struct {
	ID          int64  `json:"id"`
	TS          string `json:"ts" format:"date-time"`
	Type        string `json:"type"`
	ProjectUUID string `json:"project_uuid,omitempty"`
	Step        string `json:"step,omitempty"`
	Payload     string `json:"payload_json"`
}
