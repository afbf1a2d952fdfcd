package server

import (
	"encoding/json"
	"fmt"

	"github.com/kartoza/rue-api/internal/domain"
)

// Request payloads

type CreateProjectRequest struct {
	Name        string                    `json:"name"`
	Description *string                   `json:"description,omitempty"`
	Site        map[string]any            `json:"site,omitempty" jsonschema:"type=object,additionalProperties=true" doc:"Site polygon GeoJSON FeatureCollection"`
	Roads       map[string]any            `json:"roads,omitempty" jsonschema:"type=object,additionalProperties=true" doc:"Road lines GeoJSON FeatureCollection"`
	Parameters  *domain.ProjectParameters `json:"parameters,omitempty" doc:"Urban design parameters"`
	Metadata    map[string]any            `json:"metadata,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type GenerateRequest struct {
	FromStep int  `json:"from_step,omitempty" minimum:"0"`
	MaxStep  *int `json:"max_step,omitempty" minimum:"0" doc:"Exclusive upper bound on steps to run"`
}

// Response payloads

type ProjectCreateResponse struct {
	ProjectUUID string `json:"project_uuid"`
	ProjectName string `json:"project_name"`
	File        string `json:"file"`
}

type ProjectResponse struct {
	UUID        string                    `json:"uuid"`
	Name        string                    `json:"name"`
	Description string                    `json:"description,omitempty"`
	Metadata    map[string]any            `json:"metadata,omitempty"`
	Parameters  *domain.ProjectParameters `json:"parameters,omitempty"`
	CreatedAt   string                    `json:"created_at" format:"date-time"`
}

type GenerateResponse struct {
	ProjectUUID string `json:"project_uuid"`
	FromStep    int    `json:"from_step"`
}

type TaskResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type StepStatusResponse struct {
	File string       `json:"file"`
	Task TaskResponse `json:"task"`
}

type StepOverviewResponse struct {
	Step     string       `json:"step"`
	Folder   string       `json:"folder"`
	Task     TaskResponse `json:"task"`
	Artifact bool         `json:"artifact"`
}

type EventResponse struct {
	ID      int64          `json:"id"`
	TS      string         `json:"ts" format:"date-time"`
	Type    string         `json:"type"`
	Step    string         `json:"step,omitempty"`
	Payload map[string]any `json:"payload,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// Conversion helpers

func projectResponse(p domain.Project) ProjectResponse {
	return ProjectResponse{
		UUID:        p.UUID,
		Name:        p.Name,
		Description: p.Description,
		Metadata:    p.Metadata,
		Parameters:  p.Parameters,
		CreatedAt:   p.CreatedAt,
	}
}

func taskResponse(rec domain.TaskRecord) TaskResponse {
	return TaskResponse(rec)
}

func eventResponse(e domain.Event) EventResponse {
	out := EventResponse{ID: e.ID, TS: e.TS, Type: e.Type, Step: e.Step}
	if e.Payload != "" {
		_ = json.Unmarshal([]byte(e.Payload), &out.Payload)
	}
	return out
}

func fileURL(basePath, projectUUID, stepName, ext string) string {
	return fmt.Sprintf("%s/projects/%s/files/%s.%s", basePath, projectUUID, stepName, ext)
}
