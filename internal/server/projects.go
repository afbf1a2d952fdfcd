package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kartoza/rue-api/internal/engine"
	"github.com/kartoza/rue-api/internal/pipeline"
	"github.com/kartoza/rue-api/internal/steps"
)

func registerProjects(api huma.API, e engine.Engine, basePath string) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project and start generation",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body ProjectCreateResponse `json:"body"`
	}, error) {
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		p, err := e.CreateProject(ctx, engine.CreateProjectOptions{
			Name:        input.Body.Name,
			Description: deref(input.Body.Description),
			Metadata:    input.Body.Metadata,
			Parameters:  input.Body.Parameters,
			Site:        input.Body.Site,
			Roads:       input.Body.Roads,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if err := e.StartPipeline(ctx, p.UUID, 0, pipeline.NoMaxStep); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectCreateResponse `json:"body"`
		}{Body: ProjectCreateResponse{
			ProjectUUID: p.UUID,
			ProjectName: p.Name,
			File:        fileURL(basePath, p.UUID, "site", steps.ExtGLTF),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ProjectResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]ProjectResponse, 0, len(items))
		for _, p := range items {
			res = append(res, projectResponse(p))
		}
		return &struct {
			Body []ProjectResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{uuid}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UUID string `path:"uuid"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		p, err := e.Repo.GetProject(ctx, input.UUID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "generate-project",
		Method:        http.MethodPost,
		Path:          "/projects/{uuid}/generate",
		Summary:       "Run the generation pipeline",
		Description:   "Re-runs steps from from_step, overwriting existing artifacts. max_step bounds the run to steps [from_step, max_step).",
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UUID string          `path:"uuid"`
		Body GenerateRequest `json:"body"`
	}) (*struct {
		Body GenerateResponse `json:"body"`
	}, error) {
		maxStep := pipeline.NoMaxStep
		if input.Body.MaxStep != nil {
			maxStep = *input.Body.MaxStep
		}
		if err := e.StartPipeline(ctx, input.UUID, input.Body.FromStep, maxStep); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body GenerateResponse `json:"body"`
		}{Body: GenerateResponse{ProjectUUID: input.UUID, FromStep: input.Body.FromStep}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-step-status",
		Method:      http.MethodGet,
		Path:        "/projects/{uuid}/steps/{step}",
		Summary:     "Get step status",
		Description: "Returns blank task fields when the step has not been attempted.",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UUID string `path:"uuid"`
		Step string `path:"step"`
	}) (*struct {
		Body StepStatusResponse `json:"body"`
	}, error) {
		rec, err := e.StepStatus(ctx, input.UUID, input.Step)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StepStatusResponse `json:"body"`
		}{Body: StepStatusResponse{
			File: fileURL(basePath, input.UUID, input.Step, steps.ExtGLTF),
			Task: taskResponse(rec),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project-events",
		Method:      http.MethodGet,
		Path:        "/projects/{uuid}/events",
		Summary:     "List recent pipeline events",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UUID  string `path:"uuid"`
		Limit int    `query:"limit" default:"50" minimum:"1" maximum:"500"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.UUID); err != nil {
			return nil, handleError(err)
		}
		limit := input.Limit
		if limit <= 0 {
			limit = 50
		}
		items, err := e.Repo.RecentEvents(ctx, input.UUID, limit)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]EventResponse, 0, len(items))
		for _, evt := range items {
			res = append(res, eventResponse(evt))
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project-steps",
		Method:      http.MethodGet,
		Path:        "/projects/{uuid}/steps",
		Summary:     "Get all step statuses",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UUID string `path:"uuid"`
	}) (*struct {
		Body []StepOverviewResponse `json:"body"`
	}, error) {
		overviews, err := e.StepOverviews(ctx, input.UUID)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]StepOverviewResponse, 0, len(overviews))
		for _, ov := range overviews {
			res = append(res, StepOverviewResponse{
				Step:     ov.Step,
				Folder:   ov.Folder,
				Task:     taskResponse(ov.Task),
				Artifact: ov.Artifact,
			})
		}
		return &struct {
			Body []StepOverviewResponse `json:"body"`
		}{Body: res}, nil
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
