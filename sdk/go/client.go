package ruesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal RUE HTTP API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults. baseURL includes the API
// prefix, e.g. "http://127.0.0.1:8000/v1".
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// Project represents the API project model.
type Project struct {
	UUID        string         `json:"uuid"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   string         `json:"created_at"`
}

// ProjectCreated is the creation response: the new project's identity
// plus the URL of the first artifact the pipeline will produce.
type ProjectCreated struct {
	ProjectUUID string `json:"project_uuid"`
	ProjectName string `json:"project_name"`
	File        string `json:"file"`
}

// Task is a step's recorded execution status.
type Task struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StepStatus pairs a step's artifact URL with its task record.
type StepStatus struct {
	File string `json:"file"`
	Task Task   `json:"task"`
}

// StepOverview summarises one step of a project's pipeline.
type StepOverview struct {
	Step     string `json:"step"`
	Folder   string `json:"folder"`
	Task     Task   `json:"task"`
	Artifact bool   `json:"artifact"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateProject creates a project and starts its pipeline. site and
// roads are optional GeoJSON FeatureCollections; parameters and
// metadata are passed through as-is.
func (c *Client) CreateProject(ctx context.Context, name string, site, roads map[string]any, parameters any, metadata map[string]any) (ProjectCreated, error) {
	body := map[string]any{"name": name}
	if site != nil {
		body["site"] = site
	}
	if roads != nil {
		body["roads"] = roads
	}
	if parameters != nil {
		body["parameters"] = parameters
	}
	if metadata != nil {
		body["metadata"] = metadata
	}
	var resp ProjectCreated
	err := c.do(ctx, http.MethodPost, "projects", body, &resp)
	return resp, err
}

// Projects lists all projects.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var resp []Project
	err := c.do(ctx, http.MethodGet, "projects", nil, &resp)
	return resp, err
}

// Project fetches a project by uuid.
func (c *Client) Project(ctx context.Context, projectUUID string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, c.projectPath(projectUUID, ""), nil, &resp)
	return resp, err
}

// Generate runs the pipeline from fromStep. maxStep, when non-nil, is
// the exclusive upper bound on steps to run. Existing artifacts for the
// requested range are regenerated.
func (c *Client) Generate(ctx context.Context, projectUUID string, fromStep int, maxStep *int) error {
	body := map[string]any{"from_step": fromStep}
	if maxStep != nil {
		body["max_step"] = *maxStep
	}
	return c.do(ctx, http.MethodPost, c.projectPath(projectUUID, "generate"), body, nil)
}

// StepStatus returns one step's artifact URL and task record. A step
// that has never run yields a blank task.
func (c *Client) StepStatus(ctx context.Context, projectUUID, step string) (StepStatus, error) {
	var resp StepStatus
	endpoint := c.projectPath(projectUUID, "steps/"+url.PathEscape(step))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Steps returns the status of every pipeline step, in order.
func (c *Client) Steps(ctx context.Context, projectUUID string) ([]StepOverview, error) {
	var resp []StepOverview
	err := c.do(ctx, http.MethodGet, c.projectPath(projectUUID, "steps"), nil, &resp)
	return resp, err
}

// File downloads a step artifact, e.g. "site.geojson" or "footprint.gltf".
func (c *Client) File(ctx context.Context, projectUUID, filename string) ([]byte, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	endpoint := c.base() + "/" + c.projectPath(projectUUID, "files/"+url.PathEscape(filename))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) projectPath(projectUUID, p string) string {
	base := "projects/" + url.PathEscape(projectUUID)
	if p == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
