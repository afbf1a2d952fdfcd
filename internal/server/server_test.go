package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/kartoza/rue-api/internal/config"
	"github.com/kartoza/rue-api/internal/db"
	"github.com/kartoza/rue-api/internal/engine"
	"github.com/kartoza/rue-api/internal/events"
	"github.com/kartoza/rue-api/internal/generate"
	"github.com/kartoza/rue-api/internal/migrate"
	"github.com/kartoza/rue-api/internal/pipeline"
	"github.com/kartoza/rue-api/internal/repo"
	"github.com/kartoza/rue-api/internal/steps"
)

// inlineQueue runs pipeline work synchronously, so step chains complete
// before the triggering request returns.
type inlineQueue struct{}

func (inlineQueue) Submit(job func(ctx context.Context)) { job(context.Background()) }

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, mutate func(*config.Config)) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default(workspace)
	if mutate != nil {
		mutate(cfg)
	}
	registry := steps.Default()
	generators, err := generate.Default(registry, cfg.Pipeline.FixtureDir)
	if err != nil {
		t.Fatalf("generators: %v", err)
	}
	executor := pipeline.Executor{
		DataDir:    cfg.DataDir,
		Registry:   registry,
		Generators: generators,
		Projects:   repo.Repo{DB: conn},
		Events:     events.Writer{DB: conn},
	}
	driver := pipeline.Driver{Executor: executor, Queue: inlineQueue{}}
	e := engine.New(conn, cfg, registry, driver)

	handler, err := New(Config{Engine: e, BasePath: "/v1"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func siteBody() map[string]any {
	return map[string]any{
		"type": "FeatureCollection",
		"features": []any{
			map[string]any{
				"type": "Feature",
				"geometry": map[string]any{
					"type":        "Polygon",
					"coordinates": []any{[]any{[]any{0.0, 0.0}, []any{50.0, 0.0}, []any{50.0, 50.0}, []any{0.0, 0.0}}},
				},
				"properties": map[string]any{},
			},
		},
	}
}

func TestCreateProjectRunsFullPipeline(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects", map[string]any{
		"name": "quartier",
		"site": siteBody(),
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}
	var created ProjectCreateResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal create: %v", err)
	}
	if created.ProjectUUID == "" || created.ProjectName != "quartier" {
		t.Fatalf("unexpected create response: %+v", created)
	}
	if created.File != "/v1/projects/"+created.ProjectUUID+"/files/site.gltf" {
		t.Fatalf("unexpected file url %q", created.File)
	}

	// every step ran to success
	stepsRes, stepsData := doJSON(t, client, http.MethodGet, srv.URL+"/v1/projects/"+created.ProjectUUID+"/steps", nil)
	if stepsRes.StatusCode != http.StatusOK {
		t.Fatalf("steps status %d: %s", stepsRes.StatusCode, string(stepsData))
	}
	var overviews []StepOverviewResponse
	if err := json.Unmarshal(stepsData, &overviews); err != nil {
		t.Fatalf("unmarshal steps: %v", err)
	}
	if len(overviews) != 8 {
		t.Fatalf("expected 8 steps, got %d", len(overviews))
	}
	for _, ov := range overviews {
		if ov.Task.Status != "success" || !ov.Artifact {
			t.Fatalf("step %s not complete: %+v", ov.Step, ov)
		}
	}

	// artifacts download with their media types
	fileRes, fileData := doJSON(t, client, http.MethodGet, srv.URL+created.File, nil)
	if fileRes.StatusCode != http.StatusOK {
		t.Fatalf("file status %d: %s", fileRes.StatusCode, string(fileData))
	}
	if ct := fileRes.Header.Get("Content-Type"); ct != "model/gltf+json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	geoRes, _ := doJSON(t, client, http.MethodGet, srv.URL+"/v1/projects/"+created.ProjectUUID+"/files/streets.geojson", nil)
	if geoRes.StatusCode != http.StatusOK {
		t.Fatalf("geojson status %d", geoRes.StatusCode)
	}
	if ct := geoRes.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestCreateProjectRejectsBadGeoJSON(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/projects", map[string]any{
		"name": "bad",
		"site": map[string]any{
			"type": "FeatureCollection",
			"features": []any{map[string]any{
				"type":     "Feature",
				"geometry": map[string]any{"type": "LineString", "coordinates": []any{}},
			}},
		},
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Error.Code != "invalid_geojson" {
		t.Fatalf("unexpected code %q: %s", envelope.Error.Code, string(data))
	}

	// project must not exist
	listRes, listData := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/projects", nil)
	if listRes.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", listRes.StatusCode)
	}
	var projects []ProjectResponse
	if err := json.Unmarshal(listData, &projects); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(projects) != 0 {
		t.Fatalf("expected no projects, got %d", len(projects))
	}
}

func TestStepStatusBlankWhenNotAttempted(t *testing.T) {
	// max_step 0 means creation starts nothing
	srv, cleanup := newTestServer(t, func(cfg *config.Config) {
		zero := 0
		cfg.Pipeline.MaxStep = &zero
	})
	defer cleanup()
	client := srv.Client()

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects", map[string]any{"name": "idle"})
	var created ProjectCreateResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal create: %v", err)
	}

	res, body := doJSON(t, client, http.MethodGet, srv.URL+"/v1/projects/"+created.ProjectUUID+"/steps/footprint", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(body))
	}
	var status StepStatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.Task.TaskID != "" || status.Task.Status != "" || status.Task.Message != "" {
		t.Fatalf("expected blank task, got %+v", status.Task)
	}

	// its artifact is also not downloadable yet
	fileRes, _ := doJSON(t, client, http.MethodGet, srv.URL+"/v1/projects/"+created.ProjectUUID+"/files/footprint.gltf", nil)
	if fileRes.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", fileRes.StatusCode)
	}
}

func TestGenerateRerunsPipeline(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects", map[string]any{"name": "rerun"})
	var created ProjectCreateResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal create: %v", err)
	}

	_, stepData := doJSON(t, client, http.MethodGet, srv.URL+"/v1/projects/"+created.ProjectUUID+"/steps/site", nil)
	var before StepStatusResponse
	_ = json.Unmarshal(stepData, &before)

	genRes, genData := doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects/"+created.ProjectUUID+"/generate", map[string]any{
		"from_step": 0,
	})
	if genRes.StatusCode != http.StatusAccepted {
		t.Fatalf("generate status %d: %s", genRes.StatusCode, string(genData))
	}

	_, stepData = doJSON(t, client, http.MethodGet, srv.URL+"/v1/projects/"+created.ProjectUUID+"/steps/site", nil)
	var after StepStatusResponse
	if err := json.Unmarshal(stepData, &after); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if after.Task.Status != "success" {
		t.Fatalf("expected success after rerun, got %+v", after.Task)
	}
	if after.Task.TaskID == before.Task.TaskID {
		t.Fatalf("expected fresh task id on rerun")
	}
}

func TestGenerateMidChainWithoutPrerequisite(t *testing.T) {
	srv, cleanup := newTestServer(t, func(cfg *config.Config) {
		zero := 0
		cfg.Pipeline.MaxStep = &zero
	})
	defer cleanup()
	client := srv.Client()

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects", map[string]any{"name": "orphan"})
	var created ProjectCreateResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal create: %v", err)
	}

	// generate accepts the request; the failure lands in the step record
	genRes, genData := doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects/"+created.ProjectUUID+"/generate", map[string]any{
		"from_step": 3,
		"max_step":  4,
	})
	if genRes.StatusCode != http.StatusAccepted {
		t.Fatalf("generate status %d: %s", genRes.StatusCode, string(genData))
	}

	res, body := doJSON(t, client, http.MethodGet, srv.URL+"/v1/projects/"+created.ProjectUUID+"/steps/public", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(body))
	}
	var status StepStatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.Task.Status != "failed" {
		t.Fatalf("expected failed record, got %+v", status.Task)
	}
}

func TestEventsRecorded(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects", map[string]any{"name": "evented"})
	var created ProjectCreateResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal create: %v", err)
	}

	res, body := doJSON(t, client, http.MethodGet, srv.URL+"/v1/projects/"+created.ProjectUUID+"/events?limit=100", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events status %d: %s", res.StatusCode, string(body))
	}
	var events []EventResponse
	if err := json.Unmarshal(body, &events); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	// project.create plus start/success per step
	if len(events) < 17 {
		t.Fatalf("expected full event trail, got %d", len(events))
	}
	kinds := map[string]bool{}
	for _, e := range events {
		kinds[e.Type] = true
	}
	for _, want := range []string{"project.create", "step.start", "step.success"} {
		if !kinds[want] {
			t.Fatalf("missing %s event", want)
		}
	}
}

func TestGetProjectNotFound(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/projects/does-not-exist", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Error.Code != "not_found" {
		t.Fatalf("unexpected code %q", envelope.Error.Code)
	}
}

func TestHealth(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}
