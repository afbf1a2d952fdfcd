package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kartoza/rue-api/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	workspace := t.TempDir()
	cfg, err := config.Load(workspace)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != filepath.Join(workspace, "projects") {
		t.Fatalf("unexpected data dir %q", cfg.DataDir)
	}
	if cfg.Server.Addr != "127.0.0.1:8000" || cfg.Server.BasePath != "/v1" {
		t.Fatalf("unexpected server defaults %+v", cfg.Server)
	}
	if cfg.Pipeline.Workers != 4 || cfg.Pipeline.MaxStep != nil {
		t.Fatalf("unexpected pipeline defaults %+v", cfg.Pipeline)
	}
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	workspace := t.TempDir()
	yml := "data_dir: /srv/rue\npipeline:\n  max_step: 3\n"
	if err := os.WriteFile(config.Path(workspace), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/srv/rue" {
		t.Fatalf("data_dir not honored: %q", cfg.DataDir)
	}
	if cfg.Pipeline.MaxStep == nil || *cfg.Pipeline.MaxStep != 3 {
		t.Fatalf("max_step not honored: %v", cfg.Pipeline.MaxStep)
	}
	if cfg.Pipeline.Workers != 4 {
		t.Fatalf("workers default not applied: %d", cfg.Pipeline.Workers)
	}
}

func TestFromYAMLRejectsBadValues(t *testing.T) {
	_, err := config.FromYAML([]byte("pipeline:\n  max_step: -2\n"))
	if err == nil || !strings.Contains(err.Error(), "max_step") {
		t.Fatalf("expected max_step error, got %v", err)
	}

	_, err = config.FromYAML([]byte("pipeline: ["))
	if err == nil || !strings.Contains(err.Error(), "invalid config yaml") {
		t.Fatalf("expected yaml error, got %v", err)
	}
}
