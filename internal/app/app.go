// Package app assembles the database, pipeline, and engine for the CLI and
// the HTTP server.
package app

import (
	"database/sql"
	"fmt"

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

type App struct {
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
	Queue  pipeline.Queue

	local *pipeline.LocalQueue
}

// Build opens the workspace database, applies migrations, and wires the
// pipeline. When queue is nil an in-process worker pool from the config is
// used.
func Build(workspace string, cfg *config.Config, queue pipeline.Queue) (*App, error) {
	var err error
	if cfg == nil {
		cfg, err = config.Load(workspace)
		if err != nil {
			return nil, err
		}
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	registry := steps.Default()
	generators, err := generate.Default(registry, cfg.Pipeline.FixtureDir)
	if err != nil {
		conn.Close()
		return nil, err
	}

	a := &App{DB: conn, Config: cfg, Queue: queue}
	if a.Queue == nil {
		a.local = pipeline.NewLocalQueue(cfg.Pipeline.Workers)
		a.Queue = a.local
	}

	executor := pipeline.Executor{
		DataDir:    cfg.DataDir,
		Registry:   registry,
		Generators: generators,
		Projects:   repo.Repo{DB: conn},
		Events:     events.Writer{DB: conn},
	}
	driver := pipeline.Driver{Executor: executor, Queue: a.Queue}
	a.Engine = engine.New(conn, cfg, registry, driver)
	return a, nil
}

// Drain waits for in-flight pipeline work when running on the built-in
// queue. Inline CLI runs call this before exiting.
func (a *App) Drain() {
	if a.local != nil {
		a.local.Drain()
	}
}

func (a *App) Close() error {
	if a.local != nil {
		a.local.Close()
	}
	return a.DB.Close()
}
