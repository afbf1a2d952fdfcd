package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kartoza/rue-api/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const projectColumns = `uuid,name,COALESCE(description,'') AS description,metadata_json,parameters_json,site_json,roads_json,created_at`

func scanProject(scan func(dest ...any) error) (domain.Project, error) {
	var p domain.Project
	var metaRaw, paramsRaw, siteRaw, roadsRaw sql.NullString
	err := scan(&p.UUID, &p.Name, &p.Description, &metaRaw, &paramsRaw, &siteRaw, &roadsRaw, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if metaRaw.Valid && metaRaw.String != "" {
		if err := json.Unmarshal([]byte(metaRaw.String), &p.Metadata); err != nil {
			return p, fmt.Errorf("decode project metadata: %w", err)
		}
	}
	if paramsRaw.Valid && paramsRaw.String != "" {
		if err := json.Unmarshal([]byte(paramsRaw.String), &p.Parameters); err != nil {
			return p, fmt.Errorf("decode project parameters: %w", err)
		}
	}
	if siteRaw.Valid && siteRaw.String != "" {
		if err := json.Unmarshal([]byte(siteRaw.String), &p.Site); err != nil {
			return p, fmt.Errorf("decode project site: %w", err)
		}
	}
	if roadsRaw.Valid && roadsRaw.String != "" {
		if err := json.Unmarshal([]byte(roadsRaw.String), &p.Roads); err != nil {
			return p, fmt.Errorf("decode project roads: %w", err)
		}
	}
	return p, nil
}

func projectArgs(p domain.Project) ([]any, error) {
	encode := func(v any) (any, error) {
		if v == nil {
			return nil, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	meta, err := encode(mapOrNil(p.Metadata))
	if err != nil {
		return nil, fmt.Errorf("encode project metadata: %w", err)
	}
	var params any
	if p.Parameters != nil {
		params, err = encode(p.Parameters)
		if err != nil {
			return nil, fmt.Errorf("encode project parameters: %w", err)
		}
	}
	site, err := encode(mapOrNil(p.Site))
	if err != nil {
		return nil, fmt.Errorf("encode project site: %w", err)
	}
	roads, err := encode(mapOrNil(p.Roads))
	if err != nil {
		return nil, fmt.Errorf("encode project roads: %w", err)
	}
	return []any{p.UUID, p.Name, nullable(p.Description), meta, params, site, roads, p.CreatedAt}, nil
}

func mapOrNil(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}

// InsertProjectTx makes the full project row durable within tx. Fields are
// write-once; re-runs of a generation use a new project.
func (r Repo) InsertProjectTx(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	args, err := projectArgs(p)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects(uuid,name,description,metadata_json,parameters_json,site_json,roads_json,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		args...)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r Repo) GetProject(ctx context.Context, uuid string) (domain.Project, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE uuid=?`, uuid)
	return scanProject(row.Scan)
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) DeleteProject(ctx context.Context, uuid string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM projects WHERE uuid=?`, uuid)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecentEvents returns up to n most recent events for a project, newest
// first.
func (r Repo) RecentEvents(ctx context.Context, projectUUID string, n int) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,ts,type,COALESCE(project_uuid,''),COALESCE(step,''),payload_json FROM events WHERE project_uuid=? ORDER BY id DESC LIMIT ?`,
		projectUUID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.ProjectUUID, &e.Step, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
