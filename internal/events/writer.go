package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Writer appends pipeline lifecycle events (project.create, step.start,
// step.success, step.failed) to the event log.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

func (w Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// Append writes an event outside any transaction. Step executors use this:
// a lost event must not roll back a completed step.
func (w Writer) Append(ctx context.Context, evtType, projectUUID, step string, payload EventPayload) error {
	return w.append(ctx, w.DB.ExecContext, evtType, projectUUID, step, payload)
}

// AppendTx writes an event within tx, alongside the row change it describes.
func (w Writer) AppendTx(ctx context.Context, tx *sql.Tx, evtType, projectUUID, step string, payload EventPayload) error {
	return w.append(ctx, tx.ExecContext, evtType, projectUUID, step, payload)
}

type execFunc func(ctx context.Context, query string, args ...any) (sql.Result, error)

func (w Writer) append(ctx context.Context, exec execFunc, evtType, projectUUID, step string, payload EventPayload) error {
	ts := w.now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = exec(ctx, `INSERT INTO events(ts,type,project_uuid,step,payload_json) VALUES (?,?,?,?,?)`,
		ts, evtType, nullable(projectUUID), nullable(step), string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
