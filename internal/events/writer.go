package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"teamload/internal/domain"
)

// Event types recorded by the store.
const (
	MemberCreated        = "member.created"
	MemberUpdated        = "member.updated"
	MemberDeleted        = "member.deleted"
	SkillCreated         = "skill.created"
	ProjectCreated       = "project.created"
	ProjectUpdated       = "project.updated"
	ProjectStatusChanged = "project.status_changed"
	TaskCreated          = "task.created"
	TaskUpdated          = "task.updated"
	TaskDeleted          = "task.deleted"
	TaskAssigned         = "task.assigned"
	TaskUnassigned       = "task.unassigned"
	TaskStatusChanged    = "task.status_changed"
	AlertCreated         = "alert.created"
)

type Writer struct {
	Now func() time.Time
}

type EventPayload map[string]any

// Append records an event inside tx so it commits or rolls back with the change it describes.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, projectID, entityKind, entityID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339Nano)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,project_id,entity_kind,entity_id,payload_json) VALUES (?,?,?,?,?,?)`,
		ts, evtType, nullable(projectID), entityKind, nullable(entityID), string(data))
	return err
}

// Tail returns the most recent events, newest first.
func Tail(ctx context.Context, db *sql.DB, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `SELECT id,ts,type,project_id,entity_kind,entity_id,payload_json FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		var (
			e                   domain.Event
			projectID, entityID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &projectID, &e.EntityKind, &entityID, &e.Payload); err != nil {
			return nil, err
		}
		e.ProjectID = projectID.String
		e.EntityID = entityID.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
