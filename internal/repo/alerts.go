package repo

import (
	"context"
	"database/sql"

	"teamload/internal/domain"
	"teamload/internal/events"
)

const alertColumns = `id,type,severity,title,message,is_read,member_id,project_id,task_id,created_at`

// ListAlerts returns alerts newest first, optionally only unread ones.
func (r Repo) ListAlerts(ctx context.Context, unreadOnly bool) ([]domain.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts`
	if unreadOnly {
		query += ` WHERE is_read=0`
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Alert{}
	for rows.Next() {
		var (
			a                           domain.Alert
			memberID, projectID, taskID sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Type, &a.Severity, &a.Title, &a.Message, &a.Read, &memberID, &projectID, &taskID, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.MemberID = stringPtr(memberID)
		a.ProjectID = stringPtr(projectID)
		a.TaskID = stringPtr(taskID)
		res = append(res, a)
	}
	return res, rows.Err()
}

// CreateAlert stores a new unread alert. Severity defaults to MEDIUM.
func (r Repo) CreateAlert(ctx context.Context, a domain.Alert) (domain.Alert, error) {
	a.ID = newID()
	a.CreatedAt = r.timestamp()
	a.Read = false
	if a.Severity == "" {
		a.Severity = domain.SeverityMedium
	}
	if a.Type == "" {
		a.Type = domain.AlertInfo
	}
	projectID := ""
	if a.ProjectID != nil {
		projectID = *a.ProjectID
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO alerts(`+alertColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
			a.ID, a.Type, a.Severity, a.Title, a.Message, a.Read,
			nullableStringPtr(a.MemberID), nullableStringPtr(a.ProjectID), nullableStringPtr(a.TaskID), a.CreatedAt); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.AlertCreated, projectID, "alert", a.ID, events.EventPayload{"type": a.Type})
	})
	return a, err
}

func (r Repo) MarkAlertRead(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE alerts SET is_read=1 WHERE id=?`, id)
	if err != nil {
		return err
	}
	return expectRow(res, "alert", id)
}

func (r Repo) MarkAllAlertsRead(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE alerts SET is_read=1 WHERE is_read=0`)
	return err
}

func (r Repo) DeleteAlert(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM alerts WHERE id=?`, id)
	if err != nil {
		return err
	}
	return expectRow(res, "alert", id)
}

func (r Repo) UnreadAlertCount(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts WHERE is_read=0`).Scan(&n)
	return n, err
}
