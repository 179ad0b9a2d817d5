package repo

import (
	"context"
	"database/sql"
	"strings"

	"teamload/internal/domain"
	"teamload/internal/events"
)

const projectColumns = `id,name,description,start_date,deadline,status,created_at`

func scanProject(scan func(dest ...any) error) (domain.Project, error) {
	var (
		p               domain.Project
		start, deadline string
	)
	if err := scan(&p.ID, &p.Name, &p.Description, &start, &deadline, &p.Status, &p.CreatedAt); err != nil {
		return p, err
	}
	var err error
	if p.StartDate, err = parseDate(start); err != nil {
		return p, err
	}
	if p.Deadline, err = parseDate(deadline); err != nil {
		return p, err
	}
	return p, nil
}

// ListProjects returns projects newest first.
func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return getProject(ctx, r.DB, id)
}

func getProject(ctx context.Context, q querier, id string) (domain.Project, error) {
	p, err := scanProject(q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return p, notFound("project", id)
	}
	return p, err
}

// CreateProject inserts p. An empty status defaults to PLANNING.
func (r Repo) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	p.ID = newID()
	p.CreatedAt = r.timestamp()
	p.Name = strings.TrimSpace(p.Name)
	if p.Status == "" {
		p.Status = domain.ProjectPlanning
	}
	if err := domain.ValidateProject(p); err != nil {
		return p, err
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO projects(`+projectColumns+`) VALUES (?,?,?,?,?,?,?)`,
			p.ID, p.Name, p.Description, p.StartDate.Format(domain.DateLayout), p.Deadline.Format(domain.DateLayout), p.Status, p.CreatedAt); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.ProjectCreated, p.ID, "project", p.ID, events.EventPayload{"name": p.Name})
	})
	return p, err
}

// UpdateProject replaces the stored project. created_at is preserved.
func (r Repo) UpdateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := domain.ValidateProject(p); err != nil {
		return p, err
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE projects SET name=?, description=?, start_date=?, deadline=?, status=? WHERE id=?`,
			p.Name, p.Description, p.StartDate.Format(domain.DateLayout), p.Deadline.Format(domain.DateLayout), p.Status, p.ID)
		if err != nil {
			return err
		}
		if err := expectRow(res, "project", p.ID); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.ProjectUpdated, p.ID, "project", p.ID, nil)
	})
	if err != nil {
		return p, err
	}
	return r.GetProject(ctx, p.ID)
}

// UpdateProjectStatus writes a derived project status.
func (r Repo) UpdateProjectStatus(ctx context.Context, id string, status domain.ProjectStatus) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		p, err := getProject(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE projects SET status=? WHERE id=?`, status, id); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.ProjectStatusChanged, id, "project", id, events.EventPayload{"from": p.Status, "to": status})
	})
}

// DeleteProject removes the project and, by cascade, its tasks.
func (r Repo) DeleteProject(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return err
	}
	return expectRow(res, "project", id)
}
