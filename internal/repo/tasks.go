package repo

import (
	"context"
	"database/sql"
	"strings"

	"teamload/internal/competency"
	"teamload/internal/domain"
	"teamload/internal/events"
)

const taskColumns = `id,project_id,title,description,estimated_hours,priority,status,start_date,deadline,assignee_id,created_at,updated_at`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var (
		t                           domain.Task
		start, deadline, assigneeID sql.NullString
	)
	if err := scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.EstimatedHours, &t.Priority, &t.Status,
		&start, &deadline, &assigneeID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return t, err
	}
	var err error
	if t.StartDate, err = parseNullDate(start); err != nil {
		return t, err
	}
	if t.Deadline, err = parseNullDate(deadline); err != nil {
		return t, err
	}
	t.AssigneeID = stringPtr(assigneeID)
	return t, nil
}

// ListTasks returns tasks matching f in creation order, required skills attached.
func (r Repo) ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	return listTasks(ctx, r.DB, f)
}

func listTasks(ctx context.Context, q querier, f domain.TaskFilter) ([]domain.Task, error) {
	var (
		clauses []string
		args    []any
	)
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.AssigneeID != "" {
		clauses = append(clauses, "assignee_id=?")
		args = append(args, f.AssigneeID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Unassigned {
		clauses = append(clauses, "assignee_id IS NULL")
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := q.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks`+where+` ORDER BY created_at, rowid`, args...)
	if err != nil {
		return nil, err
	}
	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, err
		}
		res = append(res, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	skills, err := taskSkills(ctx, q, "")
	if err != nil {
		return nil, err
	}
	for i := range res {
		res[i].RequiredSkills = skills[res[i].ID]
		if res[i].RequiredSkills == nil {
			res[i].RequiredSkills = []domain.TaskSkill{}
		}
	}
	return res, nil
}

// GetProjectTasks lists the tasks of an existing project.
func (r Repo) GetProjectTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	if _, err := r.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return r.ListTasks(ctx, domain.TaskFilter{ProjectID: projectID})
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return getTask(ctx, r.DB, id)
}

func getTask(ctx context.Context, q querier, id string) (domain.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return t, notFound("task", id)
	}
	if err != nil {
		return t, err
	}
	skills, err := taskSkills(ctx, q, id)
	if err != nil {
		return t, err
	}
	t.RequiredSkills = skills[id]
	if t.RequiredSkills == nil {
		t.RequiredSkills = []domain.TaskSkill{}
	}
	return t, nil
}

func taskSkills(ctx context.Context, q querier, taskID string) (map[string][]domain.TaskSkill, error) {
	query := `SELECT ts.task_id, ts.skill_id, s.name, ts.required_level FROM task_skills ts JOIN skills s ON s.id = ts.skill_id`
	var args []any
	if taskID != "" {
		query += ` WHERE ts.task_id=?`
		args = append(args, taskID)
	}
	query += ` ORDER BY ts.rowid`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string][]domain.TaskSkill{}
	for rows.Next() {
		var (
			owner string
			ts    domain.TaskSkill
		)
		if err := rows.Scan(&owner, &ts.SkillID, &ts.SkillName, &ts.RequiredLevel); err != nil {
			return nil, err
		}
		res[owner] = append(res[owner], ts)
	}
	return res, rows.Err()
}

func replaceTaskSkills(ctx context.Context, tx *sql.Tx, taskID string, skills []domain.TaskSkill) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_skills WHERE task_id=?`, taskID); err != nil {
		return err
	}
	for _, s := range skills {
		if _, err := getSkill(ctx, tx, s.SkillID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO task_skills(task_id,skill_id,required_level) VALUES (?,?,?)`, taskID, s.SkillID, s.RequiredLevel); err != nil {
			return err
		}
	}
	return nil
}

// CreateTask inserts t into an existing project. Empty priority defaults to
// MEDIUM and empty status to TODO.
func (r Repo) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	t.ID = newID()
	t.CreatedAt = r.timestamp()
	t.UpdatedAt = t.CreatedAt
	t.Title = strings.TrimSpace(t.Title)
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if t.Status == "" {
		t.Status = domain.TaskTodo
	}
	if err := domain.ValidateTask(t); err != nil {
		return t, err
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, t.ProjectID); err != nil {
			return err
		}
		if t.Assigned() {
			if _, err := getMember(ctx, tx, *t.AssigneeID); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			t.ID, t.ProjectID, t.Title, t.Description, t.EstimatedHours, t.Priority, t.Status,
			nullableDate(t.StartDate), nullableDate(t.Deadline), nullableStringPtr(t.AssigneeID), t.CreatedAt, t.UpdatedAt); err != nil {
			return err
		}
		if err := replaceTaskSkills(ctx, tx, t.ID, t.RequiredSkills); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.TaskCreated, t.ProjectID, "task", t.ID, events.EventPayload{"title": t.Title})
	})
	if err != nil {
		return t, err
	}
	return r.GetTask(ctx, t.ID)
}

// UpdateTask replaces the stored task, required skills included. The project
// and created_at are preserved.
func (r Repo) UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	if err := domain.ValidateTask(t); err != nil {
		return t, err
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if t.Assigned() {
			if _, err := getMember(ctx, tx, *t.AssigneeID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, estimated_hours=?, priority=?, status=?, start_date=?, deadline=?, assignee_id=?, updated_at=? WHERE id=?`,
			t.Title, t.Description, t.EstimatedHours, t.Priority, t.Status, nullableDate(t.StartDate), nullableDate(t.Deadline),
			nullableStringPtr(t.AssigneeID), r.timestamp(), t.ID)
		if err != nil {
			return err
		}
		if err := expectRow(res, "task", t.ID); err != nil {
			return err
		}
		if err := replaceTaskSkills(ctx, tx, t.ID, t.RequiredSkills); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.TaskUpdated, t.ProjectID, "task", t.ID, nil)
	})
	if err != nil {
		return t, err
	}
	return r.GetTask(ctx, t.ID)
}

func (r Repo) DeleteTask(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.TaskDeleted, t.ProjectID, "task", id, nil)
	})
}

// AddTaskSkill sets the required level of skillID on the task.
func (r Repo) AddTaskSkill(ctx context.Context, taskID, skillID string, level int) error {
	if err := domain.ValidateLevel("required_level", level); err != nil {
		return err
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if _, err := getSkill(ctx, tx, skillID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO task_skills(task_id,skill_id,required_level) VALUES (?,?,?)
			ON CONFLICT(task_id,skill_id) DO UPDATE SET required_level=excluded.required_level`, taskID, skillID, level); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.TaskUpdated, t.ProjectID, "task", taskID, events.EventPayload{"skill_id": skillID, "required_level": level})
	})
}

func (r Repo) RemoveTaskSkill(ctx context.Context, taskID, skillID string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM task_skills WHERE task_id=? AND skill_id=?`, taskID, skillID)
		if err != nil {
			return err
		}
		if err := expectRow(res, "task skill", taskID+"/"+skillID); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.TaskUpdated, t.ProjectID, "task", taskID, events.EventPayload{"removed_skill_id": skillID})
	})
}

// AssignTask sets the task's assignee. The competency gate is re-checked inside the
// transaction, so a failing member leaves both task and member untouched.
func (r Repo) AssignTask(ctx context.Context, taskID, memberID string) (domain.Task, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		m, err := getMember(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if err := competency.Check(t, m); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET assignee_id=?, updated_at=? WHERE id=?`, memberID, r.timestamp(), taskID); err != nil {
			return err
		}
		payload := events.EventPayload{"member_id": memberID}
		if t.AssigneeID != nil {
			payload["previous_member_id"] = *t.AssigneeID
		}
		return r.events().Append(ctx, tx, events.TaskAssigned, t.ProjectID, "task", taskID, payload)
	})
	if err != nil {
		return domain.Task{}, err
	}
	return r.GetTask(ctx, taskID)
}

func (r Repo) UnassignTask(ctx context.Context, taskID string) (domain.Task, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET assignee_id=NULL, updated_at=? WHERE id=?`, r.timestamp(), taskID); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.TaskUnassigned, t.ProjectID, "task", taskID, events.EventPayload{"member_id": t.AssigneeID})
	})
	if err != nil {
		return domain.Task{}, err
	}
	return r.GetTask(ctx, taskID)
}

func (r Repo) UpdateTaskStatus(ctx context.Context, taskID string, status domain.TaskStatus) (domain.Task, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET status=?, updated_at=? WHERE id=?`, status, r.timestamp(), taskID); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.TaskStatusChanged, t.ProjectID, "task", taskID, events.EventPayload{"from": t.Status, "to": status})
	})
	if err != nil {
		return domain.Task{}, err
	}
	return r.GetTask(ctx, taskID)
}
