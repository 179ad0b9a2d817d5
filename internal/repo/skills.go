package repo

import (
	"context"
	"database/sql"
	"strings"

	"teamload/internal/domain"
	"teamload/internal/events"
)

func (r Repo) ListSkills(ctx context.Context) ([]domain.Skill, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name FROM skills ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Skill{}
	for rows.Next() {
		var s domain.Skill
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) GetSkill(ctx context.Context, id string) (domain.Skill, error) {
	return getSkill(ctx, r.DB, id)
}

func getSkill(ctx context.Context, q querier, id string) (domain.Skill, error) {
	var s domain.Skill
	err := q.QueryRowContext(ctx, `SELECT id,name FROM skills WHERE id=?`, id).Scan(&s.ID, &s.Name)
	if err == sql.ErrNoRows {
		return s, notFound("skill", id)
	}
	return s, err
}

// CreateSkill inserts a skill; names are unique case-sensitively.
func (r Repo) CreateSkill(ctx context.Context, s domain.Skill) (domain.Skill, error) {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return s, domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if s.ID == "" {
		s.ID = newID()
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx, `SELECT id FROM skills WHERE name=?`, s.Name).Scan(&existing)
		if err == nil {
			return domain.ValidationError{Field: "name", Reason: "skill " + s.Name + " already exists"}
		}
		if err != sql.ErrNoRows {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO skills(id,name,created_at) VALUES (?,?,?)`, s.ID, s.Name, r.timestamp()); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.SkillCreated, "", "skill", s.ID, events.EventPayload{"name": s.Name})
	})
	return s, err
}
