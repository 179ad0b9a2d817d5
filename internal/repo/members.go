package repo

import (
	"context"
	"database/sql"
	"strings"

	"teamload/internal/domain"
	"teamload/internal/events"
)

const memberColumns = `id,name,email,weekly_availability,current_workload,created_at`

func scanMember(scan func(dest ...any) error) (domain.Member, error) {
	var m domain.Member
	err := scan(&m.ID, &m.Name, &m.Email, &m.WeeklyAvailability, &m.CurrentWorkload, &m.CreatedAt)
	return m, err
}

func (r Repo) ListMembers(ctx context.Context) ([]domain.Member, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+memberColumns+` FROM members ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	res := []domain.Member{}
	for rows.Next() {
		m, err := scanMember(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, err
		}
		res = append(res, m)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	skills, err := memberSkills(ctx, r.DB, "")
	if err != nil {
		return nil, err
	}
	for i := range res {
		res[i].Skills = skills[res[i].ID]
		if res[i].Skills == nil {
			res[i].Skills = []domain.MemberSkill{}
		}
	}
	return res, nil
}

func (r Repo) GetMember(ctx context.Context, id string) (domain.Member, error) {
	return getMember(ctx, r.DB, id)
}

func getMember(ctx context.Context, q querier, id string) (domain.Member, error) {
	m, err := scanMember(q.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return m, notFound("member", id)
	}
	if err != nil {
		return m, err
	}
	skills, err := memberSkills(ctx, q, id)
	if err != nil {
		return m, err
	}
	m.Skills = skills[id]
	if m.Skills == nil {
		m.Skills = []domain.MemberSkill{}
	}
	return m, nil
}

// memberSkills loads skill levels keyed by member id in insertion order. An empty
// memberID loads every member's skills.
func memberSkills(ctx context.Context, q querier, memberID string) (map[string][]domain.MemberSkill, error) {
	query := `SELECT ms.member_id, ms.skill_id, s.name, ms.level FROM member_skills ms JOIN skills s ON s.id = ms.skill_id`
	var args []any
	if memberID != "" {
		query += ` WHERE ms.member_id=?`
		args = append(args, memberID)
	}
	query += ` ORDER BY ms.rowid`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string][]domain.MemberSkill{}
	for rows.Next() {
		var (
			owner string
			ms    domain.MemberSkill
		)
		if err := rows.Scan(&owner, &ms.SkillID, &ms.SkillName, &ms.Level); err != nil {
			return nil, err
		}
		res[owner] = append(res[owner], ms)
	}
	return res, rows.Err()
}

// CreateMember inserts m with its skills. The id and created_at are assigned here.
func (r Repo) CreateMember(ctx context.Context, m domain.Member) (domain.Member, error) {
	m.ID = newID()
	m.CreatedAt = r.timestamp()
	m.Name = strings.TrimSpace(m.Name)
	if err := domain.ValidateMember(m); err != nil {
		return m, err
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO members(`+memberColumns+`) VALUES (?,?,?,?,?,?)`,
			m.ID, m.Name, m.Email, m.WeeklyAvailability, m.CurrentWorkload, m.CreatedAt); err != nil {
			return err
		}
		if err := replaceMemberSkills(ctx, tx, m.ID, m.Skills); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.MemberCreated, "", "member", m.ID, events.EventPayload{"name": m.Name})
	})
	if err != nil {
		return m, err
	}
	return r.GetMember(ctx, m.ID)
}

// UpdateMember replaces the stored member, skills included. created_at is preserved.
func (r Repo) UpdateMember(ctx context.Context, m domain.Member) (domain.Member, error) {
	m.Name = strings.TrimSpace(m.Name)
	if err := domain.ValidateMember(m); err != nil {
		return m, err
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE members SET name=?, email=?, weekly_availability=?, current_workload=? WHERE id=?`,
			m.Name, m.Email, m.WeeklyAvailability, m.CurrentWorkload, m.ID)
		if err != nil {
			return err
		}
		if err := expectRow(res, "member", m.ID); err != nil {
			return err
		}
		if err := replaceMemberSkills(ctx, tx, m.ID, m.Skills); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.MemberUpdated, "", "member", m.ID, nil)
	})
	if err != nil {
		return m, err
	}
	return r.GetMember(ctx, m.ID)
}

func replaceMemberSkills(ctx context.Context, tx *sql.Tx, memberID string, skills []domain.MemberSkill) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM member_skills WHERE member_id=?`, memberID); err != nil {
		return err
	}
	for _, s := range skills {
		if _, err := getSkill(ctx, tx, s.SkillID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO member_skills(member_id,skill_id,level) VALUES (?,?,?)`, memberID, s.SkillID, s.Level); err != nil {
			return err
		}
	}
	return nil
}

// DeleteMember removes the member; their tasks become unassigned.
func (r Repo) DeleteMember(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET assignee_id=NULL, updated_at=? WHERE assignee_id=?`, r.timestamp(), id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM members WHERE id=?`, id)
		if err != nil {
			return err
		}
		if err := expectRow(res, "member", id); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.MemberDeleted, "", "member", id, nil)
	})
}

// AddMemberSkill sets the member's level for skillID, replacing any previous level.
func (r Repo) AddMemberSkill(ctx context.Context, memberID, skillID string, level int) error {
	if err := domain.ValidateLevel("level", level); err != nil {
		return err
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getSkill(ctx, tx, skillID); err != nil {
			return err
		}
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM members WHERE id=?`, memberID).Scan(&exists); err == sql.ErrNoRows {
			return notFound("member", memberID)
		} else if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO member_skills(member_id,skill_id,level) VALUES (?,?,?)
			ON CONFLICT(member_id,skill_id) DO UPDATE SET level=excluded.level`, memberID, skillID, level); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.MemberUpdated, "", "member", memberID, events.EventPayload{"skill_id": skillID, "level": level})
	})
}

func (r Repo) RemoveMemberSkill(ctx context.Context, memberID, skillID string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM member_skills WHERE member_id=? AND skill_id=?`, memberID, skillID)
		if err != nil {
			return err
		}
		if err := expectRow(res, "member skill", memberID+"/"+skillID); err != nil {
			return err
		}
		return r.events().Append(ctx, tx, events.MemberUpdated, "", "member", memberID, events.EventPayload{"removed_skill_id": skillID})
	})
}

// UpdateMemberWorkload caches the member's computed workload hours.
func (r Repo) UpdateMemberWorkload(ctx context.Context, memberID string, hours float64) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE members SET current_workload=? WHERE id=?`, hours, memberID)
	if err != nil {
		return err
	}
	return expectRow(res, "member", memberID)
}
