package engine

import (
	"context"
	"strings"
	"time"

	"teamload/internal/domain"
	"teamload/internal/workload"
)

type MemberCreateOptions struct {
	Name               string
	Email              string
	WeeklyAvailability float64
	Skills             []domain.MemberSkill
}

func (e Engine) CreateMember(ctx context.Context, opts MemberCreateOptions) (domain.Member, error) {
	m := domain.Member{
		Name:               strings.TrimSpace(opts.Name),
		Email:              strings.TrimSpace(opts.Email),
		WeeklyAvailability: opts.WeeklyAvailability,
		Skills:             opts.Skills,
	}
	if err := domain.ValidateMember(m); err != nil {
		return m, err
	}
	return e.Store.CreateMember(ctx, m)
}

// UpdateMember replaces a member's profile and skills. The cached workload is
// recomputed from live tasks rather than taken from the input. Skills may not
// drop below what the member's assigned TODO tasks require.
func (e Engine) UpdateMember(ctx context.Context, m domain.Member) (domain.Member, error) {
	existing, err := e.Store.GetMember(ctx, m.ID)
	if err != nil {
		return m, err
	}
	tasks, err := e.Store.ListTasks(ctx, domain.TaskFilter{AssigneeID: m.ID})
	if err != nil {
		return m, err
	}
	m.CreatedAt = existing.CreatedAt
	m.CurrentWorkload = workload.Current(m.ID, tasks)
	if err := domain.ValidateMember(m); err != nil {
		return m, err
	}
	if err := e.checkAssignedTasks(ctx, m); err != nil {
		return existing, err
	}
	return e.Store.UpdateMember(ctx, m)
}

// checkAssignedTasks re-runs the skill gate for every TODO task assigned to m.
// Started work keeps its assignee.
func (e Engine) checkAssignedTasks(ctx context.Context, m domain.Member) error {
	tasks, err := e.Store.ListTasks(ctx, domain.TaskFilter{AssigneeID: m.ID, Status: domain.TaskTodo})
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if err := e.checkCompetency(ctx, t, m); err != nil {
			return err
		}
	}
	return nil
}

func withSkill(skills []domain.MemberSkill, skillID string, level int) []domain.MemberSkill {
	out := make([]domain.MemberSkill, 0, len(skills)+1)
	found := false
	for _, s := range skills {
		if s.SkillID == skillID {
			found = true
			if level == 0 {
				continue
			}
			s.Level = level
		}
		out = append(out, s)
	}
	if !found && level > 0 {
		out = append(out, domain.MemberSkill{SkillID: skillID, Level: level})
	}
	return out
}

// DeleteMember removes a member; their tasks become unassigned.
func (e Engine) DeleteMember(ctx context.Context, id string) error {
	if err := e.Store.DeleteMember(ctx, id); err != nil {
		return err
	}
	e.log().WithField("member_id", id).Info("member deleted")
	e.notifyAlerts(ctx)
	return nil
}

// AddMemberSkill sets a member's level for a skill. Lowering it is rejected
// while an assigned TODO task needs the old level.
func (e Engine) AddMemberSkill(ctx context.Context, memberID, skillID string, level int) (domain.Member, error) {
	if err := domain.ValidateLevel("level", level); err != nil {
		return domain.Member{}, err
	}
	m, err := e.Store.GetMember(ctx, memberID)
	if err != nil {
		return m, err
	}
	if _, err := e.Store.GetSkill(ctx, skillID); err != nil {
		return m, err
	}
	next := m
	next.Skills = withSkill(m.Skills, skillID, level)
	if err := e.checkAssignedTasks(ctx, next); err != nil {
		return m, err
	}
	if err := e.Store.AddMemberSkill(ctx, memberID, skillID, level); err != nil {
		return domain.Member{}, err
	}
	return e.Store.GetMember(ctx, memberID)
}

func (e Engine) RemoveMemberSkill(ctx context.Context, memberID, skillID string) (domain.Member, error) {
	m, err := e.Store.GetMember(ctx, memberID)
	if err != nil {
		return m, err
	}
	next := m
	next.Skills = withSkill(m.Skills, skillID, 0)
	if err := e.checkAssignedTasks(ctx, next); err != nil {
		return m, err
	}
	if err := e.Store.RemoveMemberSkill(ctx, memberID, skillID); err != nil {
		return domain.Member{}, err
	}
	return e.Store.GetMember(ctx, memberID)
}

func (e Engine) CreateSkill(ctx context.Context, name string) (domain.Skill, error) {
	return e.Store.CreateSkill(ctx, domain.Skill{Name: name})
}

// MemberWorkload computes one member's load from the live task set.
func (e Engine) MemberWorkload(ctx context.Context, memberID string) (workload.MemberLoad, error) {
	m, err := e.Store.GetMember(ctx, memberID)
	if err != nil {
		return workload.MemberLoad{}, err
	}
	tasks, err := e.Store.ListTasks(ctx, domain.TaskFilter{AssigneeID: memberID})
	if err != nil {
		return workload.MemberLoad{}, err
	}
	return workload.ForMember(m, tasks), nil
}

// TeamWorkload computes every member's load and the team aggregates.
func (e Engine) TeamWorkload(ctx context.Context) (workload.TeamStats, error) {
	members, err := e.Store.ListMembers(ctx)
	if err != nil {
		return workload.TeamStats{}, err
	}
	tasks, err := e.Store.ListTasks(ctx, domain.TaskFilter{})
	if err != nil {
		return workload.TeamStats{}, err
	}
	return workload.Team(members, tasks), nil
}

// SyncWorkloads rewrites every cached member workload that drifted from the
// live task set and returns how many were corrected.
func (e Engine) SyncWorkloads(ctx context.Context) (int, error) {
	members, err := e.Store.ListMembers(ctx)
	if err != nil {
		return 0, err
	}
	tasks, err := e.Store.ListTasks(ctx, domain.TaskFilter{})
	if err != nil {
		return 0, err
	}
	stats := workload.Team(members, tasks)
	fixed := 0
	for i, m := range members {
		hours := stats.Members[i].CurrentWorkload
		if hours == m.CurrentWorkload {
			continue
		}
		if err := e.Store.UpdateMemberWorkload(ctx, m.ID, hours); err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}

type ProjectCreateOptions struct {
	Name        string
	Description string
	StartDate   time.Time
	Deadline    time.Time
}

// CreateProject adds a PLANNING project.
func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	p := domain.Project{
		Name:        strings.TrimSpace(opts.Name),
		Description: opts.Description,
		StartDate:   opts.StartDate,
		Deadline:    opts.Deadline,
		Status:      domain.ProjectPlanning,
	}
	if err := domain.ValidateProject(p); err != nil {
		return p, err
	}
	return e.Store.CreateProject(ctx, p)
}

// UpdateProject replaces a project's editable fields. An empty status keeps
// the stored one.
func (e Engine) UpdateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	existing, err := e.Store.GetProject(ctx, p.ID)
	if err != nil {
		return p, err
	}
	if p.Status == "" {
		p.Status = existing.Status
	}
	switch p.Status {
	case domain.ProjectPlanning, domain.ProjectInProgress, domain.ProjectCompleted:
	default:
		return p, domain.ValidationError{Field: "status", Reason: "unknown project status " + string(p.Status)}
	}
	p.CreatedAt = existing.CreatedAt
	if err := domain.ValidateProject(p); err != nil {
		return p, err
	}
	return e.Store.UpdateProject(ctx, p)
}

func (e Engine) DeleteProject(ctx context.Context, id string) error {
	tasks, err := e.Store.GetProjectTasks(ctx, id)
	if err != nil {
		return err
	}
	if err := e.Store.DeleteProject(ctx, id); err != nil {
		return err
	}
	var ids []string
	for _, t := range tasks {
		ids = append(ids, assigneeOf(t))
	}
	e.refreshWorkloads(ctx, ids...)
	e.notifyAlerts(ctx)
	return nil
}
