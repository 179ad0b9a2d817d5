package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"teamload/internal/competency"
	"teamload/internal/domain"
	"teamload/internal/lifecycle"
	"teamload/internal/workload"
)

type TaskCreateOptions struct {
	ProjectID      string
	Title          string
	Description    string
	EstimatedHours float64
	Priority       domain.Priority
	StartDate      *time.Time
	Deadline       *time.Time
	AssigneeID     string
	RequiredSkills []domain.TaskSkill
}

// CreateTask adds a TODO task to a project. An initial assignee must pass the
// competency gate and is alerted on overload like a manual assignment.
func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	t := domain.Task{
		ProjectID:      opts.ProjectID,
		Title:          strings.TrimSpace(opts.Title),
		Description:    opts.Description,
		EstimatedHours: opts.EstimatedHours,
		Priority:       opts.Priority,
		Status:         domain.TaskTodo,
		StartDate:      opts.StartDate,
		Deadline:       opts.Deadline,
		RequiredSkills: opts.RequiredSkills,
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if err := domain.ValidateTask(t); err != nil {
		return t, err
	}
	if _, err := e.Store.GetProject(ctx, t.ProjectID); err != nil {
		return t, err
	}
	var assignee domain.Member
	if opts.AssigneeID != "" {
		m, err := e.Store.GetMember(ctx, opts.AssigneeID)
		if err != nil {
			return t, err
		}
		if err := e.checkCompetency(ctx, t, m); err != nil {
			return t, err
		}
		id := opts.AssigneeID
		t.AssigneeID = &id
		assignee = m
	}
	created, err := e.Store.CreateTask(ctx, t)
	if err != nil {
		return created, err
	}
	if created.Assigned() {
		e.refreshWorkloads(ctx, *created.AssigneeID)
		e.checkOverload(ctx, assignee, created)
		e.notifyAlerts(ctx)
	}
	return created, nil
}

// withSkillNames fills missing skill names so competency errors can name the skill.
func (e Engine) withSkillNames(ctx context.Context, t domain.Task) domain.Task {
	missing := false
	for _, s := range t.RequiredSkills {
		if s.SkillName == "" {
			missing = true
			break
		}
	}
	if !missing {
		return t
	}
	skills, err := e.Store.ListSkills(ctx)
	if err != nil {
		return t
	}
	names := make(map[string]string, len(skills))
	for _, s := range skills {
		names[s.ID] = s.Name
	}
	reqs := make([]domain.TaskSkill, len(t.RequiredSkills))
	for i, s := range t.RequiredSkills {
		if s.SkillName == "" {
			s.SkillName = names[s.SkillID]
		}
		reqs[i] = s
	}
	t.RequiredSkills = reqs
	return t
}

// UpdateTask replaces a task. Status changes follow the transition rules,
// assignee changes follow the assignment rules, and an assigned task whose
// assignee or requirements change is re-checked for competency.
func (e Engine) UpdateTask(ctx context.Context, t domain.Task) (TransitionResult, error) {
	existing, err := e.Store.GetTask(ctx, t.ID)
	if err != nil {
		return TransitionResult{}, err
	}
	t.ProjectID = existing.ProjectID
	t.CreatedAt = existing.CreatedAt
	if err := domain.ValidateTask(t); err != nil {
		return TransitionResult{}, err
	}

	oldAssignee, newAssignee := assigneeOf(existing), assigneeOf(t)
	if oldAssignee != newAssignee {
		if newAssignee == "" {
			if err := lifecycle.CanUnassign(existing); err != nil {
				return TransitionResult{}, err
			}
		} else if err := lifecycle.CanAssign(existing); err != nil {
			return TransitionResult{}, err
		}
	}
	if t.Status != existing.Status {
		draft := t
		draft.Status = existing.Status
		if err := lifecycle.Transition(draft, t.Status); err != nil {
			return TransitionResult{}, err
		}
	}
	var assignee domain.Member
	if newAssignee != "" && (newAssignee != oldAssignee || !sameRequirements(existing.RequiredSkills, t.RequiredSkills)) {
		m, err := e.Store.GetMember(ctx, newAssignee)
		if err != nil {
			return TransitionResult{}, err
		}
		if err := e.checkCompetency(ctx, t, m); err != nil {
			return TransitionResult{}, err
		}
		assignee = m
	}

	updated, err := e.Store.UpdateTask(ctx, t)
	if err != nil {
		return TransitionResult{}, err
	}
	e.refreshWorkloads(ctx, oldAssignee, newAssignee)
	if newAssignee != oldAssignee {
		if newAssignee != "" {
			e.checkOverload(ctx, assignee, updated)
		}
		e.notifyAlerts(ctx)
	}
	if updated.Status == existing.Status {
		p, err := e.Store.GetProject(ctx, updated.ProjectID)
		if err != nil {
			return TransitionResult{Task: updated}, err
		}
		return TransitionResult{Task: updated, ProjectStatus: p.Status}, nil
	}
	res, err := e.transitionResult(ctx, updated)
	e.notifyAlerts(ctx)
	return res, err
}

func assigneeOf(t domain.Task) string {
	if t.Assigned() {
		return *t.AssigneeID
	}
	return ""
}

func sameRequirements(a, b []domain.TaskSkill) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].SkillID != b[i].SkillID || a[i].RequiredLevel != b[i].RequiredLevel {
			return false
		}
	}
	return true
}

// DeleteTask removes a task, then refreshes its assignee's load and the project status.
func (e Engine) DeleteTask(ctx context.Context, id string) error {
	t, err := e.Store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := e.Store.DeleteTask(ctx, id); err != nil {
		return err
	}
	e.refreshWorkloads(ctx, assigneeOf(t))
	if _, _, err := e.ReconcileProject(ctx, t.ProjectID); err != nil {
		return err
	}
	e.notifyAlerts(ctx)
	return nil
}

// AddTaskSkill adds or changes a requirement. An assigned task keeps its
// assignee only if they still qualify.
func (e Engine) AddTaskSkill(ctx context.Context, taskID, skillID string, level int) (domain.Task, error) {
	if err := domain.ValidateLevel("required_level", level); err != nil {
		return domain.Task{}, err
	}
	t, err := e.Store.GetTask(ctx, taskID)
	if err != nil {
		return t, err
	}
	if t.Assigned() && t.Status == domain.TaskTodo {
		draft := t
		draft.RequiredSkills = upsertRequirement(t.RequiredSkills, domain.TaskSkill{SkillID: skillID, RequiredLevel: level})
		m, err := e.Store.GetMember(ctx, *t.AssigneeID)
		if err != nil {
			return t, err
		}
		if err := e.checkCompetency(ctx, draft, m); err != nil {
			return t, err
		}
	}
	if _, err := e.Store.GetSkill(ctx, skillID); err != nil {
		return t, err
	}
	if err := e.Store.AddTaskSkill(ctx, taskID, skillID, level); err != nil {
		return t, err
	}
	return e.Store.GetTask(ctx, taskID)
}

func upsertRequirement(reqs []domain.TaskSkill, req domain.TaskSkill) []domain.TaskSkill {
	out := make([]domain.TaskSkill, 0, len(reqs)+1)
	replaced := false
	for _, r := range reqs {
		if r.SkillID == req.SkillID {
			r.RequiredLevel = req.RequiredLevel
			replaced = true
		}
		out = append(out, r)
	}
	if !replaced {
		out = append(out, req)
	}
	return out
}

func (e Engine) RemoveTaskSkill(ctx context.Context, taskID, skillID string) (domain.Task, error) {
	if err := e.Store.RemoveTaskSkill(ctx, taskID, skillID); err != nil {
		return domain.Task{}, err
	}
	return e.Store.GetTask(ctx, taskID)
}

// AssignTask gives a TODO task to a member who meets every required skill level.
// A rejected assignment leaves task and member unchanged. An assignment that
// pushes the member past their availability raises an OVERLOAD alert.
func (e Engine) AssignTask(ctx context.Context, taskID, memberID string) (domain.Task, error) {
	t, err := e.Store.GetTask(ctx, taskID)
	if err != nil {
		return t, err
	}
	if err := lifecycle.CanAssign(t); err != nil {
		return t, err
	}
	m, err := e.Store.GetMember(ctx, memberID)
	if err != nil {
		return t, err
	}
	if err := e.checkCompetency(ctx, t, m); err != nil {
		return t, err
	}
	previous := assigneeOf(t)
	assigned, err := e.Store.AssignTask(ctx, taskID, memberID)
	if err != nil {
		return t, err
	}
	e.refreshWorkloads(ctx, previous, memberID)
	e.log().WithFields(logrus.Fields{"task_id": taskID, "member_id": memberID}).Info("task assigned")
	e.checkOverload(ctx, m, assigned)
	e.notifyAlerts(ctx)
	return assigned, nil
}

// checkCompetency runs the skill gate with skill names filled in. A rejection
// is logged with every unmet requirement, not only the first.
func (e Engine) checkCompetency(ctx context.Context, t domain.Task, m domain.Member) error {
	t = e.withSkillNames(ctx, t)
	err := competency.Check(t, m)
	if err != nil {
		var unmet []string
		for _, s := range competency.Shortfalls(t, m) {
			unmet = append(unmet, s.SkillID)
		}
		e.log().WithFields(logrus.Fields{"task_id": t.ID, "member_id": m.ID, "unmet": unmet}).Info("assignment rejected")
	}
	return err
}

// checkOverload raises an OVERLOAD alert when m's live load exceeds their
// availability after taking t. Alert failures are logged only.
func (e Engine) checkOverload(ctx context.Context, m domain.Member, t domain.Task) {
	load, err := e.MemberWorkload(ctx, m.ID)
	if err != nil || !load.Overloaded() {
		return
	}
	mid, tid := m.ID, t.ID
	_, err = e.Store.CreateAlert(ctx, domain.Alert{
		Type:     domain.AlertOverload,
		Severity: domain.SeverityHigh,
		Title:    "Member Overload Detected",
		Message: fmt.Sprintf("Member '%s' is now overloaded with %.1f hours (%.1f%% capacity) after assigning task '%s'",
			m.Name, load.CurrentWorkload, load.Percentage, t.Title),
		MemberID: &mid,
		TaskID:   &tid,
	})
	if err != nil {
		e.log().WithError(err).Warn("create overload alert")
	}
}

// UnassignTask returns an assigned TODO task to the unassigned pool.
func (e Engine) UnassignTask(ctx context.Context, taskID string) (domain.Task, error) {
	t, err := e.Store.GetTask(ctx, taskID)
	if err != nil {
		return t, err
	}
	if err := lifecycle.CanUnassign(t); err != nil {
		return t, err
	}
	unassigned, err := e.Store.UnassignTask(ctx, taskID)
	if err != nil {
		return t, err
	}
	e.refreshWorkloads(ctx, assigneeOf(t))
	e.notifyAlerts(ctx)
	return unassigned, nil
}

// StartTask moves an assigned TODO task to IN_PROGRESS and reconciles its project.
func (e Engine) StartTask(ctx context.Context, taskID string) (TransitionResult, error) {
	return e.transition(ctx, taskID, domain.TaskInProgress)
}

// CompleteTask moves an IN_PROGRESS task to COMPLETED, releasing its hours from
// the assignee's load, and reconciles its project.
func (e Engine) CompleteTask(ctx context.Context, taskID string) (TransitionResult, error) {
	return e.transition(ctx, taskID, domain.TaskCompleted)
}

func (e Engine) transition(ctx context.Context, taskID string, next domain.TaskStatus) (TransitionResult, error) {
	t, err := e.Store.GetTask(ctx, taskID)
	if err != nil {
		return TransitionResult{}, err
	}
	if err := lifecycle.Transition(t, next); err != nil {
		return TransitionResult{Task: t}, err
	}
	updated, err := e.Store.UpdateTaskStatus(ctx, taskID, next)
	if err != nil {
		return TransitionResult{Task: t}, err
	}
	e.log().WithFields(logrus.Fields{"task_id": taskID, "from": t.Status, "to": next}).Info("task transitioned")
	if next == domain.TaskCompleted {
		e.refreshWorkloads(ctx, assigneeOf(updated))
	}
	res, err := e.transitionResult(ctx, updated)
	e.notifyAlerts(ctx)
	return res, err
}

// AutoAllocate runs the allocator over an existing project and refreshes the
// cached load of every member who received work.
func (e Engine) AutoAllocate(ctx context.Context, projectID string) (domain.AllocationResult, error) {
	if _, err := e.Store.GetProject(ctx, projectID); err != nil {
		return domain.AllocationResult{}, err
	}
	if e.Allocator == nil {
		return domain.AllocationResult{}, fmt.Errorf("no allocator configured")
	}
	res, err := e.Allocator.Allocate(ctx, projectID)
	if err != nil {
		return res, err
	}
	seen := map[string]bool{}
	var ids []string
	for _, a := range res.Assignments {
		if !seen[a.MemberID] {
			seen[a.MemberID] = true
			ids = append(ids, a.MemberID)
		}
	}
	e.refreshWorkloads(ctx, ids...)
	e.notifyAlerts(ctx)
	return res, nil
}

// refreshWorkloads recomputes the cached workload of the given members from the
// live task set. Failures are logged: the cache is never authoritative.
func (e Engine) refreshWorkloads(ctx context.Context, memberIDs ...string) {
	for _, id := range memberIDs {
		if id == "" {
			continue
		}
		if err := e.syncMemberWorkload(ctx, id); err != nil {
			e.log().WithError(err).WithField("member_id", id).Warn("refresh member workload")
		}
	}
}

func (e Engine) syncMemberWorkload(ctx context.Context, memberID string) error {
	m, err := e.Store.GetMember(ctx, memberID)
	if err != nil {
		return err
	}
	tasks, err := e.Store.ListTasks(ctx, domain.TaskFilter{AssigneeID: memberID})
	if err != nil {
		return err
	}
	hours := workload.Current(memberID, tasks)
	if hours == m.CurrentWorkload {
		return nil
	}
	return e.Store.UpdateMemberWorkload(ctx, memberID, hours)
}
