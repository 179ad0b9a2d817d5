package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"teamload/internal/db"
	"teamload/internal/domain"
	"teamload/internal/migrate"
)

func newTestRepo(t *testing.T) Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(conn)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func seedProject(t *testing.T, r Repo) domain.Project {
	t.Helper()
	p, err := r.CreateProject(context.Background(), domain.Project{Name: "Apollo", StartDate: mustDate(t, "2024-01-01"), Deadline: mustDate(t, "2024-01-31")})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func TestMemberSkillsRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	sql, err := r.CreateSkill(ctx, domain.Skill{Name: "SQL"})
	if err != nil {
		t.Fatalf("create skill: %v", err)
	}
	goSkill, _ := r.CreateSkill(ctx, domain.Skill{Name: "Go"})
	if _, err := r.CreateSkill(ctx, domain.Skill{Name: "SQL"}); err == nil {
		t.Fatalf("expected duplicate skill to fail")
	}

	m, err := r.CreateMember(ctx, domain.Member{Name: "Ada", Email: "ada@example.com", WeeklyAvailability: 40,
		Skills: []domain.MemberSkill{{SkillID: sql.ID, Level: 3}}})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	if len(m.Skills) != 1 || m.Skills[0].SkillName != "SQL" {
		t.Fatalf("expected skill name resolved, got %+v", m.Skills)
	}
	if err := r.AddMemberSkill(ctx, m.ID, goSkill.ID, 5); err != nil {
		t.Fatalf("add skill: %v", err)
	}
	if err := r.AddMemberSkill(ctx, m.ID, sql.ID, 4); err != nil {
		t.Fatalf("update skill level: %v", err)
	}
	got, err := r.GetMember(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if lvl, _ := got.SkillLevel(sql.ID); lvl != 4 || len(got.Skills) != 2 || got.Skills[0].SkillID != sql.ID {
		t.Fatalf("unexpected skills %+v", got.Skills)
	}
	if err := r.RemoveMemberSkill(ctx, m.ID, goSkill.ID); err != nil {
		t.Fatalf("remove skill: %v", err)
	}
	if err := r.RemoveMemberSkill(ctx, m.ID, goSkill.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
	if err := r.AddMemberSkill(ctx, m.ID, sql.ID, 6); err == nil {
		t.Fatalf("expected level validation error")
	}
}

func TestCreateMemberValidation(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.CreateMember(context.Background(), domain.Member{Name: " ", WeeklyAvailability: 40})
	var verr domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "name" {
		t.Fatalf("expected name validation error, got %v", err)
	}
}

func TestAssignTaskCompetencyGateLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	p := seedProject(t, r)
	sql, _ := r.CreateSkill(ctx, domain.Skill{Name: "SQL"})
	m, _ := r.CreateMember(ctx, domain.Member{Name: "Bob", WeeklyAvailability: 40, Skills: []domain.MemberSkill{{SkillID: sql.ID, Level: 2}}})
	task, err := r.CreateTask(ctx, domain.Task{ProjectID: p.ID, Title: "Schema", EstimatedHours: 8,
		RequiredSkills: []domain.TaskSkill{{SkillID: sql.ID, RequiredLevel: 4}}})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Priority != domain.PriorityMedium || task.Status != domain.TaskTodo {
		t.Fatalf("expected defaults, got %s/%s", task.Priority, task.Status)
	}

	_, err = r.AssignTask(ctx, task.ID, m.ID)
	var inc domain.IncompetentAssignmentError
	if !errors.As(err, &inc) || inc.SkillName != "SQL" || inc.Required != 4 || inc.Actual != 2 {
		t.Fatalf("expected incompetent assignment, got %v", err)
	}
	after, _ := r.GetTask(ctx, task.ID)
	if after.Assigned() {
		t.Fatalf("task must stay unassigned")
	}

	if err := r.AddMemberSkill(ctx, m.ID, sql.ID, 4); err != nil {
		t.Fatal(err)
	}
	assigned, err := r.AssignTask(ctx, task.ID, m.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if !assigned.Assigned() || *assigned.AssigneeID != m.ID {
		t.Fatalf("expected assignee %s", m.ID)
	}
	unassigned, err := r.UnassignTask(ctx, task.ID)
	if err != nil || unassigned.Assigned() {
		t.Fatalf("unassign: %v", err)
	}
}

func TestListTasksFilters(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	p := seedProject(t, r)
	m, _ := r.CreateMember(ctx, domain.Member{Name: "Cy", WeeklyAvailability: 20})
	start, end := mustDate(t, "2024-01-03"), mustDate(t, "2024-01-05")
	a, _ := r.CreateTask(ctx, domain.Task{ProjectID: p.ID, Title: "a", EstimatedHours: 1, AssigneeID: &m.ID, StartDate: &start, Deadline: &end})
	_, _ = r.CreateTask(ctx, domain.Task{ProjectID: p.ID, Title: "b", EstimatedHours: 2})
	if _, err := r.UpdateTaskStatus(ctx, a.ID, domain.TaskInProgress); err != nil {
		t.Fatal(err)
	}

	all, err := r.GetProjectTasks(ctx, p.ID)
	if err != nil || len(all) != 2 || all[0].Title != "a" {
		t.Fatalf("unexpected project tasks %+v err=%v", all, err)
	}
	if !all[0].StartDate.Equal(start) || !all[0].Deadline.Equal(end) {
		t.Fatalf("dates not preserved: %v %v", all[0].StartDate, all[0].Deadline)
	}
	free, _ := r.ListTasks(ctx, domain.TaskFilter{ProjectID: p.ID, Unassigned: true})
	if len(free) != 1 || free[0].Title != "b" {
		t.Fatalf("unexpected unassigned tasks %+v", free)
	}
	started, _ := r.ListTasks(ctx, domain.TaskFilter{Status: domain.TaskInProgress, AssigneeID: m.ID})
	if len(started) != 1 {
		t.Fatalf("expected 1 started task, got %d", len(started))
	}
	if _, err := r.GetProjectTasks(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteMemberUnassignsTasks(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	p := seedProject(t, r)
	m, _ := r.CreateMember(ctx, domain.Member{Name: "Dee", WeeklyAvailability: 10})
	task, _ := r.CreateTask(ctx, domain.Task{ProjectID: p.ID, Title: "x", EstimatedHours: 3, AssigneeID: &m.ID})
	if err := r.DeleteMember(ctx, m.ID); err != nil {
		t.Fatalf("delete member: %v", err)
	}
	got, _ := r.GetTask(ctx, task.ID)
	if got.Assigned() {
		t.Fatalf("expected task to be unassigned after member deletion")
	}
	if err := r.DeleteMember(ctx, m.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProjectStatusAndEvents(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	p := seedProject(t, r)
	if p.Status != domain.ProjectPlanning {
		t.Fatalf("expected PLANNING default, got %s", p.Status)
	}
	if err := r.UpdateProjectStatus(ctx, p.ID, domain.ProjectInProgress); err != nil {
		t.Fatal(err)
	}
	got, _ := r.GetProject(ctx, p.ID)
	if got.Status != domain.ProjectInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", got.Status)
	}
	evts, err := r.LatestEvents(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) != 2 || evts[0].Type != "project.status_changed" || evts[1].Type != "project.created" {
		t.Fatalf("unexpected events %+v", evts)
	}
	if _, err := r.CreateProject(ctx, domain.Project{Name: "Late", StartDate: mustDate(t, "2024-02-01"), Deadline: mustDate(t, "2024-01-01")}); err == nil {
		t.Fatalf("expected start > deadline to fail")
	}
}

func TestAlerts(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	a, err := r.CreateAlert(ctx, domain.Alert{Type: domain.AlertOverload, Title: "Overload", Message: "too much"})
	if err != nil {
		t.Fatal(err)
	}
	if a.Severity != domain.SeverityMedium {
		t.Fatalf("expected default severity, got %s", a.Severity)
	}
	b, _ := r.CreateAlert(ctx, domain.Alert{Type: domain.AlertAssignmentFailure, Severity: domain.SeverityCritical, Title: "No member"})
	if n, _ := r.UnreadAlertCount(ctx); n != 2 {
		t.Fatalf("expected 2 unread, got %d", n)
	}
	if err := r.MarkAlertRead(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	unread, _ := r.ListAlerts(ctx, true)
	if len(unread) != 1 || unread[0].ID != b.ID {
		t.Fatalf("unexpected unread alerts %+v", unread)
	}
	if err := r.MarkAllAlertsRead(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := r.UnreadAlertCount(ctx); n != 0 {
		t.Fatalf("expected 0 unread, got %d", n)
	}
	if err := r.DeleteAlert(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if err := r.DeleteAlert(ctx, b.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	all, _ := r.ListAlerts(ctx, false)
	if len(all) != 1 || !all[0].Read {
		t.Fatalf("unexpected alerts %+v", all)
	}
}
