package allocation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"teamload/internal/domain"
)

type fakeStore struct {
	members []domain.Member
	tasks   []domain.Task
	alerts  []domain.Alert
	failIDs map[string]bool
}

func (f *fakeStore) ListMembers(ctx context.Context) ([]domain.Member, error) {
	return f.members, nil
}

func (f *fakeStore) ListTasks(ctx context.Context, flt domain.TaskFilter) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range f.tasks {
		if flt.ProjectID != "" && t.ProjectID != flt.ProjectID {
			continue
		}
		if flt.Status != "" && t.Status != flt.Status {
			continue
		}
		if flt.Unassigned && t.Assigned() {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) AssignTask(ctx context.Context, taskID, memberID string) (domain.Task, error) {
	if f.failIDs[taskID] {
		return domain.Task{}, errors.New("write failed")
	}
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			id := memberID
			f.tasks[i].AssigneeID = &id
			return f.tasks[i], nil
		}
	}
	return domain.Task{}, domain.NotFoundError{Kind: "task", ID: taskID}
}

func (f *fakeStore) CreateAlert(ctx context.Context, a domain.Alert) (domain.Alert, error) {
	f.alerts = append(f.alerts, a)
	return a, nil
}

func (f *fakeStore) assignee(taskID string) string {
	for _, t := range f.tasks {
		if t.ID == taskID && t.Assigned() {
			return *t.AssigneeID
		}
	}
	return ""
}

func todo(id string, hours float64, prio domain.Priority, skills ...domain.TaskSkill) domain.Task {
	return domain.Task{ID: id, ProjectID: "p1", Title: id, EstimatedHours: hours, Priority: prio, Status: domain.TaskTodo, RequiredSkills: skills}
}

func TestAllocateRespectsCompetencyAndCapacity(t *testing.T) {
	store := &fakeStore{
		members: []domain.Member{
			{ID: "junior", Name: "Junior", WeeklyAvailability: 40, Skills: []domain.MemberSkill{{SkillID: "sql", Level: 2}}},
			{ID: "senior", Name: "Senior", WeeklyAvailability: 10, Skills: []domain.MemberSkill{{SkillID: "sql", Level: 5}}},
		},
		tasks: []domain.Task{
			todo("schema", 8, domain.PriorityHigh, domain.TaskSkill{SkillID: "sql", RequiredLevel: 4}),
			todo("report", 6, domain.PriorityLow, domain.TaskSkill{SkillID: "sql", RequiredLevel: 4}),
			todo("docs", 5, domain.PriorityMedium),
		},
	}
	res, err := Greedy{Store: store}.Allocate(context.Background(), "p1")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got := store.assignee("schema"); got != "senior" {
		t.Fatalf("schema should go to senior, got %q", got)
	}
	if got := store.assignee("report"); got != "" {
		t.Fatalf("report should stay unassigned, got %q", got)
	}
	if store.assignee("docs") == "" {
		t.Fatalf("docs should be assigned")
	}
	if res.AssignedCount != 2 || res.FailedCount != 1 || res.Success {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Message != "Assigned 2 tasks, failed 1" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if len(store.alerts) != 1 || store.alerts[0].Type != domain.AlertAssignmentFailure || *store.alerts[0].TaskID != "report" {
		t.Fatalf("expected one failure alert for report, got %+v", store.alerts)
	}
}

func TestAllocateOverloadFallback(t *testing.T) {
	store := &fakeStore{
		members: []domain.Member{{ID: "m1", Name: "Ada", WeeklyAvailability: 10}},
		tasks:   []domain.Task{todo("big", 15, domain.PriorityUrgent)},
	}
	res, err := Greedy{Store: store, AllowOverload: true}.Allocate(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if res.AssignedCount != 1 || !res.Success {
		t.Fatalf("expected overloaded assignment, got %+v", res)
	}
	if len(store.alerts) != 1 || store.alerts[0].Type != domain.AlertOverload {
		t.Fatalf("expected overload alert, got %+v", store.alerts)
	}
	if !strings.Contains(store.alerts[0].Message, "15.0 hours (150.0% capacity)") {
		t.Fatalf("unexpected overload message %q", store.alerts[0].Message)
	}
}

func TestAllocateEdgeCases(t *testing.T) {
	empty := &fakeStore{members: []domain.Member{{ID: "m1", WeeklyAvailability: 10}}}
	res, err := Greedy{Store: empty}.Allocate(context.Background(), "p1")
	if err != nil || !res.Success || res.Message != "No unassigned tasks" {
		t.Fatalf("unexpected result %+v err=%v", res, err)
	}

	nobody := &fakeStore{tasks: []domain.Task{todo("a", 1, domain.PriorityLow), todo("b", 1, domain.PriorityLow)}}
	res, err = Greedy{Store: nobody}.Allocate(context.Background(), "p1")
	if err != nil || res.Success || res.FailedCount != 2 {
		t.Fatalf("unexpected result %+v err=%v", res, err)
	}
}

func TestAllocateIsolatesWriteFailures(t *testing.T) {
	store := &fakeStore{
		members: []domain.Member{{ID: "m1", WeeklyAvailability: 40}},
		tasks:   []domain.Task{todo("a", 1, domain.PriorityHigh), todo("b", 1, domain.PriorityLow)},
		failIDs: map[string]bool{"a": true},
	}
	res, err := Greedy{Store: store}.Allocate(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if res.AssignedCount != 1 || res.FailedCount != 1 || store.assignee("b") != "m1" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestPrioritize(t *testing.T) {
	d := func(s string) *time.Time {
		v, _ := time.Parse(domain.DateLayout, s)
		return &v
	}
	tasks := []domain.Task{
		{ID: "low", Priority: domain.PriorityLow, Deadline: d("2024-01-01")},
		{ID: "high-late", Priority: domain.PriorityHigh, Deadline: d("2024-03-01")},
		{ID: "high-none", Priority: domain.PriorityHigh},
		{ID: "high-early", Priority: domain.PriorityHigh, Deadline: d("2024-02-01")},
		{ID: "urgent", Priority: domain.PriorityUrgent},
	}
	Prioritize(tasks)
	want := []string{"urgent", "high-early", "high-late", "high-none", "low"}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, tasks[i].ID, id)
		}
	}
}

func TestScorePrefersLessLoaded(t *testing.T) {
	task := todo("t", 4, domain.PriorityMedium)
	m := domain.Member{ID: "m", WeeklyAvailability: 40}
	if Score(task, m, 0) <= Score(task, m, 30) {
		t.Fatalf("expected idle member to score higher")
	}
	if Score(task, m, 38) != 0 {
		t.Fatalf("expected zero score without free hours")
	}
}
