// Package allocation assigns a project's unassigned tasks to members.
package allocation

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"

	"teamload/internal/competency"
	"teamload/internal/domain"
	"teamload/internal/workload"
)

// Store is the data the allocator reads and writes.
type Store interface {
	ListMembers(ctx context.Context) ([]domain.Member, error)
	ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error)
	AssignTask(ctx context.Context, taskID, memberID string) (domain.Task, error)
	CreateAlert(ctx context.Context, a domain.Alert) (domain.Alert, error)
}

// MinScore is the lowest member score accepted for an assignment.
const MinScore = 0.3

// Greedy walks tasks by priority then deadline and gives each to the best
// scoring qualified member with enough free hours.
type Greedy struct {
	Store Store
	// AllowOverload falls back to the least loaded qualified member when
	// nobody has enough free hours.
	AllowOverload bool
	Log           logrus.FieldLogger
}

func (g Greedy) log() logrus.FieldLogger {
	if g.Log != nil {
		return g.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type candidate struct {
	member domain.Member
	hours  float64
}

func (c *candidate) load() workload.MemberLoad {
	pct := workload.Percentage(c.hours, c.member.WeeklyAvailability)
	return workload.MemberLoad{
		MemberID:           c.member.ID,
		Name:               c.member.Name,
		WeeklyAvailability: c.member.WeeklyAvailability,
		CurrentWorkload:    c.hours,
		AvailableHours:     workload.Available(c.member.WeeklyAvailability, c.hours),
		Percentage:         pct,
		Band:               workload.Classify(pct),
	}
}

// Allocate assigns every unassigned TODO task of projectID it can. Per-task
// failures are counted and alerted, never returned; the error covers only the
// initial reads.
func (g Greedy) Allocate(ctx context.Context, projectID string) (domain.AllocationResult, error) {
	log := g.log().WithField("project_id", projectID)
	tasks, err := g.Store.ListTasks(ctx, domain.TaskFilter{ProjectID: projectID, Status: domain.TaskTodo, Unassigned: true})
	if err != nil {
		return domain.AllocationResult{}, fmt.Errorf("list unassigned tasks: %w", err)
	}
	if len(tasks) == 0 {
		return domain.AllocationResult{Success: true, Message: "No unassigned tasks"}, nil
	}
	members, err := g.Store.ListMembers(ctx)
	if err != nil {
		return domain.AllocationResult{}, fmt.Errorf("list members: %w", err)
	}
	if len(members) == 0 {
		log.Warn("no members available for allocation")
		return domain.AllocationResult{FailedCount: len(tasks), Message: "No available members"}, nil
	}
	all, err := g.Store.ListTasks(ctx, domain.TaskFilter{})
	if err != nil {
		return domain.AllocationResult{}, fmt.Errorf("list tasks: %w", err)
	}
	stats := workload.Team(members, all)
	pool := make([]*candidate, len(members))
	for i, m := range members {
		pool[i] = &candidate{member: m, hours: stats.Members[i].CurrentWorkload}
	}

	Prioritize(tasks)
	var res domain.AllocationResult
	for _, task := range tasks {
		tlog := log.WithField("task_id", task.ID)
		best, fallback := g.pick(task, pool)
		if best == nil {
			res.FailedCount++
			tlog.Warn("no suitable member for task")
			g.alert(ctx, tlog, noSuitableMemberAlert(task))
			continue
		}
		if _, err := g.Store.AssignTask(ctx, task.ID, best.member.ID); err != nil {
			res.FailedCount++
			tlog.WithError(err).Error("assign task")
			continue
		}
		best.hours += task.EstimatedHours
		res.AssignedCount++
		res.Assignments = append(res.Assignments, domain.Assignment{TaskID: task.ID, MemberID: best.member.ID})
		tlog.WithFields(logrus.Fields{"member_id": best.member.ID, "fallback": fallback}).Info("task allocated")
		if load := best.load(); load.Overloaded() {
			g.alert(ctx, tlog, overloadAlert(load, task))
		}
	}
	res.Success = res.FailedCount == 0
	res.Message = fmt.Sprintf("Assigned %d tasks, failed %d", res.AssignedCount, res.FailedCount)
	log.Info(res.Message)
	return res, nil
}

// pick returns the best candidate for task, and whether it is an overload fallback.
func (g Greedy) pick(task domain.Task, pool []*candidate) (*candidate, bool) {
	var (
		best      *candidate
		bestScore = -1.0
		fallback  *candidate
	)
	for _, c := range pool {
		if !competency.Qualified(task, c.member) {
			continue
		}
		if fallback == nil || c.load().Percentage < fallback.load().Percentage {
			fallback = c
		}
		if s := Score(task, c.member, c.hours); s > bestScore {
			best, bestScore = c, s
		}
	}
	if best != nil && bestScore >= MinScore {
		return best, false
	}
	if g.AllowOverload && fallback != nil {
		return fallback, true
	}
	return nil, false
}

func (g Greedy) alert(ctx context.Context, log logrus.FieldLogger, a domain.Alert) {
	if _, err := g.Store.CreateAlert(ctx, a); err != nil {
		log.WithError(err).Error("create alert")
	}
}

// Prioritize orders tasks by priority descending, then earliest deadline.
// Tasks without a deadline keep their relative order after dated ones.
func Prioritize(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Priority.Score() != b.Priority.Score() {
			return a.Priority.Score() > b.Priority.Score()
		}
		switch {
		case a.Deadline != nil && b.Deadline != nil:
			return a.Deadline.Before(*b.Deadline)
		case a.Deadline != nil:
			return true
		}
		return false
	})
}

// Score rates member for task given the member's current hours: 0 when the
// member lacks a required skill level or the free hours, otherwise a weighted
// blend of skill fit, availability fit and load balance plus a priority bonus.
func Score(task domain.Task, member domain.Member, hours float64) float64 {
	skill := skillScore(task, member)
	avail := availabilityScore(task, workload.Available(member.WeeklyAvailability, hours))
	if skill == 0 || avail == 0 {
		return 0
	}
	balance := balanceScore(workload.Percentage(hours, member.WeeklyAvailability))
	return skill*0.4 + avail*0.3 + balance*0.2 + float64(task.Priority.Score())*0.025
}

func skillScore(task domain.Task, member domain.Member) float64 {
	if len(task.RequiredSkills) == 0 {
		return 0.5
	}
	var held, required int
	for _, req := range task.RequiredSkills {
		level, ok := member.SkillLevel(req.SkillID)
		if !ok || level < req.RequiredLevel {
			return 0
		}
		held += level
		required += req.RequiredLevel
	}
	if required == 0 {
		return 0.5
	}
	if s := float64(held) / float64(required); s < 1 {
		return s
	}
	return 1
}

func availabilityScore(task domain.Task, available float64) float64 {
	if available <= 0 || available < task.EstimatedHours {
		return 0
	}
	if ratio := task.EstimatedHours / available; ratio < 0.5 {
		return 0.5 + ratio
	}
	return 1
}

func balanceScore(pct float64) float64 {
	if pct >= 100 {
		return 0
	}
	return 1 - pct/100*0.9
}

func overloadAlert(load workload.MemberLoad, task domain.Task) domain.Alert {
	memberID, taskID := load.MemberID, task.ID
	return domain.Alert{
		Type:     domain.AlertOverload,
		Severity: domain.SeverityHigh,
		Title:    "Member Overload Detected",
		Message: fmt.Sprintf("Member '%s' is now overloaded with %.1f hours (%.1f%% capacity) after assigning task '%s'",
			load.Name, load.CurrentWorkload, load.Percentage, task.Title),
		MemberID: &memberID,
		TaskID:   &taskID,
	}
}

func noSuitableMemberAlert(task domain.Task) domain.Alert {
	projectID, taskID := task.ProjectID, task.ID
	return domain.Alert{
		Type:     domain.AlertAssignmentFailure,
		Severity: domain.SeverityCritical,
		Title:    "No Suitable Member Found",
		Message: fmt.Sprintf("Could not find a suitable member for task '%s'. Required skills may not be available or all members are at capacity.",
			task.Title),
		ProjectID: &projectID,
		TaskID:    &taskID,
	}
}
