// Package view assembles the read models shown by the CLI and the HTTP API.
package view

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"teamload/internal/domain"
	"teamload/internal/lifecycle"
	"teamload/internal/timeline"
	"teamload/internal/workload"
)

// Page names a screen of the application.
type Page string

const (
	PageDashboard  Page = "dashboard"
	PageMembers    Page = "members"
	PageProjects   Page = "projects"
	PageProject    Page = "project"
	PageTimeline   Page = "timeline"
	PageStatistics Page = "statistics"
	PageAlerts     Page = "alerts"
)

// Context is the immutable selection a view is rendered for.
type Context struct {
	Page      Page   `json:"page"`
	ProjectID string `json:"project_id,omitempty"`
}

// WithProject returns a copy of c focused on projectID.
func (c Context) WithProject(projectID string) Context {
	c.ProjectID = projectID
	return c
}

type MemberRow struct {
	domain.Member
	Load workload.MemberLoad `json:"load"`
}

type ProjectRow struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	Status            domain.ProjectStatus `json:"status"`
	StartDate         string               `json:"start_date"`
	Deadline          string               `json:"deadline"`
	TaskCount         int                  `json:"task_count"`
	CompletedCount    int                  `json:"completed_count"`
	CompletionPercent float64              `json:"completion_percent"`
	// Partial is set when the project's tasks could not be loaded.
	Partial bool `json:"partial,omitempty"`
}

type TaskRow struct {
	domain.Task
	AssigneeName string             `json:"assignee_name,omitempty"`
	Actions      []lifecycle.Action `json:"actions"`
}

type ProjectDetail struct {
	Project     domain.Project `json:"project"`
	Summary     ProjectRow     `json:"summary"`
	Tasks       []TaskRow      `json:"tasks"`
	HoursTotal  float64        `json:"hours_total"`
	HoursOpen   float64        `json:"hours_open"`
	Unscheduled int            `json:"unscheduled"`
}

type Totals struct {
	Projects       int `json:"projects"`
	Members        int `json:"members"`
	Tasks          int `json:"tasks"`
	CompletedTasks int `json:"completed_tasks"`
}

type Statistics struct {
	Totals   Totals                    `json:"totals"`
	Team     workload.TeamStats        `json:"team"`
	Projects []ProjectRow              `json:"projects"`
	ByStatus map[domain.TaskStatus]int `json:"tasks_by_status"`
}

type Dashboard struct {
	Totals            Totals       `json:"totals"`
	OverloadedMembers int          `json:"overloaded_members"`
	RecentProjects    []ProjectRow `json:"recent_projects"`
	TopWorkloads      []MemberRow  `json:"top_workloads"`
	UnreadAlerts      int          `json:"unread_alerts"`
	GeneratedAt       time.Time    `json:"generated_at"`
}

// dashboardListSize bounds the recent project and top workload lists.
const dashboardListSize = 5

// NewProjectRow summarises p with the completion ratio of tasks.
func NewProjectRow(p domain.Project, tasks []domain.Task) ProjectRow {
	done, total := lifecycle.Completion(tasks)
	row := ProjectRow{
		ID:             p.ID,
		Name:           p.Name,
		Status:         p.Status,
		StartDate:      p.StartDate.Format(domain.DateLayout),
		Deadline:       p.Deadline.Format(domain.DateLayout),
		TaskCount:      total,
		CompletedCount: done,
	}
	if total > 0 {
		row.CompletionPercent = float64(done) / float64(total) * 100
	}
	return row
}

// MemberList pairs each member with its load computed from tasks.
func MemberList(members []domain.Member, tasks []domain.Task) []MemberRow {
	stats := workload.Team(members, tasks)
	rows := make([]MemberRow, len(members))
	for i, m := range members {
		rows[i] = MemberRow{Member: m, Load: stats.Members[i]}
	}
	return rows
}

// NewProjectDetail lists the project's tasks with assignee names and legal actions.
func NewProjectDetail(p domain.Project, tasks []domain.Task, members []domain.Member) ProjectDetail {
	names := memberNames(members)
	detail := ProjectDetail{Project: p, Summary: NewProjectRow(p, tasks), Tasks: make([]TaskRow, 0, len(tasks))}
	for _, t := range tasks {
		row := TaskRow{Task: t, Actions: lifecycle.LegalActions(t)}
		if t.Assigned() {
			row.AssigneeName = names[*t.AssigneeID]
		}
		detail.Tasks = append(detail.Tasks, row)
		detail.HoursTotal += t.EstimatedHours
		if t.Status.Outstanding() {
			detail.HoursOpen += t.EstimatedHours
		}
		if !t.Scheduled() {
			detail.Unscheduled++
		}
	}
	return detail
}

func memberNames(members []domain.Member) map[string]string {
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}
	return names
}

// Reader is the read side of the data store consumed by the builder.
type Reader interface {
	ListMembers(ctx context.Context) ([]domain.Member, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	GetProject(ctx context.Context, id string) (domain.Project, error)
	GetProjectTasks(ctx context.Context, projectID string) ([]domain.Task, error)
	ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error)
}

// Builder pulls fresh state from the store for every view it builds.
type Builder struct {
	Store Reader
	Log   logrus.FieldLogger
	Now   func() time.Time
}

func (b Builder) log() logrus.FieldLogger {
	if b.Log != nil {
		return b.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func (b Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b Builder) Members(ctx context.Context) ([]MemberRow, error) {
	members, err := b.Store.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := b.Store.ListTasks(ctx, domain.TaskFilter{})
	if err != nil {
		return nil, err
	}
	return MemberList(members, tasks), nil
}

// Projects lists project rows. A project whose tasks fail to load is shown
// with an empty task set and marked partial.
func (b Builder) Projects(ctx context.Context) ([]ProjectRow, error) {
	projects, err := b.Store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]ProjectRow, len(projects))
	for i, p := range projects {
		tasks, err := b.Store.GetProjectTasks(ctx, p.ID)
		if err != nil {
			b.log().WithError(err).WithField("project_id", p.ID).Warn("load project tasks")
			rows[i] = NewProjectRow(p, nil)
			rows[i].Partial = true
			continue
		}
		rows[i] = NewProjectRow(p, tasks)
	}
	return rows, nil
}

// ProjectDetail builds the detail of vc.ProjectID.
func (b Builder) ProjectDetail(ctx context.Context, vc Context) (ProjectDetail, error) {
	p, tasks, members, err := b.projectState(ctx, vc.ProjectID)
	if err != nil {
		return ProjectDetail{}, err
	}
	return NewProjectDetail(p, tasks, members), nil
}

// Timeline lays out the tasks of vc.ProjectID.
func (b Builder) Timeline(ctx context.Context, vc Context) (timeline.Layout, error) {
	p, tasks, members, err := b.projectState(ctx, vc.ProjectID)
	if err != nil {
		return timeline.Layout{}, err
	}
	return timeline.Build(p, tasks, memberNames(members)), nil
}

func (b Builder) projectState(ctx context.Context, projectID string) (domain.Project, []domain.Task, []domain.Member, error) {
	if projectID == "" {
		return domain.Project{}, nil, nil, domain.ValidationError{Field: "project_id", Reason: "required"}
	}
	p, err := b.Store.GetProject(ctx, projectID)
	if err != nil {
		return p, nil, nil, err
	}
	tasks, err := b.Store.GetProjectTasks(ctx, projectID)
	if err != nil {
		return p, nil, nil, err
	}
	members, err := b.Store.ListMembers(ctx)
	if err != nil {
		return p, nil, nil, err
	}
	return p, tasks, members, nil
}

// Statistics aggregates team load, totals and per-project completion.
func (b Builder) Statistics(ctx context.Context) (Statistics, error) {
	members, err := b.Store.ListMembers(ctx)
	if err != nil {
		return Statistics{}, err
	}
	tasks, err := b.Store.ListTasks(ctx, domain.TaskFilter{})
	if err != nil {
		return Statistics{}, err
	}
	projects, err := b.Projects(ctx)
	if err != nil {
		return Statistics{}, err
	}
	stats := Statistics{
		Totals:   totals(len(projects), members, tasks),
		Team:     workload.Team(members, tasks),
		Projects: projects,
		ByStatus: map[domain.TaskStatus]int{domain.TaskTodo: 0, domain.TaskInProgress: 0, domain.TaskCompleted: 0},
	}
	for _, t := range tasks {
		stats.ByStatus[t.Status]++
	}
	return stats, nil
}

func totals(projects int, members []domain.Member, tasks []domain.Task) Totals {
	done, total := lifecycle.Completion(tasks)
	return Totals{Projects: projects, Members: len(members), Tasks: total, CompletedTasks: done}
}

// Dashboard builds the landing view. unread is the cached unread alert count.
func (b Builder) Dashboard(ctx context.Context, unread int) (Dashboard, error) {
	members, err := b.Store.ListMembers(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	tasks, err := b.Store.ListTasks(ctx, domain.TaskFilter{})
	if err != nil {
		return Dashboard{}, err
	}
	projects, err := b.Projects(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	rows := MemberList(members, tasks)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Load.Percentage > rows[j].Load.Percentage })
	d := Dashboard{
		Totals:         totals(len(projects), members, tasks),
		RecentProjects: head(projects, dashboardListSize),
		TopWorkloads:   head(rows, dashboardListSize),
		UnreadAlerts:   unread,
		GeneratedAt:    b.now(),
	}
	for _, r := range rows {
		if r.Load.Overloaded() {
			d.OverloadedMembers++
		}
	}
	return d, nil
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
