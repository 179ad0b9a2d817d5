package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"teamload/internal/allocation"
	"teamload/internal/config"
	"teamload/internal/domain"
	"teamload/internal/lifecycle"
	"teamload/internal/repo"
)

// Store is the data store the engine mutates through.
type Store interface {
	ListMembers(ctx context.Context) ([]domain.Member, error)
	GetMember(ctx context.Context, id string) (domain.Member, error)
	CreateMember(ctx context.Context, m domain.Member) (domain.Member, error)
	UpdateMember(ctx context.Context, m domain.Member) (domain.Member, error)
	DeleteMember(ctx context.Context, id string) error
	AddMemberSkill(ctx context.Context, memberID, skillID string, level int) error
	RemoveMemberSkill(ctx context.Context, memberID, skillID string) error
	UpdateMemberWorkload(ctx context.Context, memberID string, hours float64) error

	ListSkills(ctx context.Context) ([]domain.Skill, error)
	GetSkill(ctx context.Context, id string) (domain.Skill, error)
	CreateSkill(ctx context.Context, s domain.Skill) (domain.Skill, error)

	GetProject(ctx context.Context, id string) (domain.Project, error)
	CreateProject(ctx context.Context, p domain.Project) (domain.Project, error)
	UpdateProject(ctx context.Context, p domain.Project) (domain.Project, error)
	UpdateProjectStatus(ctx context.Context, id string, status domain.ProjectStatus) error
	DeleteProject(ctx context.Context, id string) error

	ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error)
	GetProjectTasks(ctx context.Context, projectID string) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
	AddTaskSkill(ctx context.Context, taskID, skillID string, level int) error
	RemoveTaskSkill(ctx context.Context, taskID, skillID string) error
	AssignTask(ctx context.Context, taskID, memberID string) (domain.Task, error)
	UnassignTask(ctx context.Context, taskID string) (domain.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID string, status domain.TaskStatus) (domain.Task, error)

	CreateAlert(ctx context.Context, a domain.Alert) (domain.Alert, error)
}

// Allocator bulk-assigns a project's unassigned tasks.
type Allocator interface {
	Allocate(ctx context.Context, projectID string) (domain.AllocationResult, error)
}

// AlertRefresher is told to re-read the unread alert count after mutations.
type AlertRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

type Engine struct {
	Store     Store
	Allocator Allocator
	// Alerts is optional.
	Alerts AlertRefresher
	Config *config.Config
	Log    logrus.FieldLogger
	Now    func() time.Time
}

// New wires an engine over the sqlite repo with the greedy allocator.
func New(r repo.Repo, cfg *config.Config, log logrus.FieldLogger) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		Store:     r,
		Allocator: allocation.Greedy{Store: r, AllowOverload: cfg.Allocation.AllowOverload, Log: log},
		Config:    cfg,
		Log:       log,
		Now:       time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) log() logrus.FieldLogger {
	if e.Log != nil {
		return e.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// notifyAlerts refreshes the alert counter; failures only leave the count stale.
func (e Engine) notifyAlerts(ctx context.Context) {
	if e.Alerts == nil {
		return
	}
	if _, err := e.Alerts.Refresh(ctx); err != nil {
		e.log().WithError(err).Debug("alert count refresh failed")
	}
}

// TransitionResult reports a task change and its effect on the project status.
type TransitionResult struct {
	Task                 domain.Task          `json:"task"`
	ProjectStatus        domain.ProjectStatus `json:"project_status"`
	ProjectStatusChanged bool                 `json:"project_status_changed"`
}

// ReconcileProject derives the project status from its tasks and writes it only
// when it differs from the stored value.
func (e Engine) ReconcileProject(ctx context.Context, projectID string) (domain.ProjectStatus, bool, error) {
	p, err := e.Store.GetProject(ctx, projectID)
	if err != nil {
		return "", false, err
	}
	tasks, err := e.Store.GetProjectTasks(ctx, projectID)
	if err != nil {
		return p.Status, false, err
	}
	next := lifecycle.ReconcileTasks(p.Status, tasks)
	if next == p.Status {
		return p.Status, false, nil
	}
	if err := e.Store.UpdateProjectStatus(ctx, projectID, next); err != nil {
		return p.Status, false, fmt.Errorf("update project status: %w", err)
	}
	e.log().WithFields(logrus.Fields{"project_id": projectID, "from": p.Status, "to": next}).Info("project status reconciled")
	return next, true, nil
}

func (e Engine) transitionResult(ctx context.Context, t domain.Task) (TransitionResult, error) {
	status, changed, err := e.ReconcileProject(ctx, t.ProjectID)
	if err != nil {
		return TransitionResult{Task: t}, err
	}
	return TransitionResult{Task: t, ProjectStatus: status, ProjectStatusChanged: changed}, nil
}
