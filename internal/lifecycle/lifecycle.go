// Package lifecycle holds the task status machine and project status derivation.
package lifecycle

import "teamload/internal/domain"

// Action is a user operation on a task.
type Action string

const (
	ActionAssign   Action = "assign"
	ActionUnassign Action = "unassign"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
)

// Transition checks that task may move to next. Only TODO -> IN_PROGRESS (with an
// assignee) and IN_PROGRESS -> COMPLETED are legal.
func Transition(task domain.Task, next domain.TaskStatus) error {
	invalid := func(reason string) error {
		return domain.InvalidTransitionError{TaskID: task.ID, From: task.Status, To: next, Reason: reason}
	}
	switch task.Status {
	case domain.TaskTodo:
		if next != domain.TaskInProgress {
			return invalid("a TODO task can only be started")
		}
		if !task.Assigned() {
			return invalid("task has no assigned member")
		}
		return nil
	case domain.TaskInProgress:
		if next != domain.TaskCompleted {
			return invalid("an IN_PROGRESS task can only be completed")
		}
		return nil
	case domain.TaskCompleted:
		return invalid("task is already completed")
	}
	return invalid("unknown current status")
}

// CanAssign checks that task accepts a new assignee. Assignment and reassignment
// are only legal while the task is TODO.
func CanAssign(task domain.Task) error {
	if task.Status != domain.TaskTodo {
		return domain.InvalidTransitionError{TaskID: task.ID, From: task.Status, Reason: "only TODO tasks can be assigned"}
	}
	return nil
}

// CanUnassign checks that task may drop its assignee: it must be assigned and TODO.
func CanUnassign(task domain.Task) error {
	if task.Status != domain.TaskTodo {
		return domain.InvalidTransitionError{TaskID: task.ID, From: task.Status, Reason: "only TODO tasks can be unassigned"}
	}
	if !task.Assigned() {
		return domain.InvalidTransitionError{TaskID: task.ID, From: task.Status, Reason: "task is not assigned"}
	}
	return nil
}

// LegalActions lists the actions whose preconditions task currently meets, in
// assign, unassign, start, complete order.
func LegalActions(task domain.Task) []Action {
	actions := []Action{}
	if CanAssign(task) == nil {
		actions = append(actions, ActionAssign)
	}
	if CanUnassign(task) == nil {
		actions = append(actions, ActionUnassign)
	}
	if Transition(task, domain.TaskInProgress) == nil {
		actions = append(actions, ActionStart)
	}
	if Transition(task, domain.TaskCompleted) == nil {
		actions = append(actions, ActionComplete)
	}
	return actions
}

// Reconcile derives a project's status from its tasks' statuses. Zero tasks or
// all TODO leave current unchanged; all COMPLETED yields COMPLETED; any started
// or completed task otherwise yields IN_PROGRESS.
func Reconcile(current domain.ProjectStatus, statuses []domain.TaskStatus) domain.ProjectStatus {
	if len(statuses) == 0 {
		return current
	}
	var started, completed int
	for _, s := range statuses {
		switch s {
		case domain.TaskCompleted:
			completed++
		case domain.TaskInProgress:
			started++
		}
	}
	switch {
	case completed == len(statuses):
		return domain.ProjectCompleted
	case started > 0 || completed > 0:
		return domain.ProjectInProgress
	}
	return current
}

// ReconcileTasks is Reconcile over full task values.
func ReconcileTasks(current domain.ProjectStatus, tasks []domain.Task) domain.ProjectStatus {
	statuses := make([]domain.TaskStatus, len(tasks))
	for i, t := range tasks {
		statuses[i] = t.Status
	}
	return Reconcile(current, statuses)
}

// Completion returns completed/total task counts for a project.
func Completion(tasks []domain.Task) (completed, total int) {
	for _, t := range tasks {
		if t.Status == domain.TaskCompleted {
			completed++
		}
	}
	return completed, len(tasks)
}
