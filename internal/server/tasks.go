package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"teamload/internal/app"
	"teamload/internal/domain"
	"teamload/internal/engine"
)

type taskPath struct {
	TaskID string `path:"task_id"`
}

type taskSkillPath struct {
	TaskID  string `path:"task_id"`
	SkillID string `path:"skill_id"`
}

type listTasksInput struct {
	ProjectID  string            `query:"project_id"`
	AssigneeID string            `query:"assignee_id"`
	Status     domain.TaskStatus `query:"status" enum:"TODO,IN_PROGRESS,COMPLETED"`
	Unassigned bool              `query:"unassigned"`
}

func registerTasks(api huma.API, s *app.Session) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *listTasksInput) (*response[[]domain.Task], error) {
		tasks, err := s.Repo.ListTasks(ctx, domain.TaskFilter{
			ProjectID:  input.ProjectID,
			AssigneeID: input.AssigneeID,
			Status:     input.Status,
			Unassigned: input.Unassigned,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return respond(tasks), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest
	}) (*response[domain.Task], error) {
		start, err := parseOptionalDate("start_date", input.Body.StartDate)
		if err != nil {
			return nil, handleError(err)
		}
		deadline, err := parseOptionalDate("deadline", input.Body.Deadline)
		if err != nil {
			return nil, handleError(err)
		}
		t, err := s.Engine.CreateTask(ctx, engine.TaskCreateOptions{
			ProjectID:      input.Body.ProjectID,
			Title:          input.Body.Title,
			Description:    input.Body.Description,
			EstimatedHours: input.Body.EstimatedHours,
			Priority:       input.Body.Priority,
			StartDate:      start,
			Deadline:       deadline,
			AssigneeID:     input.Body.AssigneeID,
			RequiredSkills: taskSkills(input.Body.RequiredSkills),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return respond(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*response[domain.Task], error) {
		t, err := s.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{task_id}",
		Summary:     "Replace task",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Body   UpdateTaskRequest
	}) (*response[engine.TransitionResult], error) {
		start, err := parseOptionalDate("start_date", input.Body.StartDate)
		if err != nil {
			return nil, handleError(err)
		}
		deadline, err := parseOptionalDate("deadline", input.Body.Deadline)
		if err != nil {
			return nil, handleError(err)
		}
		var assignee *string
		if input.Body.AssigneeID != nil && *input.Body.AssigneeID != "" {
			assignee = input.Body.AssigneeID
		}
		res, err := s.Engine.UpdateTask(ctx, domain.Task{
			ID:             input.TaskID,
			Title:          input.Body.Title,
			Description:    input.Body.Description,
			EstimatedHours: input.Body.EstimatedHours,
			Priority:       input.Body.Priority,
			Status:         input.Body.Status,
			StartDate:      start,
			Deadline:       deadline,
			AssigneeID:     assignee,
			RequiredSkills: taskSkills(input.Body.RequiredSkills),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return respond(res), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{task_id}",
		Summary:       "Delete task",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*struct{}, error) {
		if err := s.Engine.DeleteTask(ctx, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/assign",
		Summary:     "Assign task to a member",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Body   AssignTaskRequest
	}) (*response[domain.Task], error) {
		t, err := s.Engine.AssignTask(ctx, input.TaskID, input.Body.MemberID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unassign-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/unassign",
		Summary:     "Clear task assignee",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *taskPath) (*response[domain.Task], error) {
		t, err := s.Engine.UnassignTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/start",
		Summary:     "Move task to IN_PROGRESS",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *taskPath) (*response[engine.TransitionResult], error) {
		res, err := s.Engine.StartTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(res), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/complete",
		Summary:     "Move task to COMPLETED",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *taskPath) (*response[engine.TransitionResult], error) {
		res, err := s.Engine.CompleteTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(res), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-task-skill",
		Method:      http.MethodPut,
		Path:        "/tasks/{task_id}/skills/{skill_id}",
		Summary:     "Set a required skill level",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		TaskID  string `path:"task_id"`
		SkillID string `path:"skill_id"`
		Body    RequiredLevelRequest
	}) (*response[domain.Task], error) {
		t, err := s.Engine.AddTaskSkill(ctx, input.TaskID, input.SkillID, input.Body.RequiredLevel)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-task-skill",
		Method:      http.MethodDelete,
		Path:        "/tasks/{task_id}/skills/{skill_id}",
		Summary:     "Remove a required skill",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskSkillPath) (*response[domain.Task], error) {
		t, err := s.Engine.RemoveTaskSkill(ctx, input.TaskID, input.SkillID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(t), nil
	})
}
