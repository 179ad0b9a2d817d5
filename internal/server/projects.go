package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"teamload/internal/app"
	"teamload/internal/domain"
	"teamload/internal/engine"
	"teamload/internal/timeline"
	"teamload/internal/view"
)

type projectPath struct {
	ProjectID string `path:"project_id"`
}

func registerProjects(api huma.API, s *app.Session) {
	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects with completion",
	}, func(ctx context.Context, _ *struct{}) (*response[[]view.ProjectRow], error) {
		rows, err := s.Views.Projects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(rows), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest
	}) (*response[domain.Project], error) {
		start, err := parseDate("start_date", input.Body.StartDate)
		if err != nil {
			return nil, handleError(err)
		}
		deadline, err := parseDate("deadline", input.Body.Deadline)
		if err != nil {
			return nil, handleError(err)
		}
		p, err := s.Engine.CreateProject(ctx, engine.ProjectCreateOptions{
			Name:        input.Body.Name,
			Description: input.Body.Description,
			StartDate:   start,
			Deadline:    deadline,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return respond(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project detail",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*response[view.ProjectDetail], error) {
		detail, err := s.Views.ProjectDetail(ctx, view.Context{Page: view.PageProject}.WithProject(input.ProjectID))
		if err != nil {
			return nil, handleError(err)
		}
		return respond(detail), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPut,
		Path:        "/projects/{project_id}",
		Summary:     "Replace project",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      UpdateProjectRequest
	}) (*response[domain.Project], error) {
		start, err := parseDate("start_date", input.Body.StartDate)
		if err != nil {
			return nil, handleError(err)
		}
		deadline, err := parseDate("deadline", input.Body.Deadline)
		if err != nil {
			return nil, handleError(err)
		}
		p, err := s.Engine.UpdateProject(ctx, domain.Project{
			ID:          input.ProjectID,
			Name:        input.Body.Name,
			Description: input.Body.Description,
			StartDate:   start,
			Deadline:    deadline,
			Status:      input.Body.Status,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return respond(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-project",
		Method:        http.MethodDelete,
		Path:          "/projects/{project_id}",
		Summary:       "Delete project and its tasks",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*struct{}, error) {
		if err := s.Engine.DeleteProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reconcile-project",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/reconcile",
		Summary:     "Recompute project status from its tasks",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*response[ReconcileResponse], error) {
		status, changed, err := s.Engine.ReconcileProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(ReconcileResponse{ProjectID: input.ProjectID, Status: status, Changed: changed}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "allocate-project",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/allocate",
		Summary:     "Auto-allocate unassigned tasks",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *projectPath) (*response[domain.AllocationResult], error) {
		res, err := s.Engine.AutoAllocate(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(res), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-timeline",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/timeline",
		Summary:     "Timeline layout of a project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*response[timeline.Layout], error) {
		layout, err := s.Views.Timeline(ctx, view.Context{Page: view.PageTimeline}.WithProject(input.ProjectID))
		if err != nil {
			return nil, handleError(err)
		}
		return respond(layout), nil
	})
}
