package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"teamload/internal/app"
	"teamload/internal/domain"
	"teamload/internal/view"
	"teamload/internal/workload"
)

type alertPath struct {
	AlertID string `path:"alert_id"`
}

func registerAlerts(api huma.API, s *app.Session) {
	huma.Register(api, huma.Operation{
		OperationID: "list-alerts",
		Method:      http.MethodGet,
		Path:        "/alerts",
		Summary:     "List alerts, newest first",
	}, func(ctx context.Context, input *struct {
		Unread bool `query:"unread" doc:"only unread alerts"`
	}) (*response[[]domain.Alert], error) {
		list, err := s.Repo.ListAlerts(ctx, input.Unread)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(list), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "count-alerts",
		Method:      http.MethodGet,
		Path:        "/alerts/count",
		Summary:     "Unread alert count",
	}, func(ctx context.Context, input *struct {
		Fresh bool `query:"fresh" doc:"recount instead of returning the cached value"`
	}) (*response[AlertCountResponse], error) {
		if input.Fresh {
			if _, err := s.Alerts.Refresh(ctx); err != nil {
				return nil, handleError(err)
			}
		}
		return respond(AlertCountResponse{Unread: s.Alerts.Count(), RefreshedAt: s.Alerts.RefreshedAt()}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "read-all-alerts",
		Method:      http.MethodPost,
		Path:        "/alerts/read-all",
		Summary:     "Mark every alert read",
	}, func(ctx context.Context, _ *struct{}) (*response[AlertCountResponse], error) {
		n, err := s.Alerts.MarkAllRead(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(AlertCountResponse{Unread: n, RefreshedAt: s.Alerts.RefreshedAt()}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "read-alert",
		Method:      http.MethodPost,
		Path:        "/alerts/{alert_id}/read",
		Summary:     "Mark an alert read",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *alertPath) (*response[AlertCountResponse], error) {
		n, err := s.Alerts.MarkRead(ctx, input.AlertID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(AlertCountResponse{Unread: n, RefreshedAt: s.Alerts.RefreshedAt()}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-alert",
		Method:        http.MethodDelete,
		Path:          "/alerts/{alert_id}",
		Summary:       "Delete an alert",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *alertPath) (*struct{}, error) {
		if _, err := s.Alerts.Delete(ctx, input.AlertID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func registerViews(api huma.API, s *app.Session) {
	huma.Register(api, huma.Operation{
		OperationID: "dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard",
		Summary:     "Dashboard summary",
	}, func(ctx context.Context, _ *struct{}) (*response[view.Dashboard], error) {
		d, err := s.Dashboard(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(d), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "statistics",
		Method:      http.MethodGet,
		Path:        "/statistics",
		Summary:     "Team and project statistics",
	}, func(ctx context.Context, _ *struct{}) (*response[view.Statistics], error) {
		st, err := s.Views.Statistics(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(st), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "team-workload",
		Method:      http.MethodGet,
		Path:        "/workload",
		Summary:     "Team workload statistics",
	}, func(ctx context.Context, _ *struct{}) (*response[workload.TeamStats], error) {
		st, err := s.Engine.TeamWorkload(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(st), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sync-workload",
		Method:      http.MethodPost,
		Path:        "/workload/sync",
		Summary:     "Recompute stored member workloads",
	}, func(ctx context.Context, _ *struct{}) (*response[SyncResponse], error) {
		n, err := s.Engine.SyncWorkloads(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(SyncResponse{Corrected: n}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Latest events",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50" minimum:"1" maximum:"1000"`
	}) (*response[[]domain.Event], error) {
		list, err := s.Repo.LatestEvents(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(list), nil
	})
}
