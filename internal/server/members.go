package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"teamload/internal/app"
	"teamload/internal/domain"
	"teamload/internal/engine"
	"teamload/internal/view"
)

type memberPath struct {
	MemberID string `path:"member_id"`
}

type memberSkillPath struct {
	MemberID string `path:"member_id"`
	SkillID  string `path:"skill_id"`
}

func registerSkills(api huma.API, s *app.Session) {
	huma.Register(api, huma.Operation{
		OperationID: "list-skills",
		Method:      http.MethodGet,
		Path:        "/skills",
		Summary:     "List skills",
	}, func(ctx context.Context, _ *struct{}) (*response[[]domain.Skill], error) {
		return respond(s.Skills().Skills()), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-skill",
		Method:        http.MethodPost,
		Path:          "/skills",
		Summary:       "Create skill",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateSkillRequest
	}) (*response[domain.Skill], error) {
		skill, err := s.CreateSkill(ctx, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(skill), nil
	})
}

func memberRow(ctx context.Context, e engine.Engine, m domain.Member) (view.MemberRow, error) {
	load, err := e.MemberWorkload(ctx, m.ID)
	if err != nil {
		return view.MemberRow{}, err
	}
	return view.MemberRow{Member: m, Load: load}, nil
}

func registerMembers(api huma.API, s *app.Session) {
	huma.Register(api, huma.Operation{
		OperationID: "list-members",
		Method:      http.MethodGet,
		Path:        "/members",
		Summary:     "List members with workload",
	}, func(ctx context.Context, _ *struct{}) (*response[[]view.MemberRow], error) {
		rows, err := s.Views.Members(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(rows), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-member",
		Method:        http.MethodPost,
		Path:          "/members",
		Summary:       "Create member",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body MemberRequest
	}) (*response[domain.Member], error) {
		m, err := s.Engine.CreateMember(ctx, engine.MemberCreateOptions{
			Name:               input.Body.Name,
			Email:              input.Body.Email,
			WeeklyAvailability: input.Body.WeeklyAvailability,
			Skills:             memberSkills(input.Body.Skills),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return respond(m), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-member",
		Method:      http.MethodGet,
		Path:        "/members/{member_id}",
		Summary:     "Get member with workload",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *memberPath) (*response[view.MemberRow], error) {
		m, err := s.Repo.GetMember(ctx, input.MemberID)
		if err != nil {
			return nil, handleError(err)
		}
		row, err := memberRow(ctx, s.Engine, m)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(row), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-member",
		Method:      http.MethodPut,
		Path:        "/members/{member_id}",
		Summary:     "Replace member",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MemberID string `path:"member_id"`
		Body     MemberRequest
	}) (*response[domain.Member], error) {
		m, err := s.Engine.UpdateMember(ctx, domain.Member{
			ID:                 input.MemberID,
			Name:               input.Body.Name,
			Email:              input.Body.Email,
			WeeklyAvailability: input.Body.WeeklyAvailability,
			Skills:             memberSkills(input.Body.Skills),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return respond(m), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-member",
		Method:        http.MethodDelete,
		Path:          "/members/{member_id}",
		Summary:       "Delete member",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *memberPath) (*struct{}, error) {
		if err := s.Engine.DeleteMember(ctx, input.MemberID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-member-skill",
		Method:      http.MethodPut,
		Path:        "/members/{member_id}/skills/{skill_id}",
		Summary:     "Set member skill level",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MemberID string `path:"member_id"`
		SkillID  string `path:"skill_id"`
		Body     LevelRequest
	}) (*response[domain.Member], error) {
		m, err := s.Engine.AddMemberSkill(ctx, input.MemberID, input.SkillID, input.Body.Level)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(m), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-member-skill",
		Method:      http.MethodDelete,
		Path:        "/members/{member_id}/skills/{skill_id}",
		Summary:     "Remove member skill",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *memberSkillPath) (*response[domain.Member], error) {
		m, err := s.Engine.RemoveMemberSkill(ctx, input.MemberID, input.SkillID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(m), nil
	})
}
