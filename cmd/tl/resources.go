package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"teamload/internal/app"
	"teamload/internal/domain"
	"teamload/internal/engine"
	"teamload/internal/view"
)

func skillCmd() *cobra.Command {
	sk := &cobra.Command{Use: "skill", Short: "Manage the skill catalog"}
	sk.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				skills := s.Skills().Skills()
				if viper.GetBool("json") {
					return printJSON(skills)
				}
				tw := newTable("ID", "Name")
				for _, sk := range skills {
					tw.AppendRow(table.Row{sk.ID, sk.Name})
				}
				tw.Render()
				return nil
			})
		},
	})
	sk.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				skill, err := s.CreateSkill(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(skill)
			})
		},
	})
	return sk
}

func memberCmd() *cobra.Command {
	mem := &cobra.Command{Use: "member", Short: "Manage team members"}
	mem.AddCommand(memberListCmd())
	mem.AddCommand(memberCreateCmd())
	mem.AddCommand(memberShowCmd())
	mem.AddCommand(memberUpdateCmd())
	mem.AddCommand(memberDeleteCmd())
	mem.AddCommand(memberSkillCmd())
	return mem
}

func memberListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List members with workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				rows, err := s.Views.Members(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				printMemberRows(rows)
				return nil
			})
		},
	}
}

func printMemberRows(rows []view.MemberRow) {
	tw := newTable("ID", "Name", "Weekly", "Load", "Available", "Load %", "Band", "Skills")
	for _, r := range rows {
		tw.AppendRow(table.Row{r.ID, r.Name, hours(r.WeeklyAvailability), hours(r.Load.CurrentWorkload),
			hours(r.Load.AvailableHours), percent(r.Load.Percentage), r.Load.Band, skillSummary(r.Skills)})
	}
	tw.Render()
}

func skillSummary(skills []domain.MemberSkill) string {
	parts := make([]string, 0, len(skills))
	for _, s := range skills {
		name := s.SkillName
		if name == "" {
			name = s.SkillID
		}
		parts = append(parts, fmt.Sprintf("%s:%d", name, s.Level))
	}
	return strings.Join(parts, ", ")
}

func memberSkills(levels map[string]int) []domain.MemberSkill {
	out := make([]domain.MemberSkill, 0, len(levels))
	for id, lvl := range levels {
		out = append(out, domain.MemberSkill{SkillID: id, Level: lvl})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkillID < out[j].SkillID })
	return out
}

func memberCreateCmd() *cobra.Command {
	var opts engine.MemberCreateOptions
	var skills []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				levels, err := parseSkillLevels(s, skills)
				if err != nil {
					return err
				}
				opts.Skills = memberSkills(levels)
				m, err := s.Engine.CreateMember(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "member name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email")
	cmd.Flags().Float64Var(&opts.WeeklyAvailability, "hours", 40, "weekly availability in hours")
	cmd.Flags().StringArrayVar(&skills, "skill", []string{}, "skill=level (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func memberShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show member with workload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				m, err := s.Repo.GetMember(ctx, args[0])
				if err != nil {
					return err
				}
				load, err := s.Engine.MemberWorkload(ctx, m.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(view.MemberRow{Member: m, Load: load})
			})
		},
	}
}

func memberUpdateCmd() *cobra.Command {
	var name, email string
	var weekly float64
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update member name, email or availability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				m, err := s.Repo.GetMember(ctx, args[0])
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("name") {
					m.Name = name
				}
				if cmd.Flags().Changed("email") {
					m.Email = email
				}
				if cmd.Flags().Changed("hours") {
					m.WeeklyAvailability = weekly
				}
				updated, err := s.Engine.UpdateMember(ctx, m)
				if err != nil {
					return err
				}
				return printJSONOrTable(updated)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "member name")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().Float64Var(&weekly, "hours", 0, "weekly availability in hours")
	return cmd
}

func memberDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete member and unassign their tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				return s.Engine.DeleteMember(ctx, args[0])
			})
		},
	}
}

func memberSkillCmd() *cobra.Command {
	sk := &cobra.Command{Use: "skill", Short: "Manage member skills"}
	sk.AddCommand(&cobra.Command{
		Use:   "set <member-id> <skill> <level>",
		Short: "Set a skill level (1-5)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				levels, err := parseSkillLevels(s, []string{args[1] + "=" + args[2]})
				if err != nil {
					return err
				}
				var m domain.Member
				for id, lvl := range levels {
					if m, err = s.Engine.AddMemberSkill(ctx, args[0], id, lvl); err != nil {
						return err
					}
				}
				return printJSONOrTable(m)
			})
		},
	})
	sk.AddCommand(&cobra.Command{
		Use:   "remove <member-id> <skill>",
		Short: "Remove a skill",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				id, err := resolveSkill(s, args[1])
				if err != nil {
					return err
				}
				m, err := s.Engine.RemoveMemberSkill(ctx, args[0], id)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	})
	return sk
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectUpdateCmd())
	prj.AddCommand(projectDeleteCmd())
	prj.AddCommand(projectReconcileCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects with completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				rows, err := s.Views.Projects(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				printProjectRows(rows)
				return nil
			})
		},
	}
}

func printProjectRows(rows []view.ProjectRow) {
	tw := newTable("ID", "Name", "Status", "Start", "Deadline", "Tasks", "Done")
	for _, r := range rows {
		done := percent(r.CompletionPercent)
		if r.Partial {
			done = "?"
		}
		tw.AppendRow(table.Row{r.ID, r.Name, r.Status, r.StartDate, r.Deadline, r.TaskCount, done})
	}
	tw.Render()
}

func parseDay(flag, s string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return t, fmt.Errorf("--%s: expected YYYY-MM-DD", flag)
	}
	return t, nil
}

func projectCreateCmd() *cobra.Command {
	var name, desc, start, deadline string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := parseDay("start", start)
			if err != nil {
				return err
			}
			deadlineDate, err := parseDay("deadline", deadline)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				p, err := s.Engine.CreateProject(ctx, engine.ProjectCreateOptions{
					Name:        name,
					Description: desc,
					StartDate:   startDate,
					Deadline:    deadlineDate,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("deadline")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show project with tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				detail, err := s.Views.ProjectDetail(ctx, view.Context{Page: view.PageProject}.WithProject(args[0]))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(detail)
				}
				p := detail.Project
				fmt.Printf("%s  %s  [%s]  %s .. %s  %s done\n", p.ID, p.Name, p.Status,
					p.StartDate.Format(domain.DateLayout), p.Deadline.Format(domain.DateLayout), percent(detail.Summary.CompletionPercent))
				fmt.Printf("hours: %s total, %s open, %d unscheduled tasks\n", hours(detail.HoursTotal), hours(detail.HoursOpen), detail.Unscheduled)
				printTaskRows(detail.Tasks)
				return nil
			})
		},
	}
}

func projectUpdateCmd() *cobra.Command {
	var name, desc, start, deadline, status string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update project fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				p, err := s.Repo.GetProject(ctx, args[0])
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("name") {
					p.Name = name
				}
				if cmd.Flags().Changed("description") {
					p.Description = desc
				}
				if cmd.Flags().Changed("start") {
					if p.StartDate, err = parseDay("start", start); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed("deadline") {
					if p.Deadline, err = parseDay("deadline", deadline); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed("status") {
					p.Status = domain.ProjectStatus(strings.ToUpper(status))
				}
				updated, err := s.Engine.UpdateProject(ctx, p)
				if err != nil {
					return err
				}
				return printJSONOrTable(updated)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", "", "status override (PLANNING, IN_PROGRESS, COMPLETED)")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete project and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				return s.Engine.DeleteProject(ctx, args[0])
			})
		},
	}
}

func projectReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <id>",
		Short: "Recompute project status from its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				status, changed, err := s.Engine.ReconcileProject(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"project_id": args[0], "status": status, "changed": changed})
			})
		},
	}
}
