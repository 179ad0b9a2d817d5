package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sony/gobreaker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	teamloadsdk "teamload/sdk/go"
)

// remoteCmd drives a running 'tl serve' through the HTTP API.
func remoteCmd() *cobra.Command {
	rc := &cobra.Command{
		Use:   "remote",
		Short: "Talk to a running teamload server",
		// no local workspace needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}
	rc.PersistentFlags().String("url", "http://127.0.0.1:8080/v0", "API base URL")
	_ = viper.BindPFlag("url", rc.PersistentFlags().Lookup("url"))

	rc.AddCommand(&cobra.Command{
		Use:   "dashboard",
		Short: "Fetch the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *teamloadsdk.Client) error {
				d, err := c.Dashboard(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(d)
				}
				fmt.Printf("projects %d, members %d, tasks %d (%d completed)\n", d.Totals.Projects, d.Totals.Members, d.Totals.Tasks, d.Totals.CompletedTasks)
				fmt.Printf("%d overloaded members, %d unread alerts\n", d.OverloadedMembers, d.UnreadAlerts)
				return nil
			})
		},
	})
	rc.AddCommand(&cobra.Command{
		Use:   "members",
		Short: "List members with workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *teamloadsdk.Client) error {
				rows, err := c.ListMembers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				tw := newTable("ID", "Name", "Weekly", "Load %", "Band")
				for _, r := range rows {
					tw.AppendRow(table.Row{r.ID, r.Name, hours(r.WeeklyAvailability), percent(r.Load.Percentage), r.Load.Band})
				}
				tw.Render()
				return nil
			})
		},
	})
	rc.AddCommand(&cobra.Command{
		Use:   "allocate <project-id>",
		Short: "Auto-allocate remotely",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *teamloadsdk.Client) error {
				res, err := c.Allocate(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	})
	rc.AddCommand(&cobra.Command{
		Use:   "assign <task-id> <member-id>",
		Short: "Assign a task remotely",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *teamloadsdk.Client) error {
				t, err := c.AssignTask(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	})
	rc.AddCommand(&cobra.Command{
		Use:   "alerts",
		Short: "List unread alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *teamloadsdk.Client) error {
				items, err := c.ListAlerts(ctx, true)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	})
	return rc
}

func withClient(ctx context.Context, fn func(context.Context, *teamloadsdk.Client) error) error {
	c := teamloadsdk.New(viper.GetString("url"))
	c.OnStateChange = func(name string, from, to gobreaker.State) {
		fmt.Fprintf(os.Stderr, "circuit breaker %s: %s -> %s\n", name, from, to)
	}
	if err := c.Health(ctx); err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	return fn(ctx, c)
}
