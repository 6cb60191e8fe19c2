package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/habedi/tasksctl/client"
	"github.com/habedi/tasksctl/db"
	"github.com/habedi/tasksctl/pkg/clierr"
	"github.com/habedi/tasksctl/pkg/validation"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List, inspect and cache tasks",
	}
	cmd.AddCommand(
		listTasksCmd(),
		showTaskCmd(),
		syncTasksCmd(),
		searchTasksCmd(),
	)
	return cmd
}

func listTasksCmd() *cobra.Command {
	var filter client.TaskFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks from the server",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := validation.ValidateStatus(filter.Status); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			if err := validation.ValidatePage(filter.Page, filter.PageSize); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			page, err := a.api.ListTasks(cmd.Context(), filter)
			if err != nil {
				return classify(err, "Failed to list tasks")
			}
			if len(page.Items) == 0 {
				cmd.Println("No tasks found.")
				return nil
			}

			table := newTable(cmd.OutOrStdout(), []string{"ID", "Title", "Status", "Assignee", "Due"})
			for _, t := range page.Items {
				table.Append([]string{t.ID, cleanText(t.Title), t.Status, t.Assignee, formatDue(t.DueAt)})
			}
			table.Render()

			if page.NextPage > 0 {
				cmd.Printf("More tasks available: use --page %d\n", page.NextPage)
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&filter.Status, "status", "s", "", "Filter by status ("+strings.Join(validation.ValidStatuses, ", ")+")")
	cmd.Flags().StringVarP(&filter.Assignee, "assignee", "a", "", "Filter by assignee")
	cmd.Flags().IntVarP(&filter.Page, "page", "p", 1, "Page number")
	cmd.Flags().IntVar(&filter.PageSize, "size", 50, "Page size")
	return cmd
}

func showTaskCmd() *cobra.Command {
	var (
		taskID string
		remote bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a task's details",
		Long:  "Show a task's details from the local cache, falling back to the server.",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := validation.ValidateTaskID(taskID); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			var cached *db.Task
			if !remote {
				var err error
				if cached, err = a.tasks.GetByID(cmd.Context(), taskID); err != nil {
					log.Warn().Err(err).Str("task", taskID).Msg("Cache lookup failed")
				}
			}
			if cached != nil {
				printTask(cmd, cached.ID, cached.Title, cached.Status, cached.Assignee, cached.DueAt, cached.Data)
				cmd.Printf("(cached %s)\n", cached.SyncedAt.Local().Format(time.RFC1123))
				return nil
			}

			task, raw, err := a.api.GetTask(cmd.Context(), taskID)
			if err != nil {
				return classify(err, "Failed to fetch task "+taskID)
			}
			printTask(cmd, task.ID, task.Title, task.Status, task.Assignee, task.DueAt, raw)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&taskID, "id", "i", "", "ID of the task")
	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "Skip the cache and fetch from the server")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		log.Error().Err(err).Msg("Failed to mark 'id' flag as required")
	}
	return cmd
}

func printTask(cmd *cobra.Command, id, title, status, assignee string, due *time.Time, raw string) {
	cmd.Println("Task Information:")
	cmd.Printf("ID: %s\n", id)
	cmd.Printf("Title: %s\n", title)
	cmd.Printf("Status: %s\n", status)
	if assignee != "" {
		cmd.Printf("Assignee: %s\n", assignee)
	}
	if due != nil {
		cmd.Printf("Due: %s\n", formatDue(due))
	}
	if raw == "" {
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(raw), "", "  "); err != nil {
		log.Debug().Err(err).Msg("Task document is not valid JSON")
		return
	}
	cmd.Println("Details:")
	cmd.Println(pretty.String())
}

func syncTasksCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download all tasks into the local cache",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := validation.ValidateWorkerCount(workers); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			bar := progressbar.NewOptions(100,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("Syncing tasks..."),
				progressbar.OptionSetWidth(20),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			n, err := client.SyncTasks(cmd.Context(), a.api, a.tasks, workers, func(p float64) {
				_ = bar.Set(int(p * 100))
			})
			_ = bar.Finish()
			if err != nil {
				return classify(err, "Failed to sync tasks")
			}
			cmd.Printf("Synced %d tasks.\n", n)
			return nil
		}),
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 5, fmt.Sprintf("Number of concurrent requests (%d-%d)", validation.MinWorkers, validation.MaxWorkers))
	return cmd
}

func searchTasksCmd() *cobra.Command {
	var term string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the local cache by title",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := validation.ValidateNonEmptyString("search term", term); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			tasks, err := a.tasks.SearchByTitle(cmd.Context(), term)
			if err != nil {
				return clierr.New(clierr.Internal, "Failed to search the cache", err)
			}
			if len(tasks) == 0 {
				cmd.Printf("No cached tasks match %q. Use `tasksctl tasks sync` to update the cache.\n", term)
				return nil
			}

			table := newTable(cmd.OutOrStdout(), []string{"ID", "Title", "Status", "Assignee"})
			for _, t := range tasks {
				table.Append([]string{t.ID, cleanText(t.Title), t.Status, t.Assignee})
			}
			table.Render()
			return nil
		}),
	}

	cmd.Flags().StringVarP(&term, "term", "t", "", "Text to look for in task titles")
	if err := cmd.MarkFlagRequired("term"); err != nil {
		log.Error().Err(err).Msg("Failed to mark 'term' flag as required")
	}
	return cmd
}

// newTable returns a left-aligned table without row separators.
func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)
	return table
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func formatDue(due *time.Time) string {
	if due == nil {
		return "-"
	}
	return due.Local().Format("2006-01-02")
}
