package cmd

import (
	"time"

	"github.com/habedi/tasksctl/pkg/clierr"
	"github.com/habedi/tasksctl/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func commentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Read and write task comments",
	}
	cmd.AddCommand(listCommentsCmd(), addCommentCmd())
	return cmd
}

func listCommentsCmd() *cobra.Command {
	var taskID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a task's comments",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := validation.ValidateTaskID(taskID); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			comments, err := a.api.ListComments(cmd.Context(), taskID)
			if err != nil {
				return classify(err, "Failed to list comments")
			}
			if len(comments) == 0 {
				cmd.Println("No comments yet.")
				return nil
			}

			table := newTable(cmd.OutOrStdout(), []string{"When", "Author", "Comment"})
			for _, c := range comments {
				table.Append([]string{c.CreatedAt.Local().Format(time.DateTime), c.Author, cleanText(c.Body)})
			}
			table.Render()
			return nil
		}),
	}

	addTaskFlag(cmd, &taskID)
	return cmd
}

func addCommentCmd() *cobra.Command {
	var taskID, body string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a comment to a task",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := validation.ValidateTaskID(taskID); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			if err := validation.ValidateNonEmptyString("comment body", body); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			c, err := a.api.AddComment(cmd.Context(), taskID, body)
			if err != nil {
				return classify(err, "Failed to add comment")
			}
			cmd.Printf("Comment %s added to task %s.\n", c.ID, taskID)
			return nil
		}),
	}

	addTaskFlag(cmd, &taskID)
	cmd.Flags().StringVarP(&body, "body", "b", "", "Comment text")
	if err := cmd.MarkFlagRequired("body"); err != nil {
		log.Error().Err(err).Msg("Failed to mark 'body' flag as required")
	}
	return cmd
}

// addTaskFlag registers the required --task flag.
func addTaskFlag(cmd *cobra.Command, taskID *string) {
	cmd.Flags().StringVarP(taskID, "task", "t", "", "ID of the task")
	if err := cmd.MarkFlagRequired("task"); err != nil {
		log.Error().Err(err).Msg("Failed to mark 'task' flag as required")
	}
}
