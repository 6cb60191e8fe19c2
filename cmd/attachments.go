package cmd

import (
	"fmt"

	"github.com/habedi/tasksctl/client"
	"github.com/habedi/tasksctl/pkg/clierr"
	"github.com/habedi/tasksctl/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func attachmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attachments",
		Short: "List and download task attachments",
	}
	cmd.AddCommand(listAttachmentsCmd(), downloadAttachmentCmd())
	return cmd
}

func listAttachmentsCmd() *cobra.Command {
	var taskID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a task's attachments",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := validation.ValidateTaskID(taskID); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			atts, err := a.api.ListAttachments(cmd.Context(), taskID)
			if err != nil {
				return classify(err, "Failed to list attachments")
			}
			if len(atts) == 0 {
				cmd.Println("No attachments.")
				return nil
			}

			table := newTable(cmd.OutOrStdout(), []string{"ID", "Name", "Type", "Size"})
			for _, att := range atts {
				table.Append([]string{att.ID, att.Name, att.ContentType, formatBytes(att.Size)})
			}
			table.Render()
			return nil
		}),
	}

	addTaskFlag(cmd, &taskID)
	return cmd
}

func downloadAttachmentCmd() *cobra.Command {
	var (
		taskID, attID, dir string
		rateLimit          int64
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download an attachment",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := validation.ValidateTaskID(taskID); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			if err := validation.ValidateTaskID(attID); err != nil {
				return clierr.New(clierr.Validation, "invalid attachment ID: "+attID, err)
			}

			atts, err := a.api.ListAttachments(cmd.Context(), taskID)
			if err != nil {
				return classify(err, "Failed to look up attachment")
			}
			var target *client.Attachment
			for i := range atts {
				if atts[i].ID == attID {
					target = &atts[i]
					break
				}
			}
			if target == nil {
				return clierr.New(clierr.NotFound, fmt.Sprintf("Task %s has no attachment %s", taskID, attID), nil)
			}

			api := a.api
			if rateLimit > 0 {
				api = client.New(a.cfg.BaseURL, api.HTTPClient(), client.WithRateLimit(rateLimit*1024))
			}
			path, err := api.DownloadAttachment(cmd.Context(), *target, dir, cmd.ErrOrStderr())
			if err != nil {
				return classify(err, "Failed to download attachment")
			}
			log.Info().Str("path", path).Msg("Download complete")
			cmd.Printf("Saved %s\n", path)
			return nil
		}),
	}

	addTaskFlag(cmd, &taskID)
	cmd.Flags().StringVarP(&attID, "id", "i", "", "ID of the attachment")
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to save the file in")
	cmd.Flags().Int64Var(&rateLimit, "rate-limit", 0, "Maximum download speed in KiB/s (0 for unlimited)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		log.Error().Err(err).Msg("Failed to mark 'id' flag as required")
	}
	return cmd
}

// formatBytes renders sizes below 1 KiB as bytes and larger ones in binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
