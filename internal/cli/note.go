package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewNotesCmd creates the "notes" command group.
func NewNotesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Inspect note processing state",
	}

	cmd.AddCommand(newNotesStatusCmd(clientFn, outputFn))

	return cmd
}

func newNotesStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status <note-id>",
		Short: "Show a note's status and categorization job state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			status, err := client.NoteStatus(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetch note status: %w", err)
			}

			jobStatus := "none"
			if status.HasJob {
				jobStatus = status.JobStatus
				if status.JobError != "" {
					jobStatus += " (" + status.JobError + ")"
				}
			}

			headers := []string{"NOTE ID", "STATUS", "CATEGORIZATION JOB"}
			rows := [][]string{{status.NoteID, status.Status, jobStatus}}

			out.Print(headers, rows, status)
			return nil
		},
	}
}
