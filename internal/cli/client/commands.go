package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

const defaultPollInterval = 5 * time.Second

// TriggerCmd creates the trigger command.
func TriggerCmd() *cobra.Command {
	var opts TriggerOptions
	var wait bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Queue a contest generation run",
		Long: `Queues a generation job on the service and prints its id. Without --subject
the job runs the full weekly task for every configured subject on the default
topic. --topic and --count only apply together with --subject.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api := NewAPIClientWithCmd(cmd)

			ctx := cmd.Context()
			result, err := api.Trigger(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to trigger generation: %w", err)
			}

			if !wait {
				if outputJSON {
					return writeJSON(cmd.OutOrStdout(), result)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\nJob ID: %s\n", result.Message, result.JobID)
				return nil
			}

			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			job, err := api.WaitForJob(ctx, result.JobID, defaultPollInterval)
			if err != nil {
				return fmt.Errorf("failed waiting for job %s: %w", result.JobID, err)
			}
			return printJob(cmd.OutOrStdout(), job, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&opts.Subject, "subject", "s", "", "Subject to generate (default: all configured subjects)")
	cmd.Flags().StringVarP(&opts.Topic, "topic", "t", "", "Topic for --subject (default: General Revision)")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 0, "Questions per contest for --subject (default: 5)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the job to finish")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Maximum time to wait with --wait")

	return cmd
}

// StatusCmd creates the status command.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status <job_id>",
		Short:   "Show a generation job",
		Aliases: []string{"job"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			job, err := NewAPIClientWithCmd(cmd).GetJob(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get job: %w", err)
			}
			return printJob(cmd.OutOrStdout(), job, outputJSON)
		},
	}
}

// JobsCmd creates the jobs command.
func JobsCmd() *cobra.Command {
	var limit int
	var cursor string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recent generation jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			page, err := NewAPIClientWithCmd(cmd).ListJobs(cmd.Context(), cursor, limit)
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), page)
			}
			return printJobTable(cmd.OutOrStdout(), page)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of jobs")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor from a previous page")

	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func printJob(w io.Writer, job *Job, outputJSON bool) error {
	if outputJSON {
		return writeJSON(w, job)
	}

	fmt.Fprintf(w, "Job: %s\n", job.ID)
	fmt.Fprintf(w, "Status: %s\n", job.Status)
	fmt.Fprintf(w, "Trigger: %s\n", job.Trigger)
	fmt.Fprintf(w, "Subjects: %s\n", strings.Join(job.Subjects, ", "))
	fmt.Fprintf(w, "Topic: %s (%d questions)\n", job.Topic, job.QuestionCount)
	fmt.Fprintf(w, "Created: %s\n", job.CreatedAt.Local().Format(time.RFC1123))
	if job.FinishedAt != nil {
		fmt.Fprintf(w, "Finished: %s\n", job.FinishedAt.Local().Format(time.RFC1123))
	}
	if job.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", job.Error)
	}

	if len(job.Results) > 0 {
		fmt.Fprintln(w)
		for _, r := range job.Results {
			if r.Error != "" {
				fmt.Fprintf(w, "  ✗ %s: %s (%d questions added)\n", r.Subject, r.Error, r.QuestionsAdded)
				continue
			}
			fmt.Fprintf(w, "  ✓ %s: contest #%d %q (%s), %d questions\n",
				r.Subject, r.ContestNumber, r.ContestTitle, r.RemoteContestID, r.QuestionsAdded)
		}
	}
	return nil
}

func printJobTable(w io.Writer, page *JobPage) error {
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No generation jobs found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTRIGGER\tSUBJECTS\tCREATED")
	for _, j := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			j.ID, j.Status, j.Trigger, strings.Join(j.Subjects, ","), j.CreatedAt.Local().Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if page.HasMore {
		fmt.Fprintf(w, "\nMore jobs: --cursor %s\n", page.Cursor)
	}
	return nil
}
