package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/binet/internal/domain"
)

// NewRunsCmd создаёт группу команд для чтения журнала runs.
func NewRunsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run journal",
	}

	cmd.AddCommand(
		newRunsListCmd(clientFn, outputFn),
		newRunsShowCmd(clientFn, outputFn),
		newRunsTasksCmd(clientFn, outputFn),
	)

	return cmd
}

var runHeaders = []string{"ID", "FLOW", "KIND", "STATUS", "STAGES", "CHUNKS", "DURATION", "CREATED"}

func runRow(r RunResponse) []string {
	return []string{
		r.ID,
		r.FlowName,
		r.Kind,
		r.Status,
		strconv.Itoa(r.Stages),
		strconv.Itoa(r.Chunks),
		formatDuration(r.DurationMS),
		r.CreatedAt,
	}
}

func formatDuration(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return (time.Duration(ms) * time.Millisecond).String()
}

// formatCounts печатает счётчики в порядке жизненного цикла задачи.
func formatCounts(counts map[string]int) string {
	var parts []string
	for _, st := range domain.TaskStatuses {
		if n := counts[string(st)]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", st, n))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

func newRunsListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListRunsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runs, err := client.ListRuns(cmd.Context(), opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = runRow(r)
			}

			return out.Print(runHeaders, rows, runs)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED, CANCELLED)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "Filter by kind (train, execute)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of results to skip")

	return cmd
}

func newRunsShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return out.Print(
				append(runHeaders, "TASKS", "ERROR"),
				[][]string{append(runRow(*run), formatCounts(run.Tasks), run.Error)},
				run,
			)
		},
	}
}

func newRunsTasksCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks RUN_ID",
		Short: "List tasks in a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			tasks, err := client.ListTasks(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			headers := []string{"ID", "KIND", "STAGE", "PHASE", "CHUNK", "STATUS", "ATTEMPT", "WORKER", "ERROR"}
			rows := make([][]string, len(tasks))
			for i, t := range tasks {
				rows[i] = []string{
					t.ID,
					t.Kind,
					strconv.Itoa(t.Stage),
					strconv.Itoa(t.Phase),
					strconv.Itoa(t.Chunk),
					t.Status,
					strconv.Itoa(t.Attempt),
					t.Worker,
					t.Error,
				}
			}

			return out.Print(headers, rows, tasks)
		},
	}
}
