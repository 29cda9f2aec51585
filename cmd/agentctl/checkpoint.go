package main

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	httpapi "github.com/fyrsmithlabs/agentd/internal/http"
)

var (
	// checkpoint command flags
	cpOutputJSON bool
)

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointListCmd)
	checkpointCmd.AddCommand(checkpointDeleteCmd)

	checkpointCmd.PersistentFlags().BoolVar(&cpOutputJSON, "json", false, "Output results as JSON")
}

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Manage paused threads",
	Long: `Manage the checkpoints of threads paused awaiting clarification.

A paused thread holds its checkpoint until it is resumed or the checkpoint
is deleted. Deleting a checkpoint abandons the pause; the next turn on that
thread starts fresh.

Examples:
  # List paused threads and their questions
  agentctl checkpoint list

  # Abandon a paused thread
  agentctl checkpoint delete thread_4fa2`,
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List paused threads",
	Long: `List every thread paused awaiting clarification, most recently updated
first.

Examples:
  # List paused threads
  agentctl checkpoint list

  # Output as JSON
  agentctl checkpoint list --json`,
	RunE: runCheckpointList,
}

var checkpointDeleteCmd = &cobra.Command{
	Use:   "delete <thread-id>",
	Short: "Abandon a paused thread",
	Long: `Delete the checkpoint of a paused thread.

The pause is discarded: the pending questions are dropped and the next turn
on the thread starts fresh at the planner.

Examples:
  # Abandon a paused thread
  agentctl checkpoint delete thread_4fa2`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckpointDelete,
}

// runCheckpointList handles the checkpoint list command
func runCheckpointList(cmd *cobra.Command, args []string) error {
	var res httpapi.CheckpointsResponse
	if err := getJSON(apiClient, "/api/v1/checkpoints", &res); err != nil {
		return err
	}

	if cpOutputJSON {
		return outputJSON(res)
	}

	if res.Count == 0 {
		fmt.Println("No paused threads")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "THREAD\tNODE\tQUESTIONS\tUPDATED")
	for _, cp := range res.Checkpoints {
		question := ""
		if len(cp.Questions) > 0 {
			question = cp.Questions[0].Question
			if len(cp.Questions) > 1 {
				question = fmt.Sprintf("%s (+%d more)", question, len(cp.Questions)-1)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			truncate(cp.ThreadID, 24),
			cp.PausedNode,
			truncate(question, 48),
			cp.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	w.Flush()

	return nil
}

// runCheckpointDelete handles the checkpoint delete command
func runCheckpointDelete(cmd *cobra.Command, args []string) error {
	threadID := args[0]

	req, err := http.NewRequest(http.MethodDelete, serverURL+"/api/v1/checkpoints/"+threadID, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := apiClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	fmt.Printf("Checkpoint deleted for thread %s\n", threadID)
	return nil
}
