package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/fyrsmithlabs/agentd/internal/http"
	"github.com/fyrsmithlabs/agentd/internal/orchestrator"
)

var (
	// run command flags
	runThreadID   string
	runOutputJSON bool

	// resume command flags
	resumeOutputJSON bool
)

// turnClient allows workflow turns to run to completion; the agents block
// on LLM calls.
var turnClient = &http.Client{Timeout: 5 * time.Minute}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)

	runCmd.Flags().StringVar(&runThreadID, "thread", "", "Thread identifier (generated when omitted)")
	runCmd.Flags().BoolVar(&runOutputJSON, "json", false, "Output the turn result as JSON")

	resumeCmd.Flags().BoolVar(&resumeOutputJSON, "json", false, "Output the turn result as JSON")
}

var runCmd = &cobra.Command{
	Use:   "run [input]",
	Short: "Run a coding request through the workflow",
	Long: `Run a coding request through the planner, executor, and reviewer workflow.

The input is given as an argument, or read from stdin when the argument is
omitted or "-". When an agent needs clarification the thread pauses and the
questions are printed; answer them with "agentctl resume".

Examples:
  # Run a request
  agentctl run "add a /health endpoint to the gateway"

  # Run from stdin
  cat request.txt | agentctl run -

  # Continue an existing thread
  agentctl run --thread thread_4fa2 "now add tests for it"

  # Output as JSON
  agentctl run "refactor the config loader" --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTurn,
}

var resumeCmd = &cobra.Command{
	Use:   "resume <thread-id> [question=answer ...]",
	Short: "Answer clarification questions on a paused thread",
	Long: `Resume a paused thread by answering its clarification questions.

Answers are question=answer pairs; the question text must match what the
thread asked (agentctl checkpoint list shows the questions). Unanswered
questions are recorded as unanswered, not rejected.

Examples:
  # Answer one question
  agentctl resume thread_4fa2 "Which framework?=echo"

  # Answer several questions
  agentctl resume thread_4fa2 "Which framework?=echo" "Which port?=8080"

  # Output as JSON
  agentctl resume thread_4fa2 "Which framework?=echo" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResume,
}

// runTurn handles the run command
func runTurn(cmd *cobra.Command, args []string) error {
	var input string
	if len(args) == 0 || args[0] == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
		input = strings.TrimSpace(string(content))
	} else {
		input = args[0]
	}

	if input == "" {
		return fmt.Errorf("no input to run")
	}

	req := httpapi.TurnRequest{
		ThreadID: runThreadID,
		Input:    input,
	}

	var res orchestrator.TurnResult
	if err := postJSON(turnClient, "/api/v1/turns", req, &res); err != nil {
		return err
	}

	if runOutputJSON {
		return outputJSON(res)
	}
	printTurnResult(&res)
	return nil
}

// runResume handles the resume command
func runResume(cmd *cobra.Command, args []string) error {
	threadID := args[0]

	answers, err := parseAnswers(args[1:])
	if err != nil {
		return err
	}

	req := httpapi.ResumeRequest{Answers: answers}

	var res orchestrator.TurnResult
	if err := postJSON(turnClient, "/api/v1/turns/"+threadID+"/resume", req, &res); err != nil {
		return err
	}

	if resumeOutputJSON {
		return outputJSON(res)
	}
	printTurnResult(&res)
	return nil
}

// parseAnswers converts question=answer pairs into the answers map. The
// question is everything before the first '=', so answers may contain '='.
func parseAnswers(pairs []string) (map[string]string, error) {
	answers := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		q, a, ok := strings.Cut(pair, "=")
		if !ok || q == "" {
			return nil, fmt.Errorf("invalid answer %q (expected question=answer)", pair)
		}
		answers[q] = a
	}
	return answers, nil
}

// printTurnResult renders one turn result for humans.
func printTurnResult(res *orchestrator.TurnResult) {
	switch res.Status {
	case orchestrator.TurnAwaitingClarification:
		fmt.Printf("Thread %s paused: %s needs clarification\n\n", res.ThreadID, res.FromNode)
		for i, q := range res.Questions {
			fmt.Printf("  %d. %s\n", i+1, q.Question)
			if len(q.Options) > 0 {
				fmt.Printf("     options: %s\n", strings.Join(q.Options, ", "))
			}
		}
		fmt.Printf("\nResume with:\n  agentctl resume %s \"<question>=<answer>\"\n", res.ThreadID)
	case orchestrator.TurnError:
		fmt.Printf("Thread %s failed: %s\n", res.ThreadID, res.Message)
	default:
		fmt.Printf("Thread: %s\n\n", res.ThreadID)
		fmt.Println(res.Output)
	}
}
