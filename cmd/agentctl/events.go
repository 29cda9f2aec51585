package main

import (
	"bufio"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(eventsCmd)
}

var eventsCmd = &cobra.Command{
	Use:   "events <thread-id>",
	Short: "Tail a thread's lifecycle events",
	Long: `Stream a thread's lifecycle events as they happen.

The stream follows one turn: it opens before or during a turn and closes
when the turn completes, fails, or pauses on clarification. Requires the
daemon to run with events enabled.

Examples:
  # Watch a turn as it runs (from a second terminal)
  agentctl events thread_4fa2`,
	Args: cobra.ExactArgs(1),
	RunE: runEvents,
}

// runEvents handles the events command
func runEvents(cmd *cobra.Command, args []string) error {
	url := serverURL + "/api/v1/turns/" + args[0] + "/events"

	// No client timeout: the stream stays open across a whole turn.
	client := &http.Client{}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	// Relay SSE frames line by line. The server closes the stream after a
	// terminal event, which ends the scan.
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			fmt.Printf("%-24s %s\n", event, strings.TrimPrefix(line, "data: "))
		}
	}
	return scanner.Err()
}
