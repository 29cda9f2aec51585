// Package main implements the agentctl CLI for operations against the
// agentd daemon.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/fyrsmithlabs/agentd/internal/http"
)

var (
	// serverURL is the base URL for the agentd HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agentctl",
	Short: "CLI for the agentd workflow daemon",
	Long: `agentctl is a command-line interface for the agentd HTTP API.
It runs coding requests through the agent workflow, answers clarification
questions, inspects session context, and manages paused threads.`,
	Version: version,
}

var statusOutputJSON bool

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "agentd server URL")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOutputJSON, "json", false, "Output results as JSON")
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check agentd server health",
	Long: `Check the health status of the agentd HTTP server.

Examples:
  # Check health
  agentctl health

  # Check health on a different server
  agentctl health --server http://localhost:9090`,
	RunE: runHealth,
}

// statusCmd shows daemon-level counters
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status counters",
	Long: `Show daemon-level counters: the paused thread count, active sessions,
and the event stream state.

Examples:
  # Show status
  agentctl status

  # Output as JSON
  agentctl status --json`,
	RunE: runStatus,
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	var health httpapi.HealthResponse
	if err := getJSON(client, "/health", &health); err != nil {
		return err
	}

	fmt.Printf("Server Status: %s\n", health.Status)
	fmt.Printf("Server URL: %s\n", serverURL)
	return nil
}

// runStatus handles the status command
func runStatus(cmd *cobra.Command, args []string) error {
	var status httpapi.StatusResponse
	if err := getJSON(apiClient, "/api/v1/status", &status); err != nil {
		return err
	}

	if statusOutputJSON {
		return outputJSON(status)
	}

	fmt.Printf("Server Status: %s\n", status.Status)
	if status.Version != "" {
		fmt.Printf("Version: %s\n", status.Version)
	}
	fmt.Printf("Paused Threads: %d\n", status.PausedThreads)
	fmt.Printf("Active Sessions: %d\n", status.ActiveSessions)
	fmt.Printf("Events: %s\n", status.Events)
	return nil
}

// HTTP helpers

// apiClient covers the quick inspection endpoints. Workflow turns use
// turnClient instead.
var apiClient = &http.Client{Timeout: 30 * time.Second}

// getJSON issues a GET against the daemon and decodes the JSON response.
func getJSON(client *http.Client, path string, out any) error {
	resp, err := client.Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", serverURL+path, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// postJSON issues a POST with a JSON body and decodes the JSON response.
func postJSON(client *http.Client, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(serverURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", serverURL+path, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// checkStatus turns a non-2xx response into an error carrying the body.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
}

// Helper functions

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
