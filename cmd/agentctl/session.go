package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/agentd/internal/condense"
	httpapi "github.com/fyrsmithlabs/agentd/internal/http"
)

var (
	// context command flags
	ctxStrategy   string
	ctxOutputJSON bool

	// stats command flags
	statsOutputJSON bool
)

func init() {
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(statsCmd)

	contextCmd.Flags().StringVar(&ctxStrategy, "strategy", "", "Condensation strategy: recent, important, balanced, or comprehensive")
	contextCmd.Flags().BoolVar(&ctxOutputJSON, "json", false, "Output the summary as JSON")

	statsCmd.Flags().BoolVar(&statsOutputJSON, "json", false, "Output results as JSON")
}

var contextCmd = &cobra.Command{
	Use:   "context <thread-id>",
	Short: "Show a thread's condensed session context",
	Long: `Show the condensed session context for a thread, formatted the way it
is injected into agent prompts.

The strategy controls how fragments are selected against the token budget:
recent favors newer layers, important favors high-importance fragments,
balanced mixes both, comprehensive packs as much as fits. The server
defaults to balanced.

Examples:
  # Show the balanced view
  agentctl context thread_4fa2

  # Favor recent fragments
  agentctl context thread_4fa2 --strategy recent

  # Output the full summary as JSON
  agentctl context thread_4fa2 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

var statsCmd = &cobra.Command{
	Use:   "stats <thread-id>",
	Short: "Show layer occupancy for a thread's session context",
	Long: `Show how many fragments and estimated tokens each context layer holds
for a thread.

Examples:
  # Show layer stats
  agentctl stats thread_4fa2

  # Output as JSON
  agentctl stats thread_4fa2 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

// runContext handles the context command
func runContext(cmd *cobra.Command, args []string) error {
	path := "/api/v1/sessions/" + args[0] + "/context"
	if ctxStrategy != "" {
		path += "?strategy=" + ctxStrategy
	}

	var res httpapi.ContextResponse
	if err := getJSON(apiClient, path, &res); err != nil {
		return err
	}

	if ctxOutputJSON {
		return outputJSON(res)
	}

	if res.Rendered == "" {
		fmt.Println("No context selected for this thread")
		return nil
	}
	fmt.Println(res.Rendered)
	return nil
}

// runStats handles the stats command
func runStats(cmd *cobra.Command, args []string) error {
	var stats condense.Stats
	if err := getJSON(apiClient, "/api/v1/sessions/"+args[0]+"/stats", &stats); err != nil {
		return err
	}

	if statsOutputJSON {
		return outputJSON(stats)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LAYER\tITEMS\tTOKENS")
	for _, name := range condense.LayerOrder() {
		ls := stats.Layers[name]
		fmt.Fprintf(w, "%s\t%d\t%d\n", name, ls.Items, ls.Tokens)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d items, ~%d tokens (%d recorded this session)\n",
		stats.TotalItems, stats.TotalTokens, stats.SessionItems)
	return nil
}
