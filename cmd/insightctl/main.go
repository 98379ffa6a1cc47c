// Package main implements the insightctl CLI for manual operations
// against the insightd HTTP server.
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
)

var (
	// serverURL is the base URL for the insightd HTTP server
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
	Use:   "insightctl",
	Short: "CLI for insightd HTTP server operations",
	Long: `insightctl is a command-line interface for the insightd analysis daemon.
It provides commands for querying market data, running analyses, and
managing the analysis cache.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9180", "insightd server URL")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(gapsCmd)
	rootCmd.AddCommand(causesCmd)
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check insightd server health",
	RunE:  runHealth,
}

// toolsCmd lists the server's tool manifest
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools exposed by the server",
	RunE:  runTools,
}

// queryCmd queries the market datasets
var queryCmd = &cobra.Command{
	Use:   "query <dimension>",
	Short: "Query market data (dimension: product, province, indicator)",
	Long: `Query the product, province, or indicator datasets.

Examples:
  # All product rows
  insightctl query product

  # One product in one period
  insightctl query product --id P001 --period 2024-Q1`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

// reportCmd fetches a cached analysis report
var reportCmd = &cobra.Command{
	Use:   "report <kind> <id>",
	Short: "Get the analysis report for a subject (kind: product, province, indicator)",
	Long: `Get the AI analysis report for a subject. Reports are cached; a second
call for the same subject returns the cached report unless it was
marked stale or --force is given.

Examples:
  insightctl report product P001 --period 2024-Q1
  insightctl report indicator ind007 --growth 15
  insightctl report product P001 --period 2024-Q1 --force`,
	Args: cobra.ExactArgs(2),
	RunE: runReport,
}

// refreshCmd marks a subject's report stale
var refreshCmd = &cobra.Command{
	Use:   "refresh <kind> <id>",
	Short: "Mark a subject's analysis stale so consumers recompute it",
	Args:  cobra.ExactArgs(2),
	RunE:  runRefresh,
}

// gapsCmd runs scissors-gap detection over a JSON file of trend series
var gapsCmd = &cobra.Command{
	Use:   "gaps [file]",
	Short: "Detect scissors gaps in trend series read from a JSON file or stdin",
	Long: `Detect scissors gaps. Input is a JSON array of trend series, read from
a file or stdin.

Examples:
  insightctl gaps trends.json
  cat trends.json | insightctl gaps -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGaps,
}

// causesCmd infers root causes from performance records in a JSON file
var causesCmd = &cobra.Command{
	Use:   "causes [file]",
	Short: "Infer problem causes from performance records read from a JSON file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCauses,
}

var (
	flagPeriod string
	flagID     string
	flagGrowth float64
	flagForce  bool
)

func init() {
	queryCmd.Flags().StringVar(&flagID, "id", "", "filter by id")
	queryCmd.Flags().StringVar(&flagPeriod, "period", "", "filter by period, e.g. 2024-Q1")

	reportCmd.Flags().StringVar(&flagPeriod, "period", "", "period for product/province subjects")
	reportCmd.Flags().Float64Var(&flagGrowth, "growth", 0, "growth rate for indicator subjects (omit for the no-growth plan)")
	reportCmd.Flags().BoolVar(&flagForce, "force", false, "force recomputation")

	refreshCmd.Flags().StringVar(&flagPeriod, "period", "", "period for product/province subjects")
	refreshCmd.Flags().Float64Var(&flagGrowth, "growth", 0, "growth rate for indicator subjects")
}

// postJSON sends a request body to the server and decodes the response.
func postJSON(path string, reqBody, respBody any) error {
	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := serverURL + path
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 90 * time.Second,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// getJSON fetches a path and decodes the response.
func getJSON(path string, respBody any) error {
	url := serverURL + path

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(respBody)
}

// readInput reads a file argument or stdin when the argument is "-" or
// absent.
func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	return data, nil
}

// printJSON pretty-prints a response to stdout.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := getJSON("/health", &resp); err != nil {
		return err
	}

	fmt.Printf("Server Status: %s\n", resp.Status)
	fmt.Printf("Server URL: %s\n", serverURL)
	return nil
}

func runTools(cmd *cobra.Command, args []string) error {
	var resp struct {
		Tools []struct {
			Name        string `json:"name"`
			Method      string `json:"method"`
			Path        string `json:"path"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	if err := getJSON("/tools", &resp); err != nil {
		return err
	}

	for _, tool := range resp.Tools {
		fmt.Printf("%s\n  %s %s\n  %s\n\n", tool.Name, tool.Method, tool.Path, tool.Description)
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	req := map[string]any{"dimension": args[0]}
	if flagID != "" {
		req["ids"] = []string{flagID}
	}
	if flagPeriod != "" {
		req["periods"] = []string{flagPeriod}
	}

	var resp map[string]any
	if err := postJSON("/tools/query_market_data", req, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func runReport(cmd *cobra.Command, args []string) error {
	req := map[string]any{
		"kind":  args[0],
		"id":    args[1],
		"force": flagForce,
	}
	if flagPeriod != "" {
		req["period"] = flagPeriod
	}
	if flagGrowth > 0 {
		req["growth_rate"] = flagGrowth
	}

	var resp map[string]any
	if err := postJSON("/analysis/report", req, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	req := map[string]any{
		"kind": args[0],
		"id":   args[1],
	}
	if flagPeriod != "" {
		req["period"] = flagPeriod
	}
	if flagGrowth > 0 {
		req["growth_rate"] = flagGrowth
	}

	var resp struct {
		Key          string `json:"key"`
		RefreshCount uint64 `json:"refresh_count"`
	}
	if err := postJSON("/analysis/refresh", req, &resp); err != nil {
		return err
	}

	fmt.Printf("Marked %s stale (refresh count %d)\n", resp.Key, resp.RefreshCount)
	return nil
}

func runGaps(cmd *cobra.Command, args []string) error {
	input, err := readInput(args)
	if err != nil {
		return err
	}

	var series []json.RawMessage
	if err := json.Unmarshal(input, &series); err != nil {
		return fmt.Errorf("input must be a JSON array of trend series: %w", err)
	}

	var resp map[string]any
	if err := postJSON("/tools/analyze_scissors_gaps", map[string]any{"series": series}, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func runCauses(cmd *cobra.Command, args []string) error {
	input, err := readInput(args)
	if err != nil {
		return err
	}

	var req map[string]json.RawMessage
	if err := json.Unmarshal(input, &req); err != nil {
		return fmt.Errorf("input must be a JSON object with products and/or provinces arrays: %w", err)
	}

	var resp map[string]any
	if err := postJSON("/tools/analyze_problem_causes", req, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}
