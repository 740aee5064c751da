package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the health of every CallFlow service",
	Long: `Polls the admin service's aggregate health endpoint and prints the
status of every service in the stack.`,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	profile, err := profileFor(cmd)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(profile.AdminURL + "/api/health")
	if err != nil {
		return fmt.Errorf("admin service unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "json" {
		fmt.Println(string(body))
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("stack is not healthy")
		}
		return nil
	}

	var report struct {
		Status   string `json:"status"`
		Services []struct {
			Name      string `json:"name"`
			Status    string `json:"status"`
			LatencyMS int64  `json:"latency_ms"`
			Error     string `json:"error"`
		} `json:"services"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		return fmt.Errorf("unexpected response from admin service: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tSTATUS\tLATENCY\tERROR")
	for _, svc := range report.Services {
		fmt.Fprintf(w, "%s\t%s\t%dms\t%s\n", svc.Name, svc.Status, svc.LatencyMS, svc.Error)
	}
	w.Flush()
	fmt.Printf("\nOverall: %s\n", report.Status)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stack is not healthy")
	}
	return nil
}
