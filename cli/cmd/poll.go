package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var pollHoursBack int

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Trigger call-log processing",
	Long: `Asks the stack to poll the telephony platform for recent calls and
run them through the lead workflow. The poll runs in the background;
use 'callflow health' to watch the services while it works.`,
	RunE: runPoll,
}

func init() {
	pollCmd.Flags().IntVar(&pollHoursBack, "hours-back", 0, "lookback window in hours (0 = service default)")
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, args []string) error {
	profile, err := profileFor(cmd)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]int{"hours_back": pollHoursBack})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Post(profile.AdminURL+"/api/process", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("admin service unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("trigger failed (status %d): %s", resp.StatusCode, string(body))
	}

	fmt.Println("Call log processing started")
	return nil
}
