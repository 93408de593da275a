package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"coldcopy/internal/daemon"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View watch daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(daemonURL("/status"))
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var snap daemon.StatusSnapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return fmt.Errorf("failed to decode status response: %w", err)
		}

		running := "idle"
		if snap.Running {
			running = "running"
		}

		uptime := time.Since(snap.StartedAt).Round(time.Second)
		fmt.Printf("%s -> %s\n", snap.Src, snap.Dst)
		fmt.Printf("state: %s, uptime: %s, runs: %d ok / %d failed\n",
			running, uptime, snap.RunsOK, snap.RunsFailed)

		if snap.LastRun == nil {
			fmt.Println("no runs yet")
			return nil
		}

		last := snap.LastRun
		fmt.Printf("last run: %s (%dms)\n",
			last.StartedAt.Format("2006-01-02 15:04:05"), last.DurationMS)
		fmt.Printf("  skipped %d, copied %d, archived %d, entered %d of %d files\n",
			last.Stats.Skipped, last.Stats.Copied, last.Stats.Archived,
			last.Stats.Dirs, last.TotalFiles)
		if last.ErrMsg != "" {
			fmt.Printf("  error: %s\n", last.ErrMsg)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
