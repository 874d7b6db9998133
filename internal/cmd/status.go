package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgehq/forge/internal/activity"
	"github.com/forgehq/forge/internal/display"
	"github.com/forgehq/forge/internal/health"
	"github.com/forgehq/forge/internal/heartbeat"
	"github.com/forgehq/forge/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show every worker's self-reported status and derived activity state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	home, err := forgeHome()
	if err != nil {
		return err
	}

	store, err := openStatusStore()
	if err != nil {
		return err
	}
	hbReader := heartbeat.NewReader(filepath.Join(home, "heartbeat"))

	infos, parseErrs, err := store.ReadAll()
	if err != nil {
		return err
	}
	for _, pe := range parseErrs {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipping unparseable status file %s: %v\n", pe.Path, pe.Err)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].WorkerID < infos[j].WorkerID })

	if len(infos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no workers registered")
		return nil
	}

	now := time.Now()
	ctx := context.Background()
	useColor := display.ShouldUseColor()
	for _, info := range infos {
		printWorkerStatus(cmd, info, hbReader.ReadHeartbeat(info.WorkerID), now, ctx, useColor)
	}
	return nil
}

func printWorkerStatus(cmd *cobra.Command, info *status.Info, hb *heartbeat.Data, now time.Time, ctx context.Context, useColor bool) {
	var lastActivity *time.Time
	if !info.LastActivity.IsZero() {
		t := info.LastActivity
		lastActivity = &t
	}

	details := activity.GetActivity(activity.Input{
		WorkerID:     info.WorkerID,
		HasTask:      info.CurrentTask != "",
		LastActivity: lastActivity,
		WorkerStatus: info.Status,
		Heartbeat:    hb,
	}, now, activity.DefaultConfig())

	exists, _, rssMB := health.InspectProcess(ctx, info.PID)
	indicator := "●"
	if !exists {
		indicator = "○"
	}
	if useColor {
		indicator = display.HealthIndicator(indicator)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %-20s %-10s %-14s pid=%-7d rss=%.0fMB task=%s\n",
		indicator, info.WorkerID, info.Status, details.State, info.PID, rssMB, info.CurrentTask)
	if details.Guidance != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", details.Guidance)
	}
}
