package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgehq/forge/internal/health"
	"github.com/forgehq/forge/internal/procctl"
	"github.com/forgehq/forge/internal/status"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run the composite health check against every worker and report guidance",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	checkExternalTools(cmd)

	store, err := openStatusStore()
	if err != nil {
		return err
	}
	infos, parseErrs, err := store.ReadAll()
	if err != nil {
		return err
	}
	for _, pe := range parseErrs {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipping unparseable status file %s: %v\n", pe.Path, pe.Err)
	}

	if len(infos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no workers registered")
		return nil
	}

	now := time.Now()
	ctx := context.Background()
	unhealthy := 0
	for _, info := range infos {
		report := buildHealthReport(ctx, info, now)
		fmt.Fprintf(cmd.OutOrStdout(), "%s %-20s score=%.2f\n", report.Indicator(), info.WorkerID, report.Score())
		if report.Score() < 1.0 {
			unhealthy++
			fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", report.Guidance())
		}
	}
	if unhealthy > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d/%d worker(s) need attention\n", unhealthy, len(infos))
	}
	return nil
}

func buildHealthReport(ctx context.Context, info *status.Info, now time.Time) *health.Report {
	exists, _, rssMB := health.InspectProcess(ctx, info.PID)

	var lastActivity *time.Time
	if !info.LastActivity.IsZero() {
		t := info.LastActivity
		lastActivity = &t
	}

	snap := health.WorkerSnapshot{
		WorkerID:      info.WorkerID,
		PID:           info.PID,
		ProcessExists: exists,
		IsActiveState: info.Status == status.StateActive,
		IsStarting:    info.Status == status.StateStarting,
		HasTask:       info.CurrentTask != "",
		LastActivity:  lastActivity,
		RSSMb:         rssMB,
	}
	return health.Run(snap, health.DefaultConfig(), now)
}

func checkExternalTools(cmd *cobra.Command) {
	for _, name := range []string{"tmux", "br"} {
		if procctl.CommandAvailable(name) {
			fmt.Fprintf(cmd.OutOrStdout(), "● %s available\n", name)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "○ %s not found on PATH\n", name)
		}
	}
}
