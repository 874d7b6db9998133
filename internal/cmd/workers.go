package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forgehq/forge/internal/status"
)

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "Manage registered workers",
}

var workersPauseCmd = &cobra.Command{
	Use:   "pause <worker-id>",
	Short: "Pause an idle worker",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkersPause,
}

var workersResumeCmd = &cobra.Command{
	Use:   "resume <worker-id>",
	Short: "Resume a paused worker",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkersResume,
}

func init() {
	rootCmd.AddCommand(workersCmd)
	workersCmd.AddCommand(workersPauseCmd, workersResumeCmd)
}

func runWorkersPause(cmd *cobra.Command, args []string) error {
	store, err := openStatusStore()
	if err != nil {
		return err
	}
	if err := store.PauseWorker(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s paused\n", args[0])
	return nil
}

func runWorkersResume(cmd *cobra.Command, args []string) error {
	store, err := openStatusStore()
	if err != nil {
		return err
	}
	if err := store.ResumeWorker(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s resumed\n", args[0])
	return nil
}

func openStatusStore() (*status.Store, error) {
	home, err := forgeHome()
	if err != nil {
		return nil, err
	}
	return status.NewStore(filepath.Join(home, "status"))
}
