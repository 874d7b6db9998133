package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgehq/forge/internal/supervisor"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the supervisor in the foreground",
	Long: `run starts the supervisor: it watches ~/.forge for worker status and
heartbeat changes, ticks the health, crash recovery, memory, and alert
managers on a fixed schedule, and holds an exclusive lock so only one
supervisor runs against a given forge home at a time. It exits on
SIGINT/SIGTERM.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	home, err := forgeHome()
	if err != nil {
		return err
	}

	logger := log.New(cmd.ErrOrStderr(), "forge: ", log.LstdFlags)

	cfg := supervisor.DefaultConfig(home)
	sup, err := supervisor.New(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "forge supervisor watching %s (pid %d)\n", home, os.Getpid())
	return sup.Run(cmd.Context())
}
