package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/loadwise/cutover/pkg/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past rollouts",
	Long: `List the rollouts recorded in the local data directory, newest first.

An outcome of in_progress marks a rollout that is still running, or one
that was killed before it could finish. Check 'cutover status' for what is
actually serving before rerunning.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("config", "cutover.yaml", "Path to the config file")
	historyCmd.Flags().Int("limit", 20, "Maximum number of rollouts to show (0 for all)")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open rollout history: %v", err)
	}
	defer store.Close()

	records, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list rollouts: %v", err)
	}

	if len(records) == 0 {
		fmt.Println("No rollouts recorded.")
		return nil
	}

	fmt.Printf("%-12s %-14s %-12s %-10s %-20s %s\n",
		"SERVICE", "GENERATION", "OUTCOME", "DURATION", "STARTED", "ERROR")
	for i, r := range records {
		if limit > 0 && i >= limit {
			break
		}

		errMsg := r.Error
		if errMsg == "" {
			errMsg = "-"
		} else if len(errMsg) > 60 {
			errMsg = errMsg[:57] + "..."
		}

		fmt.Printf("%-12s %-14s %-12s %-10s %-20s %s\n",
			r.Service,
			r.Generation,
			r.Outcome,
			r.Duration().Round(time.Second),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			errMsg)
	}
	return nil
}
