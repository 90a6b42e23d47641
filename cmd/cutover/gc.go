package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loadwise/cutover/pkg/gc"
	"github.com/loadwise/cutover/pkg/types"
)

var gcCmd = &cobra.Command{
	Use:   "gc GENERATION",
	Short: "Sweep stale generations, keeping GENERATION",
	Long: `Sweep deployment units and templates of generations other than the one
named, for rollouts whose cleanup phase could not finish.

GENERATION must be the generation currently serving; everything else
belonging to the service is deleted. Deletion order is units first, then
templates, so a template is never removed while a unit still references it.

Examples:
  # Delete every generation of the service except v42
  cutover gc v42 --config cutover.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runGC,
}

func init() {
	gcCmd.Flags().String("config", "cutover.yaml", "Path to the config file")

	rootCmd.AddCommand(gcCmd)
}

func runGC(cmd *cobra.Command, args []string) error {
	current := types.Generation(args[0])
	if !types.ValidGeneration(current) {
		return fmt.Errorf("invalid generation %q", current)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	drv, err := newDriver(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Sweeping stale generations of %s (keeping %s)\n", cfg.Service, current)

	result, err := gc.New(drv, cfg.Service).Collect(ctx, current)
	if err != nil {
		return fmt.Errorf("sweep failed: %v", err)
	}

	for _, name := range result.Units {
		fmt.Printf("✓ Deleted deployment unit %s\n", name)
	}
	for _, name := range result.Templates {
		fmt.Printf("✓ Deleted template %s\n", name)
	}
	if result.Empty() {
		fmt.Println("Nothing to sweep.")
	}
	return nil
}
