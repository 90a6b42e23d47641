package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loadwise/cutover/pkg/config"
	"github.com/loadwise/cutover/pkg/driver"
	"github.com/loadwise/cutover/pkg/driver/fake"
	"github.com/loadwise/cutover/pkg/events"
	"github.com/loadwise/cutover/pkg/history"
	"github.com/loadwise/cutover/pkg/metrics"
	"github.com/loadwise/cutover/pkg/orchestrator"
	"github.com/loadwise/cutover/pkg/types"
)

var rolloutCmd = &cobra.Command{
	Use:   "rollout GENERATION",
	Short: "Roll the service onto a new generation",
	Long: `Roll the service onto a new generation of instances.

The generation names the image tag to deploy and becomes part of every
resource name, e.g. generation v42 of service web deploys image
<registry>/web:v42 as deployment unit web-v42.

The rollout blocks until the new generation is serving and old ones are
swept, or until it fails and rolls back. Ctrl-C before traffic has moved
aborts the rollout and rolls back; once traffic is moving the rollout
finishes regardless.

Examples:
  # Roll service onto generation v42
  cutover rollout v42 --config cutover.yaml

  # Rehearse against an in-memory platform
  cutover rollout v42 --config cutover.yaml --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runRollout,
}

func init() {
	rolloutCmd.Flags().String("config", "cutover.yaml", "Path to the config file")
	rolloutCmd.Flags().Bool("dry-run", false, "Run against an in-memory platform instead of the compute API")

	rootCmd.AddCommand(rolloutCmd)
}

func runRollout(cmd *cobra.Command, args []string) error {
	gen := types.Generation(args[0])
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var drv driver.Driver
	if dryRun {
		// The rehearsal platform starts with one serving generation so the
		// run exercises the full swap. The warm-up is shortened: there is
		// no balancer to settle.
		platform := fake.New()
		platform.SeedServing(cfg.Service, "previous", cfg.Backend, cfg.Size)
		if cfg.Traffic.WarmUp > config.Duration(time.Second) {
			cfg.Traffic.WarmUp = config.Duration(time.Second)
		}
		drv = platform
		fmt.Println("Dry run: no compute API calls will be made.")
	} else {
		drv, err = newDriver(cfg)
		if err != nil {
			return err
		}
	}

	var store *history.Store
	if !dryRun {
		store, err = history.Open(cfg.DataDir)
		if err != nil {
			fmt.Printf("Warning: rollout history disabled: %v\n", err)
		} else {
			defer store.Close()
		}
	}

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	printerDone := make(chan struct{})
	go func() {
		defer close(printerDone)
		for ev := range sub {
			switch ev.Type {
			case events.EventRolloutCompleted, events.EventRolloutFailed:
				// The command prints the final line itself.
			default:
				fmt.Printf("  → %s\n", ev.Message)
			}
		}
	}()

	o, err := orchestrator.New(cfg, drv, broker, store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Rolling out %s generation %s\n", cfg.Service, gen)
	runErr := o.Run(ctx, gen)

	// Let the broker flush trailing progress before tearing the feed down.
	time.Sleep(200 * time.Millisecond)
	broker.Unsubscribe(sub)
	<-printerDone

	if cfg.PushGateway != "" && !dryRun {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metrics.Push(pushCtx, cfg.PushGateway, map[string]string{"service": cfg.Service}); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	fmt.Printf("✓ Rollout complete: %s is serving\n", types.UnitName(cfg.Service, gen))
	return nil
}
