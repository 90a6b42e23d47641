package main

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loadwise/cutover/pkg/driver"
	"github.com/loadwise/cutover/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which generations are serving",
	Long: `Show the backend's member units and the lifecycle and health of every
instance in them. More than one generation in the list means a rollout is
in flight or a stale generation was never swept.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().String("config", "cutover.yaml", "Path to the config file")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	members, err := drv.ListBackendUnits(ctx, types.BackendRef{Name: cfg.Backend})
	if err != nil {
		return fmt.Errorf("failed to list backend members: %v", err)
	}

	fmt.Printf("Service: %s\n", cfg.Service)
	fmt.Printf("Zone:    %s\n", cfg.Zone)
	fmt.Printf("Backend: %s\n\n", cfg.Backend)

	if len(members) == 0 {
		fmt.Println("No deployment units attached.")
		return nil
	}

	fmt.Printf("%-24s %-14s %-28s %-14s %s\n", "UNIT", "GENERATION", "INSTANCE", "LIFECYCLE", "HEALTH")
	for _, member := range members {
		unit, err := observeUnit(ctx, drv, cfg.Service, member)
		if err != nil {
			return err
		}

		gen := "-"
		if unit.Generation != "" {
			gen = string(unit.Generation)
		}

		if len(unit.Instances) == 0 {
			fmt.Printf("%-24s %-14s %-28s %-14s %s\n", member.Name, gen, "-", "-", "-")
			continue
		}

		instances := make([]string, 0, len(unit.Instances))
		for name := range unit.Instances {
			instances = append(instances, name)
		}
		sort.Strings(instances)

		for _, instance := range instances {
			health := string(unit.Health[instance])
			if health == "" {
				health = "-"
			}
			fmt.Printf("%-24s %-14s %-28s %-14s %s\n",
				member.Name, gen, instance, unit.Instances[instance], health)
		}
	}
	return nil
}

// observeUnit assembles the current view of one attached member.
func observeUnit(ctx context.Context, drv driver.Driver, service string, member types.UnitRef) (types.DeploymentUnit, error) {
	unit := types.DeploymentUnit{Ref: member, Attached: true}
	if g, ok := types.GenerationFromUnit(service, member.Name); ok {
		unit.Generation = g
	}

	var err error
	unit.Instances, err = drv.InstanceStatuses(ctx, member)
	if err != nil {
		return unit, fmt.Errorf("failed to read instances of %s: %v", member.Name, err)
	}
	unit.Health, err = drv.HealthStatuses(ctx, member)
	if err != nil {
		return unit, fmt.Errorf("failed to read health of %s: %v", member.Name, err)
	}
	unit.Size = len(unit.Instances)
	return unit, nil
}
