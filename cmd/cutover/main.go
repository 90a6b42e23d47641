package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loadwise/cutover/pkg/config"
	"github.com/loadwise/cutover/pkg/driver"
	"github.com/loadwise/cutover/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cutover",
	Short: "Cutover - zero-downtime blue/green rollouts for instance groups",
	Long: `Cutover rolls a containerized service onto a fresh generation of VM
instances behind a load balancer.

Each rollout provisions an immutable instance template and a new deployment
unit, waits for every instance to pass health checks, attaches the unit to
the backend, drains the old generation, and sweeps stale resources. The
previous generation keeps serving until the new one is confirmed healthy,
and any failure before traffic moves rolls the new generation back.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Cutover version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))
}

// loadConfig reads the command's --config file and initializes logging
// from it. Every subcommand goes through here first.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})
	return cfg, nil
}

// newDriver connects to the compute API named in the config.
func newDriver(cfg *config.Config) (driver.Driver, error) {
	drv, err := driver.NewREST(driver.RESTConfig{
		Endpoint: cfg.API.Endpoint,
		Token:    cfg.API.Token,
		Zone:     cfg.Zone,
		Timeout:  time.Duration(cfg.API.Timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to compute API: %v", err)
	}
	return drv, nil
}
