// Package driver abstracts the compute platform that hosts deployment units.
//
// Every rollout step that touches infrastructure (creating templates and
// deployment units, reading instance lifecycle and health, attaching and
// detaching load balancer backends, tuning autoscaling) goes through the
// Driver interface. The orchestrator, health poller, traffic migrator,
// rollback manager, and garbage collector never speak to the platform
// directly, which keeps their logic testable against the in-memory fake.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────┐
//	│                    Rollout Components                   │
//	│  (orchestrator, health, traffic, rollback, gc, status)  │
//	└────────────────────────────┬────────────────────────────┘
//	                             │ Driver interface
//	              ┌──────────────┴──────────────┐
//	              ▼                             ▼
//	     ┌─────────────────┐          ┌──────────────────┐
//	     │      REST       │          │  fake.Platform   │
//	     │  (production)   │          │     (tests)      │
//	     └────────┬────────┘          └──────────────────┘
//	              │ HTTPS + bearer token
//	              ▼
//	     /compute/v1/zones/<zone>/
//	       ├── templates            instance templates
//	       ├── groups               deployment units
//	       │     ├── .../instances  lifecycle states
//	       │     ├── .../health     health states
//	       │     └── .../autoscaler scaling policy
//	       └── backends/<name>/members
//
// # Semantics
//
// The interface encodes the contract the rollout logic depends on:
//
//   - DeleteUnit, DeleteTemplate and DetachBackend succeed when the resource
//     is already absent. Rollback and garbage collection retry freely without
//     tracking what a previous pass removed.
//   - DeleteTemplate fails while a deployment unit still references the
//     template, so callers must delete units first.
//   - InstanceStatuses and HealthStatuses are point-in-time snapshots keyed
//     by instance name; callers poll them, the driver never blocks waiting
//     for a state.
//   - ListUnitsByPrefix and ListTemplatesByPrefix return sorted names, which
//     gives garbage collection a deterministic deletion order.
//
// # Usage
//
//	drv, err := driver.NewREST(driver.RESTConfig{
//		Endpoint: "https://compute.example.com",
//		Token:    os.Getenv("CUTOVER_API_TOKEN"),
//		Zone:     "us-east1-b",
//	})
//	if err != nil {
//		return err
//	}
//
//	ref, err := drv.CreateUnit(ctx, spec)
//	if err != nil {
//		return fmt.Errorf("failed to create deployment unit: %w", err)
//	}
//
// Errors from the platform carry their HTTP status:
//
//	if err := drv.DeleteUnit(ctx, ref); err != nil {
//		var apiErr *driver.APIError
//		if errors.As(err, &apiErr) {
//			log.Error().Int("status", apiErr.StatusCode).Msg("delete rejected")
//		}
//	}
//
// # Integration Points
//
//   - pkg/orchestrator: provisions templates and units, sets autoscaling
//   - pkg/health: polls InstanceStatuses and HealthStatuses
//   - pkg/traffic: attaches, detaches and confirms backend membership
//   - pkg/rollback: deletes the failed generation's unit and template
//   - pkg/gc: lists by prefix and deletes stale generations
//   - pkg/driver/fake: in-memory implementation for tests
package driver
