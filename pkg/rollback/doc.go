/*
Package rollback tears down a generation whose rollout failed before
traffic moved.

Rollback is deliberately small and deliberately quiet. It runs only while
the previous generation still holds all traffic (after a provisioning
failure, a health timeout, an operator cancellation, or a rejected backend
attach), so the service is already safe and the only job left is deleting
the two resources the failed rollout may have created.

# Ordering

The deployment unit is deleted before its template because the platform
refuses to delete a template that a unit still references. Refs the rollout
never got far enough to create arrive zero-valued and are skipped.

# Why Rollback Never Returns an Error

Every caller is already on a failure path and would do nothing with the
error except log it, so Rollback logs it. Deletes the platform rejects are
left for garbage collection, which runs with the same idempotent deletes on
the next successful rollout. Repeated rollbacks of the same generation are
safe: deleting an absent resource is not an error.

# Usage

	mgr := rollback.New(drv)

	// After a health timeout; the context is shielded from the operator's
	// cancellation so teardown finishes even mid-Ctrl-C.
	mgr.Rollback(context.WithoutCancel(ctx), unitRef, tplRef)

# Integration Points

  - pkg/driver: idempotent unit and template deletes
  - pkg/orchestrator: invokes rollback from every pre-migration failure path
  - pkg/gc: sweeps anything rollback could not remove
*/
package rollback
