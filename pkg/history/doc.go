/*
Package history persists rollout records in an embedded BoltDB database.

Every rollout writes a Record that accumulates the states it passes through
and ends with an outcome. The store is the CLI's memory across runs: it
answers "what happened to last night's deploy" after the process, its logs,
and its terminal are gone.

# Architecture

	┌───────────────── ROLLOUT HISTORY ─────────────────┐
	│                                                    │
	│  Orchestrator ──── Save() after every transition   │
	│                        │                           │
	│                        ▼                           │
	│              <data-dir>/cutover.db                 │
	│              bucket: rollouts                      │
	│              key: record UUID                      │
	│              value: JSON-encoded Record            │
	│                        │                           │
	│                        ▼                           │
	│  cutover history ── List() newest first            │
	└────────────────────────────────────────────────────┘

Records are saved eagerly rather than once at the end, so a run killed
mid-flight leaves a record whose outcome is still in_progress with the last
reached state in its step list. That partial record is exactly what an
operator needs before running garbage collection by hand.

# Usage

	store, err := history.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	record := history.NewRecord("web", "abc123")
	record.AddStep("provisioning")
	if err := store.Save(record); err != nil {
		log.Warn().Err(err).Msg("failed to save rollout record")
	}

	// Later, after the run resolves:
	record.Finish(history.OutcomeSucceeded, nil)
	_ = store.Save(record)

# Integration Points

  - pkg/orchestrator: Saves the record on every state transition
  - cmd/cutover: The history command lists and formats records

# Design Notes

BoltDB opens with a 5 second file-lock timeout so a second concurrent
cutover invocation fails fast with an error instead of hanging on the lock.

History persistence is best effort: a failed Save is logged and the rollout
continues, since losing a history row is never worth failing a deploy over.
*/
package history
