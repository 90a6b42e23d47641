/*
Package log provides structured logging for cutover using zerolog.

The log package wraps the zerolog library to provide structured rollout logs
with component-specific loggers and configurable log levels. A rollout is a
one-shot batch job watched by a human (or a CI/CD pipeline capturing output),
so the default format is the human-readable console writer on stderr; JSON
output is available for environments that ship logs to a collector.

# Architecture

	┌──────────────────── LOGGING SYSTEM ───────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐           │
	│  │            Global Logger                    │           │
	│  │  - Zerolog instance                         │           │
	│  │  - Initialized via log.Init()               │           │
	│  │  - Thread-safe for concurrent use           │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │           Configuration                     │           │
	│  │  - Level: debug/info/warn/error             │           │
	│  │  - Format: console (human) or JSON          │           │
	│  │  - Output: stderr, file, or custom writer   │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │         Component Loggers                   │           │
	│  │  - orchestrator: state machine transitions  │           │
	│  │  - health:       poll progress              │           │
	│  │  - traffic:      attach/detach steps        │           │
	│  │  - rollback:     best-effort deletions      │           │
	│  │  - gc:           stale resource cleanup     │           │
	│  │  - driver:       platform API calls         │           │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────────┘

# Usage

Initialization (once, at CLI startup):

	import "github.com/loadwise/cutover/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: false, // console output
	})

Component loggers:

	logger := log.WithComponent("orchestrator")
	logger.Info().
		Str("generation", "abc123").
		Str("state", "awaiting_health").
		Msg("state transition")

Error logging:

	logger.Error().
		Err(err).
		Str("unit", "web-abc123").
		Msg("failed to delete deployment unit")

Context fields:

	genLog := log.WithGeneration("abc123")
	genLog.Info().Msg("rollout started")

# Log Levels

  - debug: per-sample poll results, driver request/response detail
  - info:  state transitions, resources created/deleted, attach/detach
  - warn:  best-effort failures that do not change the rollout outcome
  - error: failures that decide the rollout outcome (creation, health
    timeout, attach rejection)

Every progress line required by the rollout contract is an info-level event;
diagnosing a failed rollout rarely needs more than info plus the final error.

# Output Format

Console (default, for humans and pipeline logs):

	2024-01-15T10:30:45Z INF state transition component=orchestrator generation=abc123 state=migrating

JSON (for log collectors):

	{"level":"info","component":"orchestrator","generation":"abc123","state":"migrating","time":"2024-01-15T10:30:45Z","message":"state transition"}

# Integration Points

This package is used by every component:

  - pkg/orchestrator: state transitions and terminal outcome
  - pkg/health: per-sample progress while waiting for health
  - pkg/traffic: attach, warm-up, detach confirmation
  - pkg/rollback and pkg/gc: best-effort deletion results
  - pkg/driver: request failures with endpoint context

# Best Practices

Do:
  - Use component loggers so lines are attributable
  - Attach unit/generation/backend names as fields, not in the message
  - Log best-effort failures at warn, outcome-deciding failures at error

Don't:
  - Log secrets (API tokens) at any level
  - Use Fatal inside library packages (only the CLI may exit)
*/
package log
