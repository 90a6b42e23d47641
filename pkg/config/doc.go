/*
Package config resolves the immutable rollout configuration.

Everything a rollout needs to know about its surroundings (zone, backend
name, registry path, wait budgets) lives in one explicit Config value,
resolved once at startup and handed to constructors. Components never read
files, flags, or the environment themselves.

# Resolution Order

Later sources override earlier ones:

	defaults (code)  →  YAML config file  →  environment  →  CLI flags

The environment layer exists mainly for the platform API token, which
belongs in CI secrets rather than in a checked-in YAML file:

	CUTOVER_API_ENDPOINT   overrides api.endpoint
	CUTOVER_API_TOKEN      overrides api.token
	CUTOVER_DATA_DIR       overrides data_dir

# File Format

	service: web
	zone: us-east1-b
	backend: web-backend
	registry: registry.example.com/acme
	machine_type: e2-small
	disk_size_gb: 20
	size: 4
	named_ports:
	  http: 8080

	health:
	  timeout: 300s          # give up and roll back after this
	  interval: 15s          # sampling interval
	  confirm_backend: true  # require LB-reported health, not just running

	traffic:
	  warm_up: 60s           # pause between attach and first detach
	  detach_attempts: 20
	  detach_backoff: 3s
	  max_utilization: 0.8   # optional balancing params for the new unit
	  capacity_scaler: 1.0

	autoscaling:
	  enabled: false
	  min_replicas: 2
	  max_replicas: 8
	  target_utilization: 0.6

	api:
	  endpoint: https://compute.example.com
	  timeout: 30s

	log:
	  level: info
	  json: false

	data_dir: ./cutover-data
	push_gateway: ""

Durations are strings in Go duration syntax ("300s", "15s", "2m").

# Capabilities

Two flags collapse behavioral variants into configuration instead of code
forks:

  - health.confirm_backend: when true (default) a unit counts as healthy
    only when every instance is both running and reported healthy by the
    load balancer; when false, all-running alone is accepted.
  - autoscaling.enabled: when true, an autoscaling policy is applied to
    the new unit right after creation.

# Validation

Load validates once and returns a Config that downstream code can trust:
resource-name-safe service, positive wait budgets, interval not exceeding
timeout, utilization fractions within range, autoscaling bounds ordered.

# Derivations

The Config is also the single place that derives per-generation values:

	cfg.ImageRef(gen)      // registry.example.com/acme/web:abc123
	cfg.TemplateSpec(gen)  // template name, image, machine shape
	cfg.UnitSpec(gen)      // unit name, template ref, size, named ports

Keeping derivation here means the orchestrator never assembles names or
image references inline.
*/
package config
