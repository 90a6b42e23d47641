package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loadwise/cutover/pkg/types"
)

// Duration is a time.Duration that unmarshals from YAML duration strings
// such as "300s" or "15s", so wait budgets read naturally in config files.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the immutable rollout configuration. It is resolved once at
// startup (defaults, then config file, then environment, then CLI flags)
// and passed into constructors; nothing reads ambient state afterwards.
type Config struct {
	// Service is the logical name of the deployed service. Resource names
	// for every generation derive from it.
	Service string `yaml:"service"`

	// Zone is the platform zone the deployment units live in.
	Zone string `yaml:"zone"`

	// Backend is the load balancer backend service receiving traffic.
	Backend string `yaml:"backend"`

	// Registry is the image registry path, e.g. "registry.example.com/acme".
	// The image for a generation is <registry>/<service>:<generation>.
	Registry string `yaml:"registry"`

	MachineType string            `yaml:"machine_type"`
	DiskSizeGB  int               `yaml:"disk_size_gb"`
	Size        int               `yaml:"size"`
	NamedPorts  map[string]int    `yaml:"named_ports"`
	Metadata    map[string]string `yaml:"metadata"`
	Tags        []string          `yaml:"tags"`

	Health      HealthConfig      `yaml:"health"`
	Traffic     TrafficConfig     `yaml:"traffic"`
	Autoscaling AutoscalingConfig `yaml:"autoscaling"`
	API         APIConfig         `yaml:"api"`
	Log         LogConfig         `yaml:"log"`

	// DataDir holds the local rollout history database. Empty disables
	// history recording.
	DataDir string `yaml:"data_dir"`

	// PushGateway is an optional Prometheus Pushgateway address; when set,
	// rollout metrics are pushed once at the end of the invocation.
	PushGateway string `yaml:"push_gateway"`
}

// HealthConfig bounds the wait for a new generation to become healthy.
type HealthConfig struct {
	Timeout  Duration `yaml:"timeout"`
	Interval Duration `yaml:"interval"`

	// ConfirmBackend requires load-balancer-reported health in addition to
	// a running instance lifecycle. Disabling it accepts all-running alone.
	ConfirmBackend bool `yaml:"confirm_backend"`
}

// TrafficConfig shapes the migration of traffic onto a new unit.
type TrafficConfig struct {
	// WarmUp is the pause between attaching the new unit and detaching
	// stale ones, letting connection pools and health-check cycles settle.
	WarmUp Duration `yaml:"warm_up"`

	DetachAttempts int      `yaml:"detach_attempts"`
	DetachBackoff  Duration `yaml:"detach_backoff"`

	// MaxUtilization and CapacityScaler are optional balancing parameters
	// applied to the new unit after attach. Zero leaves platform defaults.
	MaxUtilization float64 `yaml:"max_utilization"`
	CapacityScaler float64 `yaml:"capacity_scaler"`
}

// AutoscalingConfig optionally bounds a unit's size after creation.
type AutoscalingConfig struct {
	Enabled           bool    `yaml:"enabled"`
	MinReplicas       int     `yaml:"min_replicas"`
	MaxReplicas       int     `yaml:"max_replicas"`
	TargetUtilization float64 `yaml:"target_utilization"`
}

// APIConfig locates the platform compute API.
type APIConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Token    string   `yaml:"token"`
	Timeout  Duration `yaml:"timeout"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Service names must be usable as platform resource name prefixes.
var serviceNamePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// Default returns a Config populated with defaults. Service, zone, backend
// and registry have no sensible defaults and must come from the file.
func Default() *Config {
	return &Config{
		MachineType: "e2-small",
		DiskSizeGB:  20,
		Size:        2,
		NamedPorts:  map[string]int{"http": 8080},
		Health: HealthConfig{
			Timeout:        Duration(300 * time.Second),
			Interval:       Duration(15 * time.Second),
			ConfirmBackend: true,
		},
		Traffic: TrafficConfig{
			WarmUp:         Duration(60 * time.Second),
			DetachAttempts: 20,
			DetachBackoff:  Duration(3 * time.Second),
		},
		API: APIConfig{
			Timeout: Duration(30 * time.Second),
		},
		Log: LogConfig{
			Level: "info",
		},
		DataDir: "./cutover-data",
	}
}

// Load reads a YAML config file over the defaults, applies environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers environment overrides on top of file values. The API
// token in particular belongs in the environment, not in a checked-in file.
func (c *Config) applyEnv() {
	c.API.Endpoint = getEnv("CUTOVER_API_ENDPOINT", c.API.Endpoint)
	c.API.Token = getEnv("CUTOVER_API_TOKEN", c.API.Token)
	c.DataDir = getEnv("CUTOVER_DATA_DIR", c.DataDir)
}

// Validate checks the configuration once; a valid Config is never
// re-checked downstream.
func (c *Config) Validate() error {
	if c.Service == "" {
		return fmt.Errorf("service is required")
	}
	if !serviceNamePattern.MatchString(c.Service) {
		return fmt.Errorf("service %q is not a valid resource name prefix", c.Service)
	}
	if c.Zone == "" {
		return fmt.Errorf("zone is required")
	}
	if c.Backend == "" {
		return fmt.Errorf("backend is required")
	}
	if c.Registry == "" {
		return fmt.Errorf("registry is required")
	}
	if c.Size < 1 {
		return fmt.Errorf("size must be at least 1, got %d", c.Size)
	}
	if c.DiskSizeGB < 1 {
		return fmt.Errorf("disk_size_gb must be at least 1, got %d", c.DiskSizeGB)
	}
	if len(c.NamedPorts) == 0 {
		return fmt.Errorf("at least one named port is required")
	}
	for name, port := range c.NamedPorts {
		if port < 1 || port > 65535 {
			return fmt.Errorf("named port %q out of range: %d", name, port)
		}
	}

	if c.Health.Timeout <= 0 {
		return fmt.Errorf("health.timeout must be positive")
	}
	if c.Health.Interval <= 0 {
		return fmt.Errorf("health.interval must be positive")
	}
	if c.Health.Interval > c.Health.Timeout {
		return fmt.Errorf("health.interval exceeds health.timeout")
	}

	if c.Traffic.WarmUp < 0 {
		return fmt.Errorf("traffic.warm_up must not be negative")
	}
	if c.Traffic.DetachAttempts < 1 {
		return fmt.Errorf("traffic.detach_attempts must be at least 1")
	}
	if c.Traffic.DetachBackoff <= 0 {
		return fmt.Errorf("traffic.detach_backoff must be positive")
	}
	if c.Traffic.MaxUtilization < 0 || c.Traffic.MaxUtilization > 1 {
		return fmt.Errorf("traffic.max_utilization must be within [0, 1]")
	}
	if c.Traffic.CapacityScaler < 0 || c.Traffic.CapacityScaler > 1 {
		return fmt.Errorf("traffic.capacity_scaler must be within [0, 1]")
	}

	if c.Autoscaling.Enabled {
		if c.Autoscaling.MinReplicas < 1 {
			return fmt.Errorf("autoscaling.min_replicas must be at least 1")
		}
		if c.Autoscaling.MaxReplicas < c.Autoscaling.MinReplicas {
			return fmt.Errorf("autoscaling.max_replicas must not be below min_replicas")
		}
		if c.Autoscaling.TargetUtilization <= 0 || c.Autoscaling.TargetUtilization > 1 {
			return fmt.Errorf("autoscaling.target_utilization must be within (0, 1]")
		}
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}

	return nil
}

// ImageRef derives the image reference for a generation.
func (c *Config) ImageRef(gen types.Generation) string {
	return fmt.Sprintf("%s/%s:%s", c.Registry, c.Service, gen)
}

// TemplateSpec derives the provisioning template for a generation.
func (c *Config) TemplateSpec(gen types.Generation) types.TemplateSpec {
	return types.TemplateSpec{
		Name:        types.TemplateName(c.Service, gen),
		Image:       c.ImageRef(gen),
		MachineType: c.MachineType,
		DiskSizeGB:  c.DiskSizeGB,
		Metadata:    c.Metadata,
		Tags:        c.Tags,
	}
}

// UnitSpec derives the deployment unit for a generation, bound to its
// template by name.
func (c *Config) UnitSpec(gen types.Generation) types.UnitSpec {
	return types.UnitSpec{
		Name:       types.UnitName(c.Service, gen),
		Template:   types.TemplateRef{Name: types.TemplateName(c.Service, gen)},
		Size:       c.Size,
		NamedPorts: c.NamedPorts,
	}
}

// BalancingParams returns the configured balancing parameters; the zero
// value means none were configured.
func (c *Config) BalancingParams() types.BalancingParams {
	return types.BalancingParams{
		MaxUtilization: c.Traffic.MaxUtilization,
		CapacityScaler: c.Traffic.CapacityScaler,
	}
}

// AutoscalingPolicy returns the configured policy; the second return is
// false when autoscaling is disabled.
func (c *Config) AutoscalingPolicy() (types.AutoscalingPolicy, bool) {
	if !c.Autoscaling.Enabled {
		return types.AutoscalingPolicy{}, false
	}
	return types.AutoscalingPolicy{
		MinReplicas:       c.Autoscaling.MinReplicas,
		MaxReplicas:       c.Autoscaling.MaxReplicas,
		TargetUtilization: c.Autoscaling.TargetUtilization,
	}, true
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
