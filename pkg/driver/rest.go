package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/loadwise/cutover/pkg/log"
	"github.com/loadwise/cutover/pkg/types"
)

// APIError is a non-2xx response from the platform API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform API: %s (status %d)", e.Message, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the platform.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// RESTConfig configures the REST driver.
type RESTConfig struct {
	// Endpoint is the base URL of the compute API, e.g.
	// "https://compute.example.com".
	Endpoint string

	// Token is the bearer token attached to every request.
	Token string

	// Zone scopes every resource path.
	Zone string

	// Timeout bounds each individual API call. Defaults to 30s.
	Timeout time.Duration
}

// REST implements Driver against the platform's compute REST API. All
// resources are zone-scoped under /compute/v1/zones/<zone>/; requests carry
// a bearer token and JSON bodies, and each call is bounded by the client
// timeout so no platform call can stall a rollout indefinitely.
type REST struct {
	endpoint string
	zone     string
	token    string
	client   *http.Client
	logger   zerolog.Logger
}

// NewREST creates a REST driver.
func NewREST(cfg RESTConfig) (*REST, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("api endpoint is required")
	}
	if cfg.Zone == "" {
		return nil, fmt.Errorf("zone is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &REST{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		zone:     cfg.Zone,
		token:    cfg.Token,
		client:   &http.Client{Timeout: timeout},
		logger:   log.WithComponent("driver"),
	}, nil
}

var _ Driver = (*REST)(nil)

// Wire shapes. The platform API speaks snake_case JSON.

type templatePayload struct {
	Name        string            `json:"name"`
	Image       string            `json:"image"`
	MachineType string            `json:"machine_type"`
	DiskSizeGB  int               `json:"disk_size_gb"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
}

type groupPayload struct {
	Name       string         `json:"name"`
	Template   string         `json:"template"`
	Size       int            `json:"size"`
	NamedPorts map[string]int `json:"named_ports,omitempty"`
}

type instanceList struct {
	Instances []struct {
		Name   string `json:"name"`
		Status string `json:"status"`
		Health string `json:"health"`
	} `json:"instances"`
}

type memberList struct {
	Members []string `json:"members"`
}

type attachPayload struct {
	Group string `json:"group"`
}

type capacityPayload struct {
	MaxUtilization float64 `json:"max_utilization,omitempty"`
	CapacityScaler float64 `json:"capacity_scaler,omitempty"`
}

type autoscalerPayload struct {
	MinReplicas       int     `json:"min_replicas"`
	MaxReplicas       int     `json:"max_replicas"`
	TargetUtilization float64 `json:"target_utilization"`
}

type nameList struct {
	Items []string `json:"items"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (r *REST) CreateTemplate(ctx context.Context, spec types.TemplateSpec) (types.TemplateRef, error) {
	payload := templatePayload{
		Name:        spec.Name,
		Image:       spec.Image,
		MachineType: spec.MachineType,
		DiskSizeGB:  spec.DiskSizeGB,
		Metadata:    spec.Metadata,
		Tags:        spec.Tags,
	}
	if err := r.do(ctx, http.MethodPost, r.zonePath("templates"), payload, nil); err != nil {
		return types.TemplateRef{}, fmt.Errorf("failed to create template %s: %w", spec.Name, err)
	}
	r.logger.Debug().Str("template", spec.Name).Str("image", spec.Image).Msg("template created")
	return types.TemplateRef{Name: spec.Name}, nil
}

func (r *REST) CreateUnit(ctx context.Context, spec types.UnitSpec) (types.UnitRef, error) {
	payload := groupPayload{
		Name:       spec.Name,
		Template:   spec.Template.Name,
		Size:       spec.Size,
		NamedPorts: spec.NamedPorts,
	}
	if err := r.do(ctx, http.MethodPost, r.zonePath("groups"), payload, nil); err != nil {
		return types.UnitRef{}, fmt.Errorf("failed to create deployment unit %s: %w", spec.Name, err)
	}
	r.logger.Debug().Str("unit", spec.Name).Int("size", spec.Size).Msg("deployment unit created")
	return types.UnitRef{Name: spec.Name}, nil
}

func (r *REST) DeleteUnit(ctx context.Context, ref types.UnitRef) error {
	err := r.do(ctx, http.MethodDelete, r.zonePath("groups", ref.Name), nil, nil)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("failed to delete deployment unit %s: %w", ref.Name, err)
	}
	r.logger.Debug().Str("unit", ref.Name).Msg("deployment unit deleted")
	return nil
}

func (r *REST) DeleteTemplate(ctx context.Context, ref types.TemplateRef) error {
	err := r.do(ctx, http.MethodDelete, r.zonePath("templates", ref.Name), nil, nil)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("failed to delete template %s: %w", ref.Name, err)
	}
	r.logger.Debug().Str("template", ref.Name).Msg("template deleted")
	return nil
}

func (r *REST) InstanceStatuses(ctx context.Context, ref types.UnitRef) (map[string]types.LifecycleState, error) {
	var list instanceList
	if err := r.do(ctx, http.MethodGet, r.zonePath("groups", ref.Name, "instances"), nil, &list); err != nil {
		return nil, fmt.Errorf("failed to read instance statuses for %s: %w", ref.Name, err)
	}

	statuses := make(map[string]types.LifecycleState, len(list.Instances))
	for _, inst := range list.Instances {
		statuses[inst.Name] = types.LifecycleState(strings.ToLower(inst.Status))
	}
	return statuses, nil
}

func (r *REST) HealthStatuses(ctx context.Context, ref types.UnitRef) (map[string]types.HealthState, error) {
	var list instanceList
	if err := r.do(ctx, http.MethodGet, r.zonePath("groups", ref.Name, "health"), nil, &list); err != nil {
		return nil, fmt.Errorf("failed to read health statuses for %s: %w", ref.Name, err)
	}

	statuses := make(map[string]types.HealthState, len(list.Instances))
	for _, inst := range list.Instances {
		statuses[inst.Name] = types.HealthState(strings.ToLower(inst.Health))
	}
	return statuses, nil
}

func (r *REST) AttachBackend(ctx context.Context, unit types.UnitRef, backend types.BackendRef) error {
	payload := attachPayload{Group: unit.Name}
	if err := r.do(ctx, http.MethodPost, r.zonePath("backends", backend.Name, "members"), payload, nil); err != nil {
		return fmt.Errorf("failed to attach %s to backend %s: %w", unit.Name, backend.Name, err)
	}
	r.logger.Debug().Str("unit", unit.Name).Str("backend", backend.Name).Msg("backend attached")
	return nil
}

func (r *REST) DetachBackend(ctx context.Context, unit types.UnitRef, backend types.BackendRef) error {
	err := r.do(ctx, http.MethodDelete, r.zonePath("backends", backend.Name, "members", unit.Name), nil, nil)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("failed to detach %s from backend %s: %w", unit.Name, backend.Name, err)
	}
	r.logger.Debug().Str("unit", unit.Name).Str("backend", backend.Name).Msg("backend detached")
	return nil
}

func (r *REST) ListBackendUnits(ctx context.Context, backend types.BackendRef) ([]types.UnitRef, error) {
	var list memberList
	if err := r.do(ctx, http.MethodGet, r.zonePath("backends", backend.Name, "members"), nil, &list); err != nil {
		return nil, fmt.Errorf("failed to list members of backend %s: %w", backend.Name, err)
	}

	sort.Strings(list.Members)
	refs := make([]types.UnitRef, 0, len(list.Members))
	for _, name := range list.Members {
		refs = append(refs, types.UnitRef{Name: name})
	}
	return refs, nil
}

func (r *REST) UpdateBackendCapacity(ctx context.Context, backend types.BackendRef, unit types.UnitRef, params types.BalancingParams) error {
	payload := capacityPayload{
		MaxUtilization: params.MaxUtilization,
		CapacityScaler: params.CapacityScaler,
	}
	path := r.zonePath("backends", backend.Name, "members", unit.Name)
	if err := r.do(ctx, http.MethodPatch, path, payload, nil); err != nil {
		return fmt.Errorf("failed to update capacity of %s on backend %s: %w", unit.Name, backend.Name, err)
	}
	return nil
}

func (r *REST) SetAutoscaling(ctx context.Context, unit types.UnitRef, policy types.AutoscalingPolicy) error {
	payload := autoscalerPayload{
		MinReplicas:       policy.MinReplicas,
		MaxReplicas:       policy.MaxReplicas,
		TargetUtilization: policy.TargetUtilization,
	}
	if err := r.do(ctx, http.MethodPut, r.zonePath("groups", unit.Name, "autoscaler"), payload, nil); err != nil {
		return fmt.Errorf("failed to set autoscaling on %s: %w", unit.Name, err)
	}
	return nil
}

func (r *REST) ListUnitsByPrefix(ctx context.Context, prefix string) ([]string, error) {
	return r.listNames(ctx, "groups", prefix)
}

func (r *REST) ListTemplatesByPrefix(ctx context.Context, prefix string) ([]string, error) {
	return r.listNames(ctx, "templates", prefix)
}

func (r *REST) listNames(ctx context.Context, resource, prefix string) ([]string, error) {
	var list nameList
	path := r.zonePath(resource) + "?prefix=" + url.QueryEscape(prefix)
	if err := r.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, fmt.Errorf("failed to list %s with prefix %s: %w", resource, prefix, err)
	}
	sort.Strings(list.Items)
	return list.Items, nil
}

// zonePath builds /compute/v1/zones/<zone>/<segments...> with each segment
// escaped.
func (r *REST) zonePath(segments ...string) string {
	var b strings.Builder
	b.WriteString("/compute/v1/zones/")
	b.WriteString(url.PathEscape(r.zone))
	for _, s := range segments {
		b.WriteString("/")
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// do performs one API call: marshal body, attach auth, decode the response
// into out when non-nil. Non-2xx responses become *APIError.
func (r *REST) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return r.apiError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
		}
	}
	return nil
}

// apiError extracts the platform's error message, falling back to the raw
// body or status text when the response isn't the usual error JSON.
func (r *REST) apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
	}

	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
