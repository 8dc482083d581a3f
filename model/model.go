package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Collection names used by the catalog.
const (
	CollectionDiscoveries = "api-discoveries"
	CollectionTools       = "agent-tools"
	CollectionUsageLogs   = "tool-usage-logs"
)

// EmbeddingField is the tool field holding the description vector.
const EmbeddingField = "description_embedding"

// Errors returned by record validation.
var (
	ErrInvalidURL         = errors.New("invalid api url")
	ErrEndpointCount      = errors.New("total_endpoints does not match endpoints")
	ErrInvalidStatus      = errors.New("invalid discovery status")
	ErrInvalidMethod      = errors.New("invalid http method")
	ErrMissingErrorDetail = errors.New("failed discovery without error message")
)

// AuthType classifies how an API authenticates callers.
type AuthType string

const (
	AuthNone     AuthType = "none"
	AuthBearer   AuthType = "bearer"
	AuthBasic    AuthType = "basic"
	AuthOAuth2   AuthType = "oauth2"
	AuthAPIKey   AuthType = "api_key"
	AuthRequired AuthType = "required"
	AuthUnknown  AuthType = "unknown"
)

// Status is the outcome of a discovery.
type Status string

const (
	// StatusComplete means endpoints came from a spec or a real probe hit.
	StatusComplete Status = "complete"
	// StatusPartial means probing found nothing and only the placeholder exists.
	StatusPartial Status = "partial"
	// StatusFailed means the discovery produced no usable surface.
	StatusFailed Status = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusComplete, StatusPartial, StatusFailed:
		return true
	}
	return false
}

// PermitsGeneration reports whether a tool may be generated from a
// discovery with this status.
func (s Status) PermitsGeneration() bool {
	return s == StatusComplete || s == StatusPartial
}

// HTTP methods recognized for endpoints, in extraction order.
var Methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

// ValidMethod reports whether m is one of Methods.
func ValidMethod(m string) bool {
	for _, candidate := range Methods {
		if m == candidate {
			return true
		}
	}
	return false
}

// Endpoint is one path/method pair of an API surface.
type Endpoint struct {
	Path        string         `json:"path"`
	Method      string         `json:"method"`
	Summary     string         `json:"summary"`
	Description string         `json:"description"`
	Parameters  []any          `json:"parameters,omitempty"`
	RequestBody any            `json:"request_body,omitempty"`
	Responses   map[string]any `json:"responses,omitempty"`

	// StatusCode is the last observed HTTP status; only set by probing.
	StatusCode *int `json:"status_code,omitempty"`
}

// DiscoveryRecord is the normalized result of discovering one API.
type DiscoveryRecord struct {
	APIURL         string     `json:"api_url"`
	APIName        string     `json:"api_name,omitempty"`
	APIDescription string     `json:"api_description,omitempty"`
	BaseURL        string     `json:"base_url,omitempty"`
	HasOpenAPISpec bool       `json:"has_openapi_spec"`
	OpenAPISpecURL string     `json:"openapi_spec_url,omitempty"`
	AuthType       AuthType   `json:"auth_type,omitempty"`
	Endpoints      []Endpoint `json:"endpoints"`
	TotalEndpoints int        `json:"total_endpoints"`
	Status         Status     `json:"discovery_status"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	DiscoveredAt   time.Time  `json:"discovered_at"`
}

// SetEndpoints replaces the endpoint list and keeps TotalEndpoints in sync.
func (r *DiscoveryRecord) SetEndpoints(endpoints []Endpoint) {
	r.Endpoints = endpoints
	r.TotalEndpoints = len(endpoints)
}

// Validate checks the structural invariants of the record.
func (r DiscoveryRecord) Validate() error {
	if r.APIURL == "" {
		return ErrInvalidURL
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
	}
	if r.TotalEndpoints != len(r.Endpoints) {
		return fmt.Errorf("%w: %d != %d", ErrEndpointCount, r.TotalEndpoints, len(r.Endpoints))
	}
	if r.Status == StatusFailed && r.ErrorMessage == "" {
		return ErrMissingErrorDetail
	}
	for _, ep := range r.Endpoints {
		if !ValidMethod(ep.Method) {
			return fmt.Errorf("%w: %s %s", ErrInvalidMethod, ep.Method, ep.Path)
		}
	}
	return nil
}

// ToolRecord is a generated catalog entry.
type ToolRecord struct {
	ToolID                string     `json:"tool_id"`
	ToolName              string     `json:"tool_name"`
	DisplayName           string     `json:"display_name"`
	Description           string     `json:"description"`
	APIBaseURL            string     `json:"api_base_url"`
	AuthType              AuthType   `json:"auth_type"`
	GeneratedAt           time.Time  `json:"generated_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	SourceDiscoveryID     string     `json:"source_api_discovery_id"`
	ToolCode              string     `json:"tool_code,omitempty"`
	MCPServerCode         string     `json:"mcp_server_code,omitempty"`
	Readme                string     `json:"readme,omitempty"`
	EndpointsCount        int        `json:"endpoints_count"`
	Categories            []string   `json:"categories,omitempty"`
	Tags                  []string   `json:"tags,omitempty"`
	UsageCount            int        `json:"usage_count"`
	LastUsed              *time.Time `json:"last_used,omitempty"`
	SuccessRate           float64    `json:"success_rate"`
	AvgExecutionTimeMs    float64    `json:"avg_execution_time_ms"`
	Rating                float64    `json:"rating"`
	ReviewCount           int        `json:"review_count"`
	IsVerified            bool       `json:"is_verified"`
	GenerationTimeSeconds float64    `json:"generation_time_seconds"`
	GenerationErrors      string     `json:"generation_errors,omitempty"`
	DescriptionEmbedding  []float32  `json:"description_embedding,omitempty"`
}

// Searchable reports whether the tool has a stored description embedding.
func (t ToolRecord) Searchable() bool {
	return len(t.DescriptionEmbedding) > 0
}

// SearchResult is one ranked tool with its component scores.
type SearchResult struct {
	Tool            ToolRecord `json:"tool"`
	RelevanceScore  float64    `json:"relevance_score"`
	PopularityScore float64    `json:"popularity_score"`
	RatingScore     float64    `json:"rating_score"`
	CompositeScore  float64    `json:"composite_score"`
}

// UsageLog is one append-only execution record for a tool.
type UsageLog struct {
	LogID            string    `json:"log_id"`
	ToolID           string    `json:"tool_id"`
	Timestamp        time.Time `json:"timestamp"`
	UserQuery        string    `json:"user_query,omitempty"`
	ExecutionSuccess bool      `json:"execution_success"`
	ExecutionTimeMs  float64   `json:"execution_time_ms"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	AgentID          string    `json:"agent_id,omitempty"`
}

// NormalizeURL trims whitespace and trailing slashes.
func NormalizeURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// ParseAPIURL normalizes raw and checks that it is an absolute http(s) URL.
func ParseAPIURL(raw string) (string, *url.URL, error) {
	normalized := NormalizeURL(raw)
	if normalized == "" {
		return "", nil, ErrInvalidURL
	}
	parsed, err := url.Parse(normalized)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return normalized, parsed, nil
}

var documentIDReplacer = strings.NewReplacer("/", "_", ":", "_", ".", "_")

// DocumentID derives the store key of a discovery record from its URL.
func DocumentID(apiURL string) string {
	return documentIDReplacer.Replace(NormalizeURL(apiURL))
}
