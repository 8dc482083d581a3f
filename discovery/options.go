package discovery

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lcgani/agent-nexus/model"
	"github.com/lcgani/agent-nexus/store"
)

// ErrInvalidProbeDepth is returned for an unknown probe depth name.
var ErrInvalidProbeDepth = errors.New("invalid probe depth")

// ProbeDepth selects how aggressively the fallback prober searches.
type ProbeDepth string

const (
	DepthFast ProbeDepth = "fast"
	DepthFull ProbeDepth = "full"
)

// ParseProbeDepth maps a configuration string to a ProbeDepth. The empty
// string selects DepthFast.
func ParseProbeDepth(s string) (ProbeDepth, error) {
	switch ProbeDepth(strings.ToLower(strings.TrimSpace(s))) {
	case "", DepthFast:
		return DepthFast, nil
	case DepthFull:
		return DepthFull, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidProbeDepth, s)
}

// DefaultSpecPaths lists the specification locations tried, in order.
var DefaultSpecPaths = []string{
	"/openapi.json",
	"/openapi.yaml",
	"/swagger.json",
	"/swagger.yaml",
	"/api-docs",
	"/docs/openapi.json",
	"/v1/openapi.json",
	"/api/openapi.json",
}

// Probe candidates per depth.
var (
	FastProbePaths   = []string{"/", "/api"}
	FastProbeMethods = []string{http.MethodGet}
	FullProbePaths   = []string{"/", "/api", "/api/v1", "/v1", "/health", "/status", "/docs"}
	FullProbeMethods = []string{http.MethodGet, http.MethodPost}
)

const (
	defaultMaxRedirects = 5
	defaultMaxSpecBytes = 10 << 20
)

// Metrics receives discovery observations. Tier is one of "existing",
// "spec", or "probe".
type Metrics interface {
	ObserveDiscovery(tier string, status model.Status, elapsed time.Duration)
}

// Options configures an Engine.
type Options struct {
	// Store is consulted for an existing record before any network I/O.
	// Nil disables the lookup.
	Store store.Store

	// HTTPClient issues fetches and probes. Nil uses a client built on
	// http.DefaultTransport. Its CheckRedirect is replaced when unset.
	HTTPClient *http.Client

	// SpecPaths overrides DefaultSpecPaths. Order is significant.
	SpecPaths []string

	// Depth selects probe candidates and timeouts. Default: DepthFast.
	Depth ProbeDepth

	// ProbePaths and ProbeMethods override the depth defaults.
	ProbePaths   []string
	ProbeMethods []string

	// SpecTimeout bounds each spec fetch.
	// Default: 2s for DepthFast, 10s for DepthFull.
	SpecTimeout time.Duration

	// ProbeTimeout bounds each probe.
	// Default: 2s for DepthFast, 5s for DepthFull.
	ProbeTimeout time.Duration

	// MaxRedirects caps redirect hops per request. Default: 5.
	MaxRedirects int

	// MaxSpecBytes caps the size of a specification body. Default: 10 MiB.
	MaxSpecBytes int64

	// SkipValidation disables the OpenAPI 3 validation warnings.
	SkipValidation bool

	Logger  *zap.Logger
	Metrics Metrics

	// Now stamps discovered_at. Default: time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() (Options, error) {
	depth, err := ParseProbeDepth(string(o.Depth))
	if err != nil {
		return o, err
	}
	o.Depth = depth

	if len(o.SpecPaths) == 0 {
		o.SpecPaths = DefaultSpecPaths
	}
	if len(o.ProbePaths) == 0 {
		o.ProbePaths = FastProbePaths
		if depth == DepthFull {
			o.ProbePaths = FullProbePaths
		}
	}
	if len(o.ProbeMethods) == 0 {
		o.ProbeMethods = FastProbeMethods
		if depth == DepthFull {
			o.ProbeMethods = FullProbeMethods
		}
	}
	methods := make([]string, len(o.ProbeMethods))
	for i, m := range o.ProbeMethods {
		methods[i] = strings.ToUpper(m)
		if !model.ValidMethod(methods[i]) {
			return o, fmt.Errorf("%w: %s", model.ErrInvalidMethod, m)
		}
	}
	o.ProbeMethods = methods

	if o.SpecTimeout <= 0 {
		o.SpecTimeout = 2 * time.Second
		if depth == DepthFull {
			o.SpecTimeout = 10 * time.Second
		}
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 2 * time.Second
		if depth == DepthFull {
			o.ProbeTimeout = 5 * time.Second
		}
	}
	if o.MaxRedirects <= 0 {
		o.MaxRedirects = defaultMaxRedirects
	}
	if o.MaxSpecBytes <= 0 {
		o.MaxSpecBytes = defaultMaxSpecBytes
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o, nil
}

// stopAtFirstHit reports whether probing ends after the first hit.
func (o Options) stopAtFirstHit() bool {
	return o.Depth == DepthFast
}
