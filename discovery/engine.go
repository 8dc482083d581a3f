package discovery

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/lcgani/agent-nexus/model"
	"github.com/lcgani/agent-nexus/store"
)

// Engine discovers API surfaces. It is safe for concurrent use.
type Engine struct {
	opts   Options
	client *http.Client
}

// New creates an Engine from opts.
func New(opts Options) (*Engine, error) {
	resolved, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	client := &http.Client{}
	if opts.HTTPClient != nil {
		c := *opts.HTTPClient
		client = &c
	}
	if client.CheckRedirect == nil {
		limit := resolved.MaxRedirects
		client.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
			if len(via) > limit {
				return http.ErrUseLastResponse
			}
			return nil
		}
	}
	return &Engine{opts: resolved, client: client}, nil
}

// Discover returns the discovery record for apiURL. An existing stored
// record is returned unchanged. Otherwise the record is built from a
// specification or from probing; it is not persisted.
func (e *Engine) Discover(ctx context.Context, apiURL string) (model.DiscoveryRecord, error) {
	normalized, parsed, err := model.ParseAPIURL(apiURL)
	if err != nil {
		return model.DiscoveryRecord{}, err
	}
	log := e.opts.Logger.With(zap.String("api_url", normalized))
	start := time.Now()

	if existing, ok, err := e.Lookup(ctx, normalized); err != nil {
		return model.DiscoveryRecord{}, err
	} else if ok {
		log.Debug("discovery already stored")
		e.observe("existing", existing.Status, start)
		return existing, nil
	}

	doc, err := e.findSpec(ctx, normalized)
	if err != nil {
		return model.DiscoveryRecord{}, err
	}

	var (
		rec  model.DiscoveryRecord
		tier string
	)
	if doc != nil {
		tier = "spec"
		rec, err = parseSpec(doc, normalized)
		if err != nil {
			log.Warn("specification is malformed", zap.String("spec_url", doc.URL), zap.Error(err))
			rec = failedRecord(normalized, doc.URL, err)
		} else {
			e.validate(ctx, doc, log)
		}
	} else {
		tier = "probe"
		rec, err = e.probe(ctx, normalized, parsed)
		if err != nil {
			return model.DiscoveryRecord{}, err
		}
	}

	rec.DiscoveredAt = e.opts.Now().UTC().Round(0)
	log.Info("discovery finished",
		zap.String("tier", tier),
		zap.String("status", string(rec.Status)),
		zap.Int("endpoints", rec.TotalEndpoints),
		zap.String("auth_type", string(rec.AuthType)),
	)
	e.observe(tier, rec.Status, start)
	return rec, nil
}

// Lookup returns the newest stored record for the normalized apiURL.
func (e *Engine) Lookup(ctx context.Context, apiURL string) (model.DiscoveryRecord, bool, error) {
	if e.opts.Store == nil {
		return model.DiscoveryRecord{}, false, nil
	}
	return LookupRecord(ctx, e.opts.Store, apiURL)
}

// LookupRecord queries st for the newest discovery of apiURL.
func LookupRecord(ctx context.Context, st store.Store, apiURL string) (model.DiscoveryRecord, bool, error) {
	hits, err := st.Search(ctx, model.CollectionDiscoveries, store.Query{
		Filters:  []store.Filter{store.Term("api_url", model.NormalizeURL(apiURL))},
		SortBy:   "discovered_at",
		SortDesc: true,
		Size:     1,
	})
	if err != nil {
		return model.DiscoveryRecord{}, false, fmt.Errorf("lookup discovery: %w", err)
	}
	if len(hits) == 0 {
		return model.DiscoveryRecord{}, false, nil
	}
	var rec model.DiscoveryRecord
	if err := hits[0].Decode(&rec); err != nil {
		return model.DiscoveryRecord{}, false, fmt.Errorf("decode discovery: %w", err)
	}
	return rec, true, nil
}

// findSpec walks the specification candidates in order. It returns nil
// when none qualifies.
func (e *Engine) findSpec(ctx context.Context, apiURL string) (*specDocument, error) {
	for _, path := range e.opts.SpecPaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		specURL := apiURL + path
		a, doc := e.fetchSpec(ctx, specURL)
		e.opts.Logger.Debug("spec candidate",
			zap.String("url", specURL),
			zap.Stringer("outcome", a.Outcome),
			zap.Int("status", a.StatusCode),
			zap.Error(a.Err),
		)
		switch a.Outcome {
		case OutcomeHit:
			return doc, nil
		case OutcomeTerminal:
			return nil, a.Err
		}
	}
	return nil, nil
}

// validate logs OpenAPI 3 validation problems. They never fail discovery.
func (e *Engine) validate(ctx context.Context, doc *specDocument, log *zap.Logger) {
	if e.opts.SkipValidation {
		return
	}
	if _, ok := doc.Data["openapi"]; !ok {
		return
	}
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	t, err := loader.LoadFromData(doc.Raw)
	if err == nil {
		err = t.Validate(ctx)
	}
	if err != nil {
		log.Warn("specification validation", zap.String("spec_url", doc.URL), zap.Error(err))
	}
}

func (e *Engine) observe(tier string, status model.Status, start time.Time) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.ObserveDiscovery(tier, status, time.Since(start))
	}
}

func failedRecord(apiURL, specURL string, err error) model.DiscoveryRecord {
	rec := model.DiscoveryRecord{
		APIURL:         apiURL,
		HasOpenAPISpec: true,
		OpenAPISpecURL: specURL,
		Status:         model.StatusFailed,
		ErrorMessage:   err.Error(),
	}
	rec.SetEndpoints([]model.Endpoint{})
	return rec
}
