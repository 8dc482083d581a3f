package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticConfig configures an ElasticStore.
type ElasticConfig struct {
	// Addresses lists the cluster URLs.
	Addresses []string
	// APIKey is an optional base64 API key.
	APIKey string
	// Refresh is passed to write requests. Default "true" so a
	// find-or-create lookup sees the previous write.
	Refresh string
	// Transport overrides the HTTP transport (useful for tests).
	Transport http.RoundTripper
}

// ElasticStore maps the store contract onto Elasticsearch indices.
type ElasticStore struct {
	es      *elasticsearch.Client
	refresh string
}

// NewElasticStore creates a client for the configured cluster.
func NewElasticStore(cfg ElasticConfig) (*ElasticStore, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("elasticsearch address is required")
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		APIKey:    cfg.APIKey,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	refresh := cfg.Refresh
	if refresh == "" {
		refresh = "true"
	}
	return &ElasticStore{es: client, refresh: refresh}, nil
}

// Init creates missing indices with their mappings.
func (s *ElasticStore) Init(ctx context.Context, collections []Collection) ([]string, error) {
	var created []string
	for _, c := range collections {
		if c.Name == "" {
			return created, ErrInvalidCollection
		}
		res, err := s.es.Indices.Exists([]string{c.Name}, s.es.Indices.Exists.WithContext(ctx))
		if err != nil {
			return created, fmt.Errorf("check index %s: %w", c.Name, err)
		}
		drain(res)
		if res.StatusCode == http.StatusOK {
			continue
		}

		opts := []func(*esapi.IndicesCreateRequest){s.es.Indices.Create.WithContext(ctx)}
		if c.Mapping != "" {
			opts = append(opts, s.es.Indices.Create.WithBody(strings.NewReader(c.Mapping)))
		}
		res, err = s.es.Indices.Create(c.Name, opts...)
		if err != nil {
			return created, fmt.Errorf("create index %s: %w", c.Name, err)
		}
		err = responseError(res)
		drain(res)
		if err != nil {
			return created, fmt.Errorf("create index %s: %w", c.Name, err)
		}
		created = append(created, c.Name)
	}
	return created, nil
}

// Get returns the _source of a document.
func (s *ElasticStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := validateKey(collection, id); err != nil {
		return nil, err
	}
	res, err := s.es.Get(collection, id, s.es.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	defer drain(res)
	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if err := responseError(res); err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}

	var body struct {
		Found  bool     `json:"found"`
		Source Document `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode get response: %w", err)
	}
	if !body.Found {
		return nil, ErrNotFound
	}
	return body.Source, nil
}

// Search translates q into a search request body.
func (s *ElasticStore) Search(ctx context.Context, collection string, q Query) ([]Hit, error) {
	if collection == "" {
		return nil, ErrInvalidCollection
	}
	payload, err := json.Marshal(searchBody(q))
	if err != nil {
		return nil, fmt.Errorf("encode search: %w", err)
	}
	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(collection),
		s.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	defer drain(res)
	if res.StatusCode == http.StatusNotFound {
		return []Hit{}, nil
	}
	if err := responseError(res); err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}

	var body struct {
		Hits struct {
			Hits []struct {
				ID     string   `json:"_id"`
				Score  *float64 `json:"_score"`
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]Hit, 0, len(body.Hits.Hits))
	for _, h := range body.Hits.Hits {
		hit := Hit{ID: h.ID, Source: h.Source}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Upsert indexes doc under id.
func (s *ElasticStore) Upsert(ctx context.Context, collection, id string, doc Document) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", id, err)
	}
	res, err := s.es.Index(collection, bytes.NewReader(payload),
		s.es.Index.WithContext(ctx),
		s.es.Index.WithDocumentID(id),
		s.es.Index.WithRefresh(s.refresh),
	)
	if err != nil {
		return fmt.Errorf("index %s/%s: %w", collection, id, err)
	}
	defer drain(res)
	return responseError(res)
}

// PartialUpdate sends a partial-document update.
func (s *ElasticStore) PartialUpdate(ctx context.Context, collection, id string, fields Document) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]any{"doc": fields})
	if err != nil {
		return fmt.Errorf("encode update %s: %w", id, err)
	}
	res, err := s.es.Update(collection, id, bytes.NewReader(payload),
		s.es.Update.WithContext(ctx),
		s.es.Update.WithRefresh(s.refresh),
	)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	defer drain(res)
	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return responseError(res)
}

func searchBody(q Query) map[string]any {
	body := map[string]any{}

	var filters []any
	for _, f := range q.Filters {
		filters = append(filters, filterClause(f))
	}

	size := q.Size
	if q.KNN != nil {
		knn := map[string]any{
			"field":          q.KNN.Field,
			"query_vector":   q.KNN.Vector,
			"k":              q.KNN.K,
			"num_candidates": q.KNN.NumCandidates,
		}
		if len(filters) > 0 {
			knn["filter"] = filters
		}
		body["knn"] = knn
		if size == 0 || (q.KNN.K > 0 && q.KNN.K < size) {
			size = q.KNN.K
		}
	} else if len(filters) > 0 {
		body["query"] = map[string]any{"bool": map[string]any{"filter": filters}}
	} else {
		body["query"] = map[string]any{"match_all": map[string]any{}}
	}

	if q.SortBy != "" && q.KNN == nil {
		order := "asc"
		if q.SortDesc {
			order = "desc"
		}
		body["sort"] = []any{map[string]any{q.SortBy: map[string]any{"order": order, "unmapped_type": "keyword"}}}
	}
	if size == 0 {
		size = DefaultSize
	}
	body["size"] = size
	if len(q.Fields) > 0 {
		body["_source"] = q.Fields
	}
	return body
}

func filterClause(f Filter) map[string]any {
	if f.Path == "" {
		return map[string]any{"term": map[string]any{f.Field: f.Value}}
	}
	return map[string]any{
		"nested": map[string]any{
			"path":  f.Path,
			"query": map[string]any{"term": map[string]any{f.Path + "." + f.Field: f.Value}},
		},
	}
}

// responseError reports a non-2xx response. It does not close the body.
func responseError(res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("elasticsearch status %d: %s", res.StatusCode, bytes.TrimSpace(msg))
}

func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
