package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"
)

// Reasons a spec candidate is skipped.
var (
	errNotOK      = errors.New("status is not 200")
	errNoMarker   = errors.New("document has no openapi or swagger key")
	errNotMapping = errors.New("document is not an object")
	errTooLarge   = errors.New("specification body too large")
)

// specDocument is a decoded specification together with its raw bytes.
type specDocument struct {
	URL  string
	Raw  []byte
	Data map[string]any
}

// fetchSpec tries one specification candidate.
func (e *Engine) fetchSpec(ctx context.Context, specURL string) (Attempt, *specDocument) {
	reqCtx, cancel := context.WithTimeout(ctx, e.opts.SpecTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, specURL, nil)
	if err != nil {
		return skip(specURL, http.MethodGet, 0, fmt.Errorf("build request: %w", err)), nil
	}
	req.Header.Set("Accept", "application/json, application/x-yaml, text/yaml")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return terminal(specURL, http.MethodGet, ctx.Err()), nil
		}
		return skip(specURL, http.MethodGet, 0, err), nil
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return skip(specURL, http.MethodGet, resp.StatusCode, errNotOK), nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, e.opts.MaxSpecBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return terminal(specURL, http.MethodGet, ctx.Err()), nil
		}
		return skip(specURL, http.MethodGet, resp.StatusCode, fmt.Errorf("read body: %w", err)), nil
	}
	if int64(len(raw)) > e.opts.MaxSpecBytes {
		return skip(specURL, http.MethodGet, resp.StatusCode, errTooLarge), nil
	}

	data, err := decodeSpec(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return skip(specURL, http.MethodGet, resp.StatusCode, err), nil
	}
	if !hasMarker(data) {
		return skip(specURL, http.MethodGet, resp.StatusCode, errNoMarker), nil
	}
	return hit(specURL, http.MethodGet, resp.StatusCode), &specDocument{URL: specURL, Raw: raw, Data: data}
}

// decodeSpec decodes raw as YAML when the content type says so, otherwise
// as JSON with a YAML fallback.
func decodeSpec(raw []byte, contentType string) (map[string]any, error) {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "yaml") || strings.Contains(ct, "yml") {
		return decodeYAML(raw)
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&v); err == nil {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, errNotMapping
		}
		return m, nil
	}
	return decodeYAML(raw)
}

func decodeYAML(raw []byte) (map[string]any, error) {
	var v any
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	m, ok := normalizeYAML(v).(map[string]any)
	if !ok {
		return nil, errNotMapping
	}
	return m, nil
}

// normalizeYAML converts maps with non-string keys (such as unquoted
// response codes) into map[string]any so the document encodes as JSON.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	}
	return v
}

func hasMarker(doc map[string]any) bool {
	_, openapi := doc["openapi"]
	_, swagger := doc["swagger"]
	return openapi || swagger
}
