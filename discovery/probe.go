package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/lcgani/agent-nexus/model"
)

const (
	probeSummary       = "Discovered endpoint"
	placeholderSummary = "API endpoint"
)

// probeOne issues a single probe. Any status below 500 is a hit.
func (e *Engine) probeOne(ctx context.Context, target, method string) Attempt {
	reqCtx, cancel := context.WithTimeout(ctx, e.opts.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, target, nil)
	if err != nil {
		return terminal(target, method, fmt.Errorf("build request: %w", err))
	}
	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return terminal(target, method, ctx.Err())
		}
		return skip(target, method, 0, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return skip(target, method, resp.StatusCode, fmt.Errorf("server error %d", resp.StatusCode))
	}
	return hit(target, method, resp.StatusCode)
}

// probe infers a minimal surface when no specification exists.
func (e *Engine) probe(ctx context.Context, apiURL string, parsed *url.URL) (model.DiscoveryRecord, error) {
	rec := model.DiscoveryRecord{
		APIURL:         apiURL,
		APIName:        parsed.Host,
		APIDescription: "API integration for " + apiURL,
		BaseURL:        apiURL,
		AuthType:       model.AuthUnknown,
	}

	var (
		endpoints    []model.Endpoint
		executed     int
		lastErr      error
		authRequired bool
	)
probing:
	for _, path := range e.opts.ProbePaths {
		for _, method := range e.opts.ProbeMethods {
			if err := ctx.Err(); err != nil {
				return rec, err
			}
			target := apiURL + path
			a := e.probeOne(ctx, target, method)
			e.opts.Logger.Debug("probe",
				zap.String("url", target),
				zap.String("method", method),
				zap.Stringer("outcome", a.Outcome),
				zap.Int("status", a.StatusCode),
				zap.Error(a.Err),
			)

			switch a.Outcome {
			case OutcomeTerminal:
				if ctx.Err() != nil {
					return rec, ctx.Err()
				}
				lastErr = a.Err
				continue
			case OutcomeSkip:
				executed++
				continue
			}

			executed++
			status := a.StatusCode
			endpoints = append(endpoints, model.Endpoint{
				Path:       path,
				Method:     method,
				Summary:    probeSummary,
				StatusCode: &status,
			})
			if status == http.StatusUnauthorized {
				authRequired = true
			}
			if e.opts.stopAtFirstHit() {
				break probing
			}
		}
	}

	if authRequired {
		rec.AuthType = model.AuthRequired
	}

	switch {
	case len(endpoints) > 0:
		rec.Status = model.StatusComplete
		rec.SetEndpoints(endpoints)
	case executed == 0:
		rec.Status = model.StatusFailed
		rec.ErrorMessage = "probing could not run"
		if lastErr != nil {
			rec.ErrorMessage = "probing could not run: " + lastErr.Error()
		}
		rec.SetEndpoints([]model.Endpoint{})
	default:
		rec.Status = model.StatusPartial
		rec.SetEndpoints([]model.Endpoint{{
			Path:    "/",
			Method:  http.MethodGet,
			Summary: placeholderSummary,
		}})
	}
	return rec, nil
}
