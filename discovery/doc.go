// Package discovery classifies an unknown HTTP API and extracts its surface.
//
// An [Engine] turns an API URL into a [model.DiscoveryRecord] through an
// ordered pipeline:
//
//  1. The URL is normalized (trailing slashes stripped).
//  2. If a store is configured, the newest record for that exact URL is
//     returned unchanged and no network I/O happens.
//  3. Specification paths are fetched in order. The first 200 response
//     that decodes as JSON or YAML and carries a top-level "openapi" or
//     "swagger" key wins.
//  4. A found specification is parsed into endpoints and an auth type.
//     A structurally broken specification yields a failed record.
//  5. Without a specification, probe paths are requested and every
//     response below 500 becomes an endpoint. When nothing answers, a
//     single GET / placeholder is recorded with status partial.
//
// Each fetch or probe yields an [Attempt] whose [Outcome] decides whether
// the pipeline moves to the next candidate or stops.
//
// # Probe Depth
//
// [DepthFast] probes "/" and "/api" with GET and stops at the first hit.
// [DepthFull] probes seven paths with GET and POST and records every hit.
// Explicit ProbePaths and ProbeMethods override the depth defaults.
//
// # Persistence
//
// The engine only reads from the store. Persisting records is the
// caller's job (see the catalog package).
//
// # Usage
//
//	eng, err := discovery.New(discovery.Options{Store: st, Depth: discovery.DepthFull})
//	if err != nil {
//	    return err
//	}
//	rec, err := eng.Discover(ctx, "https://api.example.com")
package discovery
