// Package model defines the records shared by the discovery, ranking and
// generation packages.
//
// A [DiscoveryRecord] describes the surface of one HTTP API and is keyed by
// its normalized URL. A [ToolRecord] is the catalog entry generated from a
// discovery and carries the mutable usage and rating signals consumed by
// ranking. [SearchResult] is produced per query and never persisted.
//
// # Status
//
// [Status] is a closed set: complete, partial and failed. Only complete and
// partial discoveries may feed tool generation; see [Status.PermitsGeneration].
//
// # Identity
//
// [NormalizeURL] strips trailing slashes and surrounding whitespace.
// [DocumentID] derives the store key used for discovery records.
package model
