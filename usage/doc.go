// Package usage records tool executions and maintains the mutable quality
// signals of catalog tools.
//
// Every execution is appended to the usage log collection and folded into
// the tool's usage_count, last_used, success_rate and avg_execution_time_ms
// fields. Ratings keep a running mean with a review count. The ranking
// engine reads usage_count and rating when it scores search results.
//
// Signal updates are read-modify-write against the store. A Recorder
// serializes its own updates; concurrent writers in other processes may
// lose increments.
package usage
