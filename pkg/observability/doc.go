/*
Package observability provides Prometheus instrumentation for the Arbor engine.

Metrics turns engine lifecycle events into counters and histograms through the
hooks returned by Metrics.Hooks, and wraps HTTP handlers to record request
counts and latencies by route.
*/
package observability
