// Package api hosts the operations HTTP server for a running crawl:
//   - GET /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/cursor for the enumeration position and running counters.
package api
