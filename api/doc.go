// Package api groups the collector's HTTP surface.
//
// Routes (served by cmd/collector):
//
//	GET  /tweets?limit&offset&hours&username&min_likes
//	GET  /search?search_type&term&collector_id&force_refresh
//	GET  /collectors
//	GET  /collectors/{id}
//	POST /collectors/{id}/pause
//	POST /collectors/{id}/resume
//	GET  /health
//	GET  /ready
//	GET  /version
//	GET  /metrics
//
// Every JSON response except /health and /ready uses the envelope
//
//	{"success": true, "data": ..., "error": null, "timestamp": "...", "request_id": "..."}
//
// The default listen address is :8000.
package api
