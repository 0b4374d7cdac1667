// Package api implements the HTTP REST API and WebSocket server for ForestOS.
//
// This package provides:
//   - REST endpoints for accounts, the plant catalog, user plants, sensors,
//     watering events and alerts
//   - device reading ingest authenticated by per-sensor tokens
//   - WebSocket hub pushing alert, reading and watering events to their owner
//   - Prometheus exposition on /api/v1/metrics
//   - Middleware stack (request ID, logging, metrics, recovery, CORS, rate limits)
//
// # Security
//
// Users authenticate with bearer JWTs issued by POST /auth/login. Every
// protected handler follows the same shape: resolve the caller, load the
// resource, check ownership, act. Auth failures are mapped from the
// auth.Kind of the returned error, so a missing resource is always
// reported before a forbidden one.
//
// WebSocket connections use single-use tickets to keep tokens out of URLs.
//
// # Graceful Degradation
//
// MQTT and InfluxDB are optional. Without them readings are still stored,
// alerts are still raised and WebSocket clients still receive events.
package api
