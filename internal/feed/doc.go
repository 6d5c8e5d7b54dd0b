// Package feed serves the exchange over HTTP.
//
// Endpoints:
//   - /health: status, open flag, database reachability and build info
//   - /tickers: the current board as JSON
//   - /index: the All Share Index
//   - /metrics: Prometheus exposition (path configurable)
//   - /ws: websocket stream pushing the board every PushInterval
package feed
