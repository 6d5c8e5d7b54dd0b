// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Trade intake: accepted by side, dropped by reason
//   - Ticker workers: trades applied and evicted per stock
//   - Eviction ticks: count and duration
//   - Published state: All Share Index and per-stock price, quantity and volume
//
// A nil *Metrics is valid and records nothing.
package metrics
