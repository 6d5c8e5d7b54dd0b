// Package exchange implements the stock exchange coordinator.
//
// The Exchange:
//   - Owns the static listing and one ticker.Worker per listed stock while open
//   - Validates and stamps buy/sell requests, then forwards them fire-and-forget
//   - Broadcasts an eviction tick every TickInterval and waits for every worker
//   - Recomputes the All Share Index from the refreshed snapshots after each tick
//
// The index is consistent with the per-stock snapshots as of the last
// completed tick only.
package exchange
