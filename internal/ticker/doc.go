// Package ticker implements the per-stock ticker engine.
//
// Each listed stock gets one Worker:
//   - Owns an Engine: a time-ordered trade ledger plus running aggregates
//   - Applies trades and eviction ticks one at a time from a FIFO Mailbox
//   - Publishes an immutable model.Snapshot through a Cell after every message
//
// Workers never share state; readers only see snapshots.
package ticker
