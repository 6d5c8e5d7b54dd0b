// Package recorder samples ticker state into TimescaleDB.
//
// The Recorder:
//   - Samples every listed stock's snapshot and the All Share Index each Interval
//   - Accumulates rows and flushes them with pgx.Batch at BatchSize or FlushInterval
//   - Inserts with ON CONFLICT DO NOTHING, counting conflicts
//   - Keeps at most BufferSize rows across failed flushes, dropping the oldest
package recorder
