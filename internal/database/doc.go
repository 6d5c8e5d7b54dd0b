// Package database provides the TimescaleDB connection pool used for ticker history.
//
// Only sampled ticker state is stored:
//   - ticker_snapshots: price, quantity and volume per stock per sample
//   - index_samples: the All Share Index per sample
//
// Individual trades never leave the exchange process.
package database
