// Package model defines shared data types used across the stock exchange.
//
// Conventions:
//   - Prices and volumes: money.Money (4 fractional digits, Undefined = no price)
//   - Quantities: int shares
//   - Timestamps: time.Time from the exchange clock
//   - IDs: symbol strings for stocks, uuid.UUID for trades
package model
