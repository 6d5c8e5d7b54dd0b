// Package money provides the exact, non-negative decimal amount used for every
// price and volume on the exchange.
//
// Conventions:
//   - Scale: 4 fractional digits, rounded half-up on every construction
//   - Undefined: the zero value of Money, distinct from Zero and from any amount
//   - Arithmetic propagates Undefined; Money / Money yields a float64 ratio (NaN on undefined)
//   - Negative amounts are a programming error and panic
package money
