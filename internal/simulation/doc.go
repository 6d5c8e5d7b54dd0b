// Package simulation drives an exchange with synthetic traffic.
//
// Two periodic loops consume the public Market contract:
//   - Trader issues one randomized sell and one buy per stock per round
//   - Reporter prints the All Share Index and the ticker board
package simulation
