// Package listing reads the static set of listed stocks.
//
// A listing is line oriented text: one header line, then one stock per line
// with the fields Symbol, Type, LastDividend, FixedDividend and ParValue.
// Fields are separated by anything other than letters, digits, '%', '.' and
// '-'. Monetary fields that fail to parse become zero; a line with fewer
// than five fields or an unknown type aborts the whole listing.
package listing
