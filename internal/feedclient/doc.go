// Package feedclient is a typed client for the exchange feed.
//
// REST reads (health, board, single ticker, index) retry on 5xx and 429 with
// jittered exponential backoff. Stream dials the websocket endpoint and hands
// every pushed board to a callback until the context ends or the server
// closes the stream.
package feedclient
