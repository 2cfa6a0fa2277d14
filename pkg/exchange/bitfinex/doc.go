// Package bitfinex implements the Bitfinex v1 REST API.
//
// Public market data (symbols, ticker, book, trades) is unauthenticated.
// Private calls are POSTs whose parameters travel as a base64 JSON payload
// in the X-BFX-PAYLOAD header, signed with HMAC-SHA384 by the request hook.
//
// Example usage:
//
//	ex, err := bitfinex.New(bitfinex.DefaultConfig())
//	ticker, err := ex.GetTicker(ctx, "btcusd")
package bitfinex
