// Package gdax implements the GDAX (Coinbase Exchange) REST API.
//
// Private calls are signed with CB-ACCESS-* headers. Trade history is paged
// backwards through the CB-After response header, which the response hook
// hands to the iterator driving the walk.
package gdax
