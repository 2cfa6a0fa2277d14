// Package kraken implements the Kraken REST API.
//
// Every response is wrapped in an {"error":[...],"result":...} envelope; a
// non-empty error list is an error response even under HTTP 200. Kraken
// meters calls with a decaying counter, so clients use a token bucket
// rather than the default sliding window.
package kraken
