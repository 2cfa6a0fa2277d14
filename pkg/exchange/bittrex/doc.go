// Package bittrex implements the Bittrex v1.1 REST API.
//
// All calls are GETs with parameters in the query string. Private calls get
// apikey and nonce appended by the URL hook and an apisign header computed
// over the final URL by the request hook.
package bittrex
