// Package gemini implements the public Gemini v1 market data API. Account
// and order operations are not wired and report core.ErrNotSupported.
package gemini
