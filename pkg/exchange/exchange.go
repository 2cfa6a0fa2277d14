// Package exchange defines the capability set every venue client exposes
// and the registry that resolves a venue name to a client.
package exchange

import (
	"context"
	"iter"
	"time"

	"github.com/cockroachdb/apd/v3"

	"tradegate/pkg/core"
)

// NoExchange is the name reported by a client that is not bound to a venue.
const NoExchange = "NoExchange"

// Exchange is the unified interface over a single venue. A venue that does
// not implement an operation returns a core.ErrNotSupported error from it.
type Exchange interface {
	Name() string

	ListSymbols(ctx context.Context) ([]string, error)
	GetTicker(ctx context.Context, symbol string) (*core.Ticker, error)
	// GetOrderBook honours WithDepth when the venue can; the default depth is 100.
	GetOrderBook(ctx context.Context, symbol string, opts ...Option) (*core.OrderBook, error)
	// GetHistoricalTrades yields trades oldest first. A zero since yields the
	// most recent page; otherwise pages are walked from since to now.
	GetHistoricalTrades(ctx context.Context, symbol string, since time.Time) iter.Seq2[*core.Trade, error]

	GetAvailableBalances(ctx context.Context) (map[string]apd.Decimal, error)

	PlaceOrder(ctx context.Context, symbol string, amount, price apd.Decimal, side core.OrderSide) (*core.Order, error)
	GetOrderDetails(ctx context.Context, orderID string) (*core.Order, error)
	// CancelOrder returns the venue's refusal reason, or "" when the order was canceled.
	CancelOrder(ctx context.Context, orderID string) (string, error)
}

// RecentTrader is implemented by venues with a dedicated recent-trades call.
type RecentTrader interface {
	GetRecentTrades(ctx context.Context, symbol string) iter.Seq2[*core.Trade, error]
}

// RecentTrades returns ex's most recent trades, using GetRecentTrades when
// the venue has one and GetHistoricalTrades with no start time otherwise.
func RecentTrades(ctx context.Context, ex Exchange, symbol string) iter.Seq2[*core.Trade, error] {
	if rt, ok := ex.(RecentTrader); ok {
		return rt.GetRecentTrades(ctx, symbol)
	}
	return ex.GetHistoricalTrades(ctx, symbol, time.Time{})
}

// Collect drains a trade sequence, stopping at the first error.
func Collect(seq iter.Seq2[*core.Trade, error]) ([]core.Trade, error) {
	var out []core.Trade
	for trade, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, *trade)
	}
	return out, nil
}
