package exchange

import (
	"context"
	"iter"
	"time"

	"github.com/cockroachdb/apd/v3"

	"tradegate/pkg/core"
)

// Unsupported implements Exchange with every operation failing as not
// supported. Venues embed it and override what they implement; the zero
// value reports NoExchange as its name.
type Unsupported struct {
	// Venue is the name reported in errors and by Name.
	Venue string
}

var _ Exchange = Unsupported{}

func (u Unsupported) Name() string {
	if u.Venue == "" {
		return NoExchange
	}
	return u.Venue
}

func (u Unsupported) notSupported(op string) error {
	return core.NewNotSupported(u.Name(), op)
}

func (u Unsupported) ListSymbols(context.Context) ([]string, error) {
	return nil, u.notSupported("ListSymbols")
}

func (u Unsupported) GetTicker(context.Context, string) (*core.Ticker, error) {
	return nil, u.notSupported("GetTicker")
}

func (u Unsupported) GetOrderBook(context.Context, string, ...Option) (*core.OrderBook, error) {
	return nil, u.notSupported("GetOrderBook")
}

func (u Unsupported) GetHistoricalTrades(context.Context, string, time.Time) iter.Seq2[*core.Trade, error] {
	err := u.notSupported("GetHistoricalTrades")
	return func(yield func(*core.Trade, error) bool) {
		yield(nil, err)
	}
}

func (u Unsupported) GetAvailableBalances(context.Context) (map[string]apd.Decimal, error) {
	return nil, u.notSupported("GetAvailableBalances")
}

func (u Unsupported) PlaceOrder(context.Context, string, apd.Decimal, apd.Decimal, core.OrderSide) (*core.Order, error) {
	return nil, u.notSupported("PlaceOrder")
}

func (u Unsupported) GetOrderDetails(context.Context, string) (*core.Order, error) {
	return nil, u.notSupported("GetOrderDetails")
}

func (u Unsupported) CancelOrder(context.Context, string) (string, error) {
	return "", u.notSupported("CancelOrder")
}
