// Package aggregate reads the same market from several venues at once and
// combines the answers: best bid and ask across venues and a merged book.
//
// Venues name their markets differently (btcusd, BTC-USD, XXBTZUSD, USD-BTC),
// so every call takes a Pairs map from venue name to that venue's symbol.
package aggregate

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/rs/zerolog"

	"tradegate/pkg/core"
	"tradegate/pkg/exchange"
)

// ErrNoData is returned when no venue produced a usable answer.
var ErrNoData = errors.New("no venue returned data")

// decimalCtx carries the precision Quo needs; apd.BaseContext has none.
var decimalCtx = apd.BaseContext.WithPrecision(34)

// Pairs maps a venue name to that venue's symbol for one market.
type Pairs map[string]string

// Aggregator fans calls out over a fixed set of venues.
type Aggregator struct {
	venues map[string]exchange.Exchange
	logger zerolog.Logger
}

// New creates an aggregator over venues, keyed by registry name.
func New(venues map[string]exchange.Exchange, logger zerolog.Logger) *Aggregator {
	return &Aggregator{venues: venues, logger: logger}
}

// FromRegistry builds an aggregator over every venue r can construct.
func FromRegistry(r *exchange.Registry, logger zerolog.Logger) *Aggregator {
	return New(r.ListAll(), logger)
}

// Venues returns the venue names in sorted order.
func (a *Aggregator) Venues() []string {
	names := make([]string, 0, len(a.venues))
	for name := range a.venues {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Close releases every venue that holds resources.
func (a *Aggregator) Close() error {
	var errs []error
	for _, ex := range a.venues {
		if c, ok := ex.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// Result is one venue's answer, or the error it gave instead.
type Result[T any] struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	Value    T      `json:"value,omitempty"`
	Error    error  `json:"-"`
}

// fanOut calls fn once per venue named in pairs, concurrently. Pairs naming
// a venue the aggregator does not hold are skipped. Results are sorted by
// venue name.
func fanOut[T any](ctx context.Context, a *Aggregator, pairs Pairs, fn func(context.Context, exchange.Exchange, string) (T, error)) []Result[T] {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]Result[T], 0, len(pairs))
	)

	for name, symbol := range pairs {
		ex, ok := a.venues[name]
		if !ok {
			a.logger.Debug().Str("exchange", name).Msg("venue not in aggregator, skipping")
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			r := Result[T]{Exchange: name, Symbol: symbol}
			r.Value, r.Error = fn(ctx, ex, symbol)
			if r.Error != nil {
				a.logger.Warn().Err(r.Error).Str("exchange", name).Str("symbol", symbol).Msg("venue call failed")
			}

			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}()
	}
	wg.Wait()

	slices.SortFunc(results, func(x, y Result[T]) int { return cmp.Compare(x.Exchange, y.Exchange) })
	return results
}

// Tickers fetches the ticker for each pair concurrently.
func (a *Aggregator) Tickers(ctx context.Context, pairs Pairs) []Result[*core.Ticker] {
	return fanOut(ctx, a, pairs, func(ctx context.Context, ex exchange.Exchange, symbol string) (*core.Ticker, error) {
		return ex.GetTicker(ctx, symbol)
	})
}

// BestPrice is the highest bid and the lowest ask seen across venues.
type BestPrice struct {
	Bid         apd.Decimal `json:"bid"`
	Ask         apd.Decimal `json:"ask"`
	BidExchange string      `json:"bid_exchange"`
	AskExchange string      `json:"ask_exchange"`
	// Spread is Ask minus Bid. It goes negative when venues are crossed.
	Spread        apd.Decimal `json:"spread"`
	SpreadPercent apd.Decimal `json:"spread_percent"`
	Timestamp     time.Time   `json:"timestamp"`
	// Failed lists venues that returned an error.
	Failed []string `json:"failed,omitempty"`
}

// BestPrice compares tickers across pairs. Venues that fail are listed in
// Failed; the call only errors when none succeeded.
func (a *Aggregator) BestPrice(ctx context.Context, pairs Pairs) (*BestPrice, error) {
	best := &BestPrice{}
	found := false

	for _, r := range a.Tickers(ctx, pairs) {
		if r.Error != nil || r.Value == nil {
			best.Failed = append(best.Failed, r.Exchange)
			continue
		}

		t := r.Value
		if !found || t.Bid.Cmp(&best.Bid) > 0 {
			best.Bid.Set(&t.Bid)
			best.BidExchange = r.Exchange
		}
		if !found || t.Ask.Cmp(&best.Ask) < 0 {
			best.Ask.Set(&t.Ask)
			best.AskExchange = r.Exchange
		}
		if t.Timestamp.After(best.Timestamp) {
			best.Timestamp = t.Timestamp
		}
		found = true
	}

	if !found {
		return nil, ErrNoData
	}

	if _, err := decimalCtx.Sub(&best.Spread, &best.Ask, &best.Bid); err != nil {
		return nil, fmt.Errorf("calculate spread: %w", err)
	}
	if !best.Bid.IsZero() {
		hundred := apd.New(100, 0)
		if _, err := decimalCtx.Mul(&best.SpreadPercent, &best.Spread, hundred); err != nil {
			return nil, fmt.Errorf("calculate spread percent: %w", err)
		}
		if _, err := decimalCtx.Quo(&best.SpreadPercent, &best.SpreadPercent, &best.Bid); err != nil {
			return nil, fmt.Errorf("calculate spread percent: %w", err)
		}
	}

	return best, nil
}

// VenueLevel is a book level tagged with the venue that quoted it.
type VenueLevel struct {
	core.OrderBookLevel
	Exchange string `json:"exchange"`
}

// MergedOrderBook interleaves every venue's levels. Levels are kept per
// venue, not summed, so the source of each quote stays visible.
type MergedOrderBook struct {
	Bids      []VenueLevel `json:"bids"`
	Asks      []VenueLevel `json:"asks"`
	Timestamp time.Time    `json:"timestamp"`
	Exchanges []string     `json:"exchanges"`
	Failed    []string     `json:"failed,omitempty"`
}

// MergedOrderBook fetches each book with depth and merges them, bids
// descending and asks ascending, each side cut to depth. Equal prices keep
// venue-name order.
func (a *Aggregator) MergedOrderBook(ctx context.Context, pairs Pairs, depth int) (*MergedOrderBook, error) {
	depth = exchange.ApplyOptions(exchange.WithDepth(depth)).Depth

	results := fanOut(ctx, a, pairs, func(ctx context.Context, ex exchange.Exchange, symbol string) (*core.OrderBook, error) {
		return ex.GetOrderBook(ctx, symbol, exchange.WithDepth(depth))
	})

	merged := &MergedOrderBook{}
	for _, r := range results {
		if r.Error != nil || r.Value == nil {
			merged.Failed = append(merged.Failed, r.Exchange)
			continue
		}
		merged.Exchanges = append(merged.Exchanges, r.Exchange)
		if r.Value.Timestamp.After(merged.Timestamp) {
			merged.Timestamp = r.Value.Timestamp
		}
		for _, l := range r.Value.Bids {
			merged.Bids = append(merged.Bids, VenueLevel{OrderBookLevel: l, Exchange: r.Exchange})
		}
		for _, l := range r.Value.Asks {
			merged.Asks = append(merged.Asks, VenueLevel{OrderBookLevel: l, Exchange: r.Exchange})
		}
	}

	if len(merged.Exchanges) == 0 {
		return nil, ErrNoData
	}

	slices.SortStableFunc(merged.Bids, func(x, y VenueLevel) int { return y.Price.Cmp(&x.Price) })
	slices.SortStableFunc(merged.Asks, func(x, y VenueLevel) int { return x.Price.Cmp(&y.Price) })
	merged.Bids = merged.Bids[:min(depth, len(merged.Bids))]
	merged.Asks = merged.Asks[:min(depth, len(merged.Asks))]

	return merged, nil
}
