package bittrex

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"slices"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/rs/zerolog"

	"tradegate/pkg/core"
	"tradegate/pkg/exchange"
	"tradegate/pkg/rest"
)

const (
	// Name is the registry key for Bittrex.
	Name = "Bittrex"
	// BaseURL is the v1.1 REST root.
	BaseURL = "https://bittrex.com/api/v1.1"
)

// BittrexExchange implements exchange.Exchange for Bittrex.
type BittrexExchange struct {
	exchange.Unsupported

	client     *rest.Client
	normalizer *Normalizer
	logger     zerolog.Logger
}

// DefaultConfig returns a config pointing at the production API.
func DefaultConfig() *core.Config {
	return core.DefaultConfig(Name).WithBaseURL(BaseURL)
}

// New creates a Bittrex client.
func New(config *core.Config, opts ...rest.Option) (*BittrexExchange, error) {
	protocol := &Protocol{}

	client, err := rest.NewClient(config, append(opts, rest.WithHooks(protocol))...)
	if err != nil {
		return nil, fmt.Errorf("create rest client: %w", err)
	}
	protocol.client = client

	return &BittrexExchange{
		Unsupported: exchange.Unsupported{Venue: Name},
		client:      client,
		normalizer:  NewNormalizer(),
		logger:      client.Logger(),
	}, nil
}

// Client returns the underlying pipeline client.
func (e *BittrexExchange) Client() *rest.Client {
	return e.client
}

// Close releases the HTTP client.
func (e *BittrexExchange) Close() error {
	return e.client.Close()
}

// ListSymbols returns active market names such as "BTC-LTC".
func (e *BittrexExchange) ListSymbols(ctx context.Context) ([]string, error) {
	markets, err := call[[]bittrexMarket](ctx, e.client, "/public/getmarkets")
	if err != nil {
		return nil, err
	}
	return e.normalizer.NormalizeSymbols(markets), nil
}

func (e *BittrexExchange) GetTicker(ctx context.Context, symbol string) (*core.Ticker, error) {
	raw, err := call[bittrexTicker](ctx, e.client, "/public/getticker?market="+url.QueryEscape(symbol))
	if err != nil {
		return nil, err
	}

	ticker, err := e.normalizer.NormalizeTicker(symbol, &raw)
	if err != nil {
		return nil, core.NewDecodeError(Name, err)
	}
	return ticker, nil
}

func (e *BittrexExchange) GetOrderBook(ctx context.Context, symbol string, opts ...exchange.Option) (*core.OrderBook, error) {
	options := exchange.ApplyOptions(opts...)

	q := url.Values{}
	q.Set("market", symbol)
	q.Set("type", "both")

	raw, err := call[bittrexBook](ctx, e.client, "/public/getorderbook?"+q.Encode())
	if err != nil {
		return nil, err
	}

	book, err := e.normalizer.NormalizeOrderBook(symbol, &raw, options.Depth)
	if err != nil {
		return nil, core.NewDecodeError(Name, err)
	}
	return book, nil
}

// GetHistoricalTrades yields the latest market history at or after since,
// oldest first. Bittrex keeps a single page of recent fills, so older
// trades are not reachable.
func (e *BittrexExchange) GetHistoricalTrades(ctx context.Context, symbol string, since time.Time) iter.Seq2[*core.Trade, error] {
	return func(yield func(*core.Trade, error) bool) {
		raw, err := call[[]bittrexTrade](ctx, e.client, "/public/getmarkethistory?market="+url.QueryEscape(symbol))
		if err != nil {
			yield(nil, err)
			return
		}

		trades := make([]*core.Trade, 0, len(raw))
		for i := range raw {
			trade, err := e.normalizer.NormalizeTrade(symbol, &raw[i])
			if err != nil {
				yield(nil, core.NewDecodeError(Name, err))
				return
			}
			if !since.IsZero() && trade.Timestamp.Before(since) {
				continue
			}
			trades = append(trades, trade)
		}

		slices.SortStableFunc(trades, func(a, b *core.Trade) int {
			return a.Timestamp.Compare(b.Timestamp)
		})

		for _, trade := range trades {
			if !yield(trade, nil) {
				return
			}
		}
	}
}

// GetAvailableBalances returns available funds per currency.
func (e *BittrexExchange) GetAvailableBalances(ctx context.Context) (map[string]apd.Decimal, error) {
	raw, err := call[[]bittrexBalance](ctx, e.client, "/account/getbalances", private())
	if err != nil {
		return nil, err
	}

	balances, err := e.normalizer.NormalizeBalances(raw)
	if err != nil {
		return nil, core.NewDecodeError(Name, err)
	}
	return balances, nil
}

// PlaceOrder submits a limit order through buylimit or selllimit.
func (e *BittrexExchange) PlaceOrder(ctx context.Context, symbol string, amount, price apd.Decimal, side core.OrderSide) (*core.Order, error) {
	endpoint := "/market/buylimit"
	if side == core.SideSell {
		endpoint = "/market/selllimit"
	}

	q := url.Values{}
	q.Set("market", symbol)
	q.Set("quantity", amount.Text('f'))
	q.Set("rate", price.Text('f'))

	raw, err := call[bittrexUUID](ctx, e.client, endpoint+"?"+q.Encode(), private())
	if err != nil {
		return nil, err
	}

	e.logger.Info().Str("order_id", raw.UUID).Str("symbol", symbol).Msg("order placed")

	return &core.Order{
		ID:        raw.UUID,
		Symbol:    symbol,
		Side:      side,
		Price:     price,
		Quantity:  amount,
		Status:    core.StatusNew,
		CreatedAt: time.Now(),
	}, nil
}

func (e *BittrexExchange) GetOrderDetails(ctx context.Context, orderID string) (*core.Order, error) {
	raw, err := call[bittrexOrder](ctx, e.client, "/account/getorder?uuid="+url.QueryEscape(orderID), private())
	if err != nil {
		return nil, err
	}

	order, err := e.normalizer.NormalizeOrder(&raw)
	if err != nil {
		return nil, core.NewDecodeError(Name, err)
	}
	return order, nil
}

// CancelOrder cancels an open order; Bittrex's message (e.g.
// "ORDER_NOT_OPEN") is returned as the reason on refusal.
func (e *BittrexExchange) CancelOrder(ctx context.Context, orderID string) (string, error) {
	_, err := call[any](ctx, e.client, "/market/cancel?uuid="+url.QueryEscape(orderID), private())
	if err != nil {
		var exErr *core.ExchangeError
		if errors.As(err, &exErr) && exErr.Kind == core.ErrorKindErrorResponse {
			return exErr.Message, nil
		}
		return "", err
	}
	return "", nil
}

// private marks a call for the signing hooks.
func private() rest.CallOption {
	return rest.WithPayload(core.NewPayload())
}
