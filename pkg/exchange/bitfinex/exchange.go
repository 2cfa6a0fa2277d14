package bitfinex

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/rs/zerolog"

	"tradegate/pkg/core"
	"tradegate/pkg/exchange"
	"tradegate/pkg/rest"
)

const (
	// Name is the registry key for Bitfinex.
	Name = "Bitfinex"
	// BaseURL is the v1 REST root.
	BaseURL = "https://api.bitfinex.com/v1"

	maxTrades = 1000
)

// BitfinexExchange implements exchange.Exchange for Bitfinex.
type BitfinexExchange struct {
	exchange.Unsupported

	client     *rest.Client
	normalizer *Normalizer
	logger     zerolog.Logger
}

// DefaultConfig returns a config pointing at the production API.
func DefaultConfig() *core.Config {
	return core.DefaultConfig(Name).WithBaseURL(BaseURL)
}

// New creates a Bitfinex client. Credentials in config enable the private calls.
func New(config *core.Config, opts ...rest.Option) (*BitfinexExchange, error) {
	protocol := &Protocol{}

	client, err := rest.NewClient(config, append(opts, rest.WithHooks(protocol))...)
	if err != nil {
		return nil, fmt.Errorf("create rest client: %w", err)
	}
	protocol.client = client

	return &BitfinexExchange{
		Unsupported: exchange.Unsupported{Venue: Name},
		client:      client,
		normalizer:  NewNormalizer(),
		logger:      client.Logger(),
	}, nil
}

// Client returns the underlying pipeline client.
func (e *BitfinexExchange) Client() *rest.Client {
	return e.client
}

// Close releases the HTTP client.
func (e *BitfinexExchange) Close() error {
	return e.client.Close()
}

// ListSymbols returns every tradable pair, e.g. "btcusd".
func (e *BitfinexExchange) ListSymbols(ctx context.Context) ([]string, error) {
	return rest.Fetch[[]string](ctx, e.client, parseError, "/symbols")
}

// GetTicker returns the current top of book and 24h stats for symbol.
func (e *BitfinexExchange) GetTicker(ctx context.Context, symbol string) (*core.Ticker, error) {
	raw, err := rest.Fetch[bitfinexTicker](ctx, e.client, parseError, "/pubticker/"+url.PathEscape(symbol))
	if err != nil {
		return nil, err
	}
	return e.normalizer.NormalizeTicker(symbol, &raw), nil
}

// GetOrderBook returns up to the requested depth on each side.
func (e *BitfinexExchange) GetOrderBook(ctx context.Context, symbol string, opts ...exchange.Option) (*core.OrderBook, error) {
	options := exchange.ApplyOptions(opts...)

	q := url.Values{}
	q.Set("limit_bids", strconv.Itoa(options.Depth))
	q.Set("limit_asks", strconv.Itoa(options.Depth))

	raw, err := rest.Fetch[bitfinexBook](ctx, e.client, parseError, "/book/"+url.PathEscape(symbol)+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return e.normalizer.NormalizeOrderBook(symbol, &raw), nil
}

// GetHistoricalTrades yields up to 1000 trades at or after since, oldest
// first. The v1 endpoint has no backward cursor, so a busy market may
// return only the newest part of the range.
func (e *BitfinexExchange) GetHistoricalTrades(ctx context.Context, symbol string, since time.Time) iter.Seq2[*core.Trade, error] {
	return func(yield func(*core.Trade, error) bool) {
		q := url.Values{}
		q.Set("limit_trades", strconv.Itoa(maxTrades))
		if !since.IsZero() {
			q.Set("timestamp", strconv.FormatInt(since.Unix(), 10))
		}

		raw, err := rest.Fetch[[]bitfinexTrade](ctx, e.client, parseError, "/trades/"+url.PathEscape(symbol)+"?"+q.Encode())
		if err != nil {
			yield(nil, err)
			return
		}

		slices.SortStableFunc(raw, func(a, b bitfinexTrade) int {
			return cmp.Or(cmp.Compare(a.Timestamp, b.Timestamp), cmp.Compare(a.TID, b.TID))
		})

		for i := range raw {
			if !yield(e.normalizer.NormalizeTrade(symbol, &raw[i]), nil) {
				return
			}
		}
	}
}

// GetAvailableBalances returns the available amount per currency in the exchange wallet.
func (e *BitfinexExchange) GetAvailableBalances(ctx context.Context) (map[string]apd.Decimal, error) {
	raw, err := rest.Fetch[[]bitfinexBalance](ctx, e.client, parseError, "/balances", private(core.NewPayload())...)
	if err != nil {
		return nil, err
	}
	return e.normalizer.NormalizeBalances(raw), nil
}

// PlaceOrder submits an exchange limit order.
func (e *BitfinexExchange) PlaceOrder(ctx context.Context, symbol string, amount, price apd.Decimal, side core.OrderSide) (*core.Order, error) {
	payload := core.NewPayload().
		Set("symbol", symbol).
		Set("amount", &amount).
		Set("price", &price).
		Set("exchange", "bitfinex").
		Set("side", strings.ToLower(side.String())).
		Set("type", "exchange limit")

	raw, err := rest.Fetch[bitfinexOrder](ctx, e.client, parseError, "/order/new", private(payload)...)
	if err != nil {
		return nil, err
	}

	e.logger.Info().Int64("order_id", raw.ID).Str("symbol", symbol).Msg("order placed")
	return e.normalizer.NormalizeOrder(&raw), nil
}

// GetOrderDetails returns the current state of an order.
func (e *BitfinexExchange) GetOrderDetails(ctx context.Context, orderID string) (*core.Order, error) {
	id, err := parseOrderID(orderID)
	if err != nil {
		return nil, err
	}

	raw, err := rest.Fetch[bitfinexOrder](ctx, e.client, parseError, "/order/status", private(core.NewPayload().Set("order_id", id))...)
	if err != nil {
		return nil, err
	}
	return e.normalizer.NormalizeOrder(&raw), nil
}

// CancelOrder cancels an order. A refusal from Bitfinex comes back as the
// reason with a nil error.
func (e *BitfinexExchange) CancelOrder(ctx context.Context, orderID string) (string, error) {
	id, err := parseOrderID(orderID)
	if err != nil {
		return "", err
	}

	_, err = rest.Fetch[bitfinexOrder](ctx, e.client, parseError, "/order/cancel", private(core.NewPayload().Set("order_id", id))...)
	if err != nil {
		var exErr *core.ExchangeError
		if errors.As(err, &exErr) && exErr.Kind == core.ErrorKindErrorResponse {
			return exErr.Message, nil
		}
		return "", err
	}
	return "", nil
}

// private marks a call as authenticated; the request hook signs any call
// that carries a payload.
func private(p *core.Payload) []rest.CallOption {
	return []rest.CallOption{rest.WithMethod(http.MethodPost), rest.WithPayload(p)}
}

func parseOrderID(orderID string) (int64, error) {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse order id %q: %w", orderID, err)
	}
	return id, nil
}
