package gdax

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
	// Name is the registry key for GDAX.
	Name = "GDAX"
	// BaseURL is the REST root.
	BaseURL = "https://api.gdax.com"

	pageSize = 100
)

// GDAXExchange implements exchange.Exchange for GDAX.
type GDAXExchange struct {
	exchange.Unsupported

	client     *rest.Client
	normalizer *Normalizer
	logger     zerolog.Logger
}

// DefaultConfig returns a config pointing at the production API.
func DefaultConfig() *core.Config {
	return core.DefaultConfig(Name).WithBaseURL(BaseURL)
}

// New creates a GDAX client. Private calls need an API key, a base64 secret
// and the key's passphrase.
func New(config *core.Config, opts ...rest.Option) (*GDAXExchange, error) {
	protocol := &Protocol{now: time.Now}

	client, err := rest.NewClient(config, append(opts, rest.WithHooks(protocol))...)
	if err != nil {
		return nil, fmt.Errorf("create rest client: %w", err)
	}
	protocol.client = client

	return &GDAXExchange{
		Unsupported: exchange.Unsupported{Venue: Name},
		client:      client,
		normalizer:  NewNormalizer(),
		logger:      client.Logger(),
	}, nil
}

// Client returns the underlying pipeline client.
func (e *GDAXExchange) Client() *rest.Client {
	return e.client
}

// Close releases the HTTP client.
func (e *GDAXExchange) Close() error {
	return e.client.Close()
}

// ListSymbols returns product ids such as "BTC-USD".
func (e *GDAXExchange) ListSymbols(ctx context.Context) ([]string, error) {
	products, err := rest.Fetch[[]gdaxProduct](ctx, e.client, parseError, "/products")
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(products))
	for _, p := range products {
		symbols = append(symbols, p.ID)
	}
	return symbols, nil
}

func (e *GDAXExchange) GetTicker(ctx context.Context, symbol string) (*core.Ticker, error) {
	raw, err := rest.Fetch[gdaxTicker](ctx, e.client, parseError, productPath(symbol, "ticker"))
	if err != nil {
		return nil, err
	}
	return e.normalizer.NormalizeTicker(symbol, &raw), nil
}

// GetOrderBook reads the aggregated level 2 book, which GDAX caps at 50
// levels per side, and trims it to the requested depth.
func (e *GDAXExchange) GetOrderBook(ctx context.Context, symbol string, opts ...exchange.Option) (*core.OrderBook, error) {
	options := exchange.ApplyOptions(opts...)

	raw, err := rest.Fetch[gdaxBook](ctx, e.client, parseError, productPath(symbol, "book")+"?level=2")
	if err != nil {
		return nil, err
	}

	book, err := e.normalizer.NormalizeOrderBook(symbol, &raw, options.Depth)
	if err != nil {
		return nil, core.NewDecodeError(Name, err)
	}
	return book, nil
}

// GetHistoricalTrades walks pages backwards from the newest trade until it
// passes since, then yields the collected trades oldest first. A zero since
// reads the newest page only.
func (e *GDAXExchange) GetHistoricalTrades(ctx context.Context, symbol string, since time.Time) iter.Seq2[*core.Trade, error] {
	return func(yield func(*core.Trade, error) bool) {
		var collected []gdaxTrade
		after := ""

		for {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(pageSize))
			if after != "" {
				q.Set("after", after)
			}

			pageCtx, cur := withCursor(ctx)
			page, err := rest.Fetch[[]gdaxTrade](pageCtx, e.client, parseError, productPath(symbol, "trades")+"?"+q.Encode())
			if err != nil {
				yield(nil, err)
				return
			}

			reached := false
			for _, t := range page {
				if !since.IsZero() && t.Time.Before(since) {
					reached = true
					continue
				}
				collected = append(collected, t)
			}

			e.logger.Debug().Str("symbol", symbol).Int("page", len(page)).Str("after", cur.after).Msg("trades page")

			if since.IsZero() || reached || len(page) == 0 || cur.after == "" || cur.after == after {
				break
			}
			after = cur.after
		}

		slices.SortStableFunc(collected, func(a, b gdaxTrade) int {
			return cmp.Or(a.Time.Compare(b.Time), cmp.Compare(a.TradeID, b.TradeID))
		})

		for i := range collected {
			if !yield(e.normalizer.NormalizeTrade(symbol, &collected[i]), nil) {
				return
			}
		}
	}
}

// GetAvailableBalances returns available funds per currency.
func (e *GDAXExchange) GetAvailableBalances(ctx context.Context) (map[string]apd.Decimal, error) {
	accounts, err := rest.Fetch[[]gdaxAccount](ctx, e.client, parseError, "/accounts", signed(http.MethodGet, nil)...)
	if err != nil {
		return nil, err
	}
	return e.normalizer.NormalizeBalances(accounts), nil
}

// PlaceOrder submits a limit order.
func (e *GDAXExchange) PlaceOrder(ctx context.Context, symbol string, amount, price apd.Decimal, side core.OrderSide) (*core.Order, error) {
	payload := core.NewPayload().
		Set("size", &amount).
		Set("price", &price).
		Set("side", strings.ToLower(side.String())).
		Set("product_id", symbol).
		Set("type", "limit")

	raw, err := rest.Fetch[gdaxOrder](ctx, e.client, parseError, "/orders", signed(http.MethodPost, payload)...)
	if err != nil {
		return nil, err
	}

	e.logger.Info().Str("order_id", raw.ID).Str("symbol", symbol).Msg("order placed")
	return e.normalizer.NormalizeOrder(&raw), nil
}

func (e *GDAXExchange) GetOrderDetails(ctx context.Context, orderID string) (*core.Order, error) {
	raw, err := rest.Fetch[gdaxOrder](ctx, e.client, parseError, "/orders/"+url.PathEscape(orderID), signed(http.MethodGet, nil)...)
	if err != nil {
		return nil, err
	}
	return e.normalizer.NormalizeOrder(&raw), nil
}

// CancelOrder cancels an open order. GDAX's refusal message, such as
// "order not found", is returned as the reason.
func (e *GDAXExchange) CancelOrder(ctx context.Context, orderID string) (string, error) {
	_, err := rest.Fetch[[]string](ctx, e.client, parseError, "/orders/"+url.PathEscape(orderID), signed(http.MethodDelete, nil)...)
	if err != nil {
		var exErr *core.ExchangeError
		if errors.As(err, &exErr) && exErr.Kind == core.ErrorKindErrorResponse {
			return exErr.Message, nil
		}
		return "", err
	}
	return "", nil
}

// signed routes a call through the signing hook. A nil payload becomes an
// empty one so the hook still sees it.
func signed(method string, p *core.Payload) []rest.CallOption {
	if p == nil {
		p = core.NewPayload()
	}
	return []rest.CallOption{rest.WithMethod(method), rest.WithPayload(p)}
}

func productPath(symbol, resource string) string {
	return "/products/" + url.PathEscape(symbol) + "/" + resource
}
