package kraken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/rs/zerolog"

	"tradegate/internal/ratelimit"
	"tradegate/pkg/core"
	"tradegate/pkg/exchange"
	"tradegate/pkg/rest"
)

const (
	// Name is the registry key for Kraken.
	Name = "Kraken"
	// BaseURL is the versioned REST root.
	BaseURL = "https://api.kraken.com/0"

	// Kraken's public counter allows a burst of 15 that decays by one every 3s.
	rateBurst  = 15
	ratePeriod = 45 * time.Second
)

// KrakenExchange implements exchange.Exchange for Kraken.
type KrakenExchange struct {
	exchange.Unsupported

	client     *rest.Client
	normalizer *Normalizer
	logger     zerolog.Logger
}

// DefaultConfig returns a config pointing at the production API with
// Kraken's call-counter limits.
func DefaultConfig() *core.Config {
	return core.DefaultConfig(Name).WithBaseURL(BaseURL).WithRateLimit(rateBurst, ratePeriod)
}

// New creates a Kraken client backed by a token bucket sized from config.
// Options may still replace the limiter.
func New(config *core.Config, opts ...rest.Option) (*KrakenExchange, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	protocol := &Protocol{}

	all := append([]rest.Option{
		rest.WithLimiter(ratelimit.NewBucket(config.RateLimitRequests, config.RateLimitPeriod)),
	}, opts...)
	all = append(all, rest.WithHooks(protocol))

	client, err := rest.NewClient(config, all...)
	if err != nil {
		return nil, fmt.Errorf("create rest client: %w", err)
	}
	protocol.client = client

	return &KrakenExchange{
		Unsupported: exchange.Unsupported{Venue: Name},
		client:      client,
		normalizer:  NewNormalizer(),
		logger:      client.Logger(),
	}, nil
}

// Client returns the underlying pipeline client.
func (e *KrakenExchange) Client() *rest.Client {
	return e.client
}

// Close releases the HTTP client.
func (e *KrakenExchange) Close() error {
	return e.client.Close()
}

// ListSymbols returns pair altnames such as "XBTUSD".
func (e *KrakenExchange) ListSymbols(ctx context.Context) ([]string, error) {
	pairs, err := call[map[string]krakenPair](ctx, e.client, "/public/AssetPairs")
	if err != nil {
		return nil, err
	}
	return e.normalizer.NormalizeSymbols(pairs), nil
}

func (e *KrakenExchange) GetTicker(ctx context.Context, symbol string) (*core.Ticker, error) {
	result, err := call[map[string]krakenTicker](ctx, e.client, "/public/Ticker?pair="+url.QueryEscape(symbol))
	if err != nil {
		return nil, err
	}

	raw, ok := only(result)
	if !ok {
		return nil, core.NewDecodeError(Name, fmt.Errorf("no ticker for %s", symbol))
	}

	ticker, err := e.normalizer.NormalizeTicker(symbol, &raw)
	if err != nil {
		return nil, core.NewDecodeError(Name, err)
	}
	return ticker, nil
}

func (e *KrakenExchange) GetOrderBook(ctx context.Context, symbol string, opts ...exchange.Option) (*core.OrderBook, error) {
	options := exchange.ApplyOptions(opts...)

	q := url.Values{}
	q.Set("pair", symbol)
	q.Set("count", strconv.Itoa(options.Depth))

	result, err := call[map[string]krakenBook](ctx, e.client, "/public/Depth?"+q.Encode())
	if err != nil {
		return nil, err
	}

	raw, ok := only(result)
	if !ok {
		return nil, core.NewDecodeError(Name, fmt.Errorf("no book for %s", symbol))
	}

	book, err := e.normalizer.NormalizeOrderBook(symbol, &raw)
	if err != nil {
		return nil, core.NewDecodeError(Name, err)
	}
	return book, nil
}

// GetHistoricalTrades walks forward from since using the "last" cursor
// Kraken returns with every page, yielding trades oldest first as pages
// arrive. A zero since reads the most recent page only.
func (e *KrakenExchange) GetHistoricalTrades(ctx context.Context, symbol string, since time.Time) iter.Seq2[*core.Trade, error] {
	return func(yield func(*core.Trade, error) bool) {
		cursor := ""
		if !since.IsZero() {
			cursor = strconv.FormatInt(since.UnixNano(), 10)
		}

		for {
			q := url.Values{}
			q.Set("pair", symbol)
			if cursor != "" {
				q.Set("since", cursor)
			}

			rows, last, err := e.tradesPage(ctx, q.Encode())
			if err != nil {
				yield(nil, err)
				return
			}

			for _, row := range rows {
				trade, err := e.normalizer.NormalizeTrade(symbol, row)
				if err != nil {
					yield(nil, core.NewDecodeError(Name, err))
					return
				}
				if !since.IsZero() && trade.Timestamp.Before(since) {
					continue
				}
				if !yield(trade, nil) {
					return
				}
			}

			if since.IsZero() || len(rows) == 0 || last == "" || last == cursor {
				return
			}
			cursor = last
		}
	}
}

func (e *KrakenExchange) tradesPage(ctx context.Context, query string) ([][]any, string, error) {
	result, err := call[map[string]json.RawMessage](ctx, e.client, "/public/Trades?"+query)
	if err != nil {
		return nil, "", err
	}

	var last string
	if raw, ok := result["last"]; ok {
		if s, err := core.Decode[string](raw); err == nil {
			last = s
		} else {
			last = strings.TrimSpace(string(raw))
		}
	}

	raw, ok := firstPair(result)
	if !ok {
		return nil, last, nil
	}
	rows, err := core.DecodeFor[[][]any](Name, raw)
	if err != nil {
		return nil, "", err
	}
	return rows, last, nil
}

// GetAvailableBalances returns balances keyed by Kraken asset code (e.g. "XXBT").
func (e *KrakenExchange) GetAvailableBalances(ctx context.Context) (map[string]apd.Decimal, error) {
	result, err := call[map[string]string](ctx, e.client, "/private/Balance", private(core.NewPayload())...)
	if err != nil {
		return nil, err
	}

	balances, err := e.normalizer.NormalizeBalances(result)
	if err != nil {
		return nil, core.NewDecodeError(Name, err)
	}
	return balances, nil
}

// PlaceOrder submits a limit order and returns it as accepted.
func (e *KrakenExchange) PlaceOrder(ctx context.Context, symbol string, amount, price apd.Decimal, side core.OrderSide) (*core.Order, error) {
	payload := core.NewPayload().
		Set("pair", symbol).
		Set("type", strings.ToLower(side.String())).
		Set("ordertype", "limit").
		Set("price", &price).
		Set("volume", &amount)

	result, err := call[krakenAddOrder](ctx, e.client, "/private/AddOrder", private(payload)...)
	if err != nil {
		return nil, err
	}
	if len(result.TxID) == 0 {
		return nil, core.NewDecodeError(Name, errors.New("no transaction id"))
	}

	e.logger.Info().Str("order_id", result.TxID[0]).Str("order", result.Descr.Order).Msg("order placed")

	return &core.Order{
		ID:        result.TxID[0],
		Symbol:    symbol,
		Side:      side,
		Price:     price,
		Quantity:  amount,
		Status:    core.StatusNew,
		CreatedAt: time.Now(),
	}, nil
}

func (e *KrakenExchange) GetOrderDetails(ctx context.Context, orderID string) (*core.Order, error) {
	result, err := call[map[string]krakenOrder](ctx, e.client, "/private/QueryOrders", private(core.NewPayload().Set("txid", orderID))...)
	if err != nil {
		return nil, err
	}

	raw, ok := result[orderID]
	if !ok {
		return nil, core.NewErrorResponse(Name, http.StatusOK, "unknown order "+orderID, nil)
	}

	order, err := e.normalizer.NormalizeOrder(orderID, &raw)
	if err != nil {
		return nil, core.NewDecodeError(Name, err)
	}
	return order, nil
}

// CancelOrder cancels an open order. Kraken's error text, such as
// "EOrder:Unknown order", is returned as the reason.
func (e *KrakenExchange) CancelOrder(ctx context.Context, orderID string) (string, error) {
	result, err := call[krakenCancel](ctx, e.client, "/private/CancelOrder", private(core.NewPayload().Set("txid", orderID))...)
	if err != nil {
		var exErr *core.ExchangeError
		if errors.As(err, &exErr) && exErr.Kind == core.ErrorKindErrorResponse {
			return exErr.Message, nil
		}
		return "", err
	}
	if result.Count == 0 {
		return "no order canceled", nil
	}
	return "", nil
}

func private(p *core.Payload) []rest.CallOption {
	return []rest.CallOption{rest.WithMethod(http.MethodPost), rest.WithPayload(p)}
}

// only returns the entry of a single-pair result.
func only[T any](result map[string]T) (T, bool) {
	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var zero T
	if len(keys) == 0 {
		return zero, false
	}
	return result[keys[0]], true
}
