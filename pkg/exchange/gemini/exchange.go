package gemini

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"net/url"
	"slices"
	"strconv"
	"time"

	"tradegate/pkg/core"
	"tradegate/pkg/exchange"
	"tradegate/pkg/rest"
)

const (
	// Name is the registry key for Gemini.
	Name = "Gemini"
	// BaseURL is the v1 REST root.
	BaseURL = "https://api.gemini.com/v1"

	maxTrades = 500
)

// GeminiExchange implements the market data half of exchange.Exchange.
type GeminiExchange struct {
	exchange.Unsupported

	client     *rest.Client
	normalizer *Normalizer
}

// DefaultConfig returns a config pointing at the production API.
func DefaultConfig() *core.Config {
	return core.DefaultConfig(Name).WithBaseURL(BaseURL)
}

// New creates a Gemini client.
func New(config *core.Config, opts ...rest.Option) (*GeminiExchange, error) {
	client, err := rest.NewClient(config, opts...)
	if err != nil {
		return nil, fmt.Errorf("create rest client: %w", err)
	}

	return &GeminiExchange{
		Unsupported: exchange.Unsupported{Venue: Name},
		client:      client,
		normalizer:  NewNormalizer(),
	}, nil
}

// Client returns the underlying pipeline client.
func (e *GeminiExchange) Client() *rest.Client {
	return e.client
}

// Close releases the HTTP client.
func (e *GeminiExchange) Close() error {
	return e.client.Close()
}

func (e *GeminiExchange) ListSymbols(ctx context.Context) ([]string, error) {
	return rest.Fetch[[]string](ctx, e.client, parseError, "/symbols")
}

func (e *GeminiExchange) GetTicker(ctx context.Context, symbol string) (*core.Ticker, error) {
	raw, err := rest.Fetch[geminiTicker](ctx, e.client, parseError, "/pubticker/"+url.PathEscape(symbol))
	if err != nil {
		return nil, err
	}
	return e.normalizer.NormalizeTicker(symbol, &raw), nil
}

func (e *GeminiExchange) GetOrderBook(ctx context.Context, symbol string, opts ...exchange.Option) (*core.OrderBook, error) {
	options := exchange.ApplyOptions(opts...)

	q := url.Values{}
	q.Set("limit_bids", strconv.Itoa(options.Depth))
	q.Set("limit_asks", strconv.Itoa(options.Depth))

	raw, err := rest.Fetch[geminiBook](ctx, e.client, parseError, "/book/"+url.PathEscape(symbol)+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return e.normalizer.NormalizeOrderBook(symbol, &raw), nil
}

// GetHistoricalTrades yields one page of up to 500 trades after since,
// oldest first.
func (e *GeminiExchange) GetHistoricalTrades(ctx context.Context, symbol string, since time.Time) iter.Seq2[*core.Trade, error] {
	return func(yield func(*core.Trade, error) bool) {
		q := url.Values{}
		q.Set("limit_trades", strconv.Itoa(maxTrades))
		if !since.IsZero() {
			q.Set("since", strconv.FormatInt(since.UnixMilli(), 10))
		}

		raw, err := rest.Fetch[[]geminiTrade](ctx, e.client, parseError, "/trades/"+url.PathEscape(symbol)+"?"+q.Encode())
		if err != nil {
			yield(nil, err)
			return
		}

		slices.SortStableFunc(raw, func(a, b geminiTrade) int {
			return cmp.Or(cmp.Compare(a.TimestampMS, b.TimestampMS), cmp.Compare(a.TID, b.TID))
		})

		for i := range raw {
			if !yield(e.normalizer.NormalizeTrade(symbol, &raw[i]), nil) {
				return
			}
		}
	}
}

// apiError is Gemini's error envelope.
type apiError struct {
	Result  string `json:"result"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func parseError(resp *rest.Response) error {
	message := resp.Status
	if e, err := core.Decode[apiError](resp.Body); err == nil {
		message = cmp.Or(e.Message, e.Reason, message)
	}
	return core.NewErrorResponse(resp.Exchange, resp.StatusCode, message, resp.Body)
}
