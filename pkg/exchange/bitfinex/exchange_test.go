package bitfinex

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/pkg/core"
	"tradegate/pkg/exchange"
)

var _ exchange.Exchange = (*BitfinexExchange)(nil)

func newTestExchange(t *testing.T, handler http.Handler, creds *core.Credentials) *BitfinexExchange {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig().WithBaseURL(server.URL + "/v1").WithRateLimit(100, time.Second)
	if creds != nil {
		config.WithCredentials(creds)
	}

	ex, err := New(config)
	require.NoError(t, err)
	t.Cleanup(func() { ex.Close() })
	return ex
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestNew(t *testing.T) {
	ex, err := New(DefaultConfig())
	require.NoError(t, err)
	defer ex.Close()

	assert.Equal(t, "Bitfinex", ex.Name())
	assert.Equal(t, BaseURL, ex.Client().BaseURL())
}

func TestListSymbols(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/symbols", respond(`["btcusd","ltcusd","ethusd"]`))
	ex := newTestExchange(t, mux, nil)

	symbols, err := ex.ListSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"btcusd", "ltcusd", "ethusd"}, symbols)
}

func TestGetTicker(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/pubticker/btcusd", respond(`{
		"mid":"244.755","bid":"244.75","ask":"244.76","last_price":"244.82",
		"low":"244.2","high":"248.19","volume":"7842.11542563","timestamp":"1444253422.348340958"}`))
	ex := newTestExchange(t, mux, nil)

	ticker, err := ex.GetTicker(context.Background(), "btcusd")
	require.NoError(t, err)

	assert.Equal(t, "btcusd", ticker.Symbol)
	assert.Equal(t, "244.75", ticker.Bid.String())
	assert.Equal(t, "244.76", ticker.Ask.String())
	assert.Equal(t, "244.82", ticker.Last.String())
	assert.Equal(t, int64(1444253422), ticker.Timestamp.Unix())
}

func TestGetTicker_ErrorResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/pubticker/nope", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Unknown symbol"}`))
	})
	ex := newTestExchange(t, mux, nil)

	_, err := ex.GetTicker(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, core.IsErrorResponse(err))
	assert.Contains(t, err.Error(), "Unknown symbol")
}

func TestGetOrderBook(t *testing.T) {
	var query string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/book/btcusd", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		respond(`{"bids":[{"price":"574.61","amount":"0.14","timestamp":"1472506127.0"}],
			"asks":[{"price":"574.62","amount":"19.1","timestamp":"1472506126.0"}]}`)(w, r)
	})
	ex := newTestExchange(t, mux, nil)

	book, err := ex.GetOrderBook(context.Background(), "btcusd", exchange.WithDepth(5))
	require.NoError(t, err)

	assert.Equal(t, "limit_asks=5&limit_bids=5", query)
	require.Len(t, book.Bids, 1)
	require.Len(t, book.Asks, 1)
	assert.Equal(t, "574.61", book.Bids[0].Price.String())
	assert.Equal(t, "19.1", book.Asks[0].Quantity.String())
}

func TestGetHistoricalTrades_OldestFirst(t *testing.T) {
	var query string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/trades/btcusd", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		respond(`[
			{"timestamp":1444266683,"tid":3,"price":"244.9","amount":"0.1","exchange":"bitfinex","type":"buy"},
			{"timestamp":1444266682,"tid":2,"price":"244.8","amount":"0.2","exchange":"bitfinex","type":"sell"},
			{"timestamp":1444266681,"tid":1,"price":"244.7","amount":"0.3","exchange":"bitfinex","type":"sell"}]`)(w, r)
	})
	ex := newTestExchange(t, mux, nil)

	since := time.Unix(1444266000, 0)
	trades, err := exchange.Collect(ex.GetHistoricalTrades(context.Background(), "btcusd", since))
	require.NoError(t, err)

	assert.Contains(t, query, "timestamp=1444266000")
	require.Len(t, trades, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{trades[0].ID, trades[1].ID, trades[2].ID})
	assert.Equal(t, core.SideBuy, trades[2].Side)
	assert.Equal(t, "btcusd", trades[0].Symbol)
}

func TestGetHistoricalTrades_StopsEarly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/trades/btcusd", respond(`[
		{"timestamp":2,"tid":2,"price":"1","amount":"1","type":"buy"},
		{"timestamp":1,"tid":1,"price":"1","amount":"1","type":"buy"}]`))
	ex := newTestExchange(t, mux, nil)

	seen := 0
	for trade, err := range ex.GetHistoricalTrades(context.Background(), "btcusd", time.Time{}) {
		require.NoError(t, err)
		assert.Equal(t, "1", trade.ID)
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestGetAvailableBalances_SignsRequest(t *testing.T) {
	creds := &core.Credentials{APIKey: "key", SecretKey: "secret"}

	var header http.Header
	var body string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/balances", func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		respond(`[
			{"type":"deposit","currency":"btc","amount":"1.0","available":"1.0"},
			{"type":"exchange","currency":"btc","amount":"2.5","available":"2.0"},
			{"type":"exchange","currency":"usd","amount":"100","available":"75.5"}]`)(w, r)
	})
	ex := newTestExchange(t, mux, creds)

	balances, err := ex.GetAvailableBalances(context.Background())
	require.NoError(t, err)

	require.Len(t, balances, 2)
	btc := balances["BTC"]
	usd := balances["USD"]
	assert.Equal(t, "2.0", btc.String())
	assert.Equal(t, "75.5", usd.String())

	assert.Equal(t, "key", header.Get("X-BFX-APIKEY"))
	encoded := header.Get("X-BFX-PAYLOAD")
	require.NotEmpty(t, encoded)

	mac := hmac.New(sha512.New384, []byte("secret"))
	mac.Write([]byte(encoded))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), header.Get("X-BFX-SIGNATURE"))

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, body, string(decoded))

	var envelope map[string]any
	require.NoError(t, sonic.Unmarshal(decoded, &envelope))
	assert.Equal(t, "/v1/balances", envelope["request"])
	assert.NotEmpty(t, envelope["nonce"])
}

func TestPrivateCall_WithoutCredentials(t *testing.T) {
	hit := false
	ex := newTestExchange(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hit = true }), nil)

	_, err := ex.GetAvailableBalances(context.Background())
	assert.ErrorIs(t, err, core.ErrNoCredentials)
	assert.False(t, hit)
}

func TestPlaceOrder(t *testing.T) {
	creds := &core.Credentials{APIKey: "key", SecretKey: "secret"}

	var envelope map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/order/new", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.NoError(t, sonic.Unmarshal(b, &envelope))
		respond(`{"id":448364249,"symbol":"btcusd","exchange":"bitfinex","price":"0.01",
			"side":"buy","type":"exchange limit","timestamp":"1444272165.252370982",
			"is_live":true,"is_cancelled":false,"original_amount":"0.01",
			"remaining_amount":"0.01","executed_amount":"0.0","order_id":448364249}`)(w, r)
	})
	ex := newTestExchange(t, mux, creds)

	amount, _, _ := apd.NewFromString("0.01")
	price, _, _ := apd.NewFromString("0.01")
	order, err := ex.PlaceOrder(context.Background(), "btcusd", *amount, *price, core.SideBuy)
	require.NoError(t, err)

	assert.Equal(t, "448364249", order.ID)
	assert.Equal(t, core.StatusNew, order.Status)
	assert.Equal(t, core.SideBuy, order.Side)

	assert.Equal(t, "/v1/order/new", envelope["request"])
	assert.Equal(t, "0.01", envelope["amount"])
	assert.Equal(t, "buy", envelope["side"])
	assert.Equal(t, "exchange limit", envelope["type"])
}

func TestGetOrderDetails(t *testing.T) {
	creds := &core.Credentials{APIKey: "key", SecretKey: "secret"}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/order/status", respond(`{"id":7,"symbol":"btcusd","price":"10",
		"side":"sell","timestamp":"1444272165.0","is_live":false,"is_cancelled":false,
		"original_amount":"1","remaining_amount":"0","executed_amount":"1"}`))
	ex := newTestExchange(t, mux, creds)

	order, err := ex.GetOrderDetails(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFilled, order.Status)
	assert.Equal(t, core.SideSell, order.Side)

	_, err = ex.GetOrderDetails(context.Background(), "not-a-number")
	assert.Error(t, err)
}

func TestCancelOrder(t *testing.T) {
	creds := &core.Credentials{APIKey: "key", SecretKey: "secret"}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/order/cancel", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var envelope map[string]any
		sonic.Unmarshal(b, &envelope)
		if envelope["order_id"] == float64(1) {
			respond(`{"id":1,"is_live":false,"is_cancelled":true}`)(w, r)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Order could not be cancelled."}`))
	})
	ex := newTestExchange(t, mux, creds)

	reason, err := ex.CancelOrder(context.Background(), "1")
	require.NoError(t, err)
	assert.Empty(t, reason)

	reason, err = ex.CancelOrder(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "Order could not be cancelled.", reason)
}
