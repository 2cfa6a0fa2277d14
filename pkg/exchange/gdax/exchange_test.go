package gdax

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/pkg/core"
	"tradegate/pkg/exchange"
)

var _ exchange.Exchange = (*GDAXExchange)(nil)

var testSecret = base64.StdEncoding.EncodeToString([]byte("gdax-secret"))

func newTestExchange(t *testing.T, mux *http.ServeMux, creds *core.Credentials) *GDAXExchange {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	config := DefaultConfig().WithBaseURL(server.URL).WithRateLimit(100, time.Second)
	if creds != nil {
		config.WithCredentials(creds)
	}

	ex, err := New(config)
	require.NoError(t, err)
	t.Cleanup(func() { ex.Close() })
	return ex
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func TestListSymbols(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", respond(200, `[
		{"id":"BTC-USD","base_currency":"BTC","quote_currency":"USD"},
		{"id":"ETH-BTC","base_currency":"ETH","quote_currency":"BTC"}]`))
	ex := newTestExchange(t, mux, nil)

	symbols, err := ex.ListSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC-USD", "ETH-BTC"}, symbols)
}

func TestGetTicker(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products/BTC-USD/ticker", respond(200, `{"trade_id":4729088,"price":"333.99",
		"size":"0.193","bid":"333.98","ask":"333.99","volume":"5957.11914015","time":"2015-11-14T20:46:03.511254Z"}`))
	ex := newTestExchange(t, mux, nil)

	ticker, err := ex.GetTicker(context.Background(), "BTC-USD")
	require.NoError(t, err)

	assert.Equal(t, "BTC-USD", ticker.Symbol)
	assert.Equal(t, "333.98", ticker.Bid.String())
	assert.Equal(t, "333.99", ticker.Last.String())
	assert.Equal(t, 2015, ticker.Timestamp.Year())
}

func TestGetOrderBook_TrimsToDepth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products/BTC-USD/book", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("level"))
		respond(200, `{"sequence":"3",
			"bids":[["295.96","4.39",2],["295.95","1.00",1],["295.90","0.50",1]],
			"asks":[["295.97","25.23",12]]}`)(w, r)
	})
	ex := newTestExchange(t, mux, nil)

	book, err := ex.GetOrderBook(context.Background(), "BTC-USD", exchange.WithDepth(2))
	require.NoError(t, err)

	require.Len(t, book.Bids, 2)
	require.Len(t, book.Asks, 1)
	assert.Equal(t, "295.96", book.Bids[0].Price.String())
	assert.Equal(t, "25.23", book.Asks[0].Quantity.String())
}

func TestGetOrderBook_BadLevel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products/BTC-USD/book", respond(200, `{"bids":[["295.96"]],"asks":[]}`))
	ex := newTestExchange(t, mux, nil)

	_, err := ex.GetOrderBook(context.Background(), "BTC-USD")
	assert.True(t, core.IsDecodeError(err))
}

// tradePages serves three pages of two trades each, newest first, linked by CB-After.
func tradePages(calls *atomic.Int64) http.HandlerFunc {
	pages := map[string]struct{ body, next string }{
		"": {`[
			{"time":"2024-01-01T00:06:00Z","trade_id":6,"price":"10","size":"1","side":"sell"},
			{"time":"2024-01-01T00:05:00Z","trade_id":5,"price":"10","size":"1","side":"buy"}]`, "5"},
		"5": {`[
			{"time":"2024-01-01T00:04:00Z","trade_id":4,"price":"10","size":"1","side":"buy"},
			{"time":"2024-01-01T00:03:00Z","trade_id":3,"price":"10","size":"1","side":"buy"}]`, "3"},
		"3": {`[
			{"time":"2024-01-01T00:02:00Z","trade_id":2,"price":"10","size":"1","side":"buy"},
			{"time":"2024-01-01T00:01:00Z","trade_id":1,"price":"10","size":"1","side":"buy"}]`, ""},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		page := pages[r.URL.Query().Get("after")]
		if page.next != "" {
			w.Header().Set("CB-After", page.next)
		}
		w.Write([]byte(page.body))
	}
}

func TestGetHistoricalTrades_FollowsCursor(t *testing.T) {
	var calls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products/BTC-USD/trades", tradePages(&calls))
	ex := newTestExchange(t, mux, nil)

	since := time.Date(2024, 1, 1, 0, 2, 30, 0, time.UTC)
	trades, err := exchange.Collect(ex.GetHistoricalTrades(context.Background(), "BTC-USD", since))
	require.NoError(t, err)

	assert.Equal(t, int64(3), calls.Load())
	ids := make([]string, 0, len(trades))
	for _, tr := range trades {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []string{"3", "4", "5", "6"}, ids)
	assert.Equal(t, core.SideBuy, trades[3].Side)
}

func TestGetHistoricalTrades_ZeroSinceReadsOnePage(t *testing.T) {
	var calls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products/BTC-USD/trades", tradePages(&calls))
	ex := newTestExchange(t, mux, nil)

	trades, err := exchange.Collect(ex.GetHistoricalTrades(context.Background(), "BTC-USD", time.Time{}))
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load())
	require.Len(t, trades, 2)
	assert.Equal(t, "5", trades[0].ID)
}

func TestGetAvailableBalances_SignsRequest(t *testing.T) {
	creds := &core.Credentials{APIKey: "key", SecretKey: testSecret, Passphrase: "pass"}

	var header http.Header
	mux := http.NewServeMux()
	mux.HandleFunc("GET /accounts", func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		respond(200, `[{"currency":"BTC","balance":"1.5","available":"1.0","hold":"0.5"},
			{"currency":"USD","balance":"10","available":"10","hold":"0"}]`)(w, r)
	})
	ex := newTestExchange(t, mux, creds)

	balances, err := ex.GetAvailableBalances(context.Background())
	require.NoError(t, err)
	btc := balances["BTC"]
	assert.Equal(t, "1.0", btc.String())

	ts := header.Get("CB-ACCESS-TIMESTAMP")
	mac := hmac.New(sha256.New, []byte("gdax-secret"))
	mac.Write([]byte(ts + "GET/accounts"))
	assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), header.Get("CB-ACCESS-SIGN"))
	assert.Equal(t, "key", header.Get("CB-ACCESS-KEY"))
	assert.Equal(t, "pass", header.Get("CB-ACCESS-PASSPHRASE"))
}

func TestPlaceOrder_JSONBody(t *testing.T) {
	creds := &core.Credentials{APIKey: "key", SecretKey: testSecret, Passphrase: "pass"}

	var body map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		assert.NoError(t, sonic.Unmarshal(b, &body))
		respond(200, `{"id":"d0c5340b","price":"0.10","size":"0.01","product_id":"BTC-USD",
			"side":"buy","type":"limit","created_at":"2016-12-08T20:02:28.53864Z",
			"filled_size":"0.00","status":"pending"}`)(w, r)
	})
	ex := newTestExchange(t, mux, creds)

	amount, _, _ := apd.NewFromString("0.01")
	price, _, _ := apd.NewFromString("0.10")
	order, err := ex.PlaceOrder(context.Background(), "BTC-USD", *amount, *price, core.SideBuy)
	require.NoError(t, err)

	assert.Equal(t, "d0c5340b", order.ID)
	assert.Equal(t, core.StatusNew, order.Status)
	assert.Equal(t, map[string]any{
		"size": "0.01", "price": "0.10", "side": "buy", "product_id": "BTC-USD", "type": "limit",
	}, body)
}

func TestCancelOrder(t *testing.T) {
	creds := &core.Credentials{APIKey: "key", SecretKey: testSecret, Passphrase: "pass"}

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /orders/open-1", respond(200, `["open-1"]`))
	mux.HandleFunc("DELETE /orders/gone", respond(404, `{"message":"order not found"}`))
	ex := newTestExchange(t, mux, creds)

	reason, err := ex.CancelOrder(context.Background(), "open-1")
	require.NoError(t, err)
	assert.Empty(t, reason)

	reason, err = ex.CancelOrder(context.Background(), "gone")
	require.NoError(t, err)
	assert.Equal(t, "order not found", reason)
}

func TestOrderStatus(t *testing.T) {
	half, _, _ := apd.NewFromString("0.5")

	tests := []struct {
		name  string
		order gdaxOrder
		want  core.OrderStatus
	}{
		{"pending", gdaxOrder{Status: "pending"}, core.StatusNew},
		{"open partly filled", gdaxOrder{Status: "open", FilledSize: *half}, core.StatusPartiallyFilled},
		{"done filled", gdaxOrder{Status: "done", DoneReason: "filled"}, core.StatusFilled},
		{"done canceled", gdaxOrder{Status: "done", DoneReason: "canceled"}, core.StatusCanceled},
		{"rejected", gdaxOrder{Status: "rejected"}, core.StatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderStatus(&tt.order))
		})
	}
}

func TestSign_BadSecret(t *testing.T) {
	_, err := sign("not base64!", "prehash")
	assert.Error(t, err)
}
