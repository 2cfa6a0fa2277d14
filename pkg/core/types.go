package core

import (
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// OrderSide represents the direction of an order (buy or sell).
type OrderSide int

// Order side constants define the direction of a trade.
const (
	// SideBuy indicates an order to purchase an asset.
	SideBuy OrderSide = iota
	// SideSell indicates an order to sell an asset.
	SideSell
)

// String returns the string representation of the order side ("BUY" or "SELL").
func (s OrderSide) String() string {
	return [...]string{"BUY", "SELL"}[s]
}

// MarshalJSON implements json.Marshaler for OrderSide.
func (s OrderSide) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderSide.
// It accepts both uppercase and lowercase formats.
func (s *OrderSide) UnmarshalJSON(data []byte) error {
	*s = ParseSide(strings.Trim(string(data), `"`))
	return nil
}

// ParseSide maps an exchange's side word to an OrderSide. Anything that is
// not a buy ("buy", "bid", "b") is treated as a sell.
func ParseSide(s string) OrderSide {
	switch strings.ToLower(s) {
	case "buy", "bid", "b":
		return SideBuy
	default:
		return SideSell
	}
}

// OrderStatus represents the current state of an order.
type OrderStatus int

// Order status constants define the lifecycle state of an order.
const (
	// StatusNew indicates the order has been accepted by the exchange.
	StatusNew OrderStatus = iota
	// StatusPartiallyFilled indicates the order has been partially filled.
	StatusPartiallyFilled
	// StatusFilled indicates the order has been completely filled.
	StatusFilled
	// StatusCanceled indicates the order has been canceled.
	StatusCanceled
	// StatusRejected indicates the order was rejected by the exchange.
	StatusRejected
)

// String returns the string representation of the order status.
func (s OrderStatus) String() string {
	return [...]string{"NEW", "PARTIALLY_FILLED", "FILLED", "CANCELED", "REJECTED"}[s]
}

// IsTerminal returns true if the order is in a terminal state (no further changes possible).
func (s OrderStatus) IsTerminal() bool {
	return s == StatusFilled || s == StatusCanceled || s == StatusRejected
}

// MarshalJSON implements json.Marshaler for OrderStatus.
func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Ticker is a normalized top-of-book and 24h summary for a trading pair.
type Ticker struct {
	// Symbol is the exchange's identifier for the pair.
	Symbol string `json:"symbol"`
	// Bid is the highest price a buyer is willing to pay.
	Bid apd.Decimal `json:"bid"`
	// Ask is the lowest price a seller is willing to accept.
	Ask apd.Decimal `json:"ask"`
	// Last is the price of the most recent trade.
	Last apd.Decimal `json:"last"`
	// High is the highest price in the last 24 hours.
	High apd.Decimal `json:"high"`
	// Low is the lowest price in the last 24 hours.
	Low apd.Decimal `json:"low"`
	// Volume is the base-asset volume in the last 24 hours.
	Volume apd.Decimal `json:"volume"`
	// Timestamp is when this ticker data was generated.
	Timestamp time.Time `json:"timestamp"`
}

// Trade is a single public execution on an exchange.
type Trade struct {
	// ID is the exchange-assigned trade identifier.
	ID string `json:"id"`
	// Symbol is the trading pair for this trade.
	Symbol string `json:"symbol"`
	// Side is the taker side.
	Side OrderSide `json:"side"`
	// Price is the execution price of this trade.
	Price apd.Decimal `json:"price"`
	// Quantity is the amount executed in this trade.
	Quantity apd.Decimal `json:"quantity"`
	// Timestamp is when the trade was executed.
	Timestamp time.Time `json:"timestamp"`
}

// OrderBookLevel represents a single price level in the order book.
type OrderBookLevel struct {
	Price    apd.Decimal `json:"price"`
	Quantity apd.Decimal `json:"quantity"`
}

// OrderBook is a depth snapshot for a trading pair.
type OrderBook struct {
	Symbol string `json:"symbol"`
	// Bids are buy orders sorted by price descending.
	Bids []OrderBookLevel `json:"bids"`
	// Asks are sell orders sorted by price ascending.
	Asks []OrderBookLevel `json:"asks"`
	// Timestamp is when this snapshot was taken.
	Timestamp time.Time `json:"timestamp"`
}

// Order is the normalized result of placing or inspecting an order.
type Order struct {
	// ID is the exchange-assigned order identifier.
	ID string `json:"id"`
	// Symbol is the trading pair for this order.
	Symbol string `json:"symbol"`
	// Side indicates whether this is a buy or sell order.
	Side OrderSide `json:"side"`
	// Price is the limit price.
	Price apd.Decimal `json:"price"`
	// Quantity is the total order quantity.
	Quantity apd.Decimal `json:"quantity"`
	// FilledQuantity is the amount that has been executed.
	FilledQuantity apd.Decimal `json:"filled_quantity"`
	// Status is the current state of the order.
	Status OrderStatus `json:"status"`
	// CreatedAt is when the order was submitted.
	CreatedAt time.Time `json:"created_at"`
}

// ParseDecimal parses an exchange-formatted number. An empty string is zero.
func ParseDecimal(s string) (apd.Decimal, error) {
	var d apd.Decimal
	if s == "" {
		return d, nil
	}
	if _, _, err := d.SetString(s); err != nil {
		return d, err
	}
	return d, nil
}

// UnixSeconds converts fractional epoch seconds, as several exchanges report
// them, into a time.Time.
func UnixSeconds(s float64) time.Time {
	sec := int64(s)
	return time.Unix(sec, int64((s-float64(sec))*1e9))
}
