package core

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"
)

// Payload is an ordered set of request parameters. Entries keep their
// insertion order through Encode, which signature-sensitive exchanges rely on.
type Payload struct {
	keys   []string
	values map[string]any
}

// NewPayload creates an empty payload.
func NewPayload() *Payload {
	return &Payload{values: make(map[string]any)}
}

// Set adds or replaces a parameter. A replaced key keeps its original position.
func (p *Payload) Set(key string, value any) *Payload {
	if p.values == nil {
		p.values = make(map[string]any)
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
	return p
}

// Get returns the value stored under key.
func (p *Payload) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the parameter names in insertion order.
func (p *Payload) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of parameters. A nil payload is empty.
func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Each calls fn for every parameter in insertion order with its string form.
func (p *Payload) Each(fn func(key, value string)) {
	if p == nil {
		return
	}
	for _, k := range p.keys {
		fn(k, FormatValue(p.values[k]))
	}
}

// Encode renders the payload as key=value pairs joined by '&'.
// Values are query-escaped; an empty payload encodes to "".
func (p *Payload) Encode() string {
	var sb strings.Builder
	p.Each(func(key, value string) {
		sb.WriteString(url.QueryEscape(key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(value))
		sb.WriteByte('&')
	})
	return strings.TrimSuffix(sb.String(), "&")
}

// MarshalJSON writes the payload as a JSON object with keys in insertion
// order. Strings, bools and integers keep their JSON types; everything else
// is sent in its FormatValue string form, which is how exchanges expect
// prices and amounts.
func (p *Payload) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range p.Keys() {
		if i > 0 {
			sb.WriteByte(',')
		}
		key, err := sonic.Marshal(k)
		if err != nil {
			return nil, err
		}
		sb.Write(key)
		sb.WriteByte(':')

		v := p.values[k]
		switch v.(type) {
		case string, bool, int, int64:
		default:
			v = FormatValue(v)
		}
		val, err := sonic.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", k, err)
		}
		sb.Write(val)
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

// FormatValue converts a parameter value to its wire form.
func FormatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case apd.Decimal:
		return val.Text('f')
	case *apd.Decimal:
		return val.Text('f')
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
