// Package registry wires the built-in venues into an exchange.Registry.
package registry

import (
	"github.com/rs/zerolog"

	"tradegate/internal/circuitbreaker"
	"tradegate/pkg/core"
	"tradegate/pkg/exchange"
	"tradegate/pkg/exchange/bitfinex"
	"tradegate/pkg/exchange/bittrex"
	"tradegate/pkg/exchange/gdax"
	"tradegate/pkg/exchange/gemini"
	"tradegate/pkg/exchange/kraken"
	"tradegate/pkg/rest"
)

// Option is a functional option for configuring the default registry.
type Option func(*Options)

// Options holds configuration shared by every venue the registry builds.
type Options struct {
	Logger        zerolog.Logger
	Configure     func(*core.Config)
	ClientOptions []rest.Option
	// Breaker, when set, gives every built client its own breaker.
	Breaker *circuitbreaker.Config
}

// WithLogger returns an option that sets the logger for the registry and
// every client it builds.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithConfig runs fn on each venue's default config before the client is
// built. fn can tell venues apart by config.Exchange.
func WithConfig(fn func(*core.Config)) Option {
	return func(o *Options) {
		o.Configure = fn
	}
}

// WithClientOptions passes extra pipeline options to every client.
func WithClientOptions(opts ...rest.Option) Option {
	return func(o *Options) {
		o.ClientOptions = append(o.ClientOptions, opts...)
	}
}

// WithCircuitBreaker gives each client a breaker built from config.
// Breakers are per client and never shared between venues.
func WithCircuitBreaker(config circuitbreaker.Config) Option {
	return func(o *Options) {
		o.Breaker = &config
	}
}

// Default returns a registry with Bitfinex, Gemini, GDAX, Kraken and Bittrex.
func Default(opts ...Option) *exchange.Registry {
	o := &Options{Logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}

	r := exchange.NewRegistry(o.Logger)
	r.Register(bitfinex.Name, factory(o, bitfinex.DefaultConfig, bitfinex.New))
	r.Register(gemini.Name, factory(o, gemini.DefaultConfig, gemini.New))
	r.Register(gdax.Name, factory(o, gdax.DefaultConfig, gdax.New))
	r.Register(kraken.Name, factory(o, kraken.DefaultConfig, kraken.New))
	r.Register(bittrex.Name, factory(o, bittrex.DefaultConfig, bittrex.New))
	return r
}

func factory[T exchange.Exchange](
	o *Options,
	defaults func() *core.Config,
	build func(*core.Config, ...rest.Option) (T, error),
) exchange.Factory {
	return func() (exchange.Exchange, error) {
		config := defaults()
		if o.Configure != nil {
			o.Configure(config)
		}

		clientOpts := append([]rest.Option{rest.WithLogger(o.Logger)}, o.ClientOptions...)
		if o.Breaker != nil {
			clientOpts = append(clientOpts, rest.WithBreaker(circuitbreaker.New(*o.Breaker)))
		}
		ex, err := build(config, clientOpts...)
		if err != nil {
			return nil, err
		}
		return ex, nil
	}
}
