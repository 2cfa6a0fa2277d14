// Command tradegate queries a supported exchange from the command line.
//
//	tradegate [flags] <exchange> <symbols|ticker|book|trades|balances> [symbol]
//	tradegate [flags] <best|merged> <exchange>=<symbol>...
//
// Settings come from .env, tradegate.yaml and TRADEGATE_* variables, e.g.
// TRADEGATE_KRAKEN_API_KEY and TRADEGATE_KRAKEN_SECRET_KEY.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"tradegate/internal/config"
	"tradegate/pkg/aggregate"
	"tradegate/pkg/core"
	"tradegate/pkg/exchange"
	"tradegate/pkg/registry"
)

var errUsage = errors.New("usage: tradegate [flags] <exchange> <symbols|ticker|book|trades|balances> [symbol]\n" +
	"       tradegate [flags] <best|merged> <exchange>=<symbol>...")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "tradegate: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("tradegate", flag.ContinueOnError)
	flags.SetOutput(stderr)
	envFile := flags.String("env", ".env", "env file to load before reading TRADEGATE_* variables")
	depth := flags.Int("depth", 10, "order book levels per side")
	since := flags.Duration("since", 0, "trade lookback; 0 reads the most recent trades")
	if err := flags.Parse(args); err != nil {
		return err
	}

	positional := flags.Args()
	if len(positional) < 2 {
		return errUsage
	}
	name, command := positional[0], positional[1]

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr}).
		Level(cfg.LogLevel()).
		With().Timestamp().Logger()

	reg := registry.Default(registry.WithLogger(logger), registry.WithConfig(cfg.Apply))

	var result any
	switch name {
	case "best", "merged":
		result, err = compare(ctx, reg, logger, name, positional[1:], *depth)
	default:
		ex, ok := reg.Lookup(name)
		if !ok {
			return fmt.Errorf("unknown exchange %q (available: %s)", name, strings.Join(reg.Names(), ", "))
		}
		if c, ok := ex.(io.Closer); ok {
			defer c.Close()
		}

		symbol := ""
		if len(positional) > 2 {
			symbol = positional[2]
		}
		result, err = dispatch(ctx, ex, command, symbol, *depth, *since)
	}
	if err != nil {
		return err
	}

	out, err := sonic.ConfigStd.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(stdout, string(out))
	return err
}

func dispatch(ctx context.Context, ex exchange.Exchange, command, symbol string, depth int, since time.Duration) (any, error) {
	needSymbol := func() error {
		if symbol == "" {
			return fmt.Errorf("%s needs a symbol", command)
		}
		return nil
	}

	switch command {
	case "symbols":
		return ex.ListSymbols(ctx)

	case "ticker":
		if err := needSymbol(); err != nil {
			return nil, err
		}
		return ex.GetTicker(ctx, symbol)

	case "book":
		if err := needSymbol(); err != nil {
			return nil, err
		}
		return ex.GetOrderBook(ctx, symbol, exchange.WithDepth(depth))

	case "trades":
		if err := needSymbol(); err != nil {
			return nil, err
		}
		if since <= 0 {
			return exchange.Collect(exchange.RecentTrades(ctx, ex, symbol))
		}
		return exchange.Collect(ex.GetHistoricalTrades(ctx, symbol, time.Now().Add(-since)))

	case "balances":
		balances, err := ex.GetAvailableBalances(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[string]string, len(balances))
		for asset, amount := range balances {
			out[asset] = core.FormatValue(amount)
		}
		return out, nil
	}

	return nil, fmt.Errorf("unknown command %q: %w", command, errUsage)
}

// compare runs a cross-venue query. Each argument is exchange=symbol.
func compare(ctx context.Context, reg *exchange.Registry, logger zerolog.Logger, command string, args []string, depth int) (any, error) {
	pairs := make(aggregate.Pairs, len(args))
	for _, arg := range args {
		name, symbol, ok := strings.Cut(arg, "=")
		if !ok || name == "" || symbol == "" {
			return nil, fmt.Errorf("bad pair %q, want exchange=symbol: %w", arg, errUsage)
		}
		if !reg.Exists(name) {
			return nil, fmt.Errorf("unknown exchange %q (available: %s)", name, strings.Join(reg.Names(), ", "))
		}
		pairs[name] = symbol
	}

	agg := aggregate.FromRegistry(reg, logger)
	defer agg.Close()

	if command == "best" {
		return agg.BestPrice(ctx, pairs)
	}
	return agg.MergedOrderBook(ctx, pairs, depth)
}
