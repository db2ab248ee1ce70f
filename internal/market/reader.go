// Package market reads market data from the broker: current prices,
// historical candles in chunked date ranges, FX conversion rates, and
// static bond/share reference data.
package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/makarsemyonov/TinkoffClient/internal/domain"
	"github.com/makarsemyonov/TinkoffClient/internal/instrument"
	"github.com/makarsemyonov/TinkoffClient/internal/invest"
	"github.com/makarsemyonov/TinkoffClient/internal/table"
)

var (
	// ErrNoMarketPrice is returned when neither a last trade nor either
	// side of the order book is available.
	ErrNoMarketPrice = errors.New("no market price available")

	// ErrUnknownInterval is returned for an unrecognised history interval.
	ErrUnknownInterval = errors.New("unknown candle interval")

	// ErrUnknownCurrencyPair is returned when no FX instrument is wired
	// for the requested currency pair.
	ErrUnknownCurrencyPair = errors.New("unknown currency pair")
)

// CandleColumns is the fixed column set of history tables.
var CandleColumns = []string{"time", "open", "high", "low", "close", "volume"}

// intervalSpec ties a public interval name to the broker's identifier and
// the maximum span the broker accepts per request at that granularity.
type intervalSpec struct {
	interval domain.CandleInterval
	maxSpan  time.Duration
}

var intervals = map[string]intervalSpec{
	"1m":  {domain.Interval1Min, 24 * time.Hour},
	"5m":  {domain.Interval5Min, 7 * 24 * time.Hour},
	"15m": {domain.Interval15Min, 30 * 24 * time.Hour},
	"1h":  {domain.IntervalHour, 30 * 24 * time.Hour},
	"1d":  {domain.IntervalDay, 365 * 24 * time.Hour},
	"1w":  {domain.IntervalWeek, 5 * 365 * 24 * time.Hour},
	"1mo": {domain.IntervalMonth, 10 * 365 * 24 * time.Hour},
}

// Intervals returns the supported interval names, sorted.
func Intervals() []string {
	names := make([]string, 0, len(intervals))
	for name := range intervals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fxInstrument maps a currency pair onto the FX instrument whose last
// traded price serves as the conversion rate. Only RUB against USD and
// EUR is wired.
type fxInstrument struct {
	ticker string
	figi   string
	invert bool
}

var fxPairs = map[string]fxInstrument{
	"USD/RUB": {ticker: "USD000UTSTOM", figi: "BBG0013HGFT4"},
	"RUB/USD": {ticker: "USD000UTSTOM", figi: "BBG0013HGFT4", invert: true},
	"EUR/RUB": {ticker: "EUR_RUB__TOM", figi: "BBG0013HJJ31"},
	"RUB/EUR": {ticker: "EUR_RUB__TOM", figi: "BBG0013HJJ31", invert: true},
}

// Reader reads market data. Every query is sourced fresh from the broker.
type Reader struct {
	api      invest.API
	resolver *instrument.Resolver
	log      *slog.Logger
}

// NewReader creates a Reader over the given API and resolver.
func NewReader(api invest.API, resolver *instrument.Resolver) *Reader {
	return &Reader{
		api:      api,
		resolver: resolver,
		log:      slog.Default().With("component", "market"),
	}
}

// CurrentPrice returns the current price of the instrument with the given
// ticker, from a depth-1 order book snapshot. Preference order: last
// traded price, midpoint of best bid/ask when both sides are present,
// whichever single side exists, else ErrNoMarketPrice.
func (r *Reader) CurrentPrice(ctx context.Context, ticker string) (float64, error) {
	figi, err := r.resolver.ResolveFIGI(ctx, ticker, domain.KindShare)
	if err != nil {
		return 0, err
	}

	ob, err := r.api.OrderBook(ctx, figi, 1)
	if err != nil {
		return 0, fmt.Errorf("fetching order book for %s: %w", ticker, err)
	}

	if !ob.LastPrice.IsZero() {
		return ob.LastPrice.Float64(), nil
	}

	var bid, ask float64
	hasBid := len(ob.Bids) > 0 && !ob.Bids[0].Price.IsZero()
	hasAsk := len(ob.Asks) > 0 && !ob.Asks[0].Price.IsZero()
	if hasBid {
		bid = ob.Bids[0].Price.Float64()
	}
	if hasAsk {
		ask = ob.Asks[0].Price.Float64()
	}

	switch {
	case hasBid && hasAsk:
		return (bid + ask) / 2, nil
	case hasBid:
		return bid, nil
	case hasAsk:
		return ask, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrNoMarketPrice, ticker)
	}
}

// History returns candles for the ticker in [from, to) at the given
// interval. The span is partitioned into chunks no larger than the
// interval's broker-side cap, one request per chunk; the concatenated
// result is deduplicated by timestamp and sorted ascending.
func (r *Reader) History(ctx context.Context, ticker string, from, to time.Time, interval string) ([]domain.Candle, error) {
	spec, ok := intervals[interval]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownInterval, interval, strings.Join(Intervals(), ", "))
	}

	figi, err := r.resolver.ResolveFIGI(ctx, ticker, domain.KindShare)
	if err != nil {
		return nil, err
	}

	var all []domain.Candle
	for curFrom := from; curFrom.Before(to); {
		curTo := curFrom.Add(spec.maxSpan)
		if curTo.After(to) {
			curTo = to
		}

		candles, err := r.api.Candles(ctx, figi, curFrom, curTo, spec.interval)
		if err != nil {
			return nil, fmt.Errorf("fetching candles %s [%s, %s]: %w",
				ticker, curFrom.Format(time.RFC3339), curTo.Format(time.RFC3339), err)
		}
		all = append(all, candles...)

		curFrom = curTo
	}

	// Chunk boundaries can return the same candle twice.
	seen := make(map[int64]struct{}, len(all))
	deduped := all[:0]
	for _, c := range all {
		key := c.Time.UnixNano()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, c)
	}

	sort.Slice(deduped, func(i, j int) bool {
		return deduped[i].Time.Before(deduped[j].Time)
	})
	return deduped, nil
}

// HistoryTable returns History as a table with the fixed column set
// {time, open, high, low, close, volume}. An empty result keeps the
// column schema.
func (r *Reader) HistoryTable(ctx context.Context, ticker string, from, to time.Time, interval string) (*table.Table, error) {
	candles, err := r.History(ctx, ticker, from, to, interval)
	if err != nil {
		return nil, err
	}

	tbl := table.New(CandleColumns...)
	for _, c := range candles {
		tbl.Append(
			table.FormatTime(c.Time),
			table.FormatFloat(c.Open),
			table.FormatFloat(c.High),
			table.FormatFloat(c.Low),
			table.FormatFloat(c.Close),
			table.FormatInt(c.Volume),
		)
	}
	return tbl, nil
}

// Rate returns the conversion rate from one currency to another. Matching
// currencies yield 1 without any network call; otherwise the rate is the
// latest traded price of the fixed FX instrument for the pair, inverted
// for the reverse direction.
func (r *Reader) Rate(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return 1, nil
	}

	fx, ok := fxPairs[from+"/"+to]
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s", ErrUnknownCurrencyPair, from, to)
	}

	prices, err := r.api.LastPrices(ctx, []string{fx.figi})
	if err != nil {
		return 0, fmt.Errorf("fetching rate for %s: %w", fx.ticker, err)
	}
	if len(prices) == 0 || prices[0].Price.IsZero() {
		return 0, fmt.Errorf("%w: no last price for %s", ErrNoMarketPrice, fx.ticker)
	}

	rate := prices[0].Price.Float64()
	if fx.invert {
		rate = 1 / rate
	}
	return rate, nil
}

// Convert converts amount from one currency to another using Rate.
func (r *Reader) Convert(ctx context.Context, from, to string, amount float64) (float64, error) {
	if strings.EqualFold(from, to) {
		return amount, nil
	}
	rate, err := r.Rate(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}
