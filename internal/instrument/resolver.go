// Package instrument resolves ticker symbols to the broker's FIGI
// identifiers and back.
package instrument

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/makarsemyonov/TinkoffClient/internal/domain"
	"github.com/makarsemyonov/TinkoffClient/internal/invest"
)

// ErrInstrumentNotFound is returned when no instrument matches the
// requested ticker or FIGI.
var ErrInstrumentNotFound = errors.New("instrument not found")

// Resolver maps tickers to FIGIs and FIGIs to tickers. Lookups go to the
// broker on every call; nothing is cached.
type Resolver struct {
	api invest.API
}

// NewResolver creates a Resolver over the given API.
func NewResolver(api invest.API) *Resolver {
	return &Resolver{api: api}
}

// ResolveFIGI returns the FIGI of the instrument with the given ticker.
// The ticker is uppercased before matching. Shares are matched against the
// base-status share listing; bonds go through the free-text search
// endpoint filtered by instrument type, since the broker has no direct
// bond listing call on this path.
func (r *Resolver) ResolveFIGI(ctx context.Context, ticker string, kind domain.InstrumentKind) (string, error) {
	ticker = strings.ToUpper(ticker)

	var (
		instruments []domain.Instrument
		err         error
	)
	switch kind {
	case domain.KindBond:
		instruments, err = r.api.FindInstrument(ctx, ticker)
	default:
		instruments, err = r.api.Shares(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("listing %s instruments: %w", kind, err)
	}

	for _, inst := range instruments {
		if inst.Ticker != ticker {
			continue
		}
		if kind == domain.KindBond && inst.Kind != string(domain.KindBond) {
			continue
		}
		return inst.FIGI, nil
	}
	return "", fmt.Errorf("%w: ticker %q", ErrInstrumentNotFound, ticker)
}

// ResolveTicker returns the ticker of the instrument with the given FIGI.
// An empty FIGI resolves to an empty ticker without touching the broker:
// "no instrument" is not a lookup failure.
func (r *Resolver) ResolveTicker(ctx context.Context, figi string) (string, error) {
	if figi == "" {
		return "", nil
	}

	inst, err := r.api.InstrumentByFIGI(ctx, figi)
	if err != nil {
		return "", fmt.Errorf("looking up FIGI %s: %w", figi, err)
	}
	if inst == nil || inst.Ticker == "" {
		return "", fmt.Errorf("%w: FIGI %q has no ticker", ErrInstrumentNotFound, figi)
	}
	return inst.Ticker, nil
}
