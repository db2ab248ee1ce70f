package instrument

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makarsemyonov/TinkoffClient/internal/domain"
	"github.com/makarsemyonov/TinkoffClient/internal/invest/investtest"
)

func newFake() *investtest.Fake {
	return &investtest.Fake{
		SharesFunc: func(ctx context.Context) ([]domain.Instrument, error) {
			return []domain.Instrument{
				{FIGI: "BBG004730N88", Ticker: "SBER", Kind: "share"},
				{FIGI: "BBG004730RP0", Ticker: "GAZP", Kind: "share"},
			}, nil
		},
		FindInstrumentFunc: func(ctx context.Context, query string) ([]domain.Instrument, error) {
			return []domain.Instrument{
				{FIGI: "BBG00XXXSHARE", Ticker: "SU26238RMFS4", Kind: "share"},
				{FIGI: "BBG013YLWNR5", Ticker: "SU26238RMFS4", Kind: "bond"},
			}, nil
		},
		InstrumentByFIGIFunc: func(ctx context.Context, figi string) (*domain.Instrument, error) {
			switch figi {
			case "BBG004730N88":
				return &domain.Instrument{FIGI: figi, Ticker: "SBER"}, nil
			case "BBG000NOTICKER":
				return &domain.Instrument{FIGI: figi}, nil
			default:
				return nil, nil
			}
		},
	}
}

func TestResolveFIGIShare(t *testing.T) {
	r := NewResolver(newFake())

	figi, err := r.ResolveFIGI(context.Background(), "sber", domain.KindShare)
	require.NoError(t, err)
	assert.Equal(t, "BBG004730N88", figi)
}

func TestResolveFIGIUnknownTicker(t *testing.T) {
	r := NewResolver(newFake())

	_, err := r.ResolveFIGI(context.Background(), "NOPE", domain.KindShare)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInstrumentNotFound))
	assert.Contains(t, err.Error(), "NOPE")
}

func TestResolveFIGIBondFiltersKind(t *testing.T) {
	fake := newFake()
	r := NewResolver(fake)

	figi, err := r.ResolveFIGI(context.Background(), "SU26238RMFS4", domain.KindBond)
	require.NoError(t, err)
	assert.Equal(t, "BBG013YLWNR5", figi, "must pick the bond, not the same-ticker share")
	assert.Equal(t, 1, fake.Calls("FindInstrument"))
	assert.Equal(t, 0, fake.Calls("Shares"), "bond path goes through free-text search")
}

func TestResolveTicker(t *testing.T) {
	r := NewResolver(newFake())

	ticker, err := r.ResolveTicker(context.Background(), "BBG004730N88")
	require.NoError(t, err)
	assert.Equal(t, "SBER", ticker)
}

func TestResolveTickerEmptyFIGI(t *testing.T) {
	fake := newFake()
	r := NewResolver(fake)

	ticker, err := r.ResolveTicker(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "", ticker)
	assert.Equal(t, 0, fake.TotalCalls(), "empty FIGI must not hit the broker")
}

func TestResolveTickerMissingInstrument(t *testing.T) {
	r := NewResolver(newFake())

	_, err := r.ResolveTicker(context.Background(), "BBG000UNKNOWN")
	assert.True(t, errors.Is(err, ErrInstrumentNotFound))

	_, err = r.ResolveTicker(context.Background(), "BBG000NOTICKER")
	assert.True(t, errors.Is(err, ErrInstrumentNotFound))
}
