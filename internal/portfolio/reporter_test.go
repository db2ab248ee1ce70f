package portfolio

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makarsemyonov/TinkoffClient/internal/account"
	"github.com/makarsemyonov/TinkoffClient/internal/domain"
	"github.com/makarsemyonov/TinkoffClient/internal/instrument"
	"github.com/makarsemyonov/TinkoffClient/internal/invest/investtest"
	"github.com/makarsemyonov/TinkoffClient/internal/market"
)

func q(v float64) domain.Quotation { return domain.QuotationFromFloat(v) }

func money(v float64, currency string) domain.MoneyValue {
	return domain.MoneyValue{Quotation: domain.QuotationFromFloat(v), Currency: currency}
}

func position(figi, kind string, qty, avg, cur, yield float64) domain.PortfolioPosition {
	return domain.PortfolioPosition{
		FIGI:           figi,
		InstrumentType: kind,
		Quantity:       q(qty),
		AveragePrice:   money(avg, "rub"),
		CurrentPrice:   money(cur, "rub"),
		ExpectedYield:  q(yield),
	}
}

func reporterFake(positions []domain.PortfolioPosition) *investtest.Fake {
	return &investtest.Fake{
		GetAccountsFunc: func(ctx context.Context) ([]domain.Account, error) {
			return []domain.Account{{ID: "acc-1", Name: "Algo-Trade"}}, nil
		},
		GetPortfolioFunc: func(ctx context.Context, accountID string) (*domain.Portfolio, error) {
			return &domain.Portfolio{Positions: positions}, nil
		},
		SharesFunc: func(ctx context.Context) ([]domain.Instrument, error) {
			return []domain.Instrument{
				{FIGI: "BBG004730N88", Ticker: "SBER", Kind: "share"},
				{FIGI: "BBG004731032", Ticker: "LKOH", Kind: "share"},
			}, nil
		},
		InstrumentByFIGIFunc: func(ctx context.Context, figi string) (*domain.Instrument, error) {
			switch figi {
			case "BBG004730N88":
				return &domain.Instrument{FIGI: figi, Ticker: "SBER", Kind: "share"}, nil
			case "BBG004731032":
				return &domain.Instrument{FIGI: figi, Ticker: "LKOH", Kind: "share"}, nil
			case "BBG013YLWNR5":
				return &domain.Instrument{FIGI: figi, Ticker: "SU26238RMFS4", Kind: "bond"}, nil
			}
			return nil, errors.New("unknown figi")
		},
	}
}

func newReporter(fake *investtest.Fake) *Reporter {
	directory := account.NewDirectory(fake)
	resolver := instrument.NewResolver(fake)
	return NewReporter(fake, directory, resolver, market.NewReader(fake, resolver))
}

func TestPositionsSortedByExpectedYield(t *testing.T) {
	fake := reporterFake([]domain.PortfolioPosition{
		position("BBG004730N88", "share", 10, 300, 306, 60),
		position("BBG004731032", "share", 2, 7000, 7140, 200),
	})

	positions, err := newReporter(fake).Positions(context.Background(), "Algo-Trade")
	require.NoError(t, err)
	require.Len(t, positions, 2)

	assert.Equal(t, "LKOH", positions[0].Ticker)
	assert.Equal(t, "SBER", positions[1].Ticker)
	assert.InDelta(t, 2, positions[0].ReturnPct, 1e-6)
	assert.InDelta(t, 200, positions[0].ExpectedYield, 1e-9)
}

func TestPositionsZeroAveragePriceMeansZeroReturn(t *testing.T) {
	fake := reporterFake([]domain.PortfolioPosition{
		position("BBG004730N88", "share", 10, 0, 306, 0),
	})

	positions, err := newReporter(fake).Positions(context.Background(), "Algo-Trade")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 0.0, positions[0].ReturnPct)
}

func TestPositionsUnknownAccount(t *testing.T) {
	fake := reporterFake(nil)

	_, err := newReporter(fake).Positions(context.Background(), "No-Such")
	require.Error(t, err)
	assert.True(t, errors.Is(err, account.ErrAccountNotFound))
}

func TestPositionsTableColumns(t *testing.T) {
	fake := reporterFake(nil)

	tbl, err := newReporter(fake).PositionsTable(context.Background(), "Algo-Trade")
	require.NoError(t, err)
	assert.True(t, tbl.Empty())
	assert.Equal(t, PositionColumns, tbl.Columns)
}

func TestOperationsHistorySortedAscending(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	fake := reporterFake(nil)
	fake.OperationsFunc = func(ctx context.Context, accountID string, from, to time.Time) ([]domain.Operation, error) {
		assert.Equal(t, "acc-1", accountID)
		return []domain.Operation{
			{Date: t0.Add(time.Hour), Type: "OPERATION_TYPE_SELL", FIGI: "BBG004730N88", Quantity: 5, Price: money(310, "rub"), Payment: money(1550, "rub")},
			{Date: t0, Type: "OPERATION_TYPE_BUY", FIGI: "BBG004730N88", Quantity: 5, Price: money(300, "rub"), Payment: money(-1500, "rub")},
			{Date: t0.Add(2 * time.Hour), Type: "OPERATION_TYPE_BROKER_FEE", Quantity: 0, Price: money(0, "rub"), Payment: money(-1.55, "rub")},
		}, nil
	}

	tbl, err := newReporter(fake).OperationsHistory(context.Background(), "Algo-Trade", t0.Add(-time.Hour), t0.Add(3*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, OperationColumns, tbl.Columns)

	assert.Equal(t, "BUY", tbl.Rows[0][1])
	assert.Equal(t, "SELL", tbl.Rows[1][1])
	assert.Equal(t, "FEE", tbl.Rows[2][1])
	assert.Equal(t, "SBER", tbl.Rows[0][2])
	assert.Equal(t, "", tbl.Rows[2][2], "operations without an instrument have no ticker")
}

func bondReporterFake() *investtest.Fake {
	fake := reporterFake([]domain.PortfolioPosition{
		position("BBG013YLWNR5", "bond", 20, 950, 980, 600),
		position("BBG004730N88", "share", 10, 300, 306, 60),
	})
	fake.FindInstrumentFunc = func(ctx context.Context, query string) ([]domain.Instrument, error) {
		return []domain.Instrument{
			{FIGI: "BBG013YLWNR5", Ticker: "SU26238RMFS4", Kind: "bond"},
		}, nil
	}
	nominal := money(1000, "rub")
	fake.BondByFIGIFunc = func(ctx context.Context, figi string) (*domain.Bond, error) {
		return &domain.Bond{
			FIGI:           figi,
			Ticker:         "SU26238RMFS4",
			Name:           "OFZ 26238",
			Currency:       "rub",
			Nominal:        &nominal,
			CouponsPerYear: 2,
		}, nil
	}
	fake.BondCouponsFunc = func(ctx context.Context, figi string, from, to time.Time) ([]domain.Coupon, error) {
		return []domain.Coupon{
			{CouponDate: time.Now().AddDate(0, 6, 0), PayOneBond: money(36.6, "rub")},
		}, nil
	}
	return fake
}

func TestBondsFiltersAndEnriches(t *testing.T) {
	fake := bondReporterFake()

	holdings, err := newReporter(fake).Bonds(context.Background(), "Algo-Trade")
	require.NoError(t, err)
	require.Len(t, holdings, 1, "share positions are excluded")

	h := holdings[0]
	assert.Equal(t, "SU26238RMFS4", h.Ticker)
	assert.Equal(t, "OFZ 26238", h.Name)
	assert.InDelta(t, 6.1, h.MonthlyCoupon, 1e-9)
	require.NotNil(t, h.Nominal)
	assert.InDelta(t, 1000, *h.Nominal, 1e-9)
}

func TestBondsSkipsFailedRows(t *testing.T) {
	fake := bondReporterFake()
	fake.BondByFIGIFunc = func(ctx context.Context, figi string) (*domain.Bond, error) {
		return nil, errors.New("instrument service down")
	}

	holdings, err := newReporter(fake).Bonds(context.Background(), "Algo-Trade")
	require.NoError(t, err, "a failed row must not fail the report")
	assert.Empty(t, holdings)
}

func TestBondsSummary(t *testing.T) {
	fake := bondReporterFake()

	var buf bytes.Buffer
	err := newReporter(fake).BondsSummary(context.Background(), "Algo-Trade", &buf)
	require.NoError(t, err)

	out := buf.String()
	// 20 bonds at 950 invested, 20 * 6.1 monthly.
	assert.Contains(t, out, "invested:         19000.00")
	assert.Contains(t, out, "monthly coupons:  122.00")
	assert.Contains(t, out, "yearly coupons:   1464.00")
}

func stockReporterFake() *investtest.Fake {
	fake := reporterFake([]domain.PortfolioPosition{
		position("BBG004730N88", "share", 10, 300, 306, 60),
		position("BBG013YLWNR5", "bond", 20, 950, 980, 600),
	})
	fake.OrderBookFunc = func(ctx context.Context, figi string, depth int) (*domain.OrderBook, error) {
		return &domain.OrderBook{LastPrice: q(310)}, nil
	}
	fake.ShareByFIGIFunc = func(ctx context.Context, figi string) (*domain.Share, error) {
		return &domain.Share{FIGI: figi, Ticker: "SBER", Name: "Sberbank", Currency: "rub", Lot: 10}, nil
	}
	return fake
}

func TestStocksFiltersAndEnriches(t *testing.T) {
	fake := stockReporterFake()

	holdings, err := newReporter(fake).Stocks(context.Background(), "Algo-Trade")
	require.NoError(t, err)
	require.Len(t, holdings, 1, "bond positions are excluded")

	h := holdings[0]
	assert.Equal(t, "SBER", h.Ticker)
	assert.Equal(t, "Sberbank", h.Name)
	assert.InDelta(t, 310, h.LivePrice, 1e-9)
	assert.InDelta(t, 100, h.Gain, 1e-9) // (310-300)*10
}

func TestStocksSummary(t *testing.T) {
	fake := stockReporterFake()

	var buf bytes.Buffer
	err := newReporter(fake).StocksSummary(context.Background(), "Algo-Trade", &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "invested:      3000.00")
	assert.Contains(t, out, "market value:  3100.00")
	assert.Contains(t, out, "gain:          100.00")
}
