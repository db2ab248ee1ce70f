// Package investtest provides a configurable in-memory implementation of
// invest.API for tests, in place of the real REST gateway.
package investtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/makarsemyonov/TinkoffClient/internal/domain"
	"github.com/makarsemyonov/TinkoffClient/internal/invest"
)

// Compile-time interface check.
var _ invest.API = (*Fake)(nil)

// ErrNotConfigured is returned by any Fake method whose corresponding
// function field is nil.
var ErrNotConfigured = errors.New("investtest: method not configured")

// Fake implements invest.API through per-method function fields. Calls are
// counted per method so tests can assert that an operation never reached
// the broker.
type Fake struct {
	GetAccountsFunc      func(ctx context.Context) ([]domain.Account, error)
	GetPortfolioFunc     func(ctx context.Context, accountID string) (*domain.Portfolio, error)
	SharesFunc           func(ctx context.Context) ([]domain.Instrument, error)
	FindInstrumentFunc   func(ctx context.Context, query string) ([]domain.Instrument, error)
	InstrumentByFIGIFunc func(ctx context.Context, figi string) (*domain.Instrument, error)
	BondByFIGIFunc       func(ctx context.Context, figi string) (*domain.Bond, error)
	ShareByFIGIFunc      func(ctx context.Context, figi string) (*domain.Share, error)
	BondCouponsFunc      func(ctx context.Context, figi string, from, to time.Time) ([]domain.Coupon, error)
	OrderBookFunc        func(ctx context.Context, figi string, depth int) (*domain.OrderBook, error)
	CandlesFunc          func(ctx context.Context, figi string, from, to time.Time, interval domain.CandleInterval) ([]domain.Candle, error)
	LastPricesFunc       func(ctx context.Context, figis []string) ([]domain.LastPrice, error)
	PostOrderFunc        func(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error)
	OrderStateFunc       func(ctx context.Context, accountID, orderID string) (*domain.OrderState, error)
	PostStopOrderFunc    func(ctx context.Context, req domain.StopOrderRequest) (string, error)
	OperationsFunc       func(ctx context.Context, accountID string, from, to time.Time) ([]domain.Operation, error)

	mu    sync.Mutex
	calls map[string]int
}

func (f *Fake) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[method]++
}

// Calls returns how many times the named method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls returns the total number of API invocations across all
// methods.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *Fake) GetAccounts(ctx context.Context) ([]domain.Account, error) {
	f.record("GetAccounts")
	if f.GetAccountsFunc == nil {
		return nil, ErrNotConfigured
	}
	return f.GetAccountsFunc(ctx)
}

func (f *Fake) GetPortfolio(ctx context.Context, accountID string) (*domain.Portfolio, error) {
	f.record("GetPortfolio")
	if f.GetPortfolioFunc == nil {
		return nil, ErrNotConfigured
	}
	return f.GetPortfolioFunc(ctx, accountID)
}

func (f *Fake) Shares(ctx context.Context) ([]domain.Instrument, error) {
	f.record("Shares")
	if f.SharesFunc == nil {
		return nil, ErrNotConfigured
	}
	return f.SharesFunc(ctx)
}

func (f *Fake) FindInstrument(ctx context.Context, query string) ([]domain.Instrument, error) {
	f.record("FindInstrument")
	if f.FindInstrumentFunc == nil {
		return nil, ErrNotConfigured
	}
	return f.FindInstrumentFunc(ctx, query)
}

func (f *Fake) InstrumentByFIGI(ctx context.Context, figi string) (*domain.Instrument, error) {
	f.record("InstrumentByFIGI")
	if f.InstrumentByFIGIFunc == nil {
		return nil, ErrNotConfigured
	}
	return f.InstrumentByFIGIFunc(ctx, figi)
}

func (f *Fake) BondByFIGI(ctx context.Context, figi string) (*domain.Bond, error) {
	f.record("BondByFIGI")
	if f.BondByFIGIFunc == nil {
		return nil, ErrNotConfigured
	}
	return f.BondByFIGIFunc(ctx, figi)
}

func (f *Fake) ShareByFIGI(ctx context.Context, figi string) (*domain.Share, error) {
	f.record("ShareByFIGI")
	if f.ShareByFIGIFunc == nil {
		return nil, ErrNotConfigured
	}
	return f.ShareByFIGIFunc(ctx, figi)
}

func (f *Fake) BondCoupons(ctx context.Context, figi string, from, to time.Time) ([]domain.Coupon, error) {
	f.record("BondCoupons")
	if f.BondCouponsFunc == nil {
		return nil, ErrNotConfigured
	}
	return f.BondCouponsFunc(ctx, figi, from, to)
}

func (f *Fake) OrderBook(ctx context.Context, figi string, depth int) (*domain.OrderBook, error) {
	f.record("OrderBook")
	if f.OrderBookFunc == nil {
		return nil, ErrNotConfigured
	}
	return f.OrderBookFunc(ctx, figi, depth)
}

func (f *Fake) Candles(ctx context.Context, figi string, from, to time.Time, interval domain.CandleInterval) ([]domain.Candle, error) {
	f.record("Candles")
	if f.CandlesFunc == nil {
		return nil, ErrNotConfigured
	}
	return f.CandlesFunc(ctx, figi, from, to, interval)
}

func (f *Fake) LastPrices(ctx context.Context, figis []string) ([]domain.LastPrice, error) {
	f.record("LastPrices")
	if f.LastPricesFunc == nil {
		return nil, ErrNotConfigured
	}
	return f.LastPricesFunc(ctx, figis)
}

func (f *Fake) PostOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	f.record("PostOrder")
	if f.PostOrderFunc == nil {
		return nil, ErrNotConfigured
	}
	return f.PostOrderFunc(ctx, req)
}

func (f *Fake) OrderState(ctx context.Context, accountID, orderID string) (*domain.OrderState, error) {
	f.record("OrderState")
	if f.OrderStateFunc == nil {
		return nil, ErrNotConfigured
	}
	return f.OrderStateFunc(ctx, accountID, orderID)
}

func (f *Fake) PostStopOrder(ctx context.Context, req domain.StopOrderRequest) (string, error) {
	f.record("PostStopOrder")
	if f.PostStopOrderFunc == nil {
		return "", ErrNotConfigured
	}
	return f.PostStopOrderFunc(ctx, req)
}

func (f *Fake) Operations(ctx context.Context, accountID string, from, to time.Time) ([]domain.Operation, error) {
	f.record("Operations")
	if f.OperationsFunc == nil {
		return nil, ErrNotConfigured
	}
	return f.OperationsFunc(ctx, accountID, from, to)
}
