// Package invest provides access to the Tinkoff Invest API. The API
// interface abstracts the broker surface consumed by the service packages;
// Client implements it over the public REST gateway.
package invest

import (
	"context"
	"time"

	"github.com/makarsemyonov/TinkoffClient/internal/domain"
)

// API is the broker surface used by the account, instrument, market,
// trade, and portfolio services. Every call performs a fresh request; the
// implementation holds no session state beyond the credential.
type API interface {
	// GetAccounts returns all accounts visible to the credential.
	GetAccounts(ctx context.Context) ([]domain.Account, error)

	// GetPortfolio returns the portfolio snapshot for one account.
	GetPortfolio(ctx context.Context, accountID string) (*domain.Portfolio, error)

	// Shares lists the base-status share universe.
	Shares(ctx context.Context) ([]domain.Instrument, error)

	// FindInstrument performs a free-text instrument search.
	FindInstrument(ctx context.Context, query string) ([]domain.Instrument, error)

	// InstrumentByFIGI looks an instrument up by its FIGI.
	InstrumentByFIGI(ctx context.Context, figi string) (*domain.Instrument, error)

	// BondByFIGI returns the static reference data of a bond.
	BondByFIGI(ctx context.Context, figi string) (*domain.Bond, error)

	// ShareByFIGI returns the static reference data of a share.
	ShareByFIGI(ctx context.Context, figi string) (*domain.Share, error)

	// BondCoupons returns the coupon events of a bond within [from, to].
	BondCoupons(ctx context.Context, figi string, from, to time.Time) ([]domain.Coupon, error)

	// OrderBook returns a depth-limited order book snapshot.
	OrderBook(ctx context.Context, figi string, depth int) (*domain.OrderBook, error)

	// Candles returns raw candles for [from, to] at the given interval.
	// Callers are responsible for honouring the per-interval span caps.
	Candles(ctx context.Context, figi string, from, to time.Time, interval domain.CandleInterval) ([]domain.Candle, error)

	// LastPrices returns the latest traded prices for the given FIGIs.
	LastPrices(ctx context.Context, figis []string) ([]domain.LastPrice, error)

	// PostOrder submits a market or limit order.
	PostOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error)

	// OrderState queries the execution state of a placed order.
	OrderState(ctx context.Context, accountID, orderID string) (*domain.OrderState, error)

	// PostStopOrder submits a conditional order and returns its ID.
	PostStopOrder(ctx context.Context, req domain.StopOrderRequest) (string, error)

	// Operations returns account operations within [from, to].
	Operations(ctx context.Context, accountID string, from, to time.Time) ([]domain.Operation, error)
}
