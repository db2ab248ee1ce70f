package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/makarsemyonov/TinkoffClient/internal/domain"
)

// reportingCurrency is the currency all coupon payments are converted to
// for derived metrics.
const reportingCurrency = "RUB"

// BondInfo is the static reference data of a bond plus the derived
// monthly coupon metric.
type BondInfo struct {
	domain.Bond

	// MonthlyCoupon approximates the bond's coupon income per month in
	// the reporting currency: the most recent nonzero per-bond payment
	// times the annual coupon count, divided by 12. It assumes uniform
	// coupon size and ignores amortization schedules.
	MonthlyCoupon float64
}

// StockInfo is the static reference data of a share.
type StockInfo struct {
	domain.Share
}

// Bond returns the static reference data of the bond with the given
// ticker, with the derived monthly coupon.
func (r *Reader) Bond(ctx context.Context, ticker string) (*BondInfo, error) {
	figi, err := r.resolver.ResolveFIGI(ctx, ticker, domain.KindBond)
	if err != nil {
		return nil, err
	}

	bond, err := r.api.BondByFIGI(ctx, figi)
	if err != nil {
		return nil, fmt.Errorf("fetching bond %s: %w", ticker, err)
	}
	if bond == nil {
		return nil, fmt.Errorf("fetching bond %s: empty response", ticker)
	}

	info := &BondInfo{Bond: *bond}
	monthly, err := r.monthlyCoupon(ctx, bond)
	if err != nil {
		return nil, err
	}
	info.MonthlyCoupon = monthly
	return info, nil
}

// monthlyCoupon derives the approximate monthly coupon income of a bond
// in the reporting currency. Bonds with no upcoming nonzero coupon yield
// zero.
func (r *Reader) monthlyCoupon(ctx context.Context, bond *domain.Bond) (float64, error) {
	if bond.CouponsPerYear == 0 {
		return 0, nil
	}

	now := time.Now()
	coupons, err := r.api.BondCoupons(ctx, bond.FIGI, now, now.AddDate(1, 0, 0))
	if err != nil {
		return 0, fmt.Errorf("fetching coupons for %s: %w", bond.Ticker, err)
	}

	// Pick the event with the latest coupon date among those that carry a
	// real payment.
	var latest *domain.Coupon
	for i := range coupons {
		c := &coupons[i]
		if c.PayOneBond.IsZero() {
			continue
		}
		if latest == nil || c.CouponDate.After(latest.CouponDate) {
			latest = c
		}
	}
	if latest == nil {
		return 0, nil
	}

	pay := latest.PayOneBond.Float64()
	if !strings.EqualFold(latest.PayOneBond.Currency, reportingCurrency) {
		pay, err = r.Convert(ctx, latest.PayOneBond.Currency, reportingCurrency, pay)
		if err != nil {
			return 0, fmt.Errorf("converting coupon for %s: %w", bond.Ticker, err)
		}
	}

	return pay * float64(bond.CouponsPerYear) / 12, nil
}

// Stock returns the static reference data of the share with the given
// ticker.
func (r *Reader) Stock(ctx context.Context, ticker string) (*StockInfo, error) {
	figi, err := r.resolver.ResolveFIGI(ctx, ticker, domain.KindShare)
	if err != nil {
		return nil, err
	}

	share, err := r.api.ShareByFIGI(ctx, figi)
	if err != nil {
		return nil, fmt.Errorf("fetching share %s: %w", ticker, err)
	}
	if share == nil {
		return nil, fmt.Errorf("fetching share %s: empty response", ticker)
	}
	return &StockInfo{Share: *share}, nil
}
