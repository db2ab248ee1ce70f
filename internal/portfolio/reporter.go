// Package portfolio reports open positions, operation histories, and
// bond/stock holdings with derived P&L and coupon economics.
package portfolio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/makarsemyonov/TinkoffClient/internal/account"
	"github.com/makarsemyonov/TinkoffClient/internal/domain"
	"github.com/makarsemyonov/TinkoffClient/internal/instrument"
	"github.com/makarsemyonov/TinkoffClient/internal/invest"
	"github.com/makarsemyonov/TinkoffClient/internal/market"
	"github.com/makarsemyonov/TinkoffClient/internal/table"
)

// Column sets of the reporter's tables.
var (
	PositionColumns  = []string{"figi", "ticker", "instrument_type", "quantity", "average_price", "current_price", "expected_yield", "return_pct"}
	OperationColumns = []string{"time", "type", "ticker", "quantity", "price", "payment"}
)

// Position is one holding with derived return metrics.
type Position struct {
	FIGI           string
	Ticker         string
	InstrumentType string
	Quantity       float64
	AveragePrice   float64
	CurrentPrice   float64
	ExpectedYield  float64
	ReturnPct      float64
}

// BondHolding is a bond position enriched with coupon economics.
type BondHolding struct {
	Position
	Name          string
	Nominal       *float64
	MonthlyCoupon float64 // per bond, reporting currency
}

// StockHolding is a share position enriched with a live price and P&L.
type StockHolding struct {
	Position
	Name      string
	LivePrice float64
	Gain      float64 // (live - average) * quantity
}

// Reporter reads portfolio state. Every report is recomputed from a fresh
// broker snapshot.
type Reporter struct {
	api       invest.API
	directory *account.Directory
	resolver  *instrument.Resolver
	market    *market.Reader
	log       *slog.Logger
}

// NewReporter creates a Reporter over the given services.
func NewReporter(api invest.API, directory *account.Directory, resolver *instrument.Resolver, reader *market.Reader) *Reporter {
	return &Reporter{
		api:       api,
		directory: directory,
		resolver:  resolver,
		market:    reader,
		log:       slog.Default().With("component", "portfolio"),
	}
}

// Positions returns the open positions of the named account, sorted by
// descending expected yield. The return percentage is zero when the
// average entry price is zero.
func (r *Reporter) Positions(ctx context.Context, accountName string) ([]Position, error) {
	accountID, err := r.directory.Resolve(ctx, accountName)
	if err != nil {
		return nil, err
	}

	snapshot, err := r.api.GetPortfolio(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetching portfolio for %s: %w", accountName, err)
	}

	positions := make([]Position, 0, len(snapshot.Positions))
	for _, pos := range snapshot.Positions {
		ticker, err := r.resolver.ResolveTicker(ctx, pos.FIGI)
		if err != nil {
			return nil, err
		}

		avg := pos.AveragePrice.Float64()
		cur := pos.CurrentPrice.Float64()
		returnPct := 0.0
		if avg > 0 {
			returnPct = (cur - avg) / avg * 100
		}

		positions = append(positions, Position{
			FIGI:           pos.FIGI,
			Ticker:         ticker,
			InstrumentType: pos.InstrumentType,
			Quantity:       pos.Quantity.Float64(),
			AveragePrice:   avg,
			CurrentPrice:   cur,
			ExpectedYield:  pos.ExpectedYield.Float64(),
			ReturnPct:      returnPct,
		})
	}

	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].ExpectedYield > positions[j].ExpectedYield
	})
	return positions, nil
}

// PositionsTable returns Positions as a table with the fixed column set.
func (r *Reporter) PositionsTable(ctx context.Context, accountName string) (*table.Table, error) {
	positions, err := r.Positions(ctx, accountName)
	if err != nil {
		return nil, err
	}

	tbl := table.New(PositionColumns...)
	for _, p := range positions {
		tbl.Append(
			p.FIGI,
			p.Ticker,
			p.InstrumentType,
			table.FormatFloat(p.Quantity),
			table.FormatFloat(p.AveragePrice),
			table.FormatFloat(p.CurrentPrice),
			table.FormatFloat(p.ExpectedYield),
			table.FormatPct(p.ReturnPct),
		)
	}
	return tbl, nil
}

// OperationsHistory returns the account's operations in [from, to] as a
// table sorted ascending by time. Each row resolves its instrument ticker
// individually; broker types outside the restricted label set render as
// an empty type.
func (r *Reporter) OperationsHistory(ctx context.Context, accountName string, from, to time.Time) (*table.Table, error) {
	accountID, err := r.directory.Resolve(ctx, accountName)
	if err != nil {
		return nil, err
	}

	ops, err := r.api.Operations(ctx, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetching operations for %s: %w", accountName, err)
	}

	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].Date.Before(ops[j].Date)
	})

	tbl := table.New(OperationColumns...)
	for _, op := range ops {
		ticker, err := r.resolver.ResolveTicker(ctx, op.FIGI)
		if err != nil {
			return nil, err
		}

		tbl.Append(
			table.FormatTime(op.Date),
			domain.OperationLabel(op.Type),
			ticker,
			table.FormatInt(op.Quantity),
			table.FormatFloat(op.Price.Float64()),
			table.FormatFloat(op.Payment.Float64()),
		)
	}
	return tbl, nil
}

// Bonds returns the account's bond positions enriched with coupon
// economics. A failed enrichment is logged and the row skipped; the rest
// of the report completes.
func (r *Reporter) Bonds(ctx context.Context, accountName string) ([]BondHolding, error) {
	positions, err := r.Positions(ctx, accountName)
	if err != nil {
		return nil, err
	}

	var holdings []BondHolding
	for _, pos := range positions {
		if pos.InstrumentType != string(domain.KindBond) {
			continue
		}

		info, err := r.market.Bond(ctx, pos.Ticker)
		if err != nil {
			r.log.Warn("skipping bond row", "ticker", pos.Ticker, "err", err)
			continue
		}

		h := BondHolding{
			Position:      pos,
			Name:          info.Name,
			MonthlyCoupon: info.MonthlyCoupon,
		}
		if info.Nominal != nil {
			nominal := info.Nominal.Float64()
			h.Nominal = &nominal
		}
		holdings = append(holdings, h)
	}
	return holdings, nil
}

// Stocks returns the account's share positions enriched with a live price
// and monetary gain. A failed enrichment is logged and the row skipped.
func (r *Reporter) Stocks(ctx context.Context, accountName string) ([]StockHolding, error) {
	positions, err := r.Positions(ctx, accountName)
	if err != nil {
		return nil, err
	}

	var holdings []StockHolding
	for _, pos := range positions {
		if pos.InstrumentType != string(domain.KindShare) {
			continue
		}

		live, err := r.market.CurrentPrice(ctx, pos.Ticker)
		if err != nil {
			r.log.Warn("skipping stock row", "ticker", pos.Ticker, "err", err)
			continue
		}

		var name string
		if info, err := r.market.Stock(ctx, pos.Ticker); err != nil {
			r.log.Warn("stock info unavailable", "ticker", pos.Ticker, "err", err)
		} else {
			name = info.Name
		}

		holdings = append(holdings, StockHolding{
			Position:  pos,
			Name:      name,
			LivePrice: live,
			Gain:      (live - pos.AveragePrice) * pos.Quantity,
		})
	}
	return holdings, nil
}

// BondsSummary aggregates the account's bond holdings and writes a
// key/value block to w: invested capital, projected monthly and yearly
// coupon income, and percentage yield.
func (r *Reporter) BondsSummary(ctx context.Context, accountName string, w io.Writer) error {
	holdings, err := r.Bonds(ctx, accountName)
	if err != nil {
		return err
	}

	var invested, monthly float64
	for _, h := range holdings {
		invested += h.AveragePrice * h.Quantity
		monthly += h.MonthlyCoupon * h.Quantity
	}
	yearly := monthly * 12
	yieldPct := 0.0
	if invested > 0 {
		yieldPct = yearly / invested * 100
	}

	fmt.Fprintf(w, "bonds:            %d\n", len(holdings))
	fmt.Fprintf(w, "invested:         %.2f\n", invested)
	fmt.Fprintf(w, "monthly coupons:  %.2f\n", monthly)
	fmt.Fprintf(w, "yearly coupons:   %.2f\n", yearly)
	fmt.Fprintf(w, "coupon yield:     %.2f%%\n", yieldPct)
	return nil
}

// StocksSummary aggregates the account's share holdings and writes a
// key/value block to w: invested capital, market value, monetary gain,
// and percentage yield.
func (r *Reporter) StocksSummary(ctx context.Context, accountName string, w io.Writer) error {
	holdings, err := r.Stocks(ctx, accountName)
	if err != nil {
		return err
	}

	var invested, value float64
	for _, h := range holdings {
		invested += h.AveragePrice * h.Quantity
		value += h.LivePrice * h.Quantity
	}
	gain := value - invested
	yieldPct := 0.0
	if invested > 0 {
		yieldPct = gain / invested * 100
	}

	fmt.Fprintf(w, "stocks:        %d\n", len(holdings))
	fmt.Fprintf(w, "invested:      %.2f\n", invested)
	fmt.Fprintf(w, "market value:  %.2f\n", value)
	fmt.Fprintf(w, "gain:          %.2f\n", gain)
	fmt.Fprintf(w, "yield:         %.2f%%\n", yieldPct)
	return nil
}
