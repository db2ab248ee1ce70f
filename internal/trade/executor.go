// Package trade places market, limit, and conditional orders and polls
// order execution state.
package trade

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"

	"github.com/makarsemyonov/TinkoffClient/internal/account"
	"github.com/makarsemyonov/TinkoffClient/internal/domain"
	"github.com/makarsemyonov/TinkoffClient/internal/instrument"
	"github.com/makarsemyonov/TinkoffClient/internal/invest"
)

// Stop-order kinds accepted by PlaceStopOrder.
const (
	KindStopLoss   = "stop-loss"
	KindTakeProfit = "take-profit"
)

// orderParams is validated before any network call.
type orderParams struct {
	Quantity int64    `validate:"gt=0"`
	Price    *float64 `validate:"omitempty,gt=0"`
}

// stopOrderParams is validated before any network call.
type stopOrderParams struct {
	Quantity  int64   `validate:"gt=0"`
	StopPrice float64 `validate:"gt=0"`
	ExecPrice float64 `validate:"gt=0"`
	Kind      string  `validate:"oneof=stop-loss take-profit"`
}

// State is the reported execution state of an order. Price is nil until a
// fill occurred.
type State struct {
	OrderID      string
	Status       string
	ExecutedLots int64
	Price        *float64
}

// Executor submits orders to the broker. Account names and tickers are
// resolved on every call.
type Executor struct {
	api       invest.API
	directory *account.Directory
	resolver  *instrument.Resolver
	validate  *validator.Validate
	log       *slog.Logger
}

// NewExecutor creates an Executor over the given API, directory, and
// resolver.
func NewExecutor(api invest.API, directory *account.Directory, resolver *instrument.Resolver) *Executor {
	return &Executor{
		api:       api,
		directory: directory,
		resolver:  resolver,
		validate:  validator.New(),
		log:       slog.Default().With("component", "trade"),
	}
}

// PlaceOrder submits an order for quantity lots of the ticker. A nil
// price selects a market order; a price selects a limit order at that
// price. Validation failures surface before any broker call. Returns the
// broker-issued order ID.
func (e *Executor) PlaceOrder(ctx context.Context, accountName, ticker string, quantity int64, direction domain.OrderDirection, price *float64) (string, error) {
	if err := e.validate.Struct(orderParams{Quantity: quantity, Price: price}); err != nil {
		return "", fmt.Errorf("invalid order: %w", err)
	}

	accountID, err := e.directory.Resolve(ctx, accountName)
	if err != nil {
		return "", err
	}
	figi, err := e.resolver.ResolveFIGI(ctx, ticker, domain.KindShare)
	if err != nil {
		return "", err
	}

	req := domain.OrderRequest{
		AccountID: accountID,
		FIGI:      figi,
		Quantity:  quantity,
		Direction: direction,
		Type:      domain.OrderTypeMarket,
		OrderID:   ulid.Make().String(),
	}
	if price != nil {
		pq := domain.QuotationFromFloat(*price)
		req.Type = domain.OrderTypeLimit
		req.Price = &pq
	}

	res, err := e.api.PostOrder(ctx, req)
	if err != nil {
		return "", fmt.Errorf("posting order: %w", err)
	}

	e.log.Info("order placed",
		"account", accountName,
		"ticker", ticker,
		"direction", direction,
		"type", req.Type,
		"order_id", res.OrderID,
	)
	return res.OrderID, nil
}

// Buy submits a buy order; nil price means market.
func (e *Executor) Buy(ctx context.Context, accountName, ticker string, quantity int64, price *float64) (string, error) {
	return e.PlaceOrder(ctx, accountName, ticker, quantity, domain.DirectionBuy, price)
}

// Sell submits a sell order; nil price means market.
func (e *Executor) Sell(ctx context.Context, accountName, ticker string, quantity int64, price *float64) (string, error) {
	return e.PlaceOrder(ctx, accountName, ticker, quantity, domain.DirectionSell, price)
}

// OrderState queries the broker for the current execution state of an
// order. Nothing is cached; every call re-queries.
func (e *Executor) OrderState(ctx context.Context, accountName, orderID string) (*State, error) {
	accountID, err := e.directory.Resolve(ctx, accountName)
	if err != nil {
		return nil, err
	}

	state, err := e.api.OrderState(ctx, accountID, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order %s: %w", orderID, err)
	}

	out := &State{
		OrderID:      orderID,
		Status:       state.Status,
		ExecutedLots: state.LotsExecuted,
	}
	if !state.ExecutedPrice.IsZero() {
		price := state.ExecutedPrice.Float64()
		out.Price = &price
	}
	return out, nil
}

// PlaceStopOrder submits a good-till-cancel conditional order. kind must
// be "stop-loss" or "take-profit". Direction is an explicit parameter:
// the Long*/Short* wrappers are sign-convention sugar only, and callers
// that need a different hedge direction state it here directly.
func (e *Executor) PlaceStopOrder(ctx context.Context, accountName, ticker string, quantity int64, stopPrice, execPrice float64, direction domain.StopOrderDirection, kind string) (string, error) {
	params := stopOrderParams{
		Quantity:  quantity,
		StopPrice: stopPrice,
		ExecPrice: execPrice,
		Kind:      kind,
	}
	if err := e.validate.Struct(params); err != nil {
		return "", fmt.Errorf("invalid stop order (kind must be %q or %q): %w", KindStopLoss, KindTakeProfit, err)
	}

	accountID, err := e.directory.Resolve(ctx, accountName)
	if err != nil {
		return "", err
	}
	figi, err := e.resolver.ResolveFIGI(ctx, ticker, domain.KindShare)
	if err != nil {
		return "", err
	}

	stopKind := domain.StopLoss
	if kind == KindTakeProfit {
		stopKind = domain.TakeProfit
	}

	stopOrderID, err := e.api.PostStopOrder(ctx, domain.StopOrderRequest{
		AccountID: accountID,
		FIGI:      figi,
		Quantity:  quantity,
		StopPrice: domain.QuotationFromFloat(stopPrice),
		ExecPrice: domain.QuotationFromFloat(execPrice),
		Direction: direction,
		Kind:      stopKind,
	})
	if err != nil {
		return "", fmt.Errorf("posting stop order: %w", err)
	}

	e.log.Info("stop order placed",
		"account", accountName,
		"ticker", ticker,
		"kind", kind,
		"direction", direction,
		"stop_order_id", stopOrderID,
	)
	return stopOrderID, nil
}

// LongStopLoss protects a long position: a sell triggered below the
// market.
func (e *Executor) LongStopLoss(ctx context.Context, accountName, ticker string, stopPrice, execPrice float64, quantity int64) (string, error) {
	return e.PlaceStopOrder(ctx, accountName, ticker, quantity, stopPrice, execPrice, domain.StopDirectionSell, KindStopLoss)
}

// LongTakeProfit closes a long position into strength: a sell triggered
// above the market.
func (e *Executor) LongTakeProfit(ctx context.Context, accountName, ticker string, stopPrice, execPrice float64, quantity int64) (string, error) {
	return e.PlaceStopOrder(ctx, accountName, ticker, quantity, stopPrice, execPrice, domain.StopDirectionSell, KindTakeProfit)
}

// ShortStopLoss protects a short position: a buy triggered above the
// market.
func (e *Executor) ShortStopLoss(ctx context.Context, accountName, ticker string, stopPrice, execPrice float64, quantity int64) (string, error) {
	return e.PlaceStopOrder(ctx, accountName, ticker, quantity, stopPrice, execPrice, domain.StopDirectionBuy, KindStopLoss)
}

// ShortTakeProfit closes a short position: a buy triggered below the
// market.
func (e *Executor) ShortTakeProfit(ctx context.Context, accountName, ticker string, stopPrice, execPrice float64, quantity int64) (string, error) {
	return e.PlaceStopOrder(ctx, accountName, ticker, quantity, stopPrice, execPrice, domain.StopDirectionBuy, KindTakeProfit)
}
