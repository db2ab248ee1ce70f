package invest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/makarsemyonov/TinkoffClient/internal/domain"
	"github.com/makarsemyonov/TinkoffClient/internal/util"
)

// DefaultBaseURL is the production Invest API REST gateway.
const DefaultBaseURL = "https://invest-public-api.tinkoff.ru/rest"

const apiPrefix = "/tinkoff.public.invest.api.contract.v1."

// Compile-time interface check.
var _ API = (*Client)(nil)

// Client calls the Invest API REST gateway. Every method issues a fresh
// request; the only state carried across calls is the credential token and
// the rate limiter.
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	maxAttempts int
	limiter     *util.RateLimiter
	log         *slog.Logger
}

// ClientOpts configures a Client. Zero values select the production
// gateway, three attempts per call, and no rate limiting.
type ClientOpts struct {
	Token           string
	BaseURL         string
	MaxAttempts     int
	RateLimitPerMin int
}

// NewClient creates a Client for the given credential.
func NewClient(opts ClientOpts) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return &Client{
		baseURL: baseURL,
		token:   opts.Token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxAttempts: maxAttempts,
		limiter:     util.NewRateLimiter(opts.RateLimitPerMin),
		log:         slog.Default().With("component", "invest"),
	}
}

// call POSTs the request body to <baseURL>/tinkoff...v1.<service>/<method>
// and decodes the JSON response into out. Transport failures and 429/5xx
// responses are retried with backoff; other gateway failures surface as
// *APIError immediately.
func (c *Client) call(ctx context.Context, service, method string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding %s/%s request: %w", service, method, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	url := c.baseURL + apiPrefix + service + "/" + method

	return util.RetryIf(ctx, c.maxAttempts, 500*time.Millisecond, retryable, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		c.log.Debug("gateway call",
			"method", service+"/"+method,
			"status", resp.StatusCode,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)

		if resp.StatusCode != http.StatusOK {
			return decodeAPIError(resp)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s/%s response: %w", service, method, err)
		}
		return nil
	})
}

// retryable treats network errors and temporary gateway errors as worth
// another attempt.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == "" {
		payload.Message = string(body)
	}

	return &APIError{
		Status:  resp.StatusCode,
		Code:    payload.Code,
		Message: payload.Message,
	}
}

// ---------------------------------------------------------------------------
// UsersService / OperationsService
// ---------------------------------------------------------------------------

// GetAccounts returns all accounts visible to the credential. Balances are
// not filled here; the account directory combines this with portfolio
// totals.
func (c *Client) GetAccounts(ctx context.Context) ([]domain.Account, error) {
	var resp getAccountsResponse
	if err := c.call(ctx, "UsersService", "GetAccounts", struct{}{}, &resp); err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		accounts = append(accounts, domain.Account{
			ID:       a.ID,
			Name:     a.Name,
			OpenedAt: a.OpenedDate,
		})
	}
	return accounts, nil
}

// GetPortfolio returns the portfolio snapshot for one account.
func (c *Client) GetPortfolio(ctx context.Context, accountID string) (*domain.Portfolio, error) {
	var resp getPortfolioResponse
	if err := c.call(ctx, "OperationsService", "GetPortfolio", getPortfolioRequest{AccountID: accountID}, &resp); err != nil {
		return nil, err
	}

	p := &domain.Portfolio{
		TotalAmount: resp.TotalAmountPortfolio,
		Positions:   make([]domain.PortfolioPosition, 0, len(resp.Positions)),
	}
	for _, pos := range resp.Positions {
		p.Positions = append(p.Positions, domain.PortfolioPosition{
			FIGI:           pos.FIGI,
			InstrumentType: pos.InstrumentType,
			Quantity:       pos.Quantity,
			AveragePrice:   pos.AveragePrice,
			CurrentPrice:   pos.CurrentPrice,
			ExpectedYield:  pos.ExpectedYield,
		})
	}
	return p, nil
}

// Operations returns account operations within [from, to].
func (c *Client) Operations(ctx context.Context, accountID string, from, to time.Time) ([]domain.Operation, error) {
	req := getOperationsRequest{AccountID: accountID, From: from.UTC(), To: to.UTC()}
	var resp getOperationsResponse
	if err := c.call(ctx, "OperationsService", "GetOperations", req, &resp); err != nil {
		return nil, err
	}

	ops := make([]domain.Operation, 0, len(resp.Operations))
	for _, op := range resp.Operations {
		ops = append(ops, domain.Operation{
			ID:       op.ID,
			Date:     op.Date,
			Type:     op.OperationType,
			FIGI:     op.FIGI,
			Quantity: int64(op.Quantity),
			Price:    op.Price,
			Payment:  op.Payment,
		})
	}
	return ops, nil
}

// ---------------------------------------------------------------------------
// InstrumentsService
// ---------------------------------------------------------------------------

// Shares lists the base-status share universe.
func (c *Client) Shares(ctx context.Context) ([]domain.Instrument, error) {
	req := instrumentsRequest{InstrumentStatus: "INSTRUMENT_STATUS_BASE"}
	var resp instrumentsResponse
	if err := c.call(ctx, "InstrumentsService", "Shares", req, &resp); err != nil {
		return nil, err
	}

	instruments := make([]domain.Instrument, 0, len(resp.Instruments))
	for _, w := range resp.Instruments {
		inst := w.toDomain()
		if inst.Kind == "" {
			inst.Kind = string(domain.KindShare)
		}
		instruments = append(instruments, inst)
	}
	return instruments, nil
}

// FindInstrument performs a free-text instrument search.
func (c *Client) FindInstrument(ctx context.Context, query string) ([]domain.Instrument, error) {
	var resp instrumentsResponse
	if err := c.call(ctx, "InstrumentsService", "FindInstrument", findInstrumentRequest{Query: query}, &resp); err != nil {
		return nil, err
	}

	instruments := make([]domain.Instrument, 0, len(resp.Instruments))
	for _, w := range resp.Instruments {
		instruments = append(instruments, w.toDomain())
	}
	return instruments, nil
}

// InstrumentByFIGI looks an instrument up by its FIGI.
func (c *Client) InstrumentByFIGI(ctx context.Context, figi string) (*domain.Instrument, error) {
	req := getInstrumentByRequest{IDType: "INSTRUMENT_ID_TYPE_FIGI", ID: figi}
	var resp getInstrumentByResponse
	if err := c.call(ctx, "InstrumentsService", "GetInstrumentBy", req, &resp); err != nil {
		return nil, err
	}
	if resp.Instrument == nil {
		return nil, nil
	}
	inst := resp.Instrument.toDomain()
	return &inst, nil
}

// BondByFIGI returns the static reference data of a bond.
func (c *Client) BondByFIGI(ctx context.Context, figi string) (*domain.Bond, error) {
	req := getInstrumentByRequest{IDType: "INSTRUMENT_ID_TYPE_FIGI", ID: figi}
	var resp bondByResponse
	if err := c.call(ctx, "InstrumentsService", "BondBy", req, &resp); err != nil {
		return nil, err
	}
	if resp.Instrument == nil {
		return nil, nil
	}

	w := resp.Instrument
	return &domain.Bond{
		FIGI:             w.FIGI,
		Ticker:           w.Ticker,
		Name:             w.Name,
		Currency:         w.Currency,
		Lot:              w.Lot,
		Nominal:          w.Nominal,
		AccruedInterest:  w.AciValue,
		CouponsPerYear:   w.CouponQuantityPerYear,
		MaturityDate:     w.MaturityDate,
		Sector:           w.Sector,
		FloatingCoupon:   w.FloatingCouponFlag,
		AmortizationFlag: w.AmortizationFlag,
	}, nil
}

// ShareByFIGI returns the static reference data of a share.
func (c *Client) ShareByFIGI(ctx context.Context, figi string) (*domain.Share, error) {
	req := getInstrumentByRequest{IDType: "INSTRUMENT_ID_TYPE_FIGI", ID: figi}
	var resp shareByResponse
	if err := c.call(ctx, "InstrumentsService", "ShareBy", req, &resp); err != nil {
		return nil, err
	}
	if resp.Instrument == nil {
		return nil, nil
	}

	w := resp.Instrument
	share := &domain.Share{
		FIGI:          w.FIGI,
		Ticker:        w.Ticker,
		Name:          w.Name,
		Currency:      w.Currency,
		Lot:           w.Lot,
		Sector:        w.Sector,
		CountryOfRisk: w.CountryOfRisk,
		IPODate:       w.IPODate,
		DivYieldFlag:  w.DivYieldFlag,
	}
	if w.IssueSize != nil {
		size := int64(*w.IssueSize)
		share.IssueSize = &size
	}
	return share, nil
}

// BondCoupons returns the coupon events of a bond within [from, to].
func (c *Client) BondCoupons(ctx context.Context, figi string, from, to time.Time) ([]domain.Coupon, error) {
	req := getBondCouponsRequest{FIGI: figi, From: from.UTC(), To: to.UTC()}
	var resp getBondCouponsResponse
	if err := c.call(ctx, "InstrumentsService", "GetBondCoupons", req, &resp); err != nil {
		return nil, err
	}

	coupons := make([]domain.Coupon, 0, len(resp.Events))
	for _, e := range resp.Events {
		coupons = append(coupons, domain.Coupon{
			FIGI:       e.FIGI,
			CouponDate: e.CouponDate,
			Number:     int64(e.CouponNumber),
			PayOneBond: e.PayOneBond,
		})
	}
	return coupons, nil
}

// ---------------------------------------------------------------------------
// MarketDataService
// ---------------------------------------------------------------------------

// OrderBook returns a depth-limited order book snapshot.
func (c *Client) OrderBook(ctx context.Context, figi string, depth int) (*domain.OrderBook, error) {
	var resp getOrderBookResponse
	if err := c.call(ctx, "MarketDataService", "GetOrderBook", getOrderBookRequest{FIGI: figi, Depth: depth}, &resp); err != nil {
		return nil, err
	}

	ob := &domain.OrderBook{
		FIGI:      resp.FIGI,
		Depth:     resp.Depth,
		LastPrice: resp.LastPrice,
	}
	for _, lvl := range resp.Bids {
		ob.Bids = append(ob.Bids, domain.OrderBookLevel{Price: lvl.Price, Quantity: int64(lvl.Quantity)})
	}
	for _, lvl := range resp.Asks {
		ob.Asks = append(ob.Asks, domain.OrderBookLevel{Price: lvl.Price, Quantity: int64(lvl.Quantity)})
	}
	return ob, nil
}

// Candles returns raw candles for [from, to] at the given interval.
func (c *Client) Candles(ctx context.Context, figi string, from, to time.Time, interval domain.CandleInterval) ([]domain.Candle, error) {
	req := getCandlesRequest{FIGI: figi, From: from.UTC(), To: to.UTC(), Interval: interval}
	var resp getCandlesResponse
	if err := c.call(ctx, "MarketDataService", "GetCandles", req, &resp); err != nil {
		return nil, err
	}

	candles := make([]domain.Candle, 0, len(resp.Candles))
	for _, w := range resp.Candles {
		candles = append(candles, domain.Candle{
			Time:   w.Time,
			Open:   w.Open.Float64(),
			High:   w.High.Float64(),
			Low:    w.Low.Float64(),
			Close:  w.Close.Float64(),
			Volume: int64(w.Volume),
		})
	}
	return candles, nil
}

// LastPrices returns the latest traded prices for the given FIGIs.
func (c *Client) LastPrices(ctx context.Context, figis []string) ([]domain.LastPrice, error) {
	var resp getLastPricesResponse
	if err := c.call(ctx, "MarketDataService", "GetLastPrices", getLastPricesRequest{FIGI: figis}, &resp); err != nil {
		return nil, err
	}

	prices := make([]domain.LastPrice, 0, len(resp.LastPrices))
	for _, w := range resp.LastPrices {
		prices = append(prices, domain.LastPrice{FIGI: w.FIGI, Price: w.Price, Time: w.Time})
	}
	return prices, nil
}

// ---------------------------------------------------------------------------
// OrdersService / StopOrdersService
// ---------------------------------------------------------------------------

// PostOrder submits a market or limit order.
func (c *Client) PostOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	wire := postOrderRequest{
		FIGI:      req.FIGI,
		Quantity:  int64String(req.Quantity),
		Price:     req.Price,
		Direction: req.Direction,
		AccountID: req.AccountID,
		OrderType: req.Type,
		OrderID:   req.OrderID,
	}
	var resp postOrderResponse
	if err := c.call(ctx, "OrdersService", "PostOrder", wire, &resp); err != nil {
		return nil, err
	}
	return &domain.OrderResult{OrderID: resp.OrderID, Status: resp.ExecutionReportStatus}, nil
}

// OrderState queries the execution state of a placed order.
func (c *Client) OrderState(ctx context.Context, accountID, orderID string) (*domain.OrderState, error) {
	req := getOrderStateRequest{AccountID: accountID, OrderID: orderID}
	var resp getOrderStateResponse
	if err := c.call(ctx, "OrdersService", "GetOrderState", req, &resp); err != nil {
		return nil, err
	}
	return &domain.OrderState{
		OrderID:       resp.OrderID,
		Status:        resp.ExecutionReportStatus,
		LotsExecuted:  int64(resp.LotsExecuted),
		ExecutedPrice: resp.ExecutedOrderPrice,
	}, nil
}

// PostStopOrder submits a conditional order and returns its ID. Expiration
// is always good-till-cancel.
func (c *Client) PostStopOrder(ctx context.Context, req domain.StopOrderRequest) (string, error) {
	wire := postStopOrderRequest{
		FIGI:           req.FIGI,
		Quantity:       int64String(req.Quantity),
		Price:          req.ExecPrice,
		StopPrice:      req.StopPrice,
		Direction:      req.Direction,
		AccountID:      req.AccountID,
		ExpirationType: "STOP_ORDER_EXPIRATION_TYPE_GOOD_TILL_CANCEL",
		StopOrderType:  req.Kind,
	}
	var resp postStopOrderResponse
	if err := c.call(ctx, "StopOrdersService", "PostStopOrder", wire, &resp); err != nil {
		return "", err
	}
	return resp.StopOrderID, nil
}
