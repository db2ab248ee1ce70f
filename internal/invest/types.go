package invest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/makarsemyonov/TinkoffClient/internal/domain"
)

// int64String is an int64 that the gateway encodes as a JSON string
// (proto3 JSON mapping). Plain numbers are accepted too.
type int64String int64

func (v *int64String) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = 0
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*v = int64String(n)
	return nil
}

func (v int64String) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(v), 10))
}

// ---------------------------------------------------------------------------
// UsersService / OperationsService
// ---------------------------------------------------------------------------

type getAccountsResponse struct {
	Accounts []struct {
		ID         string    `json:"id"`
		Name       string    `json:"name"`
		OpenedDate time.Time `json:"openedDate"`
	} `json:"accounts"`
}

type getPortfolioRequest struct {
	AccountID string `json:"accountId"`
}

type portfolioPosition struct {
	FIGI           string            `json:"figi"`
	InstrumentType string            `json:"instrumentType"`
	Quantity       domain.Quotation  `json:"quantity"`
	AveragePrice   domain.MoneyValue `json:"averagePositionPrice"`
	CurrentPrice   domain.MoneyValue `json:"currentPrice"`
	ExpectedYield  domain.Quotation  `json:"expectedYield"`
}

type getPortfolioResponse struct {
	TotalAmountPortfolio domain.MoneyValue   `json:"totalAmountPortfolio"`
	Positions            []portfolioPosition `json:"positions"`
}

type getOperationsRequest struct {
	AccountID string    `json:"accountId"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
}

type operationWire struct {
	ID            string            `json:"id"`
	Date          time.Time         `json:"date"`
	OperationType string            `json:"operationType"`
	FIGI          string            `json:"figi"`
	Quantity      int64String       `json:"quantity"`
	Price         domain.MoneyValue `json:"price"`
	Payment       domain.MoneyValue `json:"payment"`
}

type getOperationsResponse struct {
	Operations []operationWire `json:"operations"`
}

// ---------------------------------------------------------------------------
// InstrumentsService
// ---------------------------------------------------------------------------

type instrumentsRequest struct {
	InstrumentStatus string `json:"instrumentStatus"`
}

type instrumentWire struct {
	FIGI           string `json:"figi"`
	Ticker         string `json:"ticker"`
	InstrumentType string `json:"instrumentType"`
	Currency       string `json:"currency"`
	Lot            int32  `json:"lot"`
	Name           string `json:"name"`
}

func (w instrumentWire) toDomain() domain.Instrument {
	kind := w.InstrumentType
	return domain.Instrument{
		FIGI:     w.FIGI,
		Ticker:   w.Ticker,
		Kind:     kind,
		Currency: w.Currency,
		Lot:      w.Lot,
		Name:     w.Name,
	}
}

type instrumentsResponse struct {
	Instruments []instrumentWire `json:"instruments"`
}

type findInstrumentRequest struct {
	Query string `json:"query"`
}

type getInstrumentByRequest struct {
	IDType string `json:"idType"`
	ID     string `json:"id"`
}

type getInstrumentByResponse struct {
	Instrument *instrumentWire `json:"instrument"`
}

type bondWire struct {
	FIGI                  string             `json:"figi"`
	Ticker                string             `json:"ticker"`
	Name                  string             `json:"name"`
	Currency              string             `json:"currency"`
	Lot                   int32              `json:"lot"`
	Nominal               *domain.MoneyValue `json:"nominal"`
	AciValue              *domain.MoneyValue `json:"aciValue"`
	CouponQuantityPerYear int32              `json:"couponQuantityPerYear"`
	MaturityDate          *time.Time         `json:"maturityDate"`
	Sector                string             `json:"sector"`
	FloatingCouponFlag    bool               `json:"floatingCouponFlag"`
	AmortizationFlag      bool               `json:"amortizationFlag"`
}

type bondByResponse struct {
	Instrument *bondWire `json:"instrument"`
}

type shareWire struct {
	FIGI          string       `json:"figi"`
	Ticker        string       `json:"ticker"`
	Name          string       `json:"name"`
	Currency      string       `json:"currency"`
	Lot           int32        `json:"lot"`
	Sector        string       `json:"sector"`
	CountryOfRisk string       `json:"countryOfRisk"`
	IPODate       *time.Time   `json:"ipoDate"`
	IssueSize     *int64String `json:"issueSize"`
	DivYieldFlag  bool         `json:"divYieldFlag"`
}

type shareByResponse struct {
	Instrument *shareWire `json:"instrument"`
}

type getBondCouponsRequest struct {
	FIGI string    `json:"figi"`
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type couponWire struct {
	FIGI         string            `json:"figi"`
	CouponDate   time.Time         `json:"couponDate"`
	CouponNumber int64String       `json:"couponNumber"`
	PayOneBond   domain.MoneyValue `json:"payOneBond"`
}

type getBondCouponsResponse struct {
	Events []couponWire `json:"events"`
}

// ---------------------------------------------------------------------------
// MarketDataService
// ---------------------------------------------------------------------------

type getOrderBookRequest struct {
	FIGI  string `json:"figi"`
	Depth int    `json:"depth"`
}

type orderBookLevelWire struct {
	Price    domain.Quotation `json:"price"`
	Quantity int64String      `json:"quantity"`
}

type getOrderBookResponse struct {
	FIGI      string               `json:"figi"`
	Depth     int                  `json:"depth"`
	Bids      []orderBookLevelWire `json:"bids"`
	Asks      []orderBookLevelWire `json:"asks"`
	LastPrice domain.Quotation     `json:"lastPrice"`
}

type getCandlesRequest struct {
	FIGI     string                `json:"figi"`
	From     time.Time             `json:"from"`
	To       time.Time             `json:"to"`
	Interval domain.CandleInterval `json:"interval"`
}

type candleWire struct {
	Open       domain.Quotation `json:"open"`
	High       domain.Quotation `json:"high"`
	Low        domain.Quotation `json:"low"`
	Close      domain.Quotation `json:"close"`
	Volume     int64String      `json:"volume"`
	Time       time.Time        `json:"time"`
	IsComplete bool             `json:"isComplete"`
}

type getCandlesResponse struct {
	Candles []candleWire `json:"candles"`
}

type getLastPricesRequest struct {
	FIGI []string `json:"figi"`
}

type lastPriceWire struct {
	FIGI  string           `json:"figi"`
	Price domain.Quotation `json:"price"`
	Time  time.Time        `json:"time"`
}

type getLastPricesResponse struct {
	LastPrices []lastPriceWire `json:"lastPrices"`
}

// ---------------------------------------------------------------------------
// OrdersService / StopOrdersService
// ---------------------------------------------------------------------------

type postOrderRequest struct {
	FIGI      string                `json:"figi"`
	Quantity  int64String           `json:"quantity"`
	Price     *domain.Quotation     `json:"price,omitempty"`
	Direction domain.OrderDirection `json:"direction"`
	AccountID string                `json:"accountId"`
	OrderType domain.OrderType      `json:"orderType"`
	OrderID   string                `json:"orderId"`
}

type postOrderResponse struct {
	OrderID               string `json:"orderId"`
	ExecutionReportStatus string `json:"executionReportStatus"`
}

type getOrderStateRequest struct {
	AccountID string `json:"accountId"`
	OrderID   string `json:"orderId"`
}

type getOrderStateResponse struct {
	OrderID               string            `json:"orderId"`
	ExecutionReportStatus string            `json:"executionReportStatus"`
	LotsExecuted          int64String       `json:"lotsExecuted"`
	ExecutedOrderPrice    domain.MoneyValue `json:"executedOrderPrice"`
}

type postStopOrderRequest struct {
	FIGI           string                    `json:"figi"`
	Quantity       int64String               `json:"quantity"`
	Price          domain.Quotation          `json:"price"`
	StopPrice      domain.Quotation          `json:"stopPrice"`
	Direction      domain.StopOrderDirection `json:"direction"`
	AccountID      string                    `json:"accountId"`
	ExpirationType string                    `json:"expirationType"`
	StopOrderType  domain.StopOrderKind      `json:"stopOrderType"`
}

type postStopOrderResponse struct {
	StopOrderID string `json:"stopOrderId"`
}
