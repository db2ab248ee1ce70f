// Package domain defines the data types shared across the client: accounts,
// instruments, candles, orders, positions, and operations, plus the broker's
// fixed-point Quotation/MoneyValue representation.
package domain

import "time"

// ---------------------------------------------------------------------------
// Enums
// ---------------------------------------------------------------------------

// InstrumentKind distinguishes the instrument listings used for resolution.
type InstrumentKind string

const (
	KindShare InstrumentKind = "share"
	KindBond  InstrumentKind = "bond"
)

// OrderDirection is the trade side of an order.
type OrderDirection string

const (
	DirectionBuy  OrderDirection = "ORDER_DIRECTION_BUY"
	DirectionSell OrderDirection = "ORDER_DIRECTION_SELL"
)

// OrderType selects between market and limit execution.
type OrderType string

const (
	OrderTypeMarket OrderType = "ORDER_TYPE_MARKET"
	OrderTypeLimit  OrderType = "ORDER_TYPE_LIMIT"
)

// StopOrderDirection is the trade side of a conditional order.
type StopOrderDirection string

const (
	StopDirectionBuy  StopOrderDirection = "STOP_ORDER_DIRECTION_BUY"
	StopDirectionSell StopOrderDirection = "STOP_ORDER_DIRECTION_SELL"
)

// StopOrderKind selects the conditional order behaviour.
type StopOrderKind string

const (
	StopLoss   StopOrderKind = "STOP_ORDER_TYPE_STOP_LOSS"
	TakeProfit StopOrderKind = "STOP_ORDER_TYPE_TAKE_PROFIT"
)

// CandleInterval is the broker's candle granularity identifier.
type CandleInterval string

const (
	Interval1Min  CandleInterval = "CANDLE_INTERVAL_1_MIN"
	Interval5Min  CandleInterval = "CANDLE_INTERVAL_5_MIN"
	Interval15Min CandleInterval = "CANDLE_INTERVAL_15_MIN"
	IntervalHour  CandleInterval = "CANDLE_INTERVAL_HOUR"
	IntervalDay   CandleInterval = "CANDLE_INTERVAL_DAY"
	IntervalWeek  CandleInterval = "CANDLE_INTERVAL_WEEK"
	IntervalMonth CandleInterval = "CANDLE_INTERVAL_MONTH"
)

// operationLabels maps the broker's operation type identifiers onto the
// restricted label set reported in operation histories. Types outside the
// map collapse to an empty label.
var operationLabels = map[string]string{
	"OPERATION_TYPE_BUY":        "BUY",
	"OPERATION_TYPE_SELL":       "SELL",
	"OPERATION_TYPE_BROKER_FEE": "FEE",
	"OPERATION_TYPE_INP_MULTI":  "DEPOSIT",
	"OPERATION_TYPE_OUT_MULTI":  "WITHDRAW",
}

// OperationLabel returns the restricted label for a broker operation type,
// or "" when the type is not one of the mapped kinds.
func OperationLabel(brokerType string) string {
	return operationLabels[brokerType]
}

// ---------------------------------------------------------------------------
// Core types
// ---------------------------------------------------------------------------

// Account is a brokerage account visible to the credential.
type Account struct {
	ID       string
	Name     string
	OpenedAt time.Time
	Balance  float64 // total portfolio value, filled by the directory
}

// Instrument is the broker's view of a tradable instrument.
type Instrument struct {
	FIGI     string
	Ticker   string
	Kind     string // broker instrument type, e.g. "share", "bond"
	Currency string
	Lot      int32
	Name     string
}

// Candle is one OHLCV bar, prices reconstructed from the broker's
// units+nano representation.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// OrderBookLevel is one side entry of an order book snapshot.
type OrderBookLevel struct {
	Price    Quotation
	Quantity int64
}

// OrderBook is a depth-limited snapshot of the order book for one
// instrument.
type OrderBook struct {
	FIGI      string
	Depth     int
	Bids      []OrderBookLevel
	Asks      []OrderBookLevel
	LastPrice Quotation
}

// LastPrice is the latest traded price of an instrument.
type LastPrice struct {
	FIGI  string
	Price Quotation
	Time  time.Time
}

// OrderRequest carries everything needed to submit an order.
type OrderRequest struct {
	AccountID string
	FIGI      string
	Quantity  int64
	Direction OrderDirection
	Type      OrderType
	Price     *Quotation // nil for market orders
	OrderID   string     // client-generated idempotency key
}

// OrderResult is the broker's acknowledgement of a submitted order.
type OrderResult struct {
	OrderID string
	Status  string
}

// OrderState is the broker-reported execution state of an order.
type OrderState struct {
	OrderID       string
	Status        string
	LotsExecuted  int64
	ExecutedPrice MoneyValue
}

// StopOrderRequest carries everything needed to submit a conditional
// order. Expiration is always good-till-cancel.
type StopOrderRequest struct {
	AccountID string
	FIGI      string
	Quantity  int64
	StopPrice Quotation
	ExecPrice Quotation
	Direction StopOrderDirection
	Kind      StopOrderKind
}

// PortfolioPosition is one holding inside a portfolio snapshot.
type PortfolioPosition struct {
	FIGI           string
	InstrumentType string
	Quantity       Quotation
	AveragePrice   MoneyValue
	CurrentPrice   MoneyValue
	ExpectedYield  Quotation
}

// Portfolio is the broker's portfolio snapshot for one account.
type Portfolio struct {
	TotalAmount MoneyValue
	Positions   []PortfolioPosition
}

// Operation is one historical account operation as reported by the
// broker. Type carries the broker's raw identifier; use OperationLabel to
// map it onto the restricted set.
type Operation struct {
	ID       string
	Date     time.Time
	Type     string
	FIGI     string
	Quantity int64
	Price    MoneyValue
	Payment  MoneyValue
}

// Coupon is one bond coupon event.
type Coupon struct {
	FIGI       string
	CouponDate time.Time
	Number     int64
	PayOneBond MoneyValue
}

// Bond carries the static reference data of a bond. Optional fields are
// pointers so that "not provided" stays distinct from a zero value.
type Bond struct {
	FIGI             string
	Ticker           string
	Name             string
	Currency         string
	Lot              int32
	Nominal          *MoneyValue
	AccruedInterest  *MoneyValue
	CouponsPerYear   int32
	MaturityDate     *time.Time
	Sector           string
	FloatingCoupon   bool
	AmortizationFlag bool
}

// Share carries the static reference data of a share. Optional fields are
// pointers so that "not provided" stays distinct from a zero value.
type Share struct {
	FIGI          string
	Ticker        string
	Name          string
	Currency      string
	Lot           int32
	Sector        string
	CountryOfRisk string
	IPODate       *time.Time
	IssueSize     *int64
	DivYieldFlag  bool
}
