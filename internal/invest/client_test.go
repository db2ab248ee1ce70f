package invest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makarsemyonov/TinkoffClient/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientOpts{
		Token:       "test-token",
		BaseURL:     srv.URL,
		MaxAttempts: 2,
	})
}

func TestGetAccounts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tinkoff.public.invest.api.contract.v1.UsersService/GetAccounts", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"accounts":[
			{"id":"acc-1","name":"Algo-Trade","openedDate":"2024-03-01T00:00:00Z"},
			{"id":"acc-2","name":"Stocks","openedDate":"2023-01-15T00:00:00Z"}
		]}`))
	})

	accounts, err := client.GetAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "acc-1", accounts[0].ID)
	assert.Equal(t, "Algo-Trade", accounts[0].Name)
	assert.Equal(t, 2024, accounts[0].OpenedAt.Year())
}

func TestGetPortfolioDecodesStringUnits(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"totalAmountPortfolio":{"units":"150000","nano":500000000,"currency":"rub"},
			"positions":[{
				"figi":"BBG004730N88",
				"instrumentType":"share",
				"quantity":{"units":"10","nano":0},
				"averagePositionPrice":{"units":"250","nano":0,"currency":"rub"},
				"currentPrice":{"units":"306","nano":250000000,"currency":"rub"},
				"expectedYield":{"units":"562","nano":500000000}
			}]
		}`))
	})

	p, err := client.GetPortfolio(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.InDelta(t, 150000.5, p.TotalAmount.Float64(), 1e-9)
	require.Len(t, p.Positions, 1)
	assert.InDelta(t, 306.25, p.Positions[0].CurrentPrice.Float64(), 1e-9)
}

func TestCandles(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tinkoff.public.invest.api.contract.v1.MarketDataService/GetCandles", r.URL.Path)
		w.Write([]byte(`{"candles":[{
			"open":{"units":"305","nano":0},
			"high":{"units":"308","nano":500000000},
			"low":{"units":"304","nano":0},
			"close":{"units":"306","nano":0},
			"volume":"12345",
			"time":"2026-01-15T10:00:00Z",
			"isComplete":true
		}]}`))
	})

	candles, err := client.Candles(context.Background(), "BBG004730N88",
		time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC),
		domain.IntervalHour,
	)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.InDelta(t, 308.5, candles[0].High, 1e-9)
	assert.Equal(t, int64(12345), candles[0].Volume)
}

func TestAPIErrorNotRetried(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"30042","message":"instrument not found"}`))
	})

	_, err := client.OrderBook(context.Background(), "bogus", 1)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "30042", apiErr.Code)
	assert.Equal(t, 1, calls, "client errors must not be retried")
}

func TestServerErrorRetried(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"lastPrices":[{"figi":"BBG0013HGFT4","price":{"units":"92","nano":500000000},"time":"2026-01-15T10:00:00Z"}]}`))
	})

	prices, err := client.LastPrices(context.Background(), []string{"BBG0013HGFT4"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, prices, 1)
	assert.InDelta(t, 92.5, prices[0].Price.Float64(), 1e-9)
}

func TestPostOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tinkoff.public.invest.api.contract.v1.OrdersService/PostOrder", r.URL.Path)
		w.Write([]byte(`{"orderId":"order-42","executionReportStatus":"EXECUTION_REPORT_STATUS_NEW"}`))
	})

	price := domain.QuotationFromFloat(306)
	res, err := client.PostOrder(context.Background(), domain.OrderRequest{
		AccountID: "acc-1",
		FIGI:      "BBG004730N88",
		Quantity:  1,
		Direction: domain.DirectionBuy,
		Type:      domain.OrderTypeLimit,
		Price:     &price,
		OrderID:   "client-key",
	})
	require.NoError(t, err)
	assert.Equal(t, "order-42", res.OrderID)
	assert.Equal(t, "EXECUTION_REPORT_STATUS_NEW", res.Status)
}

func TestPostStopOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tinkoff.public.invest.api.contract.v1.StopOrdersService/PostStopOrder", r.URL.Path)
		w.Write([]byte(`{"stopOrderId":"stop-7"}`))
	})

	id, err := client.PostStopOrder(context.Background(), domain.StopOrderRequest{
		AccountID: "acc-1",
		FIGI:      "BBG004730N88",
		Quantity:  1,
		StopPrice: domain.QuotationFromFloat(300),
		ExecPrice: domain.QuotationFromFloat(300),
		Direction: domain.StopDirectionSell,
		Kind:      domain.StopLoss,
	})
	require.NoError(t, err)
	assert.Equal(t, "stop-7", id)
}
