package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makarsemyonov/TinkoffClient/internal/domain"
	"github.com/makarsemyonov/TinkoffClient/internal/invest/investtest"
)

func newFake() *investtest.Fake {
	return &investtest.Fake{
		GetAccountsFunc: func(ctx context.Context) ([]domain.Account, error) {
			return []domain.Account{
				{ID: "acc-1", Name: "Algo-Trade", OpenedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
				{ID: "acc-2", Name: "Stocks", OpenedAt: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)},
			}, nil
		},
		GetPortfolioFunc: func(ctx context.Context, accountID string) (*domain.Portfolio, error) {
			total := domain.MoneyValue{Quotation: domain.Quotation{Units: 150000, Nano: 500000000}, Currency: "rub"}
			if accountID == "acc-2" {
				total.Units = 42
				total.Nano = 0
			}
			return &domain.Portfolio{TotalAmount: total}, nil
		},
	}
}

func TestListFillsBalances(t *testing.T) {
	fake := newFake()
	dir := NewDirectory(fake)

	accounts, err := dir.List(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	assert.InDelta(t, 150000.5, accounts[0].Balance, 1e-9)
	assert.InDelta(t, 42.0, accounts[1].Balance, 1e-9)
	assert.Equal(t, 2, fake.Calls("GetPortfolio"), "one portfolio fetch per account")
}

func TestListTableColumns(t *testing.T) {
	dir := NewDirectory(newFake())

	tbl, err := dir.ListTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "opened_at", "balance_rub"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "acc-1", tbl.Rows[0][0])
	assert.Equal(t, "2024-03-01", tbl.Rows[0][2])
}

func TestResolveExactMatch(t *testing.T) {
	dir := NewDirectory(newFake())

	id, err := dir.Resolve(context.Background(), "Algo-Trade")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", id)
}

func TestResolveIsCaseSensitive(t *testing.T) {
	dir := NewDirectory(newFake())

	_, err := dir.Resolve(context.Background(), "algo-trade")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAccountNotFound))
}

func TestResolveUnknownNamesTheAccount(t *testing.T) {
	dir := NewDirectory(newFake())

	_, err := dir.Resolve(context.Background(), "Missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAccountNotFound))
	assert.Contains(t, err.Error(), "Missing")
}

func TestResolveAlwaysRelists(t *testing.T) {
	fake := newFake()
	dir := NewDirectory(fake)

	for i := 0; i < 3; i++ {
		_, err := dir.Resolve(context.Background(), "Stocks")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, fake.Calls("GetAccounts"))
}
