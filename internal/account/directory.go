// Package account resolves human-readable account names to the broker's
// opaque account identifiers.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/makarsemyonov/TinkoffClient/internal/domain"
	"github.com/makarsemyonov/TinkoffClient/internal/invest"
	"github.com/makarsemyonov/TinkoffClient/internal/table"
)

// ErrAccountNotFound is returned when no listed account carries the
// requested name.
var ErrAccountNotFound = errors.New("account not found")

// Columns is the fixed column set of the account listing.
var Columns = []string{"id", "name", "opened_at", "balance_rub"}

// Directory lists accounts and resolves names to identifiers. Results are
// sourced fresh from the broker on every call; nothing is cached.
type Directory struct {
	api invest.API
	log *slog.Logger
}

// NewDirectory creates a Directory over the given API.
func NewDirectory(api invest.API) *Directory {
	return &Directory{
		api: api,
		log: slog.Default().With("component", "account"),
	}
}

// List returns all accounts visible to the credential. For each account a
// portfolio snapshot supplies the total value as the balance.
func (d *Directory) List(ctx context.Context) ([]domain.Account, error) {
	accounts, err := d.api.GetAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	for i := range accounts {
		portfolio, err := d.api.GetPortfolio(ctx, accounts[i].ID)
		if err != nil {
			return nil, fmt.Errorf("fetching portfolio for account %s: %w", accounts[i].ID, err)
		}
		accounts[i].Balance = portfolio.TotalAmount.Float64()
	}
	return accounts, nil
}

// ListTable returns the account listing as a table with the fixed column
// set {id, name, opened_at, balance_rub}.
func (d *Directory) ListTable(ctx context.Context) (*table.Table, error) {
	accounts, err := d.List(ctx)
	if err != nil {
		return nil, err
	}

	tbl := table.New(Columns...)
	for _, acc := range accounts {
		tbl.Append(
			acc.ID,
			acc.Name,
			table.FormatDate(acc.OpenedAt),
			table.FormatFloat(acc.Balance),
		)
	}
	return tbl, nil
}

// Resolve returns the identifier of the first account whose name equals
// name exactly (case-sensitive). The listing is refreshed on every call.
func (d *Directory) Resolve(ctx context.Context, name string) (string, error) {
	accounts, err := d.List(ctx)
	if err != nil {
		return "", err
	}

	for _, acc := range accounts {
		if acc.Name == name {
			return acc.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrAccountNotFound, name)
}
