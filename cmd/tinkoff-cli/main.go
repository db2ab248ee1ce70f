// Command tinkoff-cli is a terminal front end for the Tinkoff Invest
// convenience client: account listing, quotes and candle history, order
// and stop-order placement, and portfolio reports.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/makarsemyonov/TinkoffClient/internal/account"
	"github.com/makarsemyonov/TinkoffClient/internal/config"
	"github.com/makarsemyonov/TinkoffClient/internal/instrument"
	"github.com/makarsemyonov/TinkoffClient/internal/invest"
	"github.com/makarsemyonov/TinkoffClient/internal/market"
	"github.com/makarsemyonov/TinkoffClient/internal/portfolio"
	"github.com/makarsemyonov/TinkoffClient/internal/trade"
	"github.com/makarsemyonov/TinkoffClient/internal/util"
)

// app holds the wired services shared by every subcommand.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	accounts *account.Directory
	market   *market.Reader
	trade    *trade.Executor
	reporter *portfolio.Reporter
}

func (a *app) init(configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	log := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	token, err := config.LoadToken(cfg.Invest.TokenFile)
	if err != nil {
		return err
	}

	api := invest.NewClient(invest.ClientOpts{
		Token:           token,
		BaseURL:         cfg.Invest.BaseURL,
		MaxAttempts:     cfg.Invest.MaxAttempts,
		RateLimitPerMin: cfg.Invest.RateLimitPerMin,
	})

	directory := account.NewDirectory(api)
	resolver := instrument.NewResolver(api)
	reader := market.NewReader(api, resolver)

	a.cfg = cfg
	a.log = log
	a.accounts = directory
	a.market = reader
	a.trade = trade.NewExecutor(api, directory, resolver)
	a.reporter = portfolio.NewReporter(api, directory, resolver, reader)
	return nil
}

// parseTime accepts a date or a full RFC 3339 timestamp.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: expected 2006-01-02 or RFC 3339", s)
	}
	return t, nil
}

func main() {
	var (
		a          app
		configPath string
	)

	root := &cobra.Command{
		Use:           "tinkoff-cli",
		Short:         "Tinkoff Invest convenience client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	root.AddCommand(
		accountsCmd(&a),
		priceCmd(&a),
		historyCmd(&a),
		orderCmd(&a, "buy"),
		orderCmd(&a, "sell"),
		orderStateCmd(&a),
		stopCmd(&a, trade.KindStopLoss),
		stopCmd(&a, trade.KindTakeProfit),
		positionsCmd(&a),
		operationsCmd(&a),
		bondsCmd(&a),
		stocksCmd(&a),
		bondCmd(&a),
		stockCmd(&a),
		rateCmd(&a),
		convertCmd(&a),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func accountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List accounts with their RUB balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := a.accounts.ListTable(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tbl.Render())
			return nil
		},
	}
}

func priceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "price <ticker>",
		Short: "Print the current market price of a share",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := a.market.CurrentPrice(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", price)
			return nil
		},
	}
}

func historyCmd(a *app) *cobra.Command {
	var fromArg, toArg, interval string

	cmd := &cobra.Command{
		Use:   "history <ticker>",
		Short: "Print candle history for a share",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseTime(fromArg)
			if err != nil {
				return err
			}
			to := time.Now()
			if toArg != "" {
				if to, err = parseTime(toArg); err != nil {
					return err
				}
			}

			tbl, err := a.market.HistoryTable(cmd.Context(), args[0], from, to, interval)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tbl.Render())
			return nil
		},
	}
	cmd.Flags().StringVar(&fromArg, "from", "", "start of the range (required)")
	cmd.Flags().StringVar(&toArg, "to", "", "end of the range (default: now)")
	cmd.Flags().StringVar(&interval, "interval", "1d", "candle interval: 1m 5m 15m 1h 1d 1w 1mo")
	cmd.MarkFlagRequired("from")
	return cmd
}

func orderCmd(a *app, direction string) *cobra.Command {
	var (
		accountName string
		quantity    int64
		price       float64
	)

	cmd := &cobra.Command{
		Use:   direction + " <ticker>",
		Short: "Place a " + direction + " order (market unless --price is given)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var limit *float64
			if cmd.Flags().Changed("price") {
				limit = &price
			}

			place := a.trade.Buy
			if direction == "sell" {
				place = a.trade.Sell
			}
			orderID, err := place(cmd.Context(), accountName, args[0], quantity, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), orderID)
			return nil
		},
	}
	cmd.Flags().StringVar(&accountName, "account", "", "account name (required)")
	cmd.Flags().Int64Var(&quantity, "quantity", 1, "number of lots")
	cmd.Flags().Float64Var(&price, "price", 0, "limit price; omit for a market order")
	cmd.MarkFlagRequired("account")
	return cmd
}

func orderStateCmd(a *app) *cobra.Command {
	var accountName string

	cmd := &cobra.Command{
		Use:   "order-state <order-id>",
		Short: "Show the execution state of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := a.trade.OrderState(cmd.Context(), accountName, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "order:          %s\n", state.OrderID)
			fmt.Fprintf(out, "status:         %s\n", state.Status)
			fmt.Fprintf(out, "executed lots:  %d\n", state.ExecutedLots)
			if state.Price != nil {
				fmt.Fprintf(out, "executed price: %.2f\n", *state.Price)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&accountName, "account", "", "account name (required)")
	cmd.MarkFlagRequired("account")
	return cmd
}

func stopCmd(a *app, kind string) *cobra.Command {
	var (
		accountName string
		quantity    int64
		stopPrice   float64
		execPrice   float64
		short       bool
	)

	cmd := &cobra.Command{
		Use:   kind + " <ticker>",
		Short: "Place a good-till-cancel " + kind + " order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("exec-price") {
				execPrice = stopPrice
			}

			place := a.trade.LongStopLoss
			switch {
			case kind == trade.KindStopLoss && short:
				place = a.trade.ShortStopLoss
			case kind == trade.KindTakeProfit && !short:
				place = a.trade.LongTakeProfit
			case kind == trade.KindTakeProfit && short:
				place = a.trade.ShortTakeProfit
			}

			stopOrderID, err := place(cmd.Context(), accountName, args[0], stopPrice, execPrice, quantity)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stopOrderID)
			return nil
		},
	}
	cmd.Flags().StringVar(&accountName, "account", "", "account name (required)")
	cmd.Flags().Int64Var(&quantity, "quantity", 1, "number of lots")
	cmd.Flags().Float64Var(&stopPrice, "stop-price", 0, "trigger price (required)")
	cmd.Flags().Float64Var(&execPrice, "exec-price", 0, "execution price (default: trigger price)")
	cmd.Flags().BoolVar(&short, "short", false, "hedge a short position instead of a long one")
	cmd.MarkFlagRequired("account")
	cmd.MarkFlagRequired("stop-price")
	return cmd
}

func positionsCmd(a *app) *cobra.Command {
	var accountName string

	cmd := &cobra.Command{
		Use:   "positions",
		Short: "List open positions sorted by expected yield",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := a.reporter.PositionsTable(cmd.Context(), accountName)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tbl.Render())
			return nil
		},
	}
	cmd.Flags().StringVar(&accountName, "account", "", "account name (required)")
	cmd.MarkFlagRequired("account")
	return cmd
}

func operationsCmd(a *app) *cobra.Command {
	var accountName, fromArg, toArg string

	cmd := &cobra.Command{
		Use:   "operations",
		Short: "List account operations in a time range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseTime(fromArg)
			if err != nil {
				return err
			}
			to := time.Now()
			if toArg != "" {
				if to, err = parseTime(toArg); err != nil {
					return err
				}
			}

			tbl, err := a.reporter.OperationsHistory(cmd.Context(), accountName, from, to)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tbl.Render())
			return nil
		},
	}
	cmd.Flags().StringVar(&accountName, "account", "", "account name (required)")
	cmd.Flags().StringVar(&fromArg, "from", "", "start of the range (required)")
	cmd.Flags().StringVar(&toArg, "to", "", "end of the range (default: now)")
	cmd.MarkFlagRequired("account")
	cmd.MarkFlagRequired("from")
	return cmd
}

func bondsCmd(a *app) *cobra.Command {
	var (
		accountName string
		summary     bool
	)

	cmd := &cobra.Command{
		Use:   "bonds",
		Short: "List bond holdings with coupon economics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if summary {
				return a.reporter.BondsSummary(cmd.Context(), accountName, out)
			}

			holdings, err := a.reporter.Bonds(cmd.Context(), accountName)
			if err != nil {
				return err
			}
			for _, h := range holdings {
				fmt.Fprintf(out, "%-14s %-24s qty=%.0f avg=%.2f coupon/mo=%.2f\n",
					h.Ticker, h.Name, h.Quantity, h.AveragePrice, h.MonthlyCoupon)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&accountName, "account", "", "account name (required)")
	cmd.Flags().BoolVar(&summary, "summary", false, "print aggregate totals instead of rows")
	cmd.MarkFlagRequired("account")
	return cmd
}

func stocksCmd(a *app) *cobra.Command {
	var (
		accountName string
		summary     bool
	)

	cmd := &cobra.Command{
		Use:   "stocks",
		Short: "List share holdings with live prices and gains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if summary {
				return a.reporter.StocksSummary(cmd.Context(), accountName, out)
			}

			holdings, err := a.reporter.Stocks(cmd.Context(), accountName)
			if err != nil {
				return err
			}
			for _, h := range holdings {
				fmt.Fprintf(out, "%-8s %-24s qty=%.0f avg=%.2f live=%.2f gain=%+.2f\n",
					h.Ticker, h.Name, h.Quantity, h.AveragePrice, h.LivePrice, h.Gain)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&accountName, "account", "", "account name (required)")
	cmd.Flags().BoolVar(&summary, "summary", false, "print aggregate totals instead of rows")
	cmd.MarkFlagRequired("account")
	return cmd
}

func bondCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bond <ticker>",
		Short: "Show bond reference data and the monthly coupon estimate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.market.Bond(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name:            %s\n", info.Name)
			fmt.Fprintf(out, "figi:            %s\n", info.FIGI)
			fmt.Fprintf(out, "currency:        %s\n", info.Currency)
			fmt.Fprintf(out, "coupons/year:    %d\n", info.CouponsPerYear)
			if info.Nominal != nil {
				fmt.Fprintf(out, "nominal:         %.2f\n", info.Nominal.Float64())
			}
			if info.MaturityDate != nil {
				fmt.Fprintf(out, "maturity:        %s\n", info.MaturityDate.Format("2006-01-02"))
			}
			fmt.Fprintf(out, "coupon/month:    %.2f\n", info.MonthlyCoupon)
			return nil
		},
	}
}

func stockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stock <ticker>",
		Short: "Show share reference data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.market.Stock(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name:      %s\n", info.Name)
			fmt.Fprintf(out, "figi:      %s\n", info.FIGI)
			fmt.Fprintf(out, "currency:  %s\n", info.Currency)
			fmt.Fprintf(out, "lot:       %d\n", info.Lot)
			fmt.Fprintf(out, "sector:    %s\n", info.Sector)
			if info.IssueSize != nil {
				fmt.Fprintf(out, "issued:    %d\n", *info.IssueSize)
			}
			return nil
		},
	}
}

func rateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <from> <to>",
		Short: "Print the exchange rate between two currencies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := a.market.Rate(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", rate)
			return nil
		},
	}
}

func convertCmd(a *app) *cobra.Command {
	var amount float64

	cmd := &cobra.Command{
		Use:   "convert <from> <to>",
		Short: "Convert an amount between two currencies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.market.Convert(cmd.Context(), args[0], args[1], amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", out)
			return nil
		},
	}
	cmd.Flags().Float64Var(&amount, "amount", 1, "amount to convert")
	return cmd
}
