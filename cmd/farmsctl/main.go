package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sofiabaracatlj/fiap-farms/internal/config"
	"github.com/sofiabaracatlj/fiap-farms/internal/dashboard"
	"github.com/sofiabaracatlj/fiap-farms/internal/infra"
	"github.com/sofiabaracatlj/fiap-farms/internal/ledger"
	"github.com/sofiabaracatlj/fiap-farms/internal/session"
)

var (
	cfg *config.Config

	dashMonth int
	dashYear  int

	rootCmd = &cobra.Command{
		Use:   "farmsctl",
		Short: "Operational CLI for the FIAP Farms backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
			c, err := config.Load()
			if err != nil {
				return err
			}
			cfg = c
			return nil
		},
		SilenceUsage: true,
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Insert demo products, inventory, sales and goals",
		RunE:  runSeed,
	}

	dashboardCmd = &cobra.Command{
		Use:   "dashboard",
		Short: "Compute the dashboard snapshot for a month and print it as JSON",
		RunE:  runDashboard,
	}

	sessionCmd = &cobra.Command{
		Use:   "session",
		Short: "Inspect the persisted identity session",
	}
	sessionStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Attempt a session recovery and print the diagnostics",
		RunE:  runSessionStatus,
	}

	ledgerCmd = &cobra.Command{
		Use:   "ledger",
		Short: "Accounts and transactions",
	}
	ledgerDemoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Run a deposit/withdraw sequence on a scratch account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerDemo(cmd.OutOrStdout())
		},
	}
)

func init() {
	now := time.Now()
	dashboardCmd.Flags().IntVar(&dashMonth, "month", int(now.Month()), "month (1-12)")
	dashboardCmd.Flags().IntVar(&dashYear, "year", now.Year(), "year")

	sessionCmd.AddCommand(sessionStatusCmd)
	ledgerCmd.AddCommand(ledgerDemoCmd)
	rootCmd.AddCommand(seedCmd, dashboardCmd, sessionCmd, ledgerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, closeStore, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := seedDemo(ctx, store, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products, %d sales, %d goals\n", res.Products, res.Sales, res.Goals)
	return nil
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, closeStore, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	agg := dashboard.NewAggregator(dashboard.StoreSources(store),
		dashboard.WithQueryTimeout(cfg.DashboardQueryTimeout))
	snap, err := agg.ComputeDashboard(ctx, dashMonth, dashYear)
	if snap != nil {
		if encErr := printJSON(cmd.OutOrStdout(), snap); encErr != nil {
			return encErr
		}
	}
	return err
}

func runSessionStatus(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	var rdb *redis.Client
	if cfg.SessionCache == config.CacheRedis {
		c, err := infra.NewRedis(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer c.Close()
		rdb = c
	}
	cache, closeCache, err := infra.OpenSessionCache(cfg, rdb)
	if err != nil {
		return err
	}
	defer closeCache()

	identity := infra.NewIdentityClient(infra.IdentityClientConfig{
		APIKey:         cfg.FirebaseAPIKey,
		BaseURL:        cfg.IdentityBaseURL,
		SecureTokenURL: cfg.SecureTokenURL,
		RatePerSecond:  cfg.IdentityRateLimit,
	}, nil)
	recovery := session.NewRecovery(identity, cache, session.WithConfigValid(cfg.FirebaseConfigValid()))
	recovery.InitializeFromCache(ctx)
	return printJSON(cmd.OutOrStdout(), recovery.Diagnostics(ctx))
}

func runLedgerDemo(w io.Writer) error {
	store := ledger.NewStore("0001", "Conta Demo", decimal.Zero)
	steps := []struct {
		kind   ledger.Kind
		amount string
		desc   string
		to     string
	}{
		{ledger.KindDeposit, "1500.00", "Venda de hortaliças", ""},
		{ledger.KindWithdraw, "320.50", "Compra de sementes", ""},
		{ledger.KindTransfer, "200.00", "Frete", "Cooperativa Vale Verde"},
		{ledger.KindWithdraw, "5000.00", "Trator", ""},
	}
	for _, s := range steps {
		if _, err := store.Apply(s.kind, decimal.RequireFromString(s.amount), s.desc, s.to); err != nil {
			fmt.Fprintf(w, "%-8s %10s  rejected: %v\n", s.kind, s.amount, err)
			continue
		}
		fmt.Fprintf(w, "%-8s %10s  ok\n", s.kind, s.amount)
	}
	return printJSON(w, store.Snapshot())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
