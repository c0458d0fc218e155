package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/homestead/homestead/internal/cache"
	"github.com/homestead/homestead/internal/exchange"
	"github.com/homestead/homestead/internal/service"
)

var (
	recurringRedisURL    string
	recurringExchangeURL string
)

var recurringCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Recurring cospend payments",
}

var recurringRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute every due recurring payment once",
	Long: `Execute every due recurring payment for all users, the same pass the
server's scheduler makes each interval. Balance caches are invalidated when
--redis-url or $REDIS_URL is set.`,
	RunE: runRecurring,
}

func runRecurring(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	repo, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	var balances service.CospendCache
	if recurringRedisURL != "" {
		c, err := cache.New(ctx, recurringRedisURL)
		if err != nil {
			return err
		}
		defer c.Close()
		balances = c
	}

	rates := exchange.NewClient(recurringExchangeURL, exchange.NewHTTPClient(exchange.ClientTimeout))
	converter := exchange.NewConverter(repo, rates, logger, nil)

	svc := service.NewRecurringService(repo, balances, converter, logger, nil)
	run, err := svc.ExecuteAllDue(ctx, time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, res := range run.Results {
		status := "ok"
		if !res.Success {
			status = "failed: " + res.Error
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%s\n", res.Title, res.Amount, status)
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "%d processed, %d successful, %d failed\n", run.Processed, run.Successful, run.Failed)

	if run.Failed > 0 {
		return fmt.Errorf("%d recurring payments failed", run.Failed)
	}
	return nil
}

func init() {
	recurringRunCmd.Flags().StringVar(&recurringRedisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis connection string for cache invalidation")
	recurringRunCmd.Flags().StringVar(&recurringExchangeURL, "exchange-url", "https://api.frankfurter.app", "exchange rate API")

	recurringCmd.AddCommand(recurringRunCmd)
	rootCmd.AddCommand(recurringCmd)
}
