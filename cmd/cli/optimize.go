package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/patricknguyendev/simplygrocery/internal/analytics"
	"github.com/patricknguyendev/simplygrocery/internal/catalog"
	"github.com/patricknguyendev/simplygrocery/internal/database"
	"github.com/patricknguyendev/simplygrocery/internal/distance"
	"github.com/patricknguyendev/simplygrocery/internal/httpx"
	"github.com/patricknguyendev/simplygrocery/internal/httpx/ratelimit"
	"github.com/patricknguyendev/simplygrocery/internal/matcher"
	"github.com/patricknguyendev/simplygrocery/internal/optimizer"
)

var (
	optimizeLat       float64
	optimizeLon       float64
	optimizeStrategy  string
	optimizeMaxStores int
	optimizeRadiusKm  float64
)

// optimizeCmd represents the optimize command
var optimizeCmd = &cobra.Command{
	Use:   "optimize <item> [item...]",
	Short: "Plan a shopping trip for a list of items",
	Long: `Plan a shopping trip from the command line. Each argument is one
shopping list entry, optionally suffixed with a quantity as "milk:2".
Prints every generated plan with its route, totals, and savings.`,
	Example: `  simplygrocery optimize --lat 36.17 --lon -115.14 milk eggs bread
  simplygrocery optimize --lat 36.17 --lon -115.14 --strategy CHEAPEST "milk:2" eggs`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().Float64Var(&optimizeLat, "lat", 0, "Origin latitude (required)")
	optimizeCmd.Flags().Float64Var(&optimizeLon, "lon", 0, "Origin longitude (required)")
	optimizeCmd.Flags().StringVar(&optimizeStrategy, "strategy", "ALL", "Strategy: CHEAPEST, FASTEST, BALANCED, or ALL")
	optimizeCmd.Flags().IntVar(&optimizeMaxStores, "max-stores", 0, "Maximum stores per trip (0 uses the configured default)")
	optimizeCmd.Flags().Float64Var(&optimizeRadiusKm, "radius-km", 0, "Store search radius in km (0 uses the configured default)")
	optimizeCmd.MarkFlagRequired("lat")
	optimizeCmd.MarkFlagRequired("lon")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	items := make([]optimizer.ListItem, 0, len(args))
	for _, arg := range args {
		query, quantity := arg, 1
		if idx := strings.LastIndex(arg, ":"); idx > 0 {
			if parsed, err := strconv.Atoi(arg[idx+1:]); err == nil && parsed > 0 {
				query, quantity = arg[:idx], parsed
			}
		}
		items = append(items, optimizer.ListItem{Query: query, Quantity: quantity})
	}

	store := catalog.NewPostgres(database.Pool())

	httpClient := httpx.NewClient(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		MaxRetries:        cfg.RateLimit.MaxRetries,
		InitialBackoffMs:  cfg.RateLimit.InitialBackoffMs,
		MaxBackoffMs:      cfg.RateLimit.MaxBackoffMs,
	}, cfg.Distance.RequestTimeout)
	provider := distance.NewGoogleProvider(
		cfg.Distance.GoogleAPIKey,
		httpClient,
		distance.Limits{
			MaxOrigins:      cfg.Distance.MaxOrigins,
			MaxDestinations: cfg.Distance.MaxDestinations,
			MaxElements:     cfg.Distance.MaxElements,
		},
		distance.BreakerConfig{
			MaxFailures:  cfg.Distance.BreakerMaxFailures,
			ResetTimeout: cfg.Distance.BreakerResetTimeout,
		},
	)

	dispatcher := analytics.NewDispatcher(store)
	defer dispatcher.Wait()

	opt := optimizer.New(
		store,
		store,
		store,
		matcher.New(store, store, *logger),
		provider,
		dispatcher,
		&cfg.Optimizer,
	)

	req := &optimizer.Request{
		Origin: optimizer.Origin{Lat: optimizeLat, Lon: optimizeLon},
		Items:  items,
		Preferences: optimizer.Preferences{
			MaxStores:   optimizeMaxStores,
			MaxRadiusKm: optimizeRadiusKm,
			Strategy:    optimizer.Strategy(strings.ToUpper(optimizeStrategy)),
		},
	}

	result, err := opt.OptimizeTrip(ctx, req, nil)
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}

	printTripResult(result)
	return nil
}

func printTripResult(result *optimizer.TripResult) {
	fmt.Printf("Trip %s\n\n", result.TripID)

	if len(result.Unmatched) > 0 {
		queries := make([]string, 0, len(result.Unmatched))
		for _, u := range result.Unmatched {
			queries = append(queries, u.Query)
		}
		fmt.Printf("Unmatched items: %s\n\n", strings.Join(queries, ", "))
	}

	for _, saved := range result.Plans {
		plan := saved.Plan
		fmt.Printf("%s ($%.2f, %.2f km, %.0f min total)\n",
			plan.Label, plan.TotalPrice, plan.TotalDistanceKm, plan.EstimatedTotalTimeMin)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  #\tSTORE\tCHAIN\tITEMS\tLEG KM")
		for _, v := range plan.Visits {
			fmt.Fprintf(w, "  %d\t%s\t%s\t%d\t%.2f\n",
				v.OrderIndex+1, v.Store.Name, v.Store.Chain, v.ItemCount, v.DistanceFromPrevKm)
		}
		w.Flush()

		for chain, savings := range saved.Savings {
			if savings != nil {
				fmt.Printf("  vs %s: $%.2f\n", chain, *savings)
			}
		}
		fmt.Println()
	}
}
