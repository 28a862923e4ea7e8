// Package cli implements the mealplanctl command line tool
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alchemorsel/mealplanner/internal/infrastructure/container"
	"github.com/alchemorsel/mealplanner/internal/ports/inbound"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// ServiceFactory builds the meal plan service and returns a function that
// releases its resources
type ServiceFactory func(ctx context.Context, configPath string) (inbound.MealPlanService, func(), error)

// Execute runs the root command
func Execute() error {
	return NewRootCmd(newService, os.Stdout).Execute()
}

// NewRootCmd builds the command tree writing results to out
func NewRootCmd(factory ServiceFactory, out io.Writer) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "mealplanctl",
		Short: "Generate and inspect meal plans",
		Long: `mealplanctl generates multi-day meal plans with the same engine as the
API server, either from a natural-language request or from explicit constraints.

  mealplanctl generate --query "3-day vegan plan, no mushrooms"
  mealplanctl generate --days 2 --meal breakfast --meal dinner --restriction vegan --output yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("MEALPLANNER_CONFIG"), "path to the configuration file")

	connect := func(ctx context.Context) (inbound.MealPlanService, func(), error) {
		return factory(ctx, configPath)
	}

	rootCmd.AddCommand(newGenerateCmd(connect))
	rootCmd.AddCommand(newHistoryCmd(connect))
	rootCmd.AddCommand(newModesCmd())
	return rootCmd
}

type connectFunc func(ctx context.Context) (inbound.MealPlanService, func(), error)

// newService starts the core dependency graph without the HTTP server
func newService(ctx context.Context, configPath string) (inbound.MealPlanService, func(), error) {
	var service inbound.MealPlanService
	app := fx.New(
		fx.NopLogger,
		fx.Supply(container.ConfigPath(configPath)),
		container.CoreModule,
		fx.Populate(&service),
	)
	if err := app.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("start planner: %w", err)
	}

	stop := func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
	}
	return service, stop, nil
}
