package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wolfman30/tablebook/cmd/mainconfig"
	"github.com/wolfman30/tablebook/internal/availability"
	appconfig "github.com/wolfman30/tablebook/internal/config"
	"github.com/wolfman30/tablebook/internal/restaurantapi"
	"github.com/wolfman30/tablebook/pkg/logging"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

// globalFlags override the environment for one invocation.
type globalFlags struct {
	apiURL   string
	timezone string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "tablebookctl",
		Short:         "Operator tools for the tablebook reservation form",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.apiURL, "api-url", "", "restaurant API base URL (default $RESTAURANT_API_URL)")
	root.PersistentFlags().StringVar(&flags.timezone, "timezone", "", "restaurant timezone (default $RESTAURANT_TIMEZONE)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log upstream calls to stderr")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newCountriesCmd())
	root.AddCommand(newCheckCmd(flags))
	root.AddCommand(newSlotsCmd(flags))
	root.AddCommand(newBookCmd(flags))
	return root
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env bundles what the network commands need.
type env struct {
	cfg    *appconfig.Config
	logger *logging.Logger
	api    restaurantapi.API
	slots  *availability.Reconciler
}

func (f *globalFlags) load(cmd *cobra.Command) *env {
	cfg := appconfig.Load()
	if f.apiURL != "" {
		cfg.RestaurantAPIURL = strings.TrimRight(f.apiURL, "/")
	}
	if f.timezone != "" {
		cfg.RestaurantTimezone = f.timezone
	}
	level := "warn"
	if f.verbose {
		level = "debug"
	}
	logger := logging.NewWithOptions(logging.Options{Level: level, Format: "text", Writer: cmd.ErrOrStderr()})

	// The CLI is short-lived; it always talks to the API directly.
	cfg.RedisAddr = ""
	api, _ := mainconfig.NewRestaurantAPI(cmd.Context(), cfg, nil, logger)
	slots := availability.NewReconciler(api, logger,
		availability.WithLocation(cfg.Location()),
		availability.WithLead(cfg.SameDayLead),
	)
	return &env{cfg: cfg, logger: logger, api: api, slots: slots}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tablebookctl %s (commit=%s, built=%s)\n", Version, CommitSHA, BuildDate)
		},
	}
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
