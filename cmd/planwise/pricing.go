package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/planwise/planwise/internal/pricing"
)

func pricingCMD(cfgPath *string) *cobra.Command {
	var params pricing.Params
	cmd := &cobra.Command{
		Use:   "pricing <query>",
		Short: "Run a one-off pricing lookup and print the normalized response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(*cfgPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			if params.Limit <= 0 {
				params.Limit = cfg.Pricing.Limit
			}
			params.Query = strings.Join(args, " ")
			lookup := pricing.NewSerpAPI(pricing.SerpAPIOptions{
				APIKey:   cfg.Pricing.SerpAPIKey,
				Endpoint: cfg.Pricing.Endpoint,
				Timeout:  cfg.Pricing.Timeout,
				Logger:   log,
			})
			resp := lookup.Search(cmd.Context(), params)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	cmd.Flags().StringVar(&params.Location, "location", "", "location hint")
	cmd.Flags().StringVar(&params.Currency, "currency", "USD", "ISO 4217 currency code")
	cmd.Flags().IntVar(&params.Limit, "limit", 0, "maximum results (default pricing.limit)")
	return cmd
}
