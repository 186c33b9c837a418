package main

import (
	"fmt"

	"github.com/Growthvoodoo/Capty-shopify/config"
	"github.com/Growthvoodoo/Capty-shopify/pkg/attribution"
	"github.com/Growthvoodoo/Capty-shopify/pkg/clicks"
	"github.com/Growthvoodoo/Capty-shopify/pkg/commission"
	"github.com/Growthvoodoo/Capty-shopify/pkg/ledger"
	"github.com/Growthvoodoo/Capty-shopify/pkg/seed"
	"github.com/Growthvoodoo/Capty-shopify/pkg/sessions"
	"github.com/spf13/cobra"
)

func seedCmd(opts *globalOptions, cfg *config.Config) *cobra.Command {
	var (
		shop       string
		clickCount int
		orderCount int
		organic    float64
		randSeed   int64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate demo clicks and orders through the attribution services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clickCount < 0 || orderCount < 0 {
				return fmt.Errorf("--clicks and --orders must not be negative")
			}

			db, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			log := opts.logger(cmd)
			calc, err := commission.NewCalculator(cfg.CommissionRate)
			if err != nil {
				return err
			}
			clickService := clicks.NewService(db, log)
			orderService := attribution.NewService(db, clickService, ledger.NewService(db, log), calc, log)
			ctx := cmd.Context()

			if err := sessions.NewStore(db).Save(ctx, sessions.Session{
				ID:          "offline_" + shop,
				Shop:        shop,
				AccessToken: "seed",
			}); err != nil {
				return err
			}

			gen := seed.NewGenerator(randSeed)
			recorded := make([]clicks.Click, 0, clickCount)
			for i := 0; i < clickCount; i++ {
				click := gen.Click(shop)
				if _, err := clickService.RecordClick(ctx, click); err != nil {
					return err
				}
				recorded = append(recorded, click)
			}

			var attributed, unattributed int
			for i := 0; i < orderCount; i++ {
				var clickID, userID string
				if len(recorded) > 0 && !gen.Chance(organic) {
					click := recorded[i%len(recorded)]
					clickID, userID = click.ClickID, click.UserID
				}

				order, err := attribution.ParseOrder(gen.OrderPayload(clickID, userID))
				if err != nil {
					return err
				}
				res, err := orderService.ProcessOrder(ctx, shop, order)
				if err != nil {
					return err
				}
				if res.Outcome == attribution.OutcomeAttributed {
					attributed++
				} else {
					unattributed++
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s: %d clicks, %d attributed orders, %d organic orders\n",
				shop, len(recorded), attributed, unattributed)
			return nil
		},
	}

	cmd.Flags().StringVar(&shop, "shop", "", "shop domain")
	cmd.Flags().IntVar(&clickCount, "clicks", 20, "number of referral clicks")
	cmd.Flags().IntVar(&orderCount, "orders", 10, "number of orders")
	cmd.Flags().Float64Var(&organic, "organic", 0.2, "share of orders without a referral")
	cmd.Flags().Int64Var(&randSeed, "seed", 0, "random seed (0 picks one)")
	cmd.MarkFlagRequired("shop")
	return cmd
}
