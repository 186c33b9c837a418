package main

import (
	"fmt"
	"log"

	"github.com/Growthvoodoo/Capty-shopify/pkg/jobs"
	"github.com/Growthvoodoo/Capty-shopify/pkg/ledger"
	"github.com/spf13/cobra"
)

func reconcileCmd(opts *globalOptions) *cobra.Command {
	var shop, month string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild ledger rows from attributed orders",
		Long: `Recompute monthly commission rows from the attributed orders.

With --shop and --month a single row is checked. Without them the current and
previous month of every shop are checked, the same run the API schedules
nightly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (shop == "") != (month == "") {
				return fmt.Errorf("--shop and --month must be given together")
			}

			db, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := ledger.NewService(db, opts.logger(cmd))
			out := cmd.OutOrStdout()

			if shop == "" {
				cm := jobs.NewCronManager(svc, nil, log.New(cmd.ErrOrStderr(), "", log.LstdFlags))
				sum, err := cm.ReconcileRecent(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Checked %d rows across %d shops: %d repaired, %d failed\n",
					sum.Checked, sum.Shops, sum.Repaired, sum.Failed)
				if sum.Failed > 0 {
					return fmt.Errorf("%d rows failed to reconcile", sum.Failed)
				}
				return nil
			}

			repair, err := svc.Reconcile(cmd.Context(), shop, month)
			if err != nil {
				return err
			}
			if !repair.Repaired {
				fmt.Fprintf(out, "%s %s is consistent (%d orders, commission %.2f)\n",
					shop, month, repair.After.TotalOrders, repair.After.TotalCommission)
				return nil
			}
			fmt.Fprintf(out, "%s %s repaired: %d orders, commission %.2f\n",
				shop, month, repair.After.TotalOrders, repair.After.TotalCommission)
			return nil
		},
	}

	cmd.Flags().StringVar(&shop, "shop", "", "shop domain")
	cmd.Flags().StringVar(&month, "month", "", "month to reconcile (YYYY-MM)")
	return cmd
}
