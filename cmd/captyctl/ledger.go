package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Growthvoodoo/Capty-shopify/config"
	"github.com/Growthvoodoo/Capty-shopify/pkg/attribution"
	"github.com/Growthvoodoo/Capty-shopify/pkg/clicks"
	"github.com/Growthvoodoo/Capty-shopify/pkg/commission"
	"github.com/Growthvoodoo/Capty-shopify/pkg/export"
	"github.com/Growthvoodoo/Capty-shopify/pkg/ledger"
	"github.com/spf13/cobra"
)

func ledgerCmd(opts *globalOptions, cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and settle monthly commissions",
	}
	cmd.AddCommand(ledgerListCmd(opts))
	cmd.AddCommand(ledgerMarkPaidCmd(opts))
	cmd.AddCommand(ledgerExportCmd(opts, cfg))
	return cmd
}

func ledgerListCmd(opts *globalOptions) *cobra.Command {
	var shop string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the monthly ledger of a shop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			rows, err := ledger.NewService(db, opts.logger(cmd)).ListByShop(cmd.Context(), shop)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No commissions for %s\n", shop)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MONTH\tORDERS\tSALES\tCOMMISSION\tPAID")
			for _, m := range rows {
				paid := "no"
				if m.IsPaid {
					paid = "yes"
					if m.PaidAt != nil {
						paid += " (" + m.PaidAt.UTC().Format("2006-01-02") + ")"
					}
				}
				fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%s\n", m.Month, m.TotalOrders, m.TotalSales, m.TotalCommission, paid)
			}
			sum := ledger.Summarize(rows)
			fmt.Fprintf(w, "\t\t\t\t\nTOTAL\t%d\t%.2f\towed %.2f\tpaid %.2f\n", sum.TotalOrders, sum.TotalSales, sum.Owed, sum.Paid)
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&shop, "shop", "", "shop domain")
	cmd.MarkFlagRequired("shop")
	return cmd
}

func ledgerMarkPaidCmd(opts *globalOptions) *cobra.Command {
	var shop, month string

	cmd := &cobra.Command{
		Use:   "mark-paid",
		Short: "Mark a month as paid out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			err = ledger.NewService(db, opts.logger(cmd)).MarkPaid(cmd.Context(), shop, month)
			if errors.Is(err, ledger.ErrNotFound) {
				return fmt.Errorf("no commission row for %s in %s", shop, month)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s %s as paid\n", shop, month)
			return nil
		},
	}

	cmd.Flags().StringVar(&shop, "shop", "", "shop domain")
	cmd.Flags().StringVar(&month, "month", "", "month to settle (YYYY-MM)")
	cmd.MarkFlagRequired("shop")
	cmd.MarkFlagRequired("month")
	return cmd
}

func ledgerExportCmd(opts *globalOptions, cfg *config.Config) *cobra.Command {
	var (
		shop   string
		out    string
		upload bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the commission statement of a shop as an Excel workbook",
		Long: `Write the monthly ledger and attributed orders of a shop to an Excel
workbook. With --upload the workbook is stored in the statement bucket
(STATEMENT_BUCKET, AWS_REGION, S3_ENDPOINT) instead of, or as well as, --out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" && !upload {
				return fmt.Errorf("nothing to do: pass --out, --upload or both")
			}

			db, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			log := opts.logger(cmd)
			ctx := cmd.Context()
			calc, err := commission.NewCalculator(cfg.CommissionRate)
			if err != nil {
				return err
			}
			ledgerService := ledger.NewService(db, log)
			orderService := attribution.NewService(db, clicks.NewService(db, log), ledgerService, calc, log)

			months, err := ledgerService.ListByShop(ctx, shop)
			if err != nil {
				return err
			}
			orders, err := orderService.ListRecent(ctx, shop, 100000)
			if err != nil {
				return err
			}
			buf, err := export.CommissionStatement(shop, months, orders)
			if err != nil {
				return err
			}

			if out != "" {
				if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("failed to write statement: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d months, %d orders)\n", out, len(months), len(orders))
			}

			if upload {
				archiver, err := export.NewS3Archiver(ctx, export.ArchiveConfig{
					Bucket:          cfg.StatementBucket,
					Prefix:          cfg.StatementPrefix,
					Region:          cfg.AWSRegion,
					AccessKeyID:     cfg.AWSAccessKeyID,
					SecretAccessKey: cfg.AWSSecretAccessKey,
					Endpoint:        cfg.S3Endpoint,
				})
				if err != nil {
					return err
				}
				key, err := archiver.Archive(ctx, shop, time.Now(), buf)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s\n", archiver.URI(key))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&shop, "shop", "", "shop domain")
	cmd.Flags().StringVarP(&out, "out", "o", "", "path of the workbook to write")
	cmd.Flags().BoolVar(&upload, "upload", false, "upload the workbook to the statement bucket")
	cmd.MarkFlagRequired("shop")
	return cmd
}
