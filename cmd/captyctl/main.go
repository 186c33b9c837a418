// Command captyctl is the operator tool of the Capty Shopify app: schema
// migrations, ledger inspection and settlement, reconciliation, referral
// simulation and demo data.
package main

import (
	"fmt"
	"os"

	"github.com/Growthvoodoo/Capty-shopify/config"
	"github.com/Growthvoodoo/Capty-shopify/pkg/database"
	"github.com/Growthvoodoo/Capty-shopify/pkg/logger"
	"github.com/spf13/cobra"
)

var Version = "dev"

type globalOptions struct {
	driver   string
	url      string
	logLevel string
}

func main() {
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "captyctl",
		Short:         "Operate the Capty Shopify attribution backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.driver, "db-driver", cfg.DatabaseDriver, "database driver (sqlite3, postgres)")
	rootCmd.PersistentFlags().StringVar(&opts.url, "db-url", cfg.DatabaseURL, "database connection URL")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(migrateCmd(opts))
	rootCmd.AddCommand(ledgerCmd(opts, cfg))
	rootCmd.AddCommand(reconcileCmd(opts))
	rootCmd.AddCommand(simulateCmd(opts, cfg))
	rootCmd.AddCommand(seedCmd(opts, cfg))

	return rootCmd
}

// open connects and migrates. Every command migrates so a fresh sqlite file
// is usable straight away.
func (o *globalOptions) open(cmd *cobra.Command) (*database.Client, error) {
	db, err := database.Open(database.Options{
		Driver: o.driver,
		URL:    o.url,
		Pool:   database.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1},
	})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(cmd.Context()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (o *globalOptions) logger(cmd *cobra.Command) logger.Logger {
	return logger.NewWithWriter(cmd.ErrOrStderr(), o.logLevel)
}
