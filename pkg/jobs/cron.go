package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Growthvoodoo/Capty-shopify/pkg/ledger"
	"github.com/robfig/cron/v3"
)

// Reconciler repairs monthly ledger rows
type Reconciler interface {
	Shops(ctx context.Context) ([]string, error)
	Reconcile(ctx context.Context, shop, month string) (*ledger.Repair, error)
}

// RepairRecorder counts repaired rows
type RepairRecorder interface {
	RecordLedgerRepair()
}

// Summary is the result of one reconciliation run
type Summary struct {
	Shops    int
	Checked  int
	Repaired int
	Failed   int
}

// CronManager manages scheduled jobs
type CronManager struct {
	cron       *cron.Cron
	reconciler Reconciler
	recorder   RepairRecorder
	logger     *log.Logger
	now        func() time.Time
}

// NewCronManager creates a new cron manager. recorder may be nil.
func NewCronManager(reconciler Reconciler, recorder RepairRecorder, logger *log.Logger) *CronManager {
	if logger == nil {
		logger = log.Default()
	}

	return &CronManager{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		reconciler: reconciler,
		recorder:   recorder,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetupJobs registers the ledger reconciliation on schedule
func (cm *CronManager) SetupJobs(schedule string) error {
	cm.logger.Println("Setting up cron jobs...")

	_, err := cm.cron.AddFunc(schedule, func() {
		cm.logger.Println("🕐 Running ledger reconciliation job...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		sum, err := cm.ReconcileRecent(ctx)
		if err != nil {
			cm.logger.Printf("❌ Ledger reconciliation failed: %v", err)
			return
		}

		cm.logger.Printf("✅ Ledger reconciliation completed: %d shops, %d months checked, %d repaired, %d failed",
			sum.Shops, sum.Checked, sum.Repaired, sum.Failed)
	})
	if err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}

	cm.logger.Println("✅ Cron jobs configured successfully")
	cm.logger.Printf("  - %s (UTC): Reconcile current and previous month", schedule)

	return nil
}

// ReconcileRecent reconciles the current and previous month of every shop
// with ledger rows. Failures on one shop do not stop the others.
func (cm *CronManager) ReconcileRecent(ctx context.Context) (Summary, error) {
	shops, err := cm.reconciler.Shops(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list shops: %w", err)
	}

	now := cm.now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	months := []string{ledger.MonthKey(first), ledger.MonthKey(first.AddDate(0, -1, 0))}

	sum := Summary{Shops: len(shops)}
	for _, shop := range shops {
		for _, month := range months {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			sum.Checked++

			repair, err := cm.reconciler.Reconcile(ctx, shop, month)
			if err != nil {
				sum.Failed++
				cm.logger.Printf("⚠️ Failed to reconcile %s %s: %v", shop, month, err)
				continue
			}
			if repair.Repaired {
				sum.Repaired++
				if cm.recorder != nil {
					cm.recorder.RecordLedgerRepair()
				}
				cm.logger.Printf("🔧 Repaired ledger %s %s: %d orders, %.2f commission",
					shop, month, repair.After.TotalOrders, repair.After.TotalCommission)
			}
		}
	}
	return sum, nil
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.logger.Println("🚀 Starting cron scheduler...")
	cm.cron.Start()
}

// Stop stops the cron scheduler and waits for a running job to finish
func (cm *CronManager) Stop() {
	cm.logger.Println("🛑 Stopping cron scheduler...")
	<-cm.cron.Stop().Done()
}
