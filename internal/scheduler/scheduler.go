package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"go-udhar-pos/internal/repository/mongodb"
	"go-udhar-pos/internal/service"
)

const jobTimeout = 2 * time.Minute

// Scheduler runs the periodic ledger and reporting jobs.
type Scheduler struct {
	cron     *cron.Cron
	ledger   service.LedgerService
	reports  service.ReportService
	archive  mongodb.ReportArchive
	notifier service.Notifier
	loc      *time.Location
	logger   *zap.Logger

	overdueSpec string
	archiveSpec string
}

// NewScheduler wires the jobs. archive may be nil, in which case the archive
// job is not scheduled.
func NewScheduler(overdueSpec, archiveSpec string, loc *time.Location, ledger service.LedgerService, reports service.ReportService, archive mongodb.ReportArchive, notifier service.Notifier, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:        cron.New(cron.WithLocation(loc)),
		ledger:      ledger,
		reports:     reports,
		archive:     archive,
		notifier:    notifier,
		loc:         loc,
		logger:      logger,
		overdueSpec: overdueSpec,
		archiveSpec: archiveSpec,
	}
}

// Start registers the jobs and starts the cron runner. A bad cron
// expression is returned before anything runs.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("overdue", s.overdueSpec), zap.String("archive", s.archiveSpec))

	if _, err := s.cron.AddFunc(s.overdueSpec, s.sweepOverdue); err != nil {
		return fmt.Errorf("schedule overdue sweep: %w", err)
	}
	if s.archive != nil {
		if _, err := s.cron.AddFunc(s.archiveSpec, s.archiveCurrentMonth); err != nil {
			return fmt.Errorf("schedule report archive: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweepOverdue() {
	s.SweepOverdue(time.Now().In(s.loc))
}

// SweepOverdue logs and broadcasts every overdue Udhar invoice. It returns
// how many were found.
func (s *Scheduler) SweepOverdue(now time.Time) int {
	overdue := s.ledger.ListOverdue(now)
	if len(overdue) == 0 {
		s.logger.Info("no overdue udhar")
		return 0
	}

	var total float64
	items := make([]map[string]interface{}, 0, len(overdue))
	for _, inv := range overdue {
		total += inv.Remaining
		days := int(now.Sub(*inv.DueDate).Hours() / 24)
		items = append(items, map[string]interface{}{
			"id":           inv.ID,
			"customer":     inv.Customer.Name,
			"phone":        inv.Customer.Phone,
			"remaining":    inv.Remaining,
			"due_date":     inv.DueDate,
			"days_overdue": days,
		})
	}

	s.logger.Warn("overdue udhar", zap.Int("count", len(overdue)), zap.Float64("amount", total))
	if s.notifier != nil {
		s.notifier.Publish("udhar_update", "overdue_summary", map[string]interface{}{
			"invoices": items,
			"count":    len(overdue),
			"amount":   total,
			"message":  fmt.Sprintf("%d invoices overdue, %g outstanding", len(overdue), total),
		})
	}
	return len(overdue)
}

func (s *Scheduler) archiveCurrentMonth() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.ArchiveMonth(ctx, time.Now().In(s.loc)); err != nil {
		s.logger.Error("failed to archive monthly report", zap.Error(err))
	}
}

// ArchiveMonth snapshots the report for now's month into the archive.
// Months without invoices are stored with zero figures.
func (s *Scheduler) ArchiveMonth(ctx context.Context, now time.Time) error {
	if s.archive == nil {
		return nil
	}

	snap := mongodb.MonthlySnapshot{
		Year:       now.Year(),
		Month:      int(now.Month()),
		Label:      fmt.Sprintf("%s %d", now.Month(), now.Year()),
		TopItem:    service.NoTopItem,
		Receivable: s.ledger.TotalReceivable(),
		ArchivedAt: now,
	}
	for _, m := range s.reports.Monthly() {
		if m.Year == now.Year() && m.Month == now.Month() {
			snap.Revenue = m.Revenue
			snap.Profit = m.Profit
			snap.TopItem = m.TopItem
			snap.TopItemQty = m.TopItemQty
			snap.InvoiceCount = m.InvoiceCount
			break
		}
	}

	if err := s.archive.SaveMonthlySnapshot(ctx, snap); err != nil {
		return err
	}
	s.logger.Info("monthly report archived", zap.String("month", snap.Label), zap.Float64("revenue", snap.Revenue))
	return nil
}
