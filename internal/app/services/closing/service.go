package closing

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/bonus"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/payout"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/ranking"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/system"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/pkg/logger"
)

// Closer runs the period boundaries: on the first of each month it closes the
// previous top producer window, and quarterly it summarizes career accruals.
// Closing is reporting; the per-event settlement has already paid everything.
type Closer struct {
	bonuses storage.BonusStore
	board   ranking.Leaderboard
	cron    *cron.Cron
	log     *logger.Logger
	now     func() time.Time
}

var _ system.Service = (*Closer)(nil)

// New creates the closing scheduler.
func New(bonuses storage.BonusStore, board ranking.Leaderboard, log *logger.Logger) *Closer {
	if log == nil {
		log = logger.NewDefault("closing")
	}
	return &Closer{
		bonuses: bonuses,
		board:   board,
		cron:    cron.New(),
		log:     log,
		now:     time.Now,
	}
}

// topStandings bounds how many leaderboard positions a month report carries.
const topStandings = 10

func (c *Closer) Name() string { return "closing" }

func (c *Closer) Start(_ context.Context) error {
	if _, err := c.cron.AddFunc("5 0 1 * *", func() { c.runMonth() }); err != nil {
		return err
	}
	if _, err := c.cron.AddFunc("15 0 1 1,4,7,10 *", func() { c.runQuarter() }); err != nil {
		return err
	}
	c.cron.Start()
	c.log.Info("closing scheduler started")
	return nil
}

func (c *Closer) Stop(ctx context.Context) error {
	stopped := c.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MonthReport summarizes one closed top producer window.
type MonthReport struct {
	Period     string
	Paid       float64
	Recipients int
	Standings  []payout.Standing
}

// QuarterReport summarizes career accruals over a closed quarter.
type QuarterReport struct {
	Periods []string
	Accrued float64
	Records int
}

func (c *Closer) runMonth() {
	report, err := c.CloseMonth(context.Background())
	if err != nil {
		c.log.WithError(err).Warn("monthly close failed")
		return
	}
	c.log.WithFields(map[string]interface{}{
		"period":     report.Period,
		"paid":       report.Paid,
		"recipients": report.Recipients,
	}).Info("monthly top producer window closed")
}

func (c *Closer) runQuarter() {
	report, err := c.CloseQuarter(context.Background())
	if err != nil {
		c.log.WithError(err).Warn("quarterly close failed")
		return
	}
	c.log.WithFields(map[string]interface{}{
		"accrued": report.Accrued,
		"records": report.Records,
	}).Info("quarterly career window closed")
}

// periodsBack renders the period n calendar months before t. Anchoring on
// the first of the month keeps AddDate from normalizing across short months.
func periodsBack(t time.Time, n int) string {
	y, m, _ := t.UTC().Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return ranking.Period(first.AddDate(0, -n, 0))
}

// CloseMonth summarizes the previous calendar month's top producer pool.
func (c *Closer) CloseMonth(ctx context.Context) (MonthReport, error) {
	period := periodsBack(c.now(), 1)

	records, err := c.bonuses.ListBonusRecordsByPeriod(ctx, bonus.PoolTopRank, period)
	if err != nil {
		return MonthReport{}, fmt.Errorf("close month %s: %w", period, err)
	}

	report := MonthReport{Period: period}
	recipients := make(map[string]struct{})
	for _, rec := range records {
		report.Paid += rec.Amount
		recipients[rec.RecipientID] = struct{}{}
	}
	report.Recipients = len(recipients)

	standings, err := c.board.Top(ctx, period, topStandings)
	if err != nil {
		return MonthReport{}, fmt.Errorf("close month %s: standings: %w", period, err)
	}
	report.Standings = standings
	return report, nil
}

// CloseQuarter summarizes career accruals over the three months just ended.
func (c *Closer) CloseQuarter(ctx context.Context) (QuarterReport, error) {
	now := c.now()
	var report QuarterReport
	for back := 3; back >= 1; back-- {
		period := periodsBack(now, back)
		records, err := c.bonuses.ListBonusRecordsByPeriod(ctx, bonus.PoolCareer, period)
		if err != nil {
			return QuarterReport{}, fmt.Errorf("close quarter, period %s: %w", period, err)
		}
		report.Periods = append(report.Periods, period)
		for _, rec := range records {
			report.Accrued += rec.Amount
			report.Records++
		}
	}
	return report, nil
}
