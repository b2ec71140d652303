package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/inkwell/inkwell-backend/internal/platform/logger"
	"github.com/inkwell/inkwell-backend/internal/platform/metrics"
)

// Rollup compacts settled revenue buckets into coarser granularities:
// 7 contiguous daily buckets become a weekly bucket, the weeklies of a
// finished month become a monthly bucket, the monthlies of a finished year
// become a yearly bucket. Compaction only touches buckets strictly in the
// past and needs no coordination with the aggregator: lifetime counters, not
// buckets, are the exact source of truth for totals.
type Rollup struct {
	log   logger.Logger
	stats Repository
	now   func() time.Time
}

func NewRollup(log logger.Logger, stats Repository) *Rollup {
	return &Rollup{log: log, stats: stats, now: time.Now}
}

func (r *Rollup) Name() string { return "revenue-rollup" }

// RunCycle rolls up every shop holding buckets. Per-shop errors are logged
// and the pass continues.
func (r *Rollup) RunCycle(ctx context.Context) error {
	shopIDs, err := r.stats.ListShopsWithBuckets(ctx)
	if err != nil {
		return fmt.Errorf("list shops with buckets: %w", err)
	}

	today := truncateDay(r.now())
	for _, shopID := range shopIDs {
		if err := r.rollupShop(ctx, shopID, today); err != nil {
			r.log.Error("shop rollup failed",
				logger.String("shop_id", shopID),
				logger.Error(err))
		}
	}
	return nil
}

func (r *Rollup) rollupShop(ctx context.Context, shopID string, today time.Time) error {
	if err := r.rollupWeekly(ctx, shopID, today); err != nil {
		return fmt.Errorf("weekly: %w", err)
	}
	if err := r.rollupMonthly(ctx, shopID, today); err != nil {
		return fmt.Errorf("monthly: %w", err)
	}
	if err := r.rollupYearly(ctx, shopID, today); err != nil {
		return fmt.Errorf("yearly: %w", err)
	}
	return nil
}

// rollupWeekly compacts each run of 7 contiguous daily buckets, all strictly
// before today, into one weekly bucket keyed by the covered date range.
func (r *Rollup) rollupWeekly(ctx context.Context, shopID string, today time.Time) error {
	buckets, err := r.stats.ListBuckets(ctx, shopID, Daily)
	if err != nil {
		return err
	}

	type dated struct {
		day    time.Time
		bucket Bucket
	}
	var days []dated
	for _, b := range buckets {
		day, err := time.Parse("2006-01-02", b.Key)
		if err != nil {
			continue
		}
		if !day.Before(today) {
			// Today's bucket is still receiving increments.
			continue
		}
		days = append(days, dated{day: day, bucket: b})
	}

	// ListBuckets orders by key, which for DAILY is chronological.
	run := []dated{}
	flushIfComplete := func() error {
		if len(run) < 7 {
			return nil
		}
		week := run[:7]
		var sum float64
		var keys []string
		for _, d := range week {
			sum += d.bucket.Amount
			keys = append(keys, d.bucket.Key)
		}
		weekKey := WeekKey(week[0].day, week[6].day)
		if err := r.stats.CompactBuckets(ctx, shopID, Daily, keys, Weekly, weekKey, sum); err != nil {
			return err
		}
		metrics.RollupsPerformed.WithLabelValues(string(Weekly)).Inc()
		r.log.Info("rolled up week",
			logger.String("shop_id", shopID),
			logger.String("bucket", weekKey),
			logger.Float64("amount", sum))
		run = run[7:]
		return nil
	}

	for _, d := range days {
		if len(run) > 0 && !d.day.Equal(run[len(run)-1].day.AddDate(0, 0, 1)) {
			// Gap in the calendar; an incomplete run waits for more days.
			run = run[:0]
		}
		run = append(run, d)
		if err := flushIfComplete(); err != nil {
			return err
		}
	}
	return nil
}

// rollupMonthly compacts the weekly buckets fully inside a finished calendar
// month, once no daily bucket for that month remains (the month is settled).
func (r *Rollup) rollupMonthly(ctx context.Context, shopID string, today time.Time) error {
	weeklies, err := r.stats.ListBuckets(ctx, shopID, Weekly)
	if err != nil {
		return err
	}
	if len(weeklies) == 0 {
		return nil
	}
	dailies, err := r.stats.ListBuckets(ctx, shopID, Daily)
	if err != nil {
		return err
	}
	currentMonth := MonthKey(today)

	byMonth := map[string][]Bucket{}
	for _, b := range weeklies {
		start, end, err := parseWeekKey(b.Key)
		if err != nil {
			continue
		}
		monthKey := MonthKey(start)
		if MonthKey(end) != monthKey {
			// Straddles a month boundary; stays weekly.
			continue
		}
		if monthKey >= currentMonth {
			continue
		}
		byMonth[monthKey] = append(byMonth[monthKey], b)
	}

	for monthKey, group := range byMonth {
		if hasBucketInMonth(dailies, monthKey) {
			// Dailies of this month are still awaiting weekly compaction.
			continue
		}
		var sum float64
		var keys []string
		for _, b := range group {
			sum += b.Amount
			keys = append(keys, b.Key)
		}
		if err := r.stats.CompactBuckets(ctx, shopID, Weekly, keys, Monthly, monthKey, sum); err != nil {
			return err
		}
		metrics.RollupsPerformed.WithLabelValues(string(Monthly)).Inc()
		r.log.Info("rolled up month",
			logger.String("shop_id", shopID),
			logger.String("bucket", monthKey),
			logger.Float64("amount", sum))
	}
	return nil
}

// rollupYearly compacts the monthly buckets of a finished calendar year once
// no finer bucket for that year remains.
func (r *Rollup) rollupYearly(ctx context.Context, shopID string, today time.Time) error {
	monthlies, err := r.stats.ListBuckets(ctx, shopID, Monthly)
	if err != nil {
		return err
	}
	if len(monthlies) == 0 {
		return nil
	}
	dailies, err := r.stats.ListBuckets(ctx, shopID, Daily)
	if err != nil {
		return err
	}
	weeklies, err := r.stats.ListBuckets(ctx, shopID, Weekly)
	if err != nil {
		return err
	}
	currentYear := YearKey(today)

	byYear := map[string][]Bucket{}
	for _, b := range monthlies {
		yearKey := b.Key[:4]
		if yearKey >= currentYear {
			continue
		}
		byYear[yearKey] = append(byYear[yearKey], b)
	}

	for yearKey, group := range byYear {
		if hasBucketInYear(dailies, yearKey) || hasBucketInYear(weeklies, yearKey) {
			continue
		}
		var sum float64
		var keys []string
		for _, b := range group {
			sum += b.Amount
			keys = append(keys, b.Key)
		}
		if err := r.stats.CompactBuckets(ctx, shopID, Monthly, keys, Yearly, yearKey, sum); err != nil {
			return err
		}
		metrics.RollupsPerformed.WithLabelValues(string(Yearly)).Inc()
		r.log.Info("rolled up year",
			logger.String("shop_id", shopID),
			logger.String("bucket", yearKey),
			logger.Float64("amount", sum))
	}
	return nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseWeekKey(key string) (time.Time, time.Time, error) {
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("malformed week key %q", key)
	}
	start, err := time.Parse("2006-01-02", parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse("2006-01-02", parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func hasBucketInMonth(buckets []Bucket, monthKey string) bool {
	for _, b := range buckets {
		if strings.HasPrefix(b.Key, monthKey) {
			return true
		}
	}
	return false
}

func hasBucketInYear(buckets []Bucket, yearKey string) bool {
	for _, b := range buckets {
		if strings.HasPrefix(b.Key, yearKey) {
			return true
		}
	}
	return false
}
