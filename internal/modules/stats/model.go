package stats

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Granularity is a revenue bucket size.
type Granularity string

const (
	Daily   Granularity = "DAILY"
	Weekly  Granularity = "WEEKLY"
	Monthly Granularity = "MONTHLY"
	Yearly  Granularity = "YEARLY"
)

// Bucket is a fixed time-range revenue accumulator. Keys by granularity:
// DAILY "2006-01-02", WEEKLY "2006-01-02_2006-01-08" (inclusive range),
// MONTHLY "2006-01", YEARLY "2006".
type Bucket struct {
	ShopID      uuid.UUID   `json:"shop_id"`
	Granularity Granularity `json:"granularity"`
	Key         string      `json:"bucket_key"`
	Amount      float64     `json:"amount"`
}

// ShopStats is the collaborator-facing counters view for one shop. Lifetime
// counters are exact and monotonic regardless of bucket rollups.
type ShopStats struct {
	ShopID                uuid.UUID                          `json:"shop_id"`
	LifetimeJobsCompleted int64                              `json:"lifetime_jobs_completed"`
	LifetimeRevenue       float64                            `json:"lifetime_revenue"`
	DailyStats            map[string]int64                   `json:"daily_stats"`
	Revenue               map[Granularity]map[string]float64 `json:"revenue"`
}

// Increment is one shop/day group of counted allocations, applied
// all-or-nothing: lifetime counters, the daily stat and the daily revenue
// bucket move together with the counted markers of the contributing
// allocations.
type Increment struct {
	ShopID     uuid.UUID
	Day        string // DAILY bucket key
	Jobs       int64
	Revenue    float64
	JobNumbers []string
}

// DayKey returns the DAILY bucket key for t (UTC calendar date).
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// WeekKey returns the WEEKLY bucket key covering [start, end].
func WeekKey(start, end time.Time) string {
	return fmt.Sprintf("%s_%s", DayKey(start), DayKey(end))
}

// MonthKey returns the MONTHLY bucket key for t.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// YearKey returns the YEARLY bucket key for t.
func YearKey(t time.Time) string {
	return t.UTC().Format("2006")
}
