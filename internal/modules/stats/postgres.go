package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a new PostgreSQL stats repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) ApplyIncrement(ctx context.Context, inc Increment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin increment tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shop_stats (shop_id, lifetime_jobs_completed, lifetime_revenue)
		VALUES ($1,$2,$3)
		ON CONFLICT (shop_id) DO UPDATE SET
		  lifetime_jobs_completed = shop_stats.lifetime_jobs_completed + EXCLUDED.lifetime_jobs_completed,
		  lifetime_revenue = shop_stats.lifetime_revenue + EXCLUDED.lifetime_revenue,
		  updated_at = NOW()`,
		inc.ShopID, inc.Jobs, inc.Revenue)
	if err != nil {
		return fmt.Errorf("lifetime counters: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shop_daily_stats (shop_id, day, jobs_completed)
		VALUES ($1,$2,$3)
		ON CONFLICT (shop_id, day) DO UPDATE SET
		  jobs_completed = shop_daily_stats.jobs_completed + EXCLUDED.jobs_completed`,
		inc.ShopID, inc.Day, inc.Jobs)
	if err != nil {
		return fmt.Errorf("daily stats: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO revenue_buckets (shop_id, granularity, bucket_key, amount)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (shop_id, granularity, bucket_key) DO UPDATE SET
		  amount = revenue_buckets.amount + EXCLUDED.amount`,
		inc.ShopID, Daily, inc.Day, inc.Revenue)
	if err != nil {
		return fmt.Errorf("daily revenue bucket: %w", err)
	}

	// The counted markers commit with the increment; a crash before commit
	// leaves counted=false and the claim sweeper re-queues the allocations.
	_, err = tx.ExecContext(ctx, `
		UPDATE allocations SET counted=TRUE, claimed_at=NULL, updated_at=NOW()
		WHERE job_number = ANY($1)`,
		pq.Array(inc.JobNumbers))
	if err != nil {
		return fmt.Errorf("mark counted: %w", err)
	}

	return tx.Commit()
}

func (r *postgresRepo) GetShopStats(ctx context.Context, shopID string) (*ShopStats, error) {
	shopUID, err := uuid.Parse(shopID)
	if err != nil {
		return nil, fmt.Errorf("invalid shop id: %w", err)
	}
	stats := &ShopStats{
		ShopID:     shopUID,
		DailyStats: map[string]int64{},
		Revenue:    map[Granularity]map[string]float64{},
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT lifetime_jobs_completed, lifetime_revenue
		FROM shop_stats WHERE shop_id=$1`, shopID).
		Scan(&stats.LifetimeJobsCompleted, &stats.LifetimeRevenue)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT to_char(day, 'YYYY-MM-DD'), jobs_completed
		FROM shop_daily_stats WHERE shop_id=$1 ORDER BY day`, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var day string
		var count int64
		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}
		stats.DailyStats[day] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	bucketRows, err := r.db.QueryContext(ctx, `
		SELECT granularity, bucket_key, amount
		FROM revenue_buckets WHERE shop_id=$1 ORDER BY granularity, bucket_key`, shopID)
	if err != nil {
		return nil, err
	}
	defer bucketRows.Close()
	for bucketRows.Next() {
		var g Granularity
		var key string
		var amount float64
		if err := bucketRows.Scan(&g, &key, &amount); err != nil {
			return nil, err
		}
		if stats.Revenue[g] == nil {
			stats.Revenue[g] = map[string]float64{}
		}
		stats.Revenue[g][key] = amount
	}
	return stats, bucketRows.Err()
}

func (r *postgresRepo) ListShopsWithBuckets(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT shop_id FROM revenue_buckets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresRepo) ListBuckets(ctx context.Context, shopID string, g Granularity) ([]Bucket, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT shop_id, granularity, bucket_key, amount
		FROM revenue_buckets
		WHERE shop_id=$1 AND granularity=$2
		ORDER BY bucket_key ASC`, shopID, g)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var buckets []Bucket
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.ShopID, &b.Granularity, &b.Key, &b.Amount); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func (r *postgresRepo) CompactBuckets(ctx context.Context, shopID string, from Granularity, keys []string, to Granularity, toKey string, amount float64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin compact tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM revenue_buckets
		WHERE shop_id=$1 AND granularity=$2 AND bucket_key = ANY($3)`,
		shopID, from, pq.Array(keys))
	if err != nil {
		return fmt.Errorf("delete source buckets: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO revenue_buckets (shop_id, granularity, bucket_key, amount)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (shop_id, granularity, bucket_key) DO UPDATE SET
		  amount = revenue_buckets.amount + EXCLUDED.amount`,
		shopID, to, toKey, amount)
	if err != nil {
		return fmt.Errorf("write target bucket: %w", err)
	}

	return tx.Commit()
}
