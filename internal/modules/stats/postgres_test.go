package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIncrement(shopID uuid.UUID) Increment {
	return Increment{
		ShopID:     shopID,
		Day:        "2026-08-30",
		Jobs:       2,
		Revenue:    12.50,
		JobNumbers: []string{"JOB-1", "JOB-2"},
	}
}

// The increment is one transaction: lifetime counters, daily stat, daily
// revenue bucket and the counted markers all land together.
func TestApplyIncrementCommitsAllWritesTogether(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)
	shopID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO shop_stats").
		WithArgs(shopID, int64(2), 12.50).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO shop_daily_stats").
		WithArgs(shopID, "2026-08-30", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO revenue_buckets").
		WithArgs(shopID, Daily, "2026-08-30", 12.50).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE allocations SET counted=TRUE").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.ApplyIncrement(context.Background(), testIncrement(shopID)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyIncrementRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)
	shopID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO shop_stats").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO shop_daily_stats").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err = repo.ApplyIncrement(context.Background(), testIncrement(shopID))
	assert.ErrorContains(t, err, "daily stats")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompactBucketsMovesRevenueTransactionally(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)
	shopID := uuid.NewString()
	keys := []string{"2026-08-10", "2026-08-11", "2026-08-12", "2026-08-13",
		"2026-08-14", "2026-08-15", "2026-08-16"}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM revenue_buckets").
		WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectExec("INSERT INTO revenue_buckets").
		WithArgs(shopID, Weekly, "2026-08-10_2026-08-16", 21.00).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.CompactBuckets(context.Background(), shopID,
		Daily, keys, Weekly, "2026-08-10_2026-08-16", 21.00)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompactBucketsRollsBackWhenInsertFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM revenue_buckets").
		WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectExec("INSERT INTO revenue_buckets").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = repo.CompactBuckets(context.Background(), uuid.NewString(),
		Daily, []string{"2026-08-10"}, Weekly, "k", 1.00)
	assert.ErrorContains(t, err, "write target bucket")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetShopStatsEmptyShop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)
	shopID := uuid.New()

	mock.ExpectQuery("SELECT lifetime_jobs_completed").
		WithArgs(shopID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"lifetime_jobs_completed", "lifetime_revenue"}))
	mock.ExpectQuery("SELECT to_char").
		WithArgs(shopID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"day", "jobs_completed"}))
	mock.ExpectQuery("SELECT granularity, bucket_key, amount").
		WithArgs(shopID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"granularity", "bucket_key", "amount"}))

	got, err := repo.GetShopStats(context.Background(), shopID.String())
	require.NoError(t, err)
	assert.Zero(t, got.LifetimeJobsCompleted)
	assert.Zero(t, got.LifetimeRevenue)
	assert.Empty(t, got.DailyStats)
	assert.Empty(t, got.Revenue)
}
