package allocation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell/inkwell-backend/internal/platform/apperr"
	"github.com/inkwell/inkwell-backend/internal/platform/claim"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a new PostgreSQL allocation repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const allocationColumns = `id, job_number, shop_id, printer_id, printer_label,
       printer_snapshot, job_status, collected, counted, claimed_at,
       total_amount, printing_started_at, completed_at, created_at, updated_at`

func (r *postgresRepo) Upsert(ctx context.Context, a *Allocation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO allocations
		  (id, job_number, shop_id, printer_id, printer_label,
		   printer_snapshot, job_status, collected, counted, total_amount)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (job_number) DO UPDATE SET
		  printer_id=EXCLUDED.printer_id,
		  printer_label=EXCLUDED.printer_label,
		  printer_snapshot=EXCLUDED.printer_snapshot,
		  updated_at=NOW()`,
		a.ID, a.JobNumber, a.ShopID, a.PrinterID, a.PrinterLabel,
		[]byte(a.PrinterSnapshot), a.Status, a.Collected, a.Counted,
		a.TotalAmount)
	return err
}

func (r *postgresRepo) GetByJobNumber(ctx context.Context, jobNumber string) (*Allocation, error) {
	a, err := r.scan(r.db.QueryRowContext(ctx,
		`SELECT `+allocationColumns+` FROM allocations WHERE job_number=$1`,
		jobNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("allocation for job %s", jobNumber)
	}
	return a, err
}

func (r *postgresRepo) ListByShop(ctx context.Context, shopID string, status string) ([]*Allocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM allocations WHERE shop_id=$1`
	args := []interface{}{shopID}
	if status != "" {
		query += ` AND job_status=$2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var allocations []*Allocation
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func (r *postgresRepo) HasActiveWork(ctx context.Context, shopID, printerID, label string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
		  SELECT 1 FROM allocations
		  WHERE shop_id=$1 AND job_status<>$2
		    AND (printer_id=$3 OR printer_label=$4))`,
		shopID, StatusCompleted, nullIfEmpty(printerID), label).Scan(&exists)
	return exists, err
}

func (r *postgresRepo) ClaimBeginPrinting(ctx context.Context, jobNumber string) (*Allocation, error) {
	query := `
		UPDATE allocations
		SET job_status=$1, printing_started_at=$2, updated_at=$2
		WHERE job_number=$3 AND job_status=$4
		RETURNING ` + allocationColumns
	return r.scanClaim(ctx, query,
		StatusPrinting, time.Now(), jobNumber, StatusPending)
}

func (r *postgresRepo) ClaimComplete(ctx context.Context, jobNumber string) (*Allocation, error) {
	query := `
		UPDATE allocations
		SET job_status=$1, completed_at=$2, updated_at=$2
		WHERE job_number=$3 AND job_status=$4
		RETURNING ` + allocationColumns
	return r.scanClaim(ctx, query,
		StatusCompleted, time.Now(), jobNumber, StatusPrinting)
}

func (r *postgresRepo) ClaimCollected(ctx context.Context, jobNumber string) (*Allocation, error) {
	query := `
		UPDATE allocations
		SET collected=TRUE, updated_at=$1
		WHERE job_number=$2 AND collected=FALSE
		RETURNING ` + allocationColumns
	return r.scanClaim(ctx, query, time.Now(), jobNumber)
}

func (r *postgresRepo) ClaimForCounting(ctx context.Context, claimedAt time.Time) (*Allocation, error) {
	// The inner select picks one candidate; the outer predicate re-checks it
	// so a concurrent claimer makes this update touch zero rows instead of
	// stealing the row.
	query := `
		UPDATE allocations
		SET claimed_at=$1, updated_at=$1
		WHERE job_number=(
		  SELECT job_number FROM allocations
		  WHERE job_status=$2 AND counted=FALSE AND claimed_at IS NULL
		  ORDER BY completed_at ASC NULLS LAST
		  LIMIT 1)
		AND job_status=$2 AND counted=FALSE AND claimed_at IS NULL
		RETURNING ` + allocationColumns
	a, err := r.scanClaim(ctx, query, claimedAt, StatusCompleted)
	if errors.Is(err, claim.ErrLost) {
		return nil, nil
	}
	return a, err
}

func (r *postgresRepo) ReleaseClaim(ctx context.Context, jobNumber string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE allocations SET claimed_at=NULL, updated_at=$1
		WHERE job_number=$2 AND counted=FALSE`,
		time.Now(), jobNumber)
	return err
}

func (r *postgresRepo) ReleaseStaleClaims(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE allocations SET claimed_at=NULL, updated_at=$1
		WHERE counted=FALSE AND claimed_at IS NOT NULL AND claimed_at<$2`,
		time.Now(), cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *postgresRepo) scanClaim(ctx context.Context, query string, args ...interface{}) (*Allocation, error) {
	a, err := r.scan(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, claim.ErrLost
	}
	return a, err
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ── scanner ───────────────────────────────────────────────────────────────────

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) scan(row rowScanner) (*Allocation, error) {
	a := &Allocation{}
	var printerID sql.NullString
	var snapshot []byte
	var claimedAt, startedAt, completedAt sql.NullTime
	err := row.Scan(&a.ID, &a.JobNumber, &a.ShopID, &printerID,
		&a.PrinterLabel, &snapshot, &a.Status, &a.Collected, &a.Counted,
		&claimedAt, &a.TotalAmount, &startedAt, &completedAt,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if printerID.Valid {
		uid, err := uuid.Parse(printerID.String)
		if err == nil {
			a.PrinterID = &uid
		}
	}
	a.PrinterSnapshot = snapshot
	if claimedAt.Valid {
		a.ClaimedAt = &claimedAt.Time
	}
	if startedAt.Valid {
		a.PrintingStartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return a, nil
}
