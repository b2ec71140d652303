package job

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/inkwell/inkwell-backend/internal/platform/apperr"
	"github.com/inkwell/inkwell-backend/internal/platform/claim"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a new PostgreSQL job repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const jobColumns = `id, job_number, shop_id, color, duplex, paper_size,
       total_amount, allocation_state, status, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, job *Job) error {
	var paperSize interface{}
	if job.Requirements.PaperSize != "" {
		paperSize = job.Requirements.PaperSize
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs
		  (id, job_number, shop_id, color, duplex, paper_size,
		   total_amount, allocation_state, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		job.ID, job.JobNumber, job.ShopID, job.Requirements.Color,
		job.Requirements.Duplex, paperSize, job.TotalAmount,
		job.AllocationState, job.Status)
	return err
}

func (r *postgresRepo) GetByNumber(ctx context.Context, jobNumber string) (*Job, error) {
	j, err := r.scan(r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE job_number=$1`, jobNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("job %s", jobNumber)
	}
	return j, err
}

func (r *postgresRepo) ListByShop(ctx context.Context, shopID string, state string) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE shop_id=$1`
	args := []interface{}{shopID}
	if state != "" {
		query += ` AND allocation_state=$2`
		args = append(args, state)
	}
	query += ` ORDER BY created_at ASC`
	return r.list(ctx, query, args...)
}

func (r *postgresRepo) ListPending(ctx context.Context, shopID string) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE allocation_state=$1`
	args := []interface{}{AllocationPending}
	if shopID != "" {
		query += ` AND shop_id=$2`
		args = append(args, shopID)
	}
	query += ` ORDER BY created_at ASC`
	return r.list(ctx, query, args...)
}

func (r *postgresRepo) ClaimPending(ctx context.Context, jobNumber string) error {
	return claim.Exec(ctx, r.db, `
		UPDATE jobs SET allocation_state=$1, updated_at=$2
		WHERE job_number=$3 AND allocation_state=$4`,
		AllocationAlloted, time.Now(), jobNumber, AllocationPending)
}

func (r *postgresRepo) MarkAlloted(ctx context.Context, jobNumber string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET allocation_state=$1, updated_at=$2 WHERE job_number=$3`,
		AllocationAlloted, time.Now(), jobNumber)
	return err
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, jobNumber string, status Status) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status=$1, updated_at=$2 WHERE job_number=$3`,
		status, time.Now(), jobNumber)
	return err
}

func (r *postgresRepo) list(ctx context.Context, query string, args ...interface{}) ([]*Job, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []*Job
	for rows.Next() {
		j, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ── scanner ───────────────────────────────────────────────────────────────────

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) scan(row rowScanner) (*Job, error) {
	j := &Job{}
	var paperSize sql.NullString
	err := row.Scan(&j.ID, &j.JobNumber, &j.ShopID, &j.Requirements.Color,
		&j.Requirements.Duplex, &paperSize, &j.TotalAmount,
		&j.AllocationState, &j.Status, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if paperSize.Valid {
		j.Requirements.PaperSize = paperSize.String
	}
	return j, nil
}
