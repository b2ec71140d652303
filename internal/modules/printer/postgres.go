package printer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/inkwell/inkwell-backend/internal/platform/apperr"
	"github.com/inkwell/inkwell-backend/internal/platform/claim"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a new PostgreSQL printer repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const printerColumns = `id, shop_id, label, operational_status, manual_status,
       capability_source, agent_capabilities, manual_capabilities,
       created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, p *Printer) error {
	agentJSON, err := json.Marshal(p.AgentCapabilities)
	if err != nil {
		return err
	}
	manualJSON, err := json.Marshal(p.ManualCapabilities)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO printers
		  (id, shop_id, label, operational_status, manual_status,
		   capability_source, agent_capabilities, manual_capabilities)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.ShopID, p.Label, p.OperationalStatus, p.ManualStatus,
		p.CapabilitySource, agentJSON, manualJSON)
	return err
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Printer, error) {
	p, err := r.scan(r.db.QueryRowContext(ctx,
		`SELECT `+printerColumns+` FROM printers WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("printer %s", id)
	}
	return p, err
}

func (r *postgresRepo) ListByShop(ctx context.Context, shopID string) ([]*Printer, error) {
	// created_at order keeps first-fit selection stable between cycles.
	return r.list(ctx, `SELECT `+printerColumns+` FROM printers
		WHERE shop_id=$1 ORDER BY created_at ASC`, shopID)
}

func (r *postgresRepo) ListPendingOff(ctx context.Context) ([]*Printer, error) {
	return r.list(ctx, `SELECT `+printerColumns+` FROM printers
		WHERE manual_status=$1 ORDER BY created_at ASC`, ManualPendingOff)
}

func (r *postgresRepo) SetManualStatus(ctx context.Context, id string, status ManualStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE printers SET manual_status=$1, updated_at=$2 WHERE id=$3`,
		status, time.Now(), id)
	return err
}

func (r *postgresRepo) ClaimPendingOffToOff(ctx context.Context, id string) error {
	return claim.Exec(ctx, r.db, `
		UPDATE printers SET manual_status=$1, updated_at=$2
		WHERE id=$3 AND manual_status=$4`,
		ManualOff, time.Now(), id, ManualPendingOff)
}

func (r *postgresRepo) UpdateAgentState(ctx context.Context, id string, status OperationalStatus, caps []Capability) error {
	var capsJSON interface{}
	if caps != nil {
		b, err := json.Marshal(caps)
		if err != nil {
			return err
		}
		capsJSON = b
	}
	var statusArg interface{}
	if status != "" {
		statusArg = string(status)
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE printers
		SET operational_status=COALESCE($1, operational_status),
		    agent_capabilities=COALESCE($2, agent_capabilities),
		    updated_at=$3
		WHERE id=$4`,
		statusArg, capsJSON, time.Now(), id)
	return err
}

func (r *postgresRepo) list(ctx context.Context, query string, args ...interface{}) ([]*Printer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var printers []*Printer
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		printers = append(printers, p)
	}
	return printers, rows.Err()
}

// ── scanner ───────────────────────────────────────────────────────────────────

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) scan(row rowScanner) (*Printer, error) {
	p := &Printer{}
	var agentJSON, manualJSON []byte
	err := row.Scan(&p.ID, &p.ShopID, &p.Label, &p.OperationalStatus,
		&p.ManualStatus, &p.CapabilitySource, &agentJSON, &manualJSON,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	// A capability column that fails to decode leaves the list empty, which
	// the matcher treats as "no match" rather than an error.
	if len(agentJSON) > 0 {
		_ = json.Unmarshal(agentJSON, &p.AgentCapabilities)
	}
	if len(manualJSON) > 0 {
		_ = json.Unmarshal(manualJSON, &p.ManualCapabilities)
	}
	return p, nil
}
