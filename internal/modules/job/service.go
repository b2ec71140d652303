package job

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell/inkwell-backend/internal/platform/apperr"
)

// ShopChecker verifies the owning shop exists before intake accepts a job.
type ShopChecker interface {
	Exists(ctx context.Context, shopID string) (bool, error)
}

// Service defines job intake business logic.
type Service interface {
	SubmitJob(ctx context.Context, req SubmitJobRequest) (*Job, error)
	GetJob(ctx context.Context, jobNumber string) (*Job, error)
	ListShopJobs(ctx context.Context, shopID string, state string) ([]*Job, error)
}

type service struct {
	repo  Repository
	shops ShopChecker
}

func NewService(repo Repository, shops ShopChecker) Service {
	return &service{repo: repo, shops: shops}
}

func (s *service) SubmitJob(ctx context.Context, req SubmitJobRequest) (*Job, error) {
	if req.ShopID == "" {
		return nil, apperr.Validation("shop_id is required")
	}
	if req.TotalAmount < 0 {
		return nil, apperr.Validation("total_amount must not be negative")
	}
	shopID, err := uuid.Parse(req.ShopID)
	if err != nil {
		return nil, apperr.Validation("invalid shop_id: %v", err)
	}

	exists, err := s.shops.Exists(ctx, req.ShopID)
	if err != nil {
		return nil, fmt.Errorf("check shop: %w", err)
	}
	if !exists {
		return nil, apperr.NotFound("shop %s", req.ShopID)
	}

	j := &Job{
		ID:        uuid.New(),
		JobNumber: generateJobNumber(time.Now()),
		ShopID:    shopID,
		Requirements: Requirements{
			Color:     req.Color,
			Duplex:    req.Duplex,
			PaperSize: strings.ToUpper(strings.TrimSpace(req.PaperSize)),
		},
		TotalAmount:     req.TotalAmount,
		AllocationState: AllocationPending,
		Status:          StatusPending,
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, err
	}
	return s.repo.GetByNumber(ctx, j.JobNumber)
}

func (s *service) GetJob(ctx context.Context, jobNumber string) (*Job, error) {
	return s.repo.GetByNumber(ctx, jobNumber)
}

func (s *service) ListShopJobs(ctx context.Context, shopID string, state string) ([]*Job, error) {
	return s.repo.ListByShop(ctx, shopID, strings.ToUpper(state))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func generateJobNumber(t time.Time) string {
	suffix := fmt.Sprintf("%06d", rand.Intn(1000000))
	return fmt.Sprintf("JOB-%s-%s", t.Format("20060102"), suffix)
}
