package services

import (
	"context"

	"github.com/brandhub/deploycenter/internal/models"
	"github.com/brandhub/deploycenter/internal/repository"
	"github.com/brandhub/deploycenter/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BranchService interface {
	ListBranches(ctx context.Context) ([]models.Branch, error)
	// Reconcile mirrors active tenants and stores into branches.
	Reconcile(ctx context.Context) (*ReconcileResult, error)
}

type ReconcileResult struct {
	Created  []string `json:"created"`
	Existing []string `json:"existing"`
	Skipped  []string `json:"skipped,omitempty"`
}

type branchService struct {
	branches      repository.BranchRepository
	tenants       repository.TenantRepository
	brandTenantID uuid.UUID
}

// NewBranchService returns a BranchService. The brand tenant owns the
// canonical resources and never becomes a deployment target.
func NewBranchService(branches repository.BranchRepository, tenants repository.TenantRepository, brandTenantID uuid.UUID) BranchService {
	return &branchService{branches: branches, tenants: tenants, brandTenantID: brandTenantID}
}

var _ BranchService = (*branchService)(nil)

func (s *branchService) ListBranches(ctx context.Context) ([]models.Branch, error) {
	return s.branches.List(ctx)
}

func (s *branchService) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	stores, err := s.tenants.ListActiveStores(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.branches.List(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(current))
	for _, b := range current {
		known[b.BranchName] = struct{}{}
	}

	slugs := make(map[uuid.UUID]string, len(tenants))
	var wanted []models.Branch
	for _, t := range tenants {
		if t.ID == s.brandTenantID {
			continue
		}
		slugs[t.ID] = t.Slug
		tenantID := t.ID
		wanted = append(wanted, models.Branch{BranchName: models.TenantBranchName(t.Slug), TenantID: &tenantID})
	}

	res := &ReconcileResult{Created: []string{}, Existing: []string{}}
	for _, st := range stores {
		slug, ok := slugs[st.TenantID]
		if !ok {
			res.Skipped = append(res.Skipped, st.Code)
			continue
		}
		tenantID, storeID := st.TenantID, st.ID
		wanted = append(wanted, models.Branch{BranchName: models.StoreBranchName(slug, st.Code), TenantID: &tenantID, StoreID: &storeID})
	}

	for i := range wanted {
		b := &wanted[i]
		if err := s.branches.Upsert(ctx, b); err != nil {
			return nil, err
		}
		if _, ok := known[b.BranchName]; ok {
			res.Existing = append(res.Existing, b.BranchName)
		} else {
			res.Created = append(res.Created, b.BranchName)
		}
	}

	logger.Ctx(ctx).Info("branches reconciled",
		zap.Int("created", len(res.Created)),
		zap.Int("existing", len(res.Existing)),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}
