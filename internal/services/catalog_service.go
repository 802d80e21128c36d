package services

import (
	"context"
	"time"

	"github.com/brandhub/deploycenter/internal/models"
	"github.com/brandhub/deploycenter/internal/payload"
	"github.com/brandhub/deploycenter/internal/repository"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"github.com/brandhub/deploycenter/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// supplierDeploymentPrefix starts the pseudo deployment id under which direct supplier
// pushes are recorded in the status ledger.
const supplierDeploymentPrefix = "supplier:"

var validate = validator.New(validator.WithRequiredStructEnabled())

// CatalogService writes brand-managed resources. Every create is followed by
// an auto-commit.
type CatalogService interface {
	CreateSupplier(ctx context.Context, s *models.Supplier, createdBy string) (*models.Supplier, error)
	CreateProduct(ctx context.Context, p *models.Product, createdBy string) (*models.Product, error)
	CreateCategory(ctx context.Context, c *models.Category, createdBy string) (*models.Category, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	// The List methods return one tenant's rows; uuid.Nil means the brand tenant.
	ListSuppliers(ctx context.Context, tenantID uuid.UUID) ([]models.Supplier, error)
	ListProducts(ctx context.Context, tenantID uuid.UUID) ([]models.Product, error)
	ListCategories(ctx context.Context, tenantID uuid.UUID) ([]models.Category, error)
	// DeploySupplier copies a brand supplier into the tenants behind the
	// named branches, synchronously and outside of any session.
	DeploySupplier(ctx context.Context, id uuid.UUID, branchNames []string) (*SupplierDeployReport, error)
}

type BranchDeployResult struct {
	BranchName string `json:"branchName"`
	Status     string `json:"status"`
	Created    bool   `json:"created"`
	Error      string `json:"error,omitempty"`
}

type SupplierDeployReport struct {
	SupplierID       uuid.UUID            `json:"supplierId"`
	DeploymentStatus string               `json:"deploymentStatus"`
	DeployedToCount  int                  `json:"deployedToCount"`
	Results          []BranchDeployResult `json:"results"`
	NotFound         []string             `json:"notFound"`
}

// Supplier rollup statuses.
const (
	RollupDeployed = "deployed"
	RollupPartial  = "partial"
	RollupFailed   = "failed"
)

type catalogService struct {
	suppliers     repository.SupplierRepository
	products      repository.ProductRepository
	categories    repository.CategoryRepository
	branches      repository.BranchRepository
	statuses      repository.DeploymentStatusRepository
	hook          *AutoCommitter
	brandTenantID uuid.UUID
	now           func() time.Time
}

type CatalogDeps struct {
	Suppliers  repository.SupplierRepository
	Products   repository.ProductRepository
	Categories repository.CategoryRepository
	Branches   repository.BranchRepository
	Statuses   repository.DeploymentStatusRepository
	AutoCommit *AutoCommitter
}

func NewCatalogService(deps CatalogDeps, brandTenantID uuid.UUID) CatalogService {
	return &catalogService{
		suppliers:     deps.Suppliers,
		products:      deps.Products,
		categories:    deps.Categories,
		branches:      deps.Branches,
		statuses:      deps.Statuses,
		hook:          deps.AutoCommit,
		brandTenantID: brandTenantID,
		now:           time.Now,
	}
}

var _ CatalogService = (*catalogService)(nil)

func (s *catalogService) CreateSupplier(ctx context.Context, sup *models.Supplier, createdBy string) (*models.Supplier, error) {
	sup.TenantID = s.brandTenantID
	if err := validate.Struct(sup); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid supplier")
	}
	if err := s.suppliers.Create(ctx, sup); err != nil {
		return nil, err
	}
	s.hook.Created(ctx, supplierPayload(sup), sup.ID.String(), sup.Name, createdBy)
	return sup, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, p *models.Product, createdBy string) (*models.Product, error) {
	p.TenantID = s.brandTenantID
	if err := validate.Struct(p); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid product")
	}
	data := &payload.Product{SKU: p.SKU, Name: p.Name, PriceCents: p.PriceCents, Currency: p.Currency, Attributes: p.Attributes}
	if p.CategoryID != nil {
		var cat models.Category
		if err := s.categories.GetByID(ctx, *p.CategoryID, &cat); err != nil {
			return nil, err
		}
		data.CategoryCode = cat.Code
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.hook.Created(ctx, data, p.ID.String(), p.Name, createdBy)
	return p, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, c *models.Category, createdBy string) (*models.Category, error) {
	c.TenantID = s.brandTenantID
	if err := validate.Struct(c); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid category")
	}
	data := &payload.Category{Code: c.Code, Name: c.Name}
	if c.ParentID != nil {
		var parent models.Category
		if err := s.categories.GetByID(ctx, *c.ParentID, &parent); err != nil {
			return nil, err
		}
		data.ParentCode = parent.Code
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	s.hook.Created(ctx, data, c.ID.String(), c.Name, createdBy)
	return c, nil
}

func (s *catalogService) GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var sup models.Supplier
	if err := s.suppliers.GetByID(ctx, id, &sup); err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *catalogService) ListSuppliers(ctx context.Context, tenantID uuid.UUID) ([]models.Supplier, error) {
	return s.suppliers.ListByTenant(ctx, s.tenantOrBrand(tenantID))
}

func (s *catalogService) ListProducts(ctx context.Context, tenantID uuid.UUID) ([]models.Product, error) {
	return s.products.ListByTenant(ctx, s.tenantOrBrand(tenantID))
}

func (s *catalogService) ListCategories(ctx context.Context, tenantID uuid.UUID) ([]models.Category, error) {
	return s.categories.ListByTenant(ctx, s.tenantOrBrand(tenantID))
}

func (s *catalogService) tenantOrBrand(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return s.brandTenantID
	}
	return id
}

func (s *catalogService) DeploySupplier(ctx context.Context, id uuid.UUID, branchNames []string) (*SupplierDeployReport, error) {
	names := dedupe(branchNames)
	if len(names) == 0 {
		return nil, appErr.Validation("branchNames must not be empty")
	}
	src, err := s.GetSupplier(ctx, id)
	if err != nil {
		return nil, err
	}
	if src.TenantID != s.brandTenantID {
		return nil, appErr.Validation("only brand suppliers can be deployed")
	}

	found, err := s.branches.FindByNames(ctx, names)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]models.Branch, len(found))
	for _, b := range found {
		byName[b.BranchName] = b
	}

	rep := &SupplierDeployReport{SupplierID: id, Results: []BranchDeployResult{}, NotFound: []string{}}
	var targets []models.Branch
	for _, n := range names {
		if b, ok := byName[n]; ok {
			targets = append(targets, b)
		} else {
			rep.NotFound = append(rep.NotFound, n)
		}
	}

	log := logger.Ctx(ctx).With(zap.String("supplier_id", id.String()))
	for _, b := range targets {
		res := s.deploySupplierTo(ctx, src, b)
		if res.Error != "" {
			log.Warn("supplier deploy to branch failed", zap.String("branch", b.BranchName), zap.String("error", res.Error))
		} else {
			rep.DeployedToCount++
		}
		rep.Results = append(rep.Results, res)
	}

	var at *time.Time
	if rep.DeployedToCount > 0 {
		now := s.now()
		at = &now
	}
	switch rep.DeployedToCount {
	case len(names):
		rep.DeploymentStatus = RollupDeployed
	case 0:
		rep.DeploymentStatus = RollupFailed
	default:
		rep.DeploymentStatus = RollupPartial
	}
	if err := s.suppliers.UpdateRollup(ctx, id, rep.DeploymentStatus, rep.DeployedToCount, at); err != nil {
		return nil, err
	}
	log.Info("supplier deployed",
		zap.String("status", rep.DeploymentStatus),
		zap.Int("deployed_to", rep.DeployedToCount),
		zap.Strings("not_found", rep.NotFound))
	return rep, nil
}

func (s *catalogService) deploySupplierTo(ctx context.Context, src *models.Supplier, b models.Branch) BranchDeployResult {
	res := BranchDeployResult{BranchName: b.BranchName, Status: models.DeployStatusDeployed}
	switch {
	case b.TenantID == nil:
		res.Error = "branch has no associated tenant"
	case *b.TenantID == s.brandTenantID:
		res.Error = "branch belongs to the brand tenant"
	default:
		sourceID := src.ID
		cp := &models.Supplier{
			TenantID:         *b.TenantID,
			Code:             src.Code,
			Name:             src.Name,
			TaxID:            src.TaxID,
			Email:            src.Email,
			Phone:            src.Phone,
			Attributes:       src.Attributes,
			SourceSupplierID: &sourceID,
		}
		created, err := s.suppliers.UpsertForTenant(ctx, cp)
		if err != nil {
			res.Error = err.Error()
		}
		res.Created = created
	}

	st := &models.DeploymentStatus{
		DeploymentID:  supplierDeploymentPrefix + src.ID.String(),
		BranchName:    b.BranchName,
		BranchID:      &b.ID,
		Tool:          DefaultResourceTools[payload.TypeSupplier],
		Status:        models.DeployStatusDeployed,
		LastAttemptAt: s.now(),
	}
	if res.Error != "" {
		res.Status = models.DeployStatusFailed
		st.Status = models.DeployStatusFailed
		msg := res.Error
		st.ErrorMessage = &msg
	}
	if err := s.statuses.Record(ctx, st, 1); err != nil {
		logger.Ctx(ctx).Error("record supplier deployment status failed", zap.String("branch", b.BranchName), zap.Error(err))
	}
	return res
}

func supplierPayload(s *models.Supplier) *payload.Supplier {
	return &payload.Supplier{
		Code:       s.Code,
		Name:       s.Name,
		TaxID:      s.TaxID,
		Email:      s.Email,
		Phone:      s.Phone,
		Attributes: s.Attributes,
	}
}
