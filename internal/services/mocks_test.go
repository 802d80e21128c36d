package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/brandhub/deploycenter/internal/models"
	"github.com/brandhub/deploycenter/internal/repository"
	"github.com/brandhub/deploycenter/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests (required by services)
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockCommitRepository struct {
	mock.Mock
}

func (m *mockCommitRepository) Create(ctx context.Context, obj *models.Commit) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockCommitRepository) GetByID(ctx context.Context, id any, dest *models.Commit) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.Commit)
	}
	return args.Error(0)
}

func (m *mockCommitRepository) Update(ctx context.Context, obj *models.Commit) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockCommitRepository) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCommitRepository) List(ctx context.Context, f repository.CommitFilter) ([]models.Commit, error) {
	args := m.Called(ctx, f)
	if v := args.Get(0); v != nil {
		return v.([]models.Commit), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCommitRepository) GetMany(ctx context.Context, ids []string) ([]models.Commit, error) {
	args := m.Called(ctx, ids)
	if v := args.Get(0); v != nil {
		return v.([]models.Commit), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCommitRepository) LatestByTool(ctx context.Context, tool string) (*models.Commit, error) {
	args := m.Called(ctx, tool)
	if v := args.Get(0); v != nil {
		return v.(*models.Commit), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCommitRepository) MarkDeploying(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCommitRepository) MarkDeployed(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockCommitRepository) MarkFailed(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCommitRepository) Archive(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type mockSessionRepository struct {
	mock.Mock
}

func (m *mockSessionRepository) Create(ctx context.Context, obj *models.DeploymentSession) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockSessionRepository) GetByID(ctx context.Context, id any, dest *models.DeploymentSession) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.DeploymentSession)
	}
	return args.Error(0)
}

func (m *mockSessionRepository) Update(ctx context.Context, obj *models.DeploymentSession) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockSessionRepository) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSessionRepository) CreateWithCommits(ctx context.Context, s *models.DeploymentSession, units []models.SessionCommit) error {
	return m.Called(ctx, s, units).Error(0)
}

func (m *mockSessionRepository) List(ctx context.Context, status models.SessionStatus) ([]models.DeploymentSession, error) {
	args := m.Called(ctx, status)
	if v := args.Get(0); v != nil {
		return v.([]models.DeploymentSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionRepository) ListUnits(ctx context.Context, sessionID uuid.UUID) ([]models.SessionCommit, error) {
	args := m.Called(ctx, sessionID)
	if v := args.Get(0); v != nil {
		return v.([]models.SessionCommit), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionRepository) MarkStarted(ctx context.Context, id uuid.UUID, by string, at time.Time) (*models.DeploymentSession, error) {
	args := m.Called(ctx, id, by, at)
	if v := args.Get(0); v != nil {
		return v.(*models.DeploymentSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionRepository) MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) (*models.DeploymentSession, error) {
	args := m.Called(ctx, id, at)
	if v := args.Get(0); v != nil {
		return v.(*models.DeploymentSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionRepository) MarkUnstarted(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSessionRepository) ClaimUnit(ctx context.Context, unitID uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, unitID, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionRepository) CompleteUnit(ctx context.Context, unit *models.SessionCommit, status models.UnitStatus, errMsg *string, at time.Time) error {
	return m.Called(ctx, unit, status, errMsg, at).Error(0)
}

func (m *mockSessionRepository) Finalize(ctx context.Context, id uuid.UUID, at time.Time) (*models.DeploymentSession, error) {
	args := m.Called(ctx, id, at)
	if v := args.Get(0); v != nil {
		return v.(*models.DeploymentSession), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueSession(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockReleaseRepository struct {
	mock.Mock
}

func (m *mockReleaseRepository) Activate(ctx context.Context, in repository.ActivateRelease) (*models.Release, error) {
	args := m.Called(ctx, in)
	if v := args.Get(0); v != nil {
		return v.(*models.Release), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReleaseRepository) Get(ctx context.Context, branchName, tool string) (*models.Release, error) {
	args := m.Called(ctx, branchName, tool)
	if v := args.Get(0); v != nil {
		return v.(*models.Release), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReleaseRepository) List(ctx context.Context, f repository.ReleaseFilter) ([]models.Release, error) {
	args := m.Called(ctx, f)
	if v := args.Get(0); v != nil {
		return v.([]models.Release), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockBranchRepository struct {
	mock.Mock
}

func (m *mockBranchRepository) Create(ctx context.Context, obj *models.Branch) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockBranchRepository) GetByID(ctx context.Context, id any, dest *models.Branch) error {
	return m.Called(ctx, id, dest).Error(0)
}

func (m *mockBranchRepository) Update(ctx context.Context, obj *models.Branch) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockBranchRepository) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockBranchRepository) GetByName(ctx context.Context, name string) (*models.Branch, error) {
	args := m.Called(ctx, name)
	if v := args.Get(0); v != nil {
		return v.(*models.Branch), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBranchRepository) FindByNames(ctx context.Context, names []string) ([]models.Branch, error) {
	args := m.Called(ctx, names)
	if v := args.Get(0); v != nil {
		return v.([]models.Branch), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBranchRepository) List(ctx context.Context) ([]models.Branch, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]models.Branch), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBranchRepository) Upsert(ctx context.Context, b *models.Branch) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockBranchRepository) SetLastDeployed(ctx context.Context, name, commitID string) error {
	return m.Called(ctx, name, commitID).Error(0)
}

type mockTenantRepository struct {
	mock.Mock
}

func (m *mockTenantRepository) Create(ctx context.Context, obj *models.Tenant) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockTenantRepository) GetByID(ctx context.Context, id any, dest *models.Tenant) error {
	return m.Called(ctx, id, dest).Error(0)
}

func (m *mockTenantRepository) Update(ctx context.Context, obj *models.Tenant) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockTenantRepository) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockTenantRepository) ListActive(ctx context.Context) ([]models.Tenant, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]models.Tenant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTenantRepository) ListActiveStores(ctx context.Context) ([]models.Store, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]models.Store), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockStatusRepository struct {
	mock.Mock
}

func (m *mockStatusRepository) Record(ctx context.Context, st *models.DeploymentStatus, attempts int) error {
	return m.Called(ctx, st, attempts).Error(0)
}

func (m *mockStatusRepository) List(ctx context.Context, f repository.DeploymentStatusFilter) ([]models.DeploymentStatus, error) {
	args := m.Called(ctx, f)
	if v := args.Get(0); v != nil {
		return v.([]models.DeploymentStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSupplierRepository struct {
	mock.Mock
}

func (m *mockSupplierRepository) Create(ctx context.Context, obj *models.Supplier) error {
	args := m.Called(ctx, obj)
	if args.Error(0) == nil && obj.ID == uuid.Nil {
		obj.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockSupplierRepository) GetByID(ctx context.Context, id any, dest *models.Supplier) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.Supplier)
	}
	return args.Error(0)
}

func (m *mockSupplierRepository) Update(ctx context.Context, obj *models.Supplier) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockSupplierRepository) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSupplierRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Supplier, error) {
	args := m.Called(ctx, tenantID)
	if v := args.Get(0); v != nil {
		return v.([]models.Supplier), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSupplierRepository) UpsertForTenant(ctx context.Context, s *models.Supplier) (bool, error) {
	args := m.Called(ctx, s)
	return args.Bool(0), args.Error(1)
}

func (m *mockSupplierRepository) UpdateRollup(ctx context.Context, id uuid.UUID, status string, deployedTo int, at *time.Time) error {
	return m.Called(ctx, id, status, deployedTo, at).Error(0)
}

type mockCategoryRepository struct {
	mock.Mock
}

func (m *mockCategoryRepository) Create(ctx context.Context, obj *models.Category) error {
	args := m.Called(ctx, obj)
	if args.Error(0) == nil && obj.ID == uuid.Nil {
		obj.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id any, dest *models.Category) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.Category)
	}
	return args.Error(0)
}

func (m *mockCategoryRepository) Update(ctx context.Context, obj *models.Category) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCategoryRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Category, error) {
	args := m.Called(ctx, tenantID)
	if v := args.Get(0); v != nil {
		return v.([]models.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, obj *models.Product) error {
	args := m.Called(ctx, obj)
	if args.Error(0) == nil && obj.ID == uuid.Nil {
		obj.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id any, dest *models.Product) error {
	return m.Called(ctx, id, dest).Error(0)
}

func (m *mockProductRepository) Update(ctx context.Context, obj *models.Product) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProductRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Product, error) {
	args := m.Called(ctx, tenantID)
	if v := args.Get(0); v != nil {
		return v.([]models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}
