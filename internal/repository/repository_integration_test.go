//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/brandhub/deploycenter/internal/migrations"
	"github.com/brandhub/deploycenter/internal/models"
	"github.com/brandhub/deploycenter/internal/repository"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"github.com/brandhub/deploycenter/pkg/database"
	"github.com/brandhub/deploycenter/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic(err)
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("deploycenter"),
		postgres.WithUsername("deploy"),
		postgres.WithPassword("deploy"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		os.Exit(1)
	}

	code := func() int {
		defer func() { _ = container.Terminate(ctx) }()

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Fprintf(os.Stderr, "connection string: %v\n", err)
			return 1
		}
		testDB, err = database.OpenPostgres(ctx, dsn, database.Options{MaxOpenConns: 10})
		if err != nil {
			fmt.Fprintf(os.Stderr, "open postgres: %v\n", err)
			return 1
		}
		if err := migrations.Run(testDB); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			return 1
		}
		return m.Run()
	}()
	os.Exit(code)
}

func seedCommit(t *testing.T, tool, version string, createdAt time.Time) *models.Commit {
	t.Helper()
	c := &models.Commit{
		ID:           fmt.Sprintf("commit-%s-supplier-%d-%s", tool, createdAt.UnixMilli(), uuid.NewString()[:8]),
		Tool:         tool,
		ResourceType: "supplier",
		Name:         "Acme Supply",
		Version:      version,
		Status:       models.CommitReady,
		Payload:      datatypes.JSON(`{"type":"supplier","data":{"code":"ACME"}}`),
		CreatedAt:    createdAt,
	}
	require.NoError(t, repository.NewCommitRepository(testDB).Create(context.Background(), c))
	return c
}

func TestReleaseActivateCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReleaseRepository(testDB)
	branch := "acme/" + uuid.NewString()[:8]
	now := time.Now().UTC()

	first, err := repo.Activate(ctx, repository.ActivateRelease{
		BranchName: branch, Tool: "crm", CommitID: "c1", Version: "1.0.0", At: now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ReleaseVersion)
	assert.Nil(t, first.PreviousCommitID)

	one := int64(1)
	second, err := repo.Activate(ctx, repository.ActivateRelease{
		BranchName: branch, Tool: "crm", CommitID: "c2", Version: "1.1.0", At: now, ExpectedReleaseVersion: &one,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ReleaseVersion)
	require.NotNil(t, second.PreviousCommitID)
	assert.Equal(t, "c1", *second.PreviousCommitID)
	assert.Equal(t, "1.0.0", *second.PreviousVersion)
	assert.Equal(t, first.ID, second.ID)

	_, err = repo.Activate(ctx, repository.ActivateRelease{
		BranchName: branch, Tool: "crm", CommitID: "c3", Version: "1.2.0", At: now, ExpectedReleaseVersion: &one,
	})
	require.True(t, appErr.IsCode(err, appErr.CodeConflict))

	// Re-activating the same commit keeps the previous pointer.
	third, err := repo.Activate(ctx, repository.ActivateRelease{
		BranchName: branch, Tool: "crm", CommitID: "c2", Version: "1.1.0", At: now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), third.ReleaseVersion)
	assert.Equal(t, "c1", *third.PreviousCommitID)

	list, err := repo.List(ctx, repository.ReleaseFilter{BranchName: branch})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestReleaseActivateConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReleaseRepository(testDB)
	branch := "globex/" + uuid.NewString()[:8]

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Activate(ctx, repository.ActivateRelease{
				BranchName: branch, Tool: "wms", CommitID: fmt.Sprintf("c%d", i), Version: "1.0.0", At: time.Now(),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rel, err := repo.Get(ctx, branch, "wms")
	require.NoError(t, err)
	assert.Equal(t, int64(n), rel.ReleaseVersion)
}

func TestSessionUnitsLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSessionRepository(testDB)
	c := seedCommit(t, "crm", "1.0.0", time.Now().UTC())

	s := &models.DeploymentSession{
		ID:             uuid.New(),
		SessionName:    "integration",
		CommitIDs:      datatypes.JSONSlice[string]{c.ID},
		TargetBranches: datatypes.JSONSlice[string]{"acme/s1", "globex/s1"},
		Status:         models.SessionPending,
		TotalBranches:  2,
	}
	units := []models.SessionCommit{
		{ID: uuid.New(), DeploymentSessionID: s.ID, CommitID: c.ID, TargetBranch: "acme/s1", Seq: 0, Status: models.UnitReady},
		{ID: uuid.New(), DeploymentSessionID: s.ID, CommitID: c.ID, TargetBranch: "globex/s1", Seq: 1, Status: models.UnitReady},
	}
	require.NoError(t, repo.CreateWithCommits(ctx, s, units))

	dup := &models.DeploymentSession{ID: uuid.New(), Status: models.SessionPending, TotalBranches: 2,
		CommitIDs: datatypes.JSONSlice[string]{c.ID}, TargetBranches: datatypes.JSONSlice[string]{"acme/s1"}}
	dupUnits := []models.SessionCommit{
		{ID: uuid.New(), DeploymentSessionID: dup.ID, CommitID: c.ID, TargetBranch: "acme/s1", Seq: 0, Status: models.UnitReady},
		{ID: uuid.New(), DeploymentSessionID: dup.ID, CommitID: c.ID, TargetBranch: "acme/s1", Seq: 1, Status: models.UnitReady},
	}
	require.True(t, appErr.IsCode(repo.CreateWithCommits(ctx, dup, dupUnits), appErr.CodeConflict))
	var got models.DeploymentSession
	require.True(t, appErr.IsCode(repo.GetByID(ctx, dup.ID, &got), appErr.CodeNotFound))

	now := time.Now().UTC()
	started, err := repo.MarkStarted(ctx, s.ID, "ops", now)
	require.NoError(t, err)
	assert.Equal(t, models.SessionInProgress, started.Status)
	_, err = repo.MarkStarted(ctx, s.ID, "ops", now)
	require.True(t, appErr.IsCode(err, appErr.CodeConflict))

	list, err := repo.ListUnits(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	ok, err := repo.ClaimUnit(ctx, list[0].ID, now)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repo.CompleteUnit(ctx, &list[0], models.UnitDeployed, nil, now))
	// Completing twice does not double count.
	require.NoError(t, repo.CompleteUnit(ctx, &list[0], models.UnitDeployed, nil, now))

	ok, err = repo.ClaimUnit(ctx, list[0].ID, now)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.ClaimUnit(ctx, list[1].ID, now)
	require.NoError(t, err)
	require.True(t, ok)
	msg := "target rejected"
	require.NoError(t, repo.CompleteUnit(ctx, &list[1], models.UnitFailed, &msg, now))

	final, err := repo.Finalize(ctx, s.ID, now)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPartial, final.Status)
	assert.Equal(t, 1, final.CompletedBranches)
	assert.Equal(t, 1, final.FailedBranches)
	require.NotNil(t, final.CompletedAt)
}

func TestDeploymentStatusRecordAccumulates(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewDeploymentStatusRepository(testDB)
	depID := "commit-" + uuid.NewString()
	msg := "timeout"

	require.NoError(t, repo.Record(ctx, &models.DeploymentStatus{
		DeploymentID: depID, BranchName: "acme/s1", Tool: "crm",
		Status: models.DeployStatusFailed, LastAttemptAt: time.Now(), ErrorMessage: &msg,
	}, 3))
	require.NoError(t, repo.Record(ctx, &models.DeploymentStatus{
		DeploymentID: depID, BranchName: "acme/s1", Tool: "crm",
		Status: models.DeployStatusDeployed, LastAttemptAt: time.Now(),
	}, 1))

	rows, err := repo.List(ctx, repository.DeploymentStatusFilter{DeploymentID: depID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].AttemptCount)
	assert.Equal(t, models.DeployStatusDeployed, rows[0].Status)
	assert.Nil(t, rows[0].ErrorMessage)
}

func TestSupplierUpsertForTenant(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSupplierRepository(testDB)
	tenant := uuid.New()

	created, err := repo.UpsertForTenant(ctx, &models.Supplier{TenantID: tenant, Code: "ACME", Name: "Acme"})
	require.NoError(t, err)
	require.True(t, created)

	s := &models.Supplier{TenantID: tenant, Code: "ACME", Name: "Acme Supply Co"}
	created, err = repo.UpsertForTenant(ctx, s)
	require.NoError(t, err)
	require.False(t, created)

	list, err := repo.ListByTenant(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Acme Supply Co", list[0].Name)
	assert.Equal(t, s.ID, list[0].ID)
}

func TestCommitLatestByTool(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCommitRepository(testDB)
	base := time.Now().UTC().Add(time.Hour)

	seedCommit(t, "hr", "1.0.0", base)
	newest := seedCommit(t, "hr", "1.1.0", base.Add(time.Minute))
	archived := seedCommit(t, "hr", "2.0.0", base.Add(2*time.Minute))
	require.NoError(t, repo.Archive(ctx, archived.ID, base))

	got, err := repo.LatestByTool(ctx, "hr")
	require.NoError(t, err)
	assert.Equal(t, newest.ID, got.ID)

	_, err = repo.LatestByTool(ctx, "analytics")
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}
