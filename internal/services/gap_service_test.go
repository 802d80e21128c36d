package services

import (
	"context"
	"testing"

	"github.com/brandhub/deploycenter/internal/models"
	"github.com/brandhub/deploycenter/internal/repository"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGapService_ComputeGap(t *testing.T) {
	commits := &mockCommitRepository{}
	releases := &mockReleaseRepository{}
	branches := &mockBranchRepository{}
	svc := NewGapService(commits, releases, branches, &mockStatusRepository{})

	commits.On("LatestByTool", mock.Anything, "crm").
		Return(&models.Commit{ID: "c3", Name: "Acme Foods", Version: "1.3.1"}, nil).Once()
	releases.On("List", mock.Anything, repository.ReleaseFilter{Tool: "crm"}).Return([]models.Release{
		{BranchName: "globex", Tool: "crm", CommitID: "c1", Version: "1.2.0"},
		{BranchName: "acme", Tool: "crm", CommitID: "c3", Version: "1.3.1"},
	}, nil).Once()
	branches.On("List", mock.Anything).Return([]models.Branch{
		{BranchName: "acme"}, {BranchName: "globex"}, {BranchName: "initech"},
	}, nil).Once()

	rep, err := svc.ComputeGap(context.Background(), "crm")
	require.NoError(t, err)
	require.Equal(t, "c3", rep.LatestCommitID)
	require.Len(t, rep.Branches, 2)

	require.Equal(t, "acme", rep.Branches[0].BranchName)
	require.True(t, rep.Branches[0].IsUpToDate)
	require.Zero(t, rep.Branches[0].Drift)

	require.Equal(t, "globex", rep.Branches[1].BranchName)
	require.False(t, rep.Branches[1].IsUpToDate)
	require.Equal(t, 2, rep.Branches[1].Drift)

	require.Equal(t, []string{"initech"}, rep.NeverDeployed)
	mock.AssertExpectationsForObjects(t, commits, releases, branches)
}

func TestGapService_ComputeGapWithoutCommits(t *testing.T) {
	commits := &mockCommitRepository{}
	releases := &mockReleaseRepository{}
	branches := &mockBranchRepository{}
	svc := NewGapService(commits, releases, branches, &mockStatusRepository{})

	commits.On("LatestByTool", mock.Anything, "hr").Return(nil, appErr.NotFound("commit not found")).Once()
	releases.On("List", mock.Anything, repository.ReleaseFilter{Tool: "hr"}).Return([]models.Release{}, nil).Once()
	branches.On("List", mock.Anything).Return([]models.Branch{{BranchName: "acme"}}, nil).Once()

	rep, err := svc.ComputeGap(context.Background(), "hr")
	require.NoError(t, err)
	require.Empty(t, rep.LatestCommitID)
	require.Empty(t, rep.Branches)
	require.Equal(t, []string{"acme"}, rep.NeverDeployed)
}

func TestGapService_UnknownTool(t *testing.T) {
	commits := &mockCommitRepository{}
	svc := NewGapService(commits, &mockReleaseRepository{}, &mockBranchRepository{}, &mockStatusRepository{})

	_, err := svc.ComputeGap(context.Background(), "billing")
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	commits.AssertNotCalled(t, "LatestByTool", mock.Anything, mock.Anything)
}

func TestGapService_ListStatuses(t *testing.T) {
	commits := &mockCommitRepository{}
	statuses := &mockStatusRepository{}
	svc := NewGapService(commits, &mockReleaseRepository{}, &mockBranchRepository{}, statuses)

	filter := repository.DeploymentStatusFilter{Tool: "crm"}
	statuses.On("List", mock.Anything, filter).Return([]models.DeploymentStatus{
		{DeploymentID: "c1", BranchName: "acme", Tool: "crm", Status: models.DeployStatusDeployed},
		{DeploymentID: "c2", BranchName: "globex", Tool: "crm", Status: models.DeployStatusFailed},
	}, nil).Once()
	commits.On("GetMany", mock.Anything, []string{"c1", "c2"}).Return([]models.Commit{
		{ID: "c1", Version: "1.0.0"},
		{ID: "c2", Version: "1.1.0"},
	}, nil).Once()
	commits.On("LatestByTool", mock.Anything, "crm").Return(&models.Commit{ID: "c2", Name: "Acme", Version: "1.1.0"}, nil).Once()

	views, err := svc.ListStatuses(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, views, 2)

	require.False(t, *views[0].IsUpToDate)
	require.Equal(t, 1, *views[0].Drift)
	require.Equal(t, "c2", views[0].LatestCommitID)

	require.True(t, *views[1].IsUpToDate)
	require.Zero(t, *views[1].Drift)

	// latest is looked up once per tool
	commits.AssertNumberOfCalls(t, "LatestByTool", 1)
}

func TestGapService_ListStatusesSupplierPushes(t *testing.T) {
	commits := &mockCommitRepository{}
	statuses := &mockStatusRepository{}
	svc := NewGapService(commits, &mockReleaseRepository{}, &mockBranchRepository{}, statuses)

	supplierID := uuid.New()
	filter := repository.DeploymentStatusFilter{Tool: "crm"}
	statuses.On("List", mock.Anything, filter).Return([]models.DeploymentStatus{
		{DeploymentID: "supplier:" + supplierID.String(), BranchName: "acme", Tool: "crm", Status: models.DeployStatusDeployed},
	}, nil).Once()

	views, err := svc.ListStatuses(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Empty(t, views[0].LatestCommitID)
	require.Nil(t, views[0].IsUpToDate)
	require.Nil(t, views[0].Drift)

	commits.AssertNotCalled(t, "GetMany", mock.Anything, mock.Anything)
	commits.AssertNotCalled(t, "LatestByTool", mock.Anything, mock.Anything)
}
