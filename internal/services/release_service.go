package services

import (
	"context"
	"fmt"
	"time"

	"github.com/brandhub/deploycenter/internal/models"
	"github.com/brandhub/deploycenter/internal/repository"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"github.com/brandhub/deploycenter/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReleaseService interface {
	// PutRelease creates or overwrites the active release of a branch and tool.
	PutRelease(ctx context.Context, input *PutReleaseInput) (*models.Release, error)
	ListReleases(ctx context.Context, filter repository.ReleaseFilter) ([]models.Release, error)
	// Rollback launches a session that redeploys the previous commit.
	Rollback(ctx context.Context, input *RollbackInput) (*models.DeploymentSession, error)
}

type PutReleaseInput struct {
	BranchName             string
	Tool                   string
	CommitID               string
	Version                string
	DeploymentSessionID    *uuid.UUID
	ExpectedReleaseVersion *int64
}

type RollbackInput struct {
	BranchName string
	Tool       string
	LaunchedBy string
}

type releaseService struct {
	releases repository.ReleaseRepository
	branches repository.BranchRepository
	commits  repository.CommitRepository
	sessions SessionService
	now      func() time.Time
}

func NewReleaseService(releases repository.ReleaseRepository, branches repository.BranchRepository, commits repository.CommitRepository, sessions SessionService) ReleaseService {
	return &releaseService{releases: releases, branches: branches, commits: commits, sessions: sessions, now: time.Now}
}

var _ ReleaseService = (*releaseService)(nil)

func (s *releaseService) PutRelease(ctx context.Context, in *PutReleaseInput) (*models.Release, error) {
	if in.BranchName == "" || in.Tool == "" || in.CommitID == "" {
		return nil, appErr.Validation("branchName, tool and commitId are required")
	}
	if _, err := s.branches.GetByName(ctx, in.BranchName); err != nil {
		return nil, err
	}
	var c models.Commit
	if err := s.commits.GetByID(ctx, in.CommitID, &c); err != nil {
		return nil, err
	}
	if c.Tool != in.Tool {
		return nil, appErr.Validation(fmt.Sprintf("commit %s targets %s, not %s", c.ID, c.Tool, in.Tool))
	}
	version := in.Version
	if version == "" {
		version = c.Version
	}

	rel, err := s.releases.Activate(ctx, repository.ActivateRelease{
		BranchName:             in.BranchName,
		Tool:                   in.Tool,
		CommitID:               c.ID,
		Version:                version,
		DeploymentSessionID:    in.DeploymentSessionID,
		At:                     s.now(),
		ExpectedReleaseVersion: in.ExpectedReleaseVersion,
	})
	if err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info("release set",
		zap.String("branch", rel.BranchName),
		zap.String("tool", rel.Tool),
		zap.String("commit_id", rel.CommitID),
		zap.Int64("release_version", rel.ReleaseVersion))
	return rel, nil
}

func (s *releaseService) ListReleases(ctx context.Context, f repository.ReleaseFilter) ([]models.Release, error) {
	return s.releases.List(ctx, f)
}

func (s *releaseService) Rollback(ctx context.Context, in *RollbackInput) (*models.DeploymentSession, error) {
	rel, err := s.releases.Get(ctx, in.BranchName, in.Tool)
	if err != nil {
		return nil, err
	}
	if rel.PreviousCommitID == nil {
		return nil, appErr.New(appErr.CodeConflict, fmt.Sprintf("%s on %s has no previous release", in.Tool, in.BranchName))
	}

	sess, err := s.sessions.CreateSession(ctx, &CreateSessionInput{
		SessionName:    fmt.Sprintf("rollback %s/%s to %s", in.BranchName, in.Tool, *rel.PreviousCommitID),
		CommitIDs:      []string{*rel.PreviousCommitID},
		TargetBranches: []string{in.BranchName},
		LaunchedBy:     in.LaunchedBy,
	})
	if err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info("rollback requested",
		zap.String("branch", in.BranchName),
		zap.String("tool", in.Tool),
		zap.String("from_commit", rel.CommitID),
		zap.String("to_commit", *rel.PreviousCommitID))
	return s.sessions.LaunchSession(ctx, sess.ID, in.LaunchedBy)
}
