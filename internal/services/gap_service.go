package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/brandhub/deploycenter/internal/gap"
	"github.com/brandhub/deploycenter/internal/models"
	"github.com/brandhub/deploycenter/internal/repository"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
)

type GapService interface {
	ComputeGap(ctx context.Context, tool string) (*gap.Report, error)
	// Summary returns one entry per tool that has commits or releases.
	Summary(ctx context.Context) ([]gap.Summary, error)
	ListStatuses(ctx context.Context, filter repository.DeploymentStatusFilter) ([]StatusView, error)
}

// StatusView is a deployment status row with the gap to the tool's latest commit.
type StatusView struct {
	models.DeploymentStatus
	LatestCommitID   string `json:"latestCommitId,omitempty"`
	LatestCommitName string `json:"latestCommitName,omitempty"`
	// Drift and IsUpToDate are nil when the row has no commit to compare.
	Drift      *int  `json:"drift,omitempty"`
	IsUpToDate *bool `json:"isUpToDate,omitempty"`
}

type gapService struct {
	commits  repository.CommitRepository
	releases repository.ReleaseRepository
	branches repository.BranchRepository
	statuses repository.DeploymentStatusRepository
}

func NewGapService(commits repository.CommitRepository, releases repository.ReleaseRepository, branches repository.BranchRepository, statuses repository.DeploymentStatusRepository) GapService {
	return &gapService{commits: commits, releases: releases, branches: branches, statuses: statuses}
}

var _ GapService = (*gapService)(nil)

func (s *gapService) ComputeGap(ctx context.Context, tool string) (*gap.Report, error) {
	if !slices.Contains(models.Tools, tool) {
		return nil, appErr.Validation(fmt.Sprintf("unknown tool %q", tool))
	}
	latest, err := s.latest(ctx, tool)
	if err != nil {
		return nil, err
	}
	releases, err := s.releasesOf(ctx, tool)
	if err != nil {
		return nil, err
	}
	branches, err := s.branches.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(branches))
	for _, b := range branches {
		names = append(names, b.BranchName)
	}
	rep := gap.Compute(tool, latest, releases, names)
	return &rep, nil
}

func (s *gapService) Summary(ctx context.Context) ([]gap.Summary, error) {
	out := []gap.Summary{}
	for _, tool := range models.Tools {
		latest, err := s.latest(ctx, tool)
		if err != nil {
			return nil, err
		}
		releases, err := s.releasesOf(ctx, tool)
		if err != nil {
			return nil, err
		}
		if latest == nil && len(releases) == 0 {
			continue
		}
		out = append(out, gap.Summarize(tool, latest, releases))
	}
	return out, nil
}

func (s *gapService) ListStatuses(ctx context.Context, f repository.DeploymentStatusFilter) ([]StatusView, error) {
	rows, err := s.statuses.List(ctx, f)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if !isSupplierDeployment(r.DeploymentID) {
			ids = append(ids, r.DeploymentID)
		}
	}
	var commits []models.Commit
	if len(ids) > 0 {
		if commits, err = s.commits.GetMany(ctx, dedupe(ids)); err != nil {
			return nil, err
		}
	}
	versions := make(map[string]string, len(commits))
	for _, c := range commits {
		versions[c.ID] = c.Version
	}

	latestByTool := map[string]*gap.Commit{}
	out := make([]StatusView, 0, len(rows))
	for _, r := range rows {
		v := StatusView{DeploymentStatus: r}
		// Direct supplier pushes are not commits and have nothing to drift from.
		if isSupplierDeployment(r.DeploymentID) {
			out = append(out, v)
			continue
		}
		latest, seen := latestByTool[r.Tool]
		if !seen && r.Tool != "" {
			if latest, err = s.latest(ctx, r.Tool); err != nil {
				return nil, err
			}
			latestByTool[r.Tool] = latest
		}
		if latest != nil {
			v.LatestCommitID = latest.ID
			v.LatestCommitName = latest.Name
			upToDate := r.DeploymentID == latest.ID
			drift := 0
			if version, ok := versions[r.DeploymentID]; ok && !upToDate {
				drift = gap.Drift(version, latest.Version)
			}
			v.IsUpToDate = &upToDate
			v.Drift = &drift
		}
		out = append(out, v)
	}
	return out, nil
}

func isSupplierDeployment(id string) bool {
	return strings.HasPrefix(id, supplierDeploymentPrefix)
}

// latest returns nil when the tool has no commits yet.
func (s *gapService) latest(ctx context.Context, tool string) (*gap.Commit, error) {
	c, err := s.commits.LatestByTool(ctx, tool)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &gap.Commit{ID: c.ID, Name: c.Name, Version: c.Version}, nil
}

func (s *gapService) releasesOf(ctx context.Context, tool string) ([]gap.Release, error) {
	rels, err := s.releases.List(ctx, repository.ReleaseFilter{Tool: tool})
	if err != nil {
		return nil, err
	}
	out := make([]gap.Release, 0, len(rels))
	for _, r := range rels {
		out = append(out, gap.Release{BranchName: r.BranchName, CommitID: r.CommitID, Version: r.Version})
	}
	return out, nil
}
