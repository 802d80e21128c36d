package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/brandhub/deploycenter/internal/models"
	"github.com/brandhub/deploycenter/internal/payload"
	"github.com/brandhub/deploycenter/internal/repository"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"github.com/brandhub/deploycenter/pkg/logger"
	"github.com/brandhub/deploycenter/pkg/utils"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const commitIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

type CommitService interface {
	CreateCommit(ctx context.Context, input *CreateCommitInput) (*models.Commit, error)
	GetCommit(ctx context.Context, id string) (*models.Commit, error)
	ListCommits(ctx context.Context, filter repository.CommitFilter) ([]models.Commit, error)
	ArchiveCommit(ctx context.Context, id string) (*models.Commit, error)
}

type CreateCommitInput struct {
	// ID is optional; one is generated when empty.
	ID           string
	Tool         string
	ResourceType string
	ResourceID   string
	Name         string
	Version      string
	Payload      json.RawMessage
	CreatedBy    string
	Metadata     map[string]any
}

type commitService struct {
	commits  repository.CommitRepository
	payloads *payload.Registry
	now      func() time.Time
}

func NewCommitService(commits repository.CommitRepository, payloads *payload.Registry) CommitService {
	return &commitService{commits: commits, payloads: payloads, now: time.Now}
}

var _ CommitService = (*commitService)(nil)

func (s *commitService) CreateCommit(ctx context.Context, in *CreateCommitInput) (*models.Commit, error) {
	if !slices.Contains(models.Tools, in.Tool) {
		return nil, appErr.Validation(fmt.Sprintf("unknown tool %q", in.Tool)).WithMeta("tools", models.Tools)
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, appErr.Validation("name is required")
	}
	if _, err := semver.NewVersion(in.Version); err != nil {
		return nil, appErr.Validation(fmt.Sprintf("version %q is not a semantic version", in.Version))
	}
	if _, err := s.payloads.Decode(in.ResourceType, in.Payload); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid payload")
	}

	now := s.now()
	id := in.ID
	if id == "" {
		suffix, err := gonanoid.Generate(commitIDAlphabet, 8)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInternal, "generate commit id failed")
		}
		id = fmt.Sprintf("commit-%s-%s-%d-%s", in.Tool, in.ResourceType, now.UnixMilli(), suffix)
	}

	c := &models.Commit{
		ID:           id,
		Tool:         in.Tool,
		ResourceType: in.ResourceType,
		ResourceID:   in.ResourceID,
		Name:         in.Name,
		Version:      in.Version,
		Status:       models.CommitReady,
		Payload:      datatypes.JSON(in.Payload),
		Checksum:     utils.ChecksumHex(in.Payload),
		Metadata:     datatypes.JSONMap(in.Metadata),
		CreatedBy:    in.CreatedBy,
	}
	if err := s.commits.Create(ctx, c); err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info("commit created",
		zap.String("commit_id", c.ID),
		zap.String("tool", c.Tool),
		zap.String("resource_type", c.ResourceType),
		zap.String("version", c.Version))
	return c, nil
}

func (s *commitService) GetCommit(ctx context.Context, id string) (*models.Commit, error) {
	var c models.Commit
	if err := s.commits.GetByID(ctx, id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *commitService) ListCommits(ctx context.Context, f repository.CommitFilter) ([]models.Commit, error) {
	return s.commits.List(ctx, f)
}

func (s *commitService) ArchiveCommit(ctx context.Context, id string) (*models.Commit, error) {
	if err := s.commits.Archive(ctx, id, s.now()); err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info("commit archived", zap.String("commit_id", id))
	return s.GetCommit(ctx, id)
}
