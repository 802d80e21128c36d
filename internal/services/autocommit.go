package services

import (
	"context"
	"time"

	"github.com/brandhub/deploycenter/internal/payload"
	"github.com/brandhub/deploycenter/pkg/logger"
	"go.uber.org/zap"
)

// AutoCommitVersion is the version stamped on generated commits.
const AutoCommitVersion = "1.0.0"

// DefaultResourceTools maps a resource type to the tool that consumes it.
var DefaultResourceTools = map[string]string{
	payload.TypeSupplier: "crm",
	payload.TypeProduct:  "pos",
	payload.TypeCategory: "pos",
}

// AutoCommitter turns every created brand resource into a ready commit.
// It never fails the write it observes.
type AutoCommitter struct {
	commits CommitService
	tools   map[string]string
	now     func() time.Time
}

func NewAutoCommitter(commits CommitService, tools map[string]string) *AutoCommitter {
	if tools == nil {
		tools = DefaultResourceTools
	}
	return &AutoCommitter{commits: commits, tools: tools, now: time.Now}
}

// Created records a commit for d. Failures are logged and dropped.
func (a *AutoCommitter) Created(ctx context.Context, d payload.Data, resourceID, name, createdBy string) {
	log := logger.Ctx(ctx).With(
		zap.String("resource_type", d.Kind()),
		zap.String("resource_id", resourceID))

	tool, ok := a.tools[d.Kind()]
	if !ok {
		log.Debug("no tool mapped for resource type, skipping auto-commit")
		return
	}
	raw, err := payload.Envelope(d, AutoCommitVersion, a.now())
	if err != nil {
		log.Error("auto-commit: encode payload failed", zap.Error(err))
		return
	}
	c, err := a.commits.CreateCommit(ctx, &CreateCommitInput{
		Tool:         tool,
		ResourceType: d.Kind(),
		ResourceID:   resourceID,
		Name:         name,
		Version:      AutoCommitVersion,
		Payload:      raw,
		CreatedBy:    createdBy,
		Metadata:     map[string]any{"autoGenerated": true},
	})
	if err != nil {
		log.Error("auto-commit failed", zap.Error(err))
		return
	}
	log.Info("auto-commit created", zap.String("commit_id", c.ID))
}
