// Package dispatcher pushes the units of a launched deployment session to
// tenant webhooks, one at a time and in creation order.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brandhub/deploycenter/internal/dispatcher/webhook"
	"github.com/brandhub/deploycenter/internal/models"
	"github.com/brandhub/deploycenter/internal/payload"
	"github.com/brandhub/deploycenter/internal/repository"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"github.com/brandhub/deploycenter/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Unit failure messages stored on session commits.
const (
	MsgBranchNotFound = "branch not found"
	MsgNoTenant       = "branch has no associated tenant"
	MsgTenantNotFound = "tenant not found"
	MsgCommitNotFound = "commit not found"
)

// WebhookPath is appended to a tenant's webhook base URL, followed by the tenant id.
const WebhookPath = "/api/webhooks/brand-deploy/"

type SessionStore interface {
	GetByID(ctx context.Context, id any, dest *models.DeploymentSession) error
	ListUnits(ctx context.Context, sessionID uuid.UUID) ([]models.SessionCommit, error)
	ClaimUnit(ctx context.Context, unitID uuid.UUID, at time.Time) (bool, error)
	CompleteUnit(ctx context.Context, unit *models.SessionCommit, status models.UnitStatus, errMsg *string, at time.Time) error
	Finalize(ctx context.Context, id uuid.UUID, at time.Time) (*models.DeploymentSession, error)
}

type CommitStore interface {
	GetByID(ctx context.Context, id any, dest *models.Commit) error
	MarkDeploying(ctx context.Context, id string) error
	MarkDeployed(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string) error
}

type BranchStore interface {
	GetByName(ctx context.Context, name string) (*models.Branch, error)
	SetLastDeployed(ctx context.Context, name, commitID string) error
}

type TenantStore interface {
	GetByID(ctx context.Context, id any, dest *models.Tenant) error
}

type ReleaseStore interface {
	Activate(ctx context.Context, in repository.ActivateRelease) (*models.Release, error)
}

type StatusStore interface {
	Record(ctx context.Context, st *models.DeploymentStatus, attempts int) error
}

// Sender delivers a signed message to a tenant.
type Sender interface {
	Deliver(ctx context.Context, url string, msg webhook.Message) (*webhook.Response, error)
}

type Deps struct {
	Sessions SessionStore
	Commits  CommitStore
	Branches BranchStore
	Tenants  TenantStore
	Releases ReleaseStore
	Statuses StatusStore
	Sender   Sender
	Payloads *payload.Registry
}

// Dispatcher runs the units of one session at a time.
type Dispatcher struct {
	Deps
	defaultBaseURL string
	now            func() time.Time
}

// New returns a Dispatcher. defaultBaseURL is used for tenants without their
// own webhook base URL.
func New(deps Deps, defaultBaseURL string) *Dispatcher {
	if deps.Payloads == nil {
		deps.Payloads = payload.NewRegistry()
	}
	return &Dispatcher{Deps: deps, defaultBaseURL: defaultBaseURL, now: time.Now}
}

// RunSession dispatches every unfinished unit of an in_progress session and
// returns the session as it stands afterwards. Units already deployed or
// failed are skipped, so a run interrupted by a crash resumes where it
// stopped. Errors are only returned for storage failures; a unit that cannot
// be delivered is recorded as failed and the run moves on.
func (d *Dispatcher) RunSession(ctx context.Context, id uuid.UUID) (*models.DeploymentSession, error) {
	log := logger.Ctx(ctx).With(zap.String("session_id", id.String()))

	var s models.DeploymentSession
	if err := d.Sessions.GetByID(ctx, id, &s); err != nil {
		return nil, err
	}
	if s.Status != models.SessionInProgress {
		log.Info("session not in progress, nothing to dispatch", zap.String("status", string(s.Status)))
		return &s, nil
	}

	units, err := d.Sessions.ListUnits(ctx, id)
	if err != nil {
		return nil, err
	}

	log.Info("dispatching session", zap.Int("units", len(units)))
	for i := range units {
		u := &units[i]
		if u.Status == models.UnitDeployed || u.Status == models.UnitFailed {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		claimed, err := d.Sessions.ClaimUnit(ctx, u.ID, d.now())
		if err != nil {
			return nil, err
		}
		if !claimed {
			continue
		}
		if err := d.runUnit(logger.WithContext(ctx, log), &s, u); err != nil {
			return nil, err
		}
	}

	final, err := d.Sessions.Finalize(ctx, id, d.now())
	if err != nil {
		return nil, err
	}
	log.Info("session dispatched",
		zap.String("status", string(final.Status)),
		zap.Int("completed", final.CompletedBranches),
		zap.Int("failed", final.FailedBranches))
	return final, nil
}

type outcome struct {
	branch   *models.Branch
	commit   *models.Commit
	resp     *webhook.Response
	attempts int
	err      error
}

func (d *Dispatcher) runUnit(ctx context.Context, s *models.DeploymentSession, u *models.SessionCommit) error {
	log := logger.Ctx(ctx).With(
		zap.String("unit_id", u.ID.String()),
		zap.String("commit_id", u.CommitID),
		zap.String("branch", u.TargetBranch))

	o, err := d.deliver(ctx, u)
	if err != nil {
		return err
	}
	now := d.now()

	if err := d.record(ctx, s, u, o, now); err != nil {
		return err
	}

	if o.err != nil {
		msg := failureMessage(o.err)
		log.Warn("unit failed", zap.String("error", msg))
		if o.commit != nil {
			if err := d.Commits.MarkFailed(ctx, o.commit.ID); err != nil {
				return err
			}
		}
		return d.Sessions.CompleteUnit(ctx, u, models.UnitFailed, &msg, now)
	}

	if err := d.Branches.SetLastDeployed(ctx, u.TargetBranch, o.commit.ID); err != nil {
		return err
	}
	rel, err := d.Releases.Activate(ctx, repository.ActivateRelease{
		BranchName:          u.TargetBranch,
		Tool:                o.commit.Tool,
		CommitID:            o.commit.ID,
		Version:             o.commit.Version,
		DeploymentSessionID: &s.ID,
		At:                  now,
	})
	if err != nil {
		return err
	}
	if err := d.Commits.MarkDeployed(ctx, o.commit.ID, now); err != nil {
		return err
	}
	log.Info("unit deployed", zap.Int64("release_version", rel.ReleaseVersion), zap.Int("attempts", o.attempts))
	return d.Sessions.CompleteUnit(ctx, u, models.UnitDeployed, nil, now)
}

// deliver resolves the unit's target and pushes the commit. Resolution and
// delivery problems end up in outcome.err; only storage errors are returned.
func (d *Dispatcher) deliver(ctx context.Context, u *models.SessionCommit) (*outcome, error) {
	o := &outcome{attempts: 1}

	var c models.Commit
	if err := d.Commits.GetByID(ctx, u.CommitID, &c); err != nil {
		if !appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, err
		}
		o.err = appErr.NotFound(MsgCommitNotFound)
		return o, nil
	}
	o.commit = &c

	b, err := d.Branches.GetByName(ctx, u.TargetBranch)
	if err != nil {
		if !appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, err
		}
		o.err = appErr.NotFound(MsgBranchNotFound)
		return o, nil
	}
	o.branch = b

	if b.TenantID == nil {
		o.err = appErr.NotFound(MsgNoTenant)
		return o, nil
	}
	var t models.Tenant
	if err := d.Tenants.GetByID(ctx, *b.TenantID, &t); err != nil {
		if !appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, err
		}
		o.err = appErr.NotFound(MsgTenantNotFound)
		return o, nil
	}

	data, err := d.encode(&c)
	if err != nil {
		o.err = appErr.Wrap(err, appErr.CodeInvalid, "invalid payload")
		return o, nil
	}

	if err := d.Commits.MarkDeploying(ctx, c.ID); err != nil {
		return nil, err
	}

	resp, err := d.Sender.Deliver(ctx, d.webhookURL(&t), webhook.Message{
		CommitID:       c.ID,
		Tool:           c.Tool,
		ResourceType:   c.ResourceType,
		Version:        c.Version,
		Data:           data,
		IdempotencyKey: u.ID.String(),
	})
	if resp != nil {
		o.resp = resp
		o.attempts = max(resp.Attempts, 1)
	}
	o.err = err
	return o, nil
}

// encode validates the stored payload against its resource type and wraps
// the stored data, unchanged, in a full document.
func (d *Dispatcher) encode(c *models.Commit) (json.RawMessage, error) {
	doc, err := d.Payloads.Decode(c.ResourceType, c.Payload)
	if err != nil {
		return nil, err
	}
	if doc.Version == "" {
		doc.Version = c.Version
	}
	if doc.Timestamp.IsZero() {
		doc.Timestamp = c.CreatedAt.UTC()
	}
	return doc.Encode()
}

func (d *Dispatcher) webhookURL(t *models.Tenant) string {
	base := t.WebhookBaseURL
	if base == "" {
		base = d.defaultBaseURL
	}
	return strings.TrimRight(base, "/") + WebhookPath + t.ID.String()
}

func (d *Dispatcher) record(ctx context.Context, s *models.DeploymentSession, u *models.SessionCommit, o *outcome, at time.Time) error {
	st := &models.DeploymentStatus{
		DeploymentID:        u.CommitID,
		BranchName:          u.TargetBranch,
		DeploymentSessionID: &s.ID,
		Status:              models.DeployStatusDeployed,
		LastAttemptAt:       at,
	}
	if o.commit != nil {
		st.Tool = o.commit.Tool
	}
	if o.branch != nil {
		st.BranchID = &o.branch.ID
	}
	if o.resp != nil && len(o.resp.Body) > 0 {
		st.WebhookResponse = []byte(o.resp.Body)
	}
	if o.err != nil {
		msg := failureMessage(o.err)
		st.Status = models.DeployStatusFailed
		st.ErrorMessage = &msg
	}
	if err := d.Statuses.Record(ctx, st, o.attempts); err != nil {
		return fmt.Errorf("record status of unit %s: %w", u.ID, err)
	}
	return nil
}

// failureMessage is the operator-facing text of a unit failure, without the
// error code prefix.
func failureMessage(err error) string {
	var ae *appErr.AppError
	if !errors.As(err, &ae) {
		return err.Error()
	}
	if ae.Err != nil {
		return ae.Message + ": " + ae.Err.Error()
	}
	return ae.Message
}
