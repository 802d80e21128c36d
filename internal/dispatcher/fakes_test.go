package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/brandhub/deploycenter/internal/models"
	"github.com/brandhub/deploycenter/internal/repository"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"github.com/google/uuid"
)

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.DeploymentSession
	units    map[uuid.UUID][]models.SessionCommit
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[uuid.UUID]*models.DeploymentSession{}, units: map[uuid.UUID][]models.SessionCommit{}}
}

// add creates an in_progress session over the cross product of commits and branches.
func (f *fakeSessions) add(commitIDs, branches []string) *models.DeploymentSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &models.DeploymentSession{
		ID:             uuid.New(),
		CommitIDs:      commitIDs,
		TargetBranches: branches,
		Status:         models.SessionInProgress,
		TotalBranches:  len(commitIDs) * len(branches),
	}
	f.sessions[s.ID] = s
	seq := 0
	for _, c := range commitIDs {
		for _, b := range branches {
			f.units[s.ID] = append(f.units[s.ID], models.SessionCommit{
				ID: uuid.New(), DeploymentSessionID: s.ID, CommitID: c, TargetBranch: b, Seq: seq, Status: models.UnitReady,
			})
			seq++
		}
	}
	return s
}

func (f *fakeSessions) session(id uuid.UUID) models.DeploymentSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.sessions[id]
}

func (f *fakeSessions) unitsOf(id uuid.UUID) []models.SessionCommit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SessionCommit(nil), f.units[id]...)
}

func (f *fakeSessions) setUnitStatus(sessionID uuid.UUID, seq int, st models.UnitStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.units[sessionID][seq].Status = st
}

func (f *fakeSessions) GetByID(_ context.Context, id any, dest *models.DeploymentSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id.(uuid.UUID)]
	if !ok {
		return appErr.NotFound("session not found")
	}
	*dest = *s
	return nil
}

func (f *fakeSessions) ListUnits(_ context.Context, id uuid.UUID) ([]models.SessionCommit, error) {
	return f.unitsOf(id), nil
}

func (f *fakeSessions) ClaimUnit(_ context.Context, unitID uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.findUnit(unitID)
	if u == nil || (u.Status != models.UnitReady && u.Status != models.UnitInProgress) {
		return false, nil
	}
	u.Status = models.UnitInProgress
	u.StartedAt = &at
	return true, nil
}

func (f *fakeSessions) CompleteUnit(_ context.Context, unit *models.SessionCommit, status models.UnitStatus, errMsg *string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.findUnit(unit.ID)
	if u == nil || u.Status != models.UnitInProgress {
		return nil
	}
	u.Status = status
	u.CompletedAt = &at
	u.ErrorMessage = errMsg
	s := f.sessions[u.DeploymentSessionID]
	if status == models.UnitDeployed {
		s.CompletedBranches++
	} else {
		s.FailedBranches++
	}
	return nil
}

func (f *fakeSessions) Finalize(_ context.Context, id uuid.UUID, at time.Time) (*models.DeploymentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[id]
	if s.Status == models.SessionInProgress && s.CompletedBranches+s.FailedBranches >= s.TotalBranches {
		s.Status = models.FinalSessionStatus(s.CompletedBranches, s.FailedBranches)
		s.CompletedAt = &at
	}
	out := *s
	return &out, nil
}

func (f *fakeSessions) findUnit(id uuid.UUID) *models.SessionCommit {
	for sid := range f.units {
		for i := range f.units[sid] {
			if f.units[sid][i].ID == id {
				return &f.units[sid][i]
			}
		}
	}
	return nil
}

type fakeCommits struct {
	mu sync.Mutex
	m  map[string]*models.Commit
}

func (f *fakeCommits) get(id string) models.Commit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.m[id]
}

func (f *fakeCommits) GetByID(_ context.Context, id any, dest *models.Commit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.m[id.(string)]
	if !ok {
		return appErr.NotFound("commit not found")
	}
	*dest = *c
	return nil
}

func (f *fakeCommits) setStatus(id string, from []models.CommitStatus, to models.CommitStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.m[id]
	for _, s := range from {
		if c.Status == s {
			c.Status = to
			return
		}
	}
}

func (f *fakeCommits) MarkDeploying(_ context.Context, id string) error {
	f.setStatus(id, []models.CommitStatus{models.CommitReady, models.CommitFailed}, models.CommitDeploying)
	return nil
}

func (f *fakeCommits) MarkDeployed(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[id].Status = models.CommitDeployed
	f.m[id].DeployedAt = &at
	return nil
}

func (f *fakeCommits) MarkFailed(_ context.Context, id string) error {
	f.setStatus(id, []models.CommitStatus{models.CommitDeploying}, models.CommitFailed)
	return nil
}

type fakeBranches struct {
	mu sync.Mutex
	m  map[string]*models.Branch
}

func (f *fakeBranches) GetByName(_ context.Context, name string) (*models.Branch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.m[name]
	if !ok {
		return nil, appErr.NotFound("branch not found")
	}
	out := *b
	return &out, nil
}

func (f *fakeBranches) SetLastDeployed(_ context.Context, name, commitID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[name].LastDeployedCommitID = &commitID
	return nil
}

type fakeTenants struct {
	m map[uuid.UUID]*models.Tenant
}

func (f *fakeTenants) GetByID(_ context.Context, id any, dest *models.Tenant) error {
	t, ok := f.m[id.(uuid.UUID)]
	if !ok {
		return appErr.NotFound("tenant not found")
	}
	*dest = *t
	return nil
}

type fakeReleases struct {
	mu sync.Mutex
	m  map[string]*models.Release
}

func (f *fakeReleases) Activate(_ context.Context, in repository.ActivateRelease) (*models.Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := in.BranchName + "|" + in.Tool
	cur, ok := f.m[key]
	if !ok {
		cur = &models.Release{ID: uuid.New(), BranchName: in.BranchName, Tool: in.Tool}
		f.m[key] = cur
	} else if cur.CommitID != in.CommitID {
		prevID, prevVersion := cur.CommitID, cur.Version
		cur.PreviousCommitID = &prevID
		cur.PreviousVersion = &prevVersion
	}
	cur.CommitID = in.CommitID
	cur.Version = in.Version
	cur.DeploymentSessionID = in.DeploymentSessionID
	cur.ActivatedAt = in.At
	cur.ReleaseVersion++
	out := *cur
	return &out, nil
}

func (f *fakeReleases) all() []models.Release {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Release, 0, len(f.m))
	for _, r := range f.m {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BranchName < out[j].BranchName })
	return out
}

type fakeStatuses struct {
	mu   sync.Mutex
	rows map[string]*models.DeploymentStatus
}

func (f *fakeStatuses) Record(_ context.Context, st *models.DeploymentStatus, attempts int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s|%s", st.DeploymentID, st.BranchName)
	prev := 0
	if cur, ok := f.rows[key]; ok {
		prev = cur.AttemptCount
	}
	row := *st
	row.AttemptCount = prev + attempts
	f.rows[key] = &row
	return nil
}

func (f *fakeStatuses) get(commitID, branch string) *models.DeploymentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[commitID+"|"+branch]
}
