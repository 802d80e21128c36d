package handlers

import (
	"net/http"

	"github.com/brandhub/deploycenter/internal/api/types"
	"github.com/brandhub/deploycenter/internal/repository"
	"github.com/brandhub/deploycenter/internal/services"
)

type ReleasesHandler struct {
	svc services.ReleaseService
}

func NewReleasesHandler(svc services.ReleaseService) *ReleasesHandler {
	return &ReleasesHandler{svc: svc}
}

func (h *ReleasesHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req types.PutReleaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rel, err := h.svc.PutRelease(r.Context(), &services.PutReleaseInput{
		BranchName:             req.BranchName,
		Tool:                   req.Tool,
		CommitID:               req.CommitID,
		Version:                req.Version,
		DeploymentSessionID:    req.DeploymentSessionID,
		ExpectedReleaseVersion: req.ExpectedReleaseVersion,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, rel)
}

func (h *ReleasesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.svc.ListReleases(r.Context(), repository.ReleaseFilter{
		BranchName: q.Get("branchName"),
		Tool:       q.Get("tool"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, items)
}

func (h *ReleasesHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	var req types.RollbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.svc.Rollback(r.Context(), &services.RollbackInput{
		BranchName: req.BranchName,
		Tool:       req.Tool,
		LaunchedBy: actor(r, ""),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusAccepted, sess)
}
