package handlers

import (
	"net/http"

	"github.com/brandhub/deploycenter/internal/repository"
	"github.com/brandhub/deploycenter/internal/services"
	"github.com/go-chi/chi/v5"
)

type GapHandler struct {
	svc services.GapService
}

func NewGapHandler(svc services.GapService) *GapHandler {
	return &GapHandler{svc: svc}
}

func (h *GapHandler) Summary(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, out)
}

func (h *GapHandler) Tool(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.ComputeGap(r.Context(), chi.URLParam(r, "tool"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, rep)
}

func (h *GapHandler) Status(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if _, err := queryUUID(r, "branchId"); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.svc.ListStatuses(r.Context(), repository.DeploymentStatusFilter{
		DeploymentID: q.Get("deploymentId"),
		BranchID:     q.Get("branchId"),
		BranchName:   q.Get("branchName"),
		Status:       q.Get("status"),
		Tool:         q.Get("tool"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, out)
}
