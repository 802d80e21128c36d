package handlers

import (
	"net/http"

	"github.com/brandhub/deploycenter/internal/services"
)

type BranchesHandler struct {
	svc services.BranchService
}

func NewBranchesHandler(svc services.BranchService) *BranchesHandler {
	return &BranchesHandler{svc: svc}
}

func (h *BranchesHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListBranches(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, items)
}

func (h *BranchesHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Reconcile(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, res)
}
