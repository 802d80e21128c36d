package handlers

import (
	"net/http"
	"strconv"

	"github.com/brandhub/deploycenter/internal/api/types"
	"github.com/brandhub/deploycenter/internal/repository"
	"github.com/brandhub/deploycenter/internal/services"
	"github.com/go-chi/chi/v5"
)

type CommitsHandler struct {
	svc services.CommitService
}

func NewCommitsHandler(svc services.CommitService) *CommitsHandler {
	return &CommitsHandler{svc: svc}
}

func (h *CommitsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CreateCommitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.svc.CreateCommit(r.Context(), &services.CreateCommitInput{
		ID:           req.ID,
		Tool:         req.Tool,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		Name:         req.Name,
		Version:      req.Version,
		Payload:      req.Payload,
		CreatedBy:    actor(r, ""),
		Metadata:     req.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, c)
}

func (h *CommitsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	items, err := h.svc.ListCommits(r.Context(), repository.CommitFilter{
		Tool:         q.Get("tool"),
		ResourceType: q.Get("resourceType"),
		ResourceID:   q.Get("resourceId"),
		Status:       q.Get("status"),
		Limit:        limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, items)
}

func (h *CommitsHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCommit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, c)
}

func (h *CommitsHandler) Archive(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.ArchiveCommit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, c)
}
