package handlers

import (
	"net/http"

	"github.com/brandhub/deploycenter/internal/api/types"
	"github.com/brandhub/deploycenter/internal/models"
	"github.com/brandhub/deploycenter/internal/services"
)

type SessionsHandler struct {
	svc services.SessionService
}

func NewSessionsHandler(svc services.SessionService) *SessionsHandler {
	return &SessionsHandler{svc: svc}
}

func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.svc.CreateSession(r.Context(), &services.CreateSessionInput{
		SessionName:    req.SessionName,
		CommitIDs:      req.CommitIDs,
		TargetBranches: req.TargetBranches,
		LaunchedBy:     actor(r, req.LaunchedBy),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, sess)
}

func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListSessions(r.Context(), models.SessionStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, items)
}

func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.svc.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, sess)
}

func (h *SessionsHandler) Commits(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	units, err := h.svc.ListSessionCommits(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, units)
}

func (h *SessionsHandler) Launch(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.LaunchSessionRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	sess, err := h.svc.LaunchSession(r.Context(), id, actor(r, req.LaunchedBy))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusAccepted, sess)
}

func (h *SessionsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.svc.CancelSession(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, sess)
}
