package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/brandhub/deploycenter/internal/api/middleware"
	"github.com/brandhub/deploycenter/internal/api/types"
	"github.com/brandhub/deploycenter/internal/api/validators"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"github.com/brandhub/deploycenter/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 4 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, types.APIResponse{Success: true, Data: data, Meta: &types.Meta{RequestID: middleware.GetRequestID(r.Context())}})
}

func writeList[T any](w http.ResponseWriter, r *http.Request, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    items,
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context()), Total: int64(len(items))},
	})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := appErr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Ctx(r.Context()).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, types.APIResponse{
		Success: false,
		Error:   types.FromAppError(err),
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

// decodeJSON reads the request body into dst and validates it.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return appErr.Validation("request body is empty")
		}
		return appErr.Wrap(err, appErr.CodeInvalid, "invalid json")
	}
	if err := validators.New().Struct(dst); err != nil {
		return appErr.Wrap(err, appErr.CodeInvalid, "invalid request")
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, appErr.Validation(name + " must be a uuid")
	}
	return id, nil
}

// queryUUID parses an optional uuid query parameter. It returns uuid.Nil
// when the parameter is absent.
func queryUUID(r *http.Request, name string) (uuid.UUID, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, appErr.Validation(name + " must be a uuid")
	}
	return id, nil
}

// actor resolves who performed the request: the authenticated operator,
// then the name the caller supplied, then "anonymous".
func actor(r *http.Request, supplied string) string {
	if a := middleware.GetActor(r.Context()); a != "" {
		return a
	}
	if supplied != "" {
		return supplied
	}
	return "anonymous"
}
