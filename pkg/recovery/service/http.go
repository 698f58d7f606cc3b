package service

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/novavault/recovery-middleware/pkg/app/errors"
	apphttp "github.com/novavault/recovery-middleware/pkg/app/http"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service *Service
	logger  *zap.Logger
}

// RegisterRoutes registers recovery endpoints on the given chi router
func RegisterRoutes(r chi.Router, service *Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Post("/recovery/initiate", apphttp.HandleError(h.initiate))
	r.Post("/recovery/{identity}/approve", apphttp.HandleError(h.approve))
	r.Get("/recovery/{identity}", apphttp.HandleError(h.status))
	r.Post("/recovery/{identity}/execute", apphttp.HandleError(h.execute))
	r.Delete("/recovery/{identity}", apphttp.HandleError(h.cancel))
}

func (h *HTTP) initiate(w http.ResponseWriter, r *http.Request) error {
	var params InitiateParams
	if err := h.readJSON(r, &params); err != nil {
		return err
	}

	req, err := h.service.Initiate(r.Context(), params)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusCreated, req)
	return nil
}

func (h *HTTP) approve(w http.ResponseWriter, r *http.Request) error {
	var params ApproveParams
	if err := h.readJSON(r, &params); err != nil {
		return err
	}

	result, err := h.service.Approve(r.Context(), chi.URLParam(r, "identity"), params)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, result)
	return nil
}

func (h *HTTP) status(w http.ResponseWriter, r *http.Request) error {
	req, err := h.service.Status(r.Context(), chi.URLParam(r, "identity"))
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, req)
	return nil
}

func (h *HTTP) execute(w http.ResponseWriter, r *http.Request) error {
	req, err := h.service.ExecuteMigration(r.Context(), chi.URLParam(r, "identity"))
	if err != nil {
		// A failed migration still carries the per-network result.
		if apperrors.Is(err, apperrors.CategoryFatalMigration) && req != nil {
			h.writeJSON(w, http.StatusInternalServerError, req)
			return nil
		}
		return err
	}

	h.writeJSON(w, http.StatusOK, req)
	return nil
}

func (h *HTTP) cancel(w http.ResponseWriter, r *http.Request) error {
	var params struct {
		CallerAddress string `json:"callerAddress"`
	}
	if err := h.readJSON(r, &params); err != nil {
		return err
	}

	if err := h.service.Cancel(r.Context(), chi.URLParam(r, "identity"), params.CallerAddress); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *HTTP) readJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.ValidationError(err, "failed to read request")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.ValidationError(err, "invalid JSON")
	}
	return nil
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
