package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/common/validation"
	"welfare-workers/internal/eligibility"
	"welfare-workers/pkg/registry"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	maxBodyBytes = 1 << 20
	// the HTTP body is the profile itself, checked against the profile part
	// of the rank-schemes input schema
	profileSchemaTask = "rank-schemes"
)

type eligibilityHandler struct {
	catalogue Catalogue
	validator *validation.Validator
	workers   int
	log       logger.Logger
}

func newEligibilityHandler(c Catalogue, workers int, log logger.Logger) (*eligibilityHandler, error) {
	schema, err := registry.InputSchemaFor(profileSchemaTask)
	if err != nil {
		return nil, fmt.Errorf("load profile schema: %w", err)
	}
	v, err := validation.NewValidator(schema)
	if err != nil {
		return nil, err
	}
	return &eligibilityHandler{catalogue: c, validator: v, workers: workers, log: log}, nil
}

// ServeHTTP handles POST /api/v1/eligibility. A missing profile is a client
// error; anything that fails after the profile is accepted is a server error.
func (h *eligibilityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, string(apperrors.ErrCodeValidation), "Request body could not be read")
		return
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		writeError(w, http.StatusBadRequest, string(apperrors.ErrCodeValidation), "User profile data is required")
		return
	}

	wrapped, err := json.Marshal(map[string]json.RawMessage{"profile": trimmed})
	if err != nil {
		writeError(w, http.StatusBadRequest, string(apperrors.ErrCodeValidation), "Request body is not valid JSON")
		return
	}
	res, err := h.validator.ValidateJSON(wrapped)
	if err != nil {
		writeError(w, http.StatusBadRequest, string(apperrors.ErrCodeValidation), "Request body is not valid JSON")
		return
	}
	if !res.Valid {
		writeError(w, http.StatusBadRequest, string(apperrors.ErrCodeValidation), res.Summary())
		return
	}

	var profile eligibility.Profile
	if err := json.Unmarshal(trimmed, &profile); err != nil {
		writeError(w, http.StatusBadRequest, string(apperrors.ErrCodeValidation), err.Error())
		return
	}

	rec, err := h.catalogue.Recommend(r.Context(), profile, h.workers)
	if err != nil {
		h.log.Error("eligibility check failed", map[string]interface{}{
			"requestId": middleware.GetReqID(r.Context()),
			"error":     err,
		})
		writeError(w, http.StatusInternalServerError, string(apperrors.CodeOf(err)), "Server Error")
		return
	}

	h.log.Debug("eligibility checked", map[string]interface{}{
		"requestId": middleware.GetReqID(r.Context()),
		"count":     rec.Count,
	})
	writeJSON(w, http.StatusOK, rec)
}
