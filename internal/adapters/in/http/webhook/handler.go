// Package webhook implements the HTTP adapter for the registry
// notification endpoint.
package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/bnema/zerowrap"

	"github.com/berthd/berth/internal/adapters/dto"
	"github.com/berthd/berth/internal/boundaries/in"
	"github.com/berthd/berth/internal/domain"
	webhooksvc "github.com/berthd/berth/internal/usecase/webhook"
)

// MaxBodySize caps notification bodies at 4MB. Registry notification
// batches are small; anything bigger is abuse.
const MaxBodySize = 4 * 1024 * 1024

// Handler handles POST /api/webhooks/registry/ requests.
type Handler struct {
	webhookSvc in.WebhookService
	log        zerowrap.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(webhookSvc in.WebhookService, log zerowrap.Logger) *Handler {
	return &Handler{
		webhookSvc: webhookSvc,
		log:        log,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := zerowrap.CtxWithFields(r.Context(), map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "http",
		zerowrap.FieldHandler: "webhook",
		zerowrap.FieldMethod:  r.Method,
		zerowrap.FieldPath:    r.URL.Path,
	})
	log := zerowrap.FromCtx(ctx)

	if r.Method != http.MethodPost {
		log.Debug().Msg("rejecting non-POST webhook request")
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var batch domain.Notification
	if err := json.Unmarshal(body, &batch); err != nil {
		log.Debug().Err(err).Msg("webhook body is not valid JSON")
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.webhookSvc.Ingest(ctx, batch); err != nil {
		var missing *webhooksvc.MissingFieldError
		if errors.As(err, &missing) {
			writeError(w, http.StatusBadRequest, missing.Error())
			return
		}
		log.Error().Err(err).Msg("failed to process notification batch")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: message})
}
