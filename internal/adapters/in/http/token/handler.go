// Package token implements the HTTP adapter for the registry token
// endpoint.
package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bnema/zerowrap"

	"github.com/berthd/berth/internal/adapters/dto"
	"github.com/berthd/berth/internal/boundaries/in"
	"github.com/berthd/berth/internal/domain"
)

// Handler handles GET /api/auth/token/ requests: the registry v2
// token server endpoint.
type Handler struct {
	tokenSvc in.TokenService
	log      zerowrap.Logger
}

// NewHandler creates a new token handler.
func NewHandler(tokenSvc in.TokenService, log zerowrap.Logger) *Handler {
	return &Handler{
		tokenSvc: tokenSvc,
		log:      log,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := zerowrap.CtxWithFields(r.Context(), map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "http",
		zerowrap.FieldHandler: "token",
		zerowrap.FieldMethod:  r.Method,
		zerowrap.FieldPath:    r.URL.Path,
	})
	log := zerowrap.FromCtx(ctx)
	r = r.WithContext(ctx)

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity, ok := h.authenticateRequest(w, r, log)
	if !ok {
		return
	}

	service := r.URL.Query().Get("service")
	scopes := r.URL.Query()["scope"]

	grants, err := h.tokenSvc.Authorize(ctx, identity, scopes)
	if err != nil {
		if errors.Is(err, domain.ErrAuthRequired) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Registry"`)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		log.Error().Err(err).Msg("failed to authorize scopes")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	signed, err := h.tokenSvc.IssueToken(ctx, identity, service, grants)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue token")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dto.TokenResponse{Token: signed, AccessToken: signed}); err != nil {
		log.Error().Err(err).Msg("failed to encode token response")
	}
}

// authenticateRequest resolves the caller's identity from an optional
// Basic Authorization header. An absent header is the anonymous flow,
// not an error. The bool result is false when a response has already
// been written.
func (h *Handler) authenticateRequest(w http.ResponseWriter, r *http.Request, log zerowrap.Logger) (*domain.User, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, true
	}

	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Basic") {
		writeError(w, http.StatusUnauthorized, "invalid authorization format")
		return nil, false
	}

	decoded, err := base64.StdEncoding.DecodeString(fields[1])
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid authorization header")
		return nil, false
	}

	// Exactly one colon: a password containing a colon is rejected the
	// same way a missing separator is.
	parts := strings.Split(string(decoded), ":")
	if len(parts) != 2 {
		writeError(w, http.StatusUnauthorized, "invalid authorization header")
		return nil, false
	}

	identity, err := h.tokenSvc.Authenticate(r.Context(), parts[0], parts[1])
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			log.Debug().Str("username", parts[0]).Msg("token request authentication failed")
			w.Header().Set("WWW-Authenticate", `Basic realm="Registry"`)
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return nil, false
		}
		log.Error().Err(err).Msg("credential check failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}

	return identity, true
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: message})
}
