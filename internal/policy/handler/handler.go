package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mandate/internal/policy/models"
	"mandate/internal/policy/service"
	id "mandate/pkg/domain"
	dErrors "mandate/pkg/domain-errors"
	"mandate/pkg/platform/httputil"
	"mandate/pkg/platform/middleware/auth"
	"mandate/pkg/requestcontext"
)

// Service defines the policy operations the handler needs.
type Service interface {
	CreatePolicy(ctx context.Context, params service.CreatePolicyParams) (*models.Policy, error)
	GetPolicy(ctx context.Context, authority id.AuthorityID) (*models.Policy, error)
	GetPolicyByID(ctx context.Context, policyID id.PolicyID) (*models.Policy, error)
	Describe(p *models.Policy) *models.PolicyResponse
}

// Handler wires policy endpoints to the policy service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a policy handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts policy endpoints on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.With(auth.RequireRole(requestcontext.RoleAuthority, h.logger)).
		Post("/policies", h.HandleCreate)
	r.Get("/policies/{policyID}", h.HandleGetByID)
	r.Get("/authorities/{authorityID}/policy", h.HandleGetCurrent)
}

// HandleCreate handles POST /policies. The caller becomes the authority.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	principal := requestcontext.Principal(ctx)
	if principal.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	authority := principal.AsAuthority()

	req, ok := httputil.DecodeAndPrepare[models.CreatePolicyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p, err := h.service.CreatePolicy(ctx, service.CreatePolicyParams{
		Authority:     authority,
		MaxSpendUSDC:  req.MaxSpendUSDC,
		MinConfidence: req.MinConfidence,
		AllowedChains: req.AllowedChains,
		ExpiresAt:     req.ExpiresAt,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "policy creation failed",
			"request_id", requestID,
			"authority", authority,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "policy created via api",
		"request_id", requestID,
		"policy_id", p.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, h.service.Describe(p))
}

// HandleGetByID handles GET /policies/{policyID}.
func (h *Handler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.GetPolicyByID(ctx, policyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.service.Describe(p))
}

// HandleGetCurrent handles GET /authorities/{authorityID}/policy and returns
// the authority's most recently created policy, active or not.
func (h *Handler) HandleGetCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authority, err := id.ParseAuthorityID(chi.URLParam(r, "authorityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.GetPolicy(ctx, authority)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.service.Describe(p))
}
