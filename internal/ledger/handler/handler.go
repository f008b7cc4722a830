package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mandate/internal/ledger/models"
	"mandate/internal/ledger/service"
	"mandate/pkg/digest"
	id "mandate/pkg/domain"
	dErrors "mandate/pkg/domain-errors"
	"mandate/pkg/platform/httputil"
	"mandate/pkg/platform/middleware/auth"
	"mandate/pkg/requestcontext"
)

// Service defines the ledger operations the handler needs.
type Service interface {
	LogRefusal(ctx context.Context, params service.LogRefusalParams) (*models.RefusalLog, error)
	LogExecution(ctx context.Context, params service.LogExecutionParams) (*models.ExecutionLog, error)
	GetRefusal(ctx context.Context, key models.RecordKey) (*models.RefusalLog, error)
	GetExecution(ctx context.Context, key models.RecordKey) (*models.ExecutionLog, error)
	FindByDecisionHash(ctx context.Context, hash digest.Digest) (*models.DecisionRecords, error)
	ListRefusals(ctx context.Context, policyID id.PolicyID, limit int) ([]*models.RefusalLog, error)
	ListExecutions(ctx context.Context, policyID id.PolicyID, limit int) ([]*models.ExecutionLog, error)
	VerifyDecision(ctx context.Context, hash digest.Digest) (*models.VerificationReport, error)
}

// Handler wires ledger endpoints to the ledger service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the authenticated ledger endpoints. Writes require the
// agent role; the caller is recorded as the agent.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(requestcontext.RoleAgent, h.logger))
		r.Post("/policies/{policyID}/refusals", h.HandleLogRefusal)
		r.Post("/policies/{policyID}/executions", h.HandleLogExecution)
	})
	r.Get("/policies/{policyID}/refusals", h.HandleListRefusals)
	r.Get("/policies/{policyID}/executions", h.HandleListExecutions)
	r.Get("/policies/{policyID}/agents/{agentID}/refusals/{timestamp}", h.HandleGetRefusal)
	r.Get("/policies/{policyID}/agents/{agentID}/executions/{timestamp}", h.HandleGetExecution)
	r.Get("/decisions/{decisionHash}", h.HandleFindDecision)
}

// RegisterPublic mounts endpoints anyone may call. Verification only needs
// public fields, so it is not behind authentication.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/decisions/{decisionHash}/verify", h.HandleVerify)
}

// HandleLogRefusal handles POST /policies/{policyID}/refusals.
func (h *Handler) HandleLogRefusal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	agent, policyID, ok := h.writeTarget(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.LogRefusalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.LogRefusal(ctx, service.LogRefusalParams{
		PolicyID:      policyID,
		Agent:         agent,
		MarketID:      req.MarketID,
		RuleViolated:  req.RuleViolated,
		RequestedUSDC: req.RequestedUSDC,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "refusal not logged",
			"request_id", requestID,
			"policy_id", policyID,
			"agent", agent,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "refusal logged via api",
		"request_id", requestID,
		"decision_hash", record.DecisionHash,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, record)
}

// HandleLogExecution handles POST /policies/{policyID}/executions.
func (h *Handler) HandleLogExecution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	agent, policyID, ok := h.writeTarget(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.LogExecutionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.LogExecution(ctx, service.LogExecutionParams{
		PolicyID:   policyID,
		Agent:      agent,
		MarketID:   req.MarketID,
		CCTPBurnTx: req.CCTPBurnTx,
		CCTPMintTx: req.CCTPMintTx,
		BetTx:      req.BetTx,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "execution not logged",
			"request_id", requestID,
			"policy_id", policyID,
			"agent", agent,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "execution logged via api",
		"request_id", requestID,
		"decision_hash", record.DecisionHash,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) HandleListRefusals(w http.ResponseWriter, r *http.Request) {
	policyID, limit, ok := listParams(w, r)
	if !ok {
		return
	}
	out, err := h.service.ListRefusals(r.Context(), policyID, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"refusals": out})
}

func (h *Handler) HandleListExecutions(w http.ResponseWriter, r *http.Request) {
	policyID, limit, ok := listParams(w, r)
	if !ok {
		return
	}
	out, err := h.service.ListExecutions(r.Context(), policyID, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"executions": out})
}

// HandleGetRefusal handles GET /policies/{policyID}/agents/{agentID}/refusals/{timestamp}
// where timestamp is unix nanoseconds.
func (h *Handler) HandleGetRefusal(w http.ResponseWriter, r *http.Request) {
	key, ok := recordKey(w, r)
	if !ok {
		return
	}
	record, err := h.service.GetRefusal(r.Context(), key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) HandleGetExecution(w http.ResponseWriter, r *http.Request) {
	key, ok := recordKey(w, r)
	if !ok {
		return
	}
	record, err := h.service.GetExecution(r.Context(), key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleFindDecision handles GET /decisions/{decisionHash}.
func (h *Handler) HandleFindDecision(w http.ResponseWriter, r *http.Request) {
	hash, ok := decisionHash(w, r)
	if !ok {
		return
	}
	records, err := h.service.FindByDecisionHash(r.Context(), hash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

// HandleVerify handles GET /decisions/{decisionHash}/verify. A completed
// verification is 200 whether or not the binding holds; the report says which.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	hash, ok := decisionHash(w, r)
	if !ok {
		return
	}
	report, err := h.service.VerifyDecision(r.Context(), hash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) writeTarget(w http.ResponseWriter, r *http.Request) (id.AgentID, id.PolicyID, bool) {
	principal := requestcontext.Principal(r.Context())
	if principal.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.AgentID{}, id.PolicyID{}, false
	}
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.AgentID{}, id.PolicyID{}, false
	}
	return principal.AsAgent(), policyID, true
}

func listParams(w http.ResponseWriter, r *http.Request) (id.PolicyID, int, bool) {
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.PolicyID{}, 0, false
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer"))
			return id.PolicyID{}, 0, false
		}
	}
	return policyID, limit, true
}

func recordKey(w http.ResponseWriter, r *http.Request) (models.RecordKey, bool) {
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return models.RecordKey{}, false
	}
	agent, err := id.ParseAgentID(chi.URLParam(r, "agentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return models.RecordKey{}, false
	}
	nanos, err := strconv.ParseInt(chi.URLParam(r, "timestamp"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "timestamp must be unix nanoseconds"))
		return models.RecordKey{}, false
	}
	return models.RecordKey{PolicyID: policyID, Agent: agent, Timestamp: time.Unix(0, nanos).UTC()}, true
}

func decisionHash(w http.ResponseWriter, r *http.Request) (digest.Digest, bool) {
	hash, err := digest.Parse(chi.URLParam(r, "decisionHash"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid decision hash"))
		return digest.Digest{}, false
	}
	return hash, true
}
