package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	promotionvoting "promovote/contexts/workforce/promotion-voting"
	promotionerrors "promovote/contexts/workforce/promotion-voting/domain/errors"
	promotionhttp "promovote/contexts/workforce/promotion-voting/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "promovote/internal/platform/httpserver/docs"
)

type Options struct {
	Addr           string
	MetricsHandler http.Handler
	EnableSwagger  bool
}

type Server struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	addr      string
	promotion promotionvoting.Module
	options   Options
}

func New(promotion promotionvoting.Module, logger *slog.Logger, options Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if options.Addr == "" {
		options.Addr = ":8080"
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      options.Addr,
		promotion: promotion,
		options:   options,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting",
			"event", "http_server_starting",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"addr", s.addr,
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	if s.options.EnableSwagger {
		s.mux.Handle("/swagger/", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}
	if s.options.MetricsHandler != nil {
		s.mux.Handle("GET /metrics", s.options.MetricsHandler)
	}
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /api/promotion-votes", s.handleInitiatePromotionVote)
	s.mux.HandleFunc("GET /api/promotion-votes/active", s.handleActivePromotionVotes)
	s.mux.HandleFunc("GET /api/promotion-votes/history", s.handlePromotionVoteHistory)
	s.mux.HandleFunc("GET /api/promotion-votes/{proposal_id}", s.handleGetPromotionVote)
	s.mux.HandleFunc("POST /api/promotion-votes/{proposal_id}/votes", s.handleSubmitPromotionVote)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInitiatePromotionVote godoc
// @Summary Start a promotion vote
// @Tags promotion-votes
// @Accept json
// @Produce json
// @Param X-User-Id header string true "initiator id"
// @Param Idempotency-Key header string false "replay key"
// @Param request body promotionhttp.InitiatePromotionVoteRequest true "proposal"
// @Success 201 {object} promotionhttp.InitiatePromotionVoteResponse
// @Failure 400 {object} promotionhttp.ErrorResponse
// @Failure 409 {object} promotionhttp.ErrorResponse
// @Router /api/promotion-votes [post]
func (s *Server) handleInitiatePromotionVote(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writePromotionError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req promotionhttp.InitiatePromotionVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePromotionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.promotion.Handler.InitiatePromotionVoteHandler(
		r.Context(),
		userID,
		strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		req,
	)
	if err != nil {
		s.writePromotionDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

// handleActivePromotionVotes godoc
// @Summary Open promotion votes visible to the caller
// @Tags promotion-votes
// @Produce json
// @Param X-User-Id header string true "employee id"
// @Success 200 {object} promotionhttp.ActivePromotionVotesResponse
// @Router /api/promotion-votes/active [get]
func (s *Server) handleActivePromotionVotes(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writePromotionError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	resp, err := s.promotion.Handler.ActivePromotionVotesHandler(r.Context(), userID)
	if err != nil {
		s.writePromotionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePromotionVoteHistory godoc
// @Summary Resolved promotion votes involving the caller
// @Tags promotion-votes
// @Produce json
// @Param X-User-Id header string true "employee id"
// @Param store_name query string false "store filter"
// @Success 200 {object} promotionhttp.VoteHistoryResponse
// @Router /api/promotion-votes/history [get]
func (s *Server) handlePromotionVoteHistory(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writePromotionError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	resp, err := s.promotion.Handler.VoteHistoryHandler(r.Context(), userID, r.URL.Query().Get("store_name"))
	if err != nil {
		s.writePromotionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetPromotionVote godoc
// @Summary Proposal detail with its ballots
// @Tags promotion-votes
// @Produce json
// @Param proposal_id path string true "proposal id"
// @Success 200 {object} promotionhttp.PromotionVoteDetailResponse
// @Failure 404 {object} promotionhttp.ErrorResponse
// @Router /api/promotion-votes/{proposal_id} [get]
func (s *Server) handleGetPromotionVote(w http.ResponseWriter, r *http.Request) {
	resp, err := s.promotion.Handler.PromotionVoteHandler(r.Context(), r.PathValue("proposal_id"))
	if err != nil {
		s.writePromotionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSubmitPromotionVote godoc
// @Summary Cast a ballot
// @Tags promotion-votes
// @Accept json
// @Produce json
// @Param X-User-Id header string true "voter id"
// @Param proposal_id path string true "proposal id"
// @Param request body promotionhttp.SubmitVoteRequest true "ballot"
// @Success 200 {object} promotionhttp.SubmitVoteResponse
// @Failure 403 {object} promotionhttp.ErrorResponse
// @Failure 409 {object} promotionhttp.ErrorResponse
// @Router /api/promotion-votes/{proposal_id}/votes [post]
func (s *Server) handleSubmitPromotionVote(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writePromotionError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req promotionhttp.SubmitVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePromotionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.promotion.Handler.SubmitVoteHandler(r.Context(), userID, r.PathValue("proposal_id"), req)
	if err != nil {
		s.writePromotionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writePromotionDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, promotionerrors.ErrValidation):
		writePromotionError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, promotionerrors.ErrInvalidPromotionPath):
		writePromotionError(w, http.StatusBadRequest, "invalid_promotion_path", err.Error())
	case errors.Is(err, promotionerrors.ErrTerminalPosition):
		writePromotionError(w, http.StatusBadRequest, "terminal_position", err.Error())
	case errors.Is(err, promotionerrors.ErrApplicantNotFound):
		writePromotionError(w, http.StatusNotFound, "applicant_not_found", err.Error())
	case errors.Is(err, promotionerrors.ErrEmployeeNotFound):
		writePromotionError(w, http.StatusNotFound, "employee_not_found", err.Error())
	case errors.Is(err, promotionerrors.ErrNotFound):
		writePromotionError(w, http.StatusNotFound, "proposal_not_found", err.Error())
	case errors.Is(err, promotionerrors.ErrDuplicateOpenProposal):
		writePromotionError(w, http.StatusConflict, "duplicate_open_proposal", err.Error())
	case errors.Is(err, promotionerrors.ErrNoQualifiedVoters):
		writePromotionError(w, http.StatusUnprocessableEntity, "no_qualified_voters", err.Error())
	case errors.Is(err, promotionerrors.ErrSelfVoteForbidden):
		writePromotionError(w, http.StatusForbidden, "self_vote_forbidden", err.Error())
	case errors.Is(err, promotionerrors.ErrNotQualified):
		writePromotionError(w, http.StatusForbidden, "not_qualified", err.Error())
	case errors.Is(err, promotionerrors.ErrAlreadyVoted):
		writePromotionError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, promotionerrors.ErrProposalNotOpen):
		writePromotionError(w, http.StatusConflict, "proposal_not_open", err.Error())
	case errors.Is(err, promotionerrors.ErrDeadlinePassed):
		writePromotionError(w, http.StatusConflict, "deadline_passed", err.Error())
	case errors.Is(err, promotionerrors.ErrIdempotencyKeyConflict):
		writePromotionError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, promotionerrors.ErrConflict):
		writePromotionError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, promotionerrors.ErrServiceUnavailable):
		s.logRequestFailure(r, err)
		writePromotionError(w, http.StatusServiceUnavailable, "service_unavailable", "service temporarily unavailable")
	default:
		s.logRequestFailure(r, err)
		writePromotionError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (s *Server) logRequestFailure(r *http.Request, err error) {
	s.logger.Error("promotion request failed",
		"event", "http_request_failed",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err.Error(),
	)
}

func writePromotionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, promotionhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
