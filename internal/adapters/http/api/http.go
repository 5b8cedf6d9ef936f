// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mogibot/penalty/internal/adapters/mq/queue"
	"github.com/mogibot/penalty/internal/domain/catalog"
	"github.com/mogibot/penalty/internal/domain/model"
	"github.com/mogibot/penalty/internal/workflow"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit validates and persists a new penalty request synchronously.
	Submit(ctx context.Context, p workflow.SubmitParams) (model.PenaltyRequest, error)

	// Enqueue pushes a resolution command to the dispatcher. Returns
	// false on backpressure.
	Enqueue(ctx context.Context, c queue.Command) bool

	// ListPending exposes the unresolved requests of a leaderboard.
	ListPending(ctx context.Context, leaderboardID string) ([]model.PenaltyRequest, error)

	// Kinds exposes the penalty kind catalog.
	Kinds() []catalog.Kind
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	requestsHandler *RequestsHandler
	kindsHandler    *KindsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		requestsHandler: NewRequestsHandler(deps),
		kindsHandler:    NewKindsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/kinds", MetricsMiddleware(s.kindsHandler.HandleGetKinds, "kinds"))
	mux.HandleFunc("/requests/approve-all", MetricsMiddleware(s.requestsHandler.HandleApproveAll, "approve_all"))
	mux.HandleFunc("/requests/approve", MetricsMiddleware(s.requestsHandler.HandleApprove, "approve"))
	mux.HandleFunc("/requests/refuse", MetricsMiddleware(s.requestsHandler.HandleRefuse, "refuse"))
	mux.HandleFunc("/requests", MetricsMiddleware(s.requestsHandler.HandleRequests, "requests"))
}

// actorBody identifies the acting user on resolution endpoints.
type actorBody struct {
	ID        int64  `json:"id"`
	DiscordID string `json:"discord_id"`
	Name      string `json:"name"`
	IsStaff   bool   `json:"is_staff"`
}

func (a actorBody) toActor() workflow.Actor {
	return workflow.Actor{
		ID:        a.ID,
		DiscordID: a.DiscordID,
		Name:      a.Name,
		IsStaff:   a.IsStaff,
	}
}

// requestResponse mirrors the read shape of a pending penalty request.
type requestResponse struct {
	ID            int64  `json:"id"`
	Kind          string `json:"kind"`
	LeaderboardID string `json:"leaderboard_id"`
	TableID       int64  `json:"table_id"`
	Count         int    `json:"count"`
	ReporterName  string `json:"reporter_name"`
	PlayerName    string `json:"player_name"`
	CreatedAt     string `json:"created_at"`
}

func toRequestResponse(req model.PenaltyRequest) requestResponse {
	return requestResponse{
		ID:            req.ID,
		Kind:          req.KindName,
		LeaderboardID: req.LeaderboardID,
		TableID:       req.TableID,
		Count:         req.Count,
		ReporterName:  req.ReporterName,
		PlayerName:    req.PlayerName,
		CreatedAt:     req.CreatedAt.Format(time.RFC3339),
	}
}

// outcomeResponse mirrors one resolved request.
type outcomeResponse struct {
	RequestID  int64    `json:"request_id"`
	Status     string   `json:"status"`
	PenaltyIDs []*int64 `json:"penalty_ids,omitempty"`
	Summary    string   `json:"summary,omitempty"`
}

func toOutcomeResponse(out workflow.Outcome) outcomeResponse {
	return outcomeResponse{
		RequestID:  out.RequestID,
		Status:     out.Status,
		PenaltyIDs: out.PenaltyIDs,
		Summary:    out.Summary,
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeWorkflowError maps workflow failures to HTTP statuses.
func writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, "unknown_kind", err)
	case errors.Is(err, workflow.ErrInvalidCount),
		errors.Is(err, workflow.ErrCountBelowThreshold):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, workflow.ErrTableNotFound),
		errors.Is(err, workflow.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, workflow.ErrNotAParticipant),
		errors.Is(err, workflow.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not_authorized", err)
	case errors.Is(err, workflow.ErrAlreadyHandled):
		writeError(w, http.StatusConflict, "already_handled", err)
	default:
		writeError(w, http.StatusBadGateway, "upstream_error", err)
	}
}

// decodeBody decodes a JSON request body, rejecting junk input early.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid json body: " + strings.TrimSpace(err.Error()))
	}
	return nil
}
