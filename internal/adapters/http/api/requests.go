// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mogibot/penalty/internal/adapters/mq/queue"
	"github.com/mogibot/penalty/internal/workflow"
)

// RequestsHandler handles penalty request intake and resolution.
type RequestsHandler struct {
	deps Dependencies
}

// NewRequestsHandler creates a new requests handler.
func NewRequestsHandler(deps Dependencies) *RequestsHandler {
	return &RequestsHandler{deps: deps}
}

// submitRequest mirrors the POST /requests body.
type submitRequest struct {
	Kind          string    `json:"kind"`
	LeaderboardID string    `json:"leaderboard_id"`
	TableID       int64     `json:"table_id"`
	PlayerName    string    `json:"player_name"`
	Count         int       `json:"count"`
	Reporter      actorBody `json:"reporter"`
}

func (s submitRequest) validate() error {
	switch {
	case strings.TrimSpace(s.Kind) == "":
		return errors.New("missing kind")
	case strings.TrimSpace(s.LeaderboardID) == "":
		return errors.New("missing leaderboard_id")
	case s.TableID <= 0:
		return errors.New("missing table_id")
	case strings.TrimSpace(s.PlayerName) == "":
		return errors.New("missing player_name")
	case strings.TrimSpace(s.Reporter.Name) == "":
		return errors.New("missing reporter name")
	}
	return nil
}

// resolveRequest mirrors the POST /requests/approve and /requests/refuse bodies.
type resolveRequest struct {
	ID    int64     `json:"id"`
	Actor actorBody `json:"actor"`
}

func (r resolveRequest) validate() error {
	switch {
	case r.ID <= 0:
		return errors.New("missing id")
	case strings.TrimSpace(r.Actor.Name) == "":
		return errors.New("missing actor name")
	}
	return nil
}

// resolveAllRequest mirrors the POST /requests/approve-all body.
type resolveAllRequest struct {
	LeaderboardID string    `json:"leaderboard_id"`
	Actor         actorBody `json:"actor"`
}

// HandleRequests handles POST /requests (submit) and GET /requests (list).
func (h *RequestsHandler) HandleRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleSubmit(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *RequestsHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_request"
	var req submitRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	created, err := h.deps.Submit(r.Context(), workflow.SubmitParams{
		KindName:      req.Kind,
		LeaderboardID: req.LeaderboardID,
		TableID:       req.TableID,
		PlayerName:    req.PlayerName,
		Count:         req.Count,
		Reporter:      req.Reporter.toActor(),
	})
	if err != nil {
		// The request may have been persisted before reconciliation
		// failed; report the created record alongside the error.
		if created.ID != 0 {
			writeJSON(w, http.StatusAccepted, struct {
				Request requestResponse `json:"request"`
				Warning string          `json:"warning"`
			}{toRequestResponse(created), err.Error()})
			return
		}
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestResponse(created))
}

func (h *RequestsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	leaderboardID := r.URL.Query().Get("leaderboard")
	pending, err := h.deps.ListPending(r.Context(), leaderboardID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_error", err)
		return
	}
	out := make([]requestResponse, 0, len(pending))
	for _, req := range pending {
		out = append(out, toRequestResponse(req))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleApprove handles POST /requests/approve.
func (h *RequestsHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleResolve(w, r, "api.approve_request", queue.NewApprove)
}

// HandleRefuse handles POST /requests/refuse.
func (h *RequestsHandler) HandleRefuse(w http.ResponseWriter, r *http.Request) {
	h.handleResolve(w, r, "api.refuse_request", queue.NewRefuse)
}

// handleResolve enqueues a resolution command and waits for the
// dispatcher's reply. All transitions run on the dispatcher goroutine;
// the handler itself never touches workflow state.
func (h *RequestsHandler) handleResolve(w http.ResponseWriter, r *http.Request, op string, build func(workflow.Actor, int64) queue.Command) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	cmd := build(req.Actor.toActor(), req.ID)
	if ok := h.deps.Enqueue(r.Context(), cmd); !ok {
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}

	select {
	case res := <-cmd.Reply:
		h.writeResolution(w, res)
	case <-r.Context().Done():
		// The command outlives the caller; it still resolves.
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

// HandleApproveAll handles POST /requests/approve-all.
func (h *RequestsHandler) HandleApproveAll(w http.ResponseWriter, r *http.Request) {
	const op = "api.approve_all"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req resolveAllRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.LeaderboardID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, errors.New("missing leaderboard_id")))
		return
	}

	cmd := queue.NewApproveAll(req.Actor.toActor(), req.LeaderboardID)
	if ok := h.deps.Enqueue(r.Context(), cmd); !ok {
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}

	select {
	case res := <-cmd.Reply:
		if res.Err != nil && len(res.Outcomes) == 0 {
			writeWorkflowError(w, res.Err)
			return
		}
		out := make([]outcomeResponse, 0, len(res.Outcomes))
		for _, o := range res.Outcomes {
			out = append(out, toOutcomeResponse(o))
		}
		writeJSON(w, http.StatusOK, out)
	case <-r.Context().Done():
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

// writeResolution reports a single-command dispatcher reply.
func (h *RequestsHandler) writeResolution(w http.ResponseWriter, res queue.Result) {
	var out workflow.Outcome
	if len(res.Outcomes) > 0 {
		out = res.Outcomes[0]
	}

	if res.Err != nil {
		// A lost race with another resolver is expected, not an error.
		if errors.Is(res.Err, workflow.ErrAlreadyHandled) {
			out.Status = "already_handled"
			out.Summary = res.Err.Error()
			writeJSON(w, http.StatusOK, toOutcomeResponse(out))
			return
		}
		var partial *workflow.PartialApplicationError
		if errors.As(res.Err, &partial) {
			writeJSON(w, http.StatusOK, toOutcomeResponse(out))
			return
		}
		writeWorkflowError(w, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeResponse(out))
}
