// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// KindsHandler exposes the penalty kind catalog.
type KindsHandler struct {
	deps Dependencies
}

// NewKindsHandler creates a new kinds handler.
func NewKindsHandler(deps Dependencies) *KindsHandler {
	return &KindsHandler{deps: deps}
}

// kindResponse mirrors one catalog entry.
type kindResponse struct {
	Name       string `json:"name"`
	BaseAmount int    `json:"base_amount"`
	IsStrike   bool   `json:"is_strike"`
	Family     string `json:"family"`
}

// HandleGetKinds handles GET /kinds requests.
func (h *KindsHandler) HandleGetKinds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	kinds := h.deps.Kinds()
	out := make([]kindResponse, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, kindResponse{
			Name:       k.Name,
			BaseAmount: k.BaseAmount,
			IsStrike:   k.IsStrike,
			Family:     k.Family.String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
