package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crowdmix/internal/flows"
	"github.com/desertthunder/crowdmix/internal/group"
	"github.com/desertthunder/crowdmix/internal/models"
	"github.com/desertthunder/crowdmix/internal/services"
	"github.com/desertthunder/crowdmix/internal/shared"
)

// GroupHandler serves the group listening endpoints: login redirect, OAuth
// callback, leaderboard and roster reads, and reset.
type GroupHandler struct {
	service  services.Service
	registry *flows.Registry
	board    *group.Board
	logger   *log.Logger
	pageSize int
}

// NewGroupHandler wires the handler to its collaborators.
func NewGroupHandler(service services.Service, registry *flows.Registry, board *group.Board, logger *log.Logger, pageSize int) *GroupHandler {
	return &GroupHandler{
		service:  service,
		registry: registry,
		board:    board,
		logger:   logger,
		pageSize: pageSize,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *GroupHandler) Routes() []Route {
	return []Route{
		{http.MethodGet, "/{$}", http.HandlerFunc(h.health)},
		{http.MethodGet, "/login", http.HandlerFunc(h.login)},
		{http.MethodGet, "/callback", http.HandlerFunc(h.callback)},
		{http.MethodGet, "/aggregate", http.HandlerFunc(h.aggregate)},
		{http.MethodGet, "/roster", http.HandlerFunc(h.roster)},
		{http.MethodPost, "/reset", http.HandlerFunc(h.reset)},
	}
}

// health reports service status for probes and the CLI.
func (h *GroupHandler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"service":        h.service.Name(),
		"participants":   len(h.board.Roster()),
		"pending_logins": h.registry.Pending(),
	})
}

// login starts an authorization flow and redirects the participant to the
// provider's consent page with a fresh state token.
func (h *GroupHandler) login(w http.ResponseWriter, r *http.Request) {
	state, err := h.registry.Begin()
	if err != nil {
		h.logger.Error("failed to start login flow", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorBody("could not start login"))
		return
	}

	http.Redirect(w, r, h.service.AuthURL(state), http.StatusFound)
}

// callback completes an authorization flow: it redeems the state token,
// exchanges the code, fetches the participant's profile and top tracks, and
// merges them into the board.
//
// Redeeming the state token is the commit point. Once it succeeds the flow
// can never be replayed, even when a later step fails; the participant must
// restart from /login.
func (h *GroupHandler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if err := h.registry.Complete(q.Get("state")); err != nil {
		h.logger.Warn("rejected callback", "error", err)
		h.writeJSON(w, flowStatus(err), errorBody("please restart login"))
		return
	}

	if upstreamErr := q.Get("error"); upstreamErr != "" {
		h.logger.Warn("authorization denied upstream", "error", upstreamErr)
		h.writeJSON(w, http.StatusForbidden, errorBody("authorization denied"))
		return
	}

	code := q.Get("code")
	if code == "" {
		h.writeJSON(w, http.StatusBadRequest, errorBody("missing authorization code"))
		return
	}

	// Everything upstream happens before any lock is taken; only the final
	// Ingest commit serializes against other participants.
	ctx := r.Context()

	token, err := h.service.ExchangeCode(ctx, code)
	if err != nil {
		h.logger.Error("code exchange failed", "error", err)
		h.writeJSON(w, upstreamStatus(err), errorBody("login failed"))
		return
	}

	// Profile fetch failure is non-fatal: identity is a convenience, not a
	// requirement for aggregation.
	id, name := shared.GenerateID(), "Anonymous Listener"
	if profile, err := h.service.CurrentUser(ctx, token); err != nil {
		h.logger.Warn("profile fetch failed, using generated identity", "error", err)
	} else if profile.ID != "" {
		id, name = profile.ID, profile.DisplayName
	}

	tracks, err := h.service.TopTracks(ctx, token, h.pageSize)
	if err != nil {
		h.logger.Error("top tracks fetch failed", "error", err)
		h.writeJSON(w, upstreamStatus(err), errorBody("could not fetch top tracks"))
		return
	}

	participant, err := h.board.Ingest(id, name, tracks)
	if err != nil {
		h.logger.Error("ingest rejected", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorBody("could not record tracks"))
		return
	}

	h.logger.Info("participant joined", "participant", participant.ID, "tracks", len(tracks))
	h.writeJSON(w, http.StatusOK, map[string]any{
		"added":       true,
		"participant": participant,
		"tracks":      len(tracks),
	})
}

// aggregate returns the group leaderboard in canonical order.
func (h *GroupHandler) aggregate(w http.ResponseWriter, r *http.Request) {
	ranked := h.board.Aggregate()
	if ranked == nil {
		ranked = []models.RankedTrack{}
	}
	h.writeJSON(w, http.StatusOK, ranked)
}

// roster returns the participants ordered by join time.
func (h *GroupHandler) roster(w http.ResponseWriter, r *http.Request) {
	participants := h.board.Roster()
	if participants == nil {
		participants = []models.Participant{}
	}
	h.writeJSON(w, http.StatusOK, participants)
}

// reset clears the leaderboard, roster, and contribution history.
func (h *GroupHandler) reset(w http.ResponseWriter, r *http.Request) {
	h.board.Reset()
	h.logger.Info("group state reset")
	h.writeJSON(w, http.StatusOK, map[string]any{"reset": true})
}

func (h *GroupHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func errorBody(message string) map[string]any {
	return map[string]any{"added": false, "error": message}
}

// flowStatus maps a state token error to a response status.
func flowStatus(err error) int {
	switch {
	case errors.Is(err, shared.ErrLoginUsed):
		return http.StatusConflict
	case errors.Is(err, shared.ErrLoginExpired):
		return http.StatusGone
	default:
		return http.StatusForbidden
	}
}

// upstreamStatus maps an upstream call error to a response status.
func upstreamStatus(err error) int {
	if errors.Is(err, shared.ErrRateLimited) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}
