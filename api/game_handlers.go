package api

import (
	"encoding/json"
	"net/http"

	"betledger/domain/entities"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type stakeRequest struct {
	Stake int64 `json:"stake"`
}

type colorBetRequest struct {
	Stake int64  `json:"stake"`
	Color string `json:"color"`
}

type revealRequest struct {
	Tile int `json:"tile"`
}

// playColor handles POST /games/color/bet
func (h *Handler) playColor(w http.ResponseWriter, r *http.Request) {
	accountID, err := actingAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req colorBetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := h.deps.Games.PlayColor(r.Context(), accountID, req.Stake, req.Color)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// startMines handles POST /games/mines/start
func (h *Handler) startMines(w http.ResponseWriter, r *http.Request) {
	accountID, err := actingAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req stakeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	view, err := h.deps.Games.StartMines(r.Context(), accountID, req.Stake)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// revealTile handles POST /games/mines/{sessionId}/reveal
func (h *Handler) revealTile(w http.ResponseWriter, r *http.Request) {
	accountID, sessionID, ok := h.minesTarget(w, r)
	if !ok {
		return
	}
	var req revealRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	view, err := h.deps.Games.RevealTile(r.Context(), accountID, sessionID, req.Tile)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// cashOut handles POST /games/mines/{sessionId}/cashout
func (h *Handler) cashOut(w http.ResponseWriter, r *http.Request) {
	accountID, sessionID, ok := h.minesTarget(w, r)
	if !ok {
		return
	}

	view, err := h.deps.Games.CashOut(r.Context(), accountID, sessionID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) minesTarget(w http.ResponseWriter, r *http.Request) (int64, uuid.UUID, bool) {
	accountID, err := actingAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return 0, uuid.Nil, false
	}
	raw := chi.URLParam(r, "sessionId")
	sessionID, err := uuid.Parse(raw)
	if err != nil {
		writeDomainError(w, r, entities.ValidationErrorf("invalid session id %q", raw))
		return 0, uuid.Nil, false
	}
	return accountID, sessionID, true
}

// dropPlinko handles POST /games/plinko/drop
func (h *Handler) dropPlinko(w http.ResponseWriter, r *http.Request) {
	accountID, err := actingAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req stakeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := h.deps.Games.DropPlinko(r.Context(), accountID, req.Stake)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// getSettings handles GET /games/{game}/settings
func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	gameType := entities.GameType(chi.URLParam(r, "game"))

	snapshot, err := h.deps.Settings.Snapshot(r.Context(), gameType)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// updateSettings handles PUT /games/{game}/settings. The body is the full
// settings document for the game.
func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	gameType := entities.GameType(chi.URLParam(r, "game"))

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeDomainError(w, r, entities.ValidationErrorf("invalid request body: %v", err))
		return
	}

	snapshot, err := h.deps.Settings.UpdateSettings(r.Context(), gameType, raw)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}
