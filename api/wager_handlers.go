package api

import (
	"net/http"

	"betledger/domain/entities"
	"betledger/domain/interfaces"
)

type settleResponse struct {
	MatchID   int64                         `json:"match_id"`
	Summaries []*entities.SettlementSummary `json:"summaries"`
	Error     string                        `json:"error,omitempty"`
}

// placeWager handles POST /wagers
func (h *Handler) placeWager(w http.ResponseWriter, r *http.Request) {
	var req interfaces.PlaceWagerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	wager, err := h.deps.Wagers.PlaceWager(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWagerDTO(wager))
}

// listWagers handles GET /accounts/{id}/wagers
func (h *Handler) listWagers(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	limit, err := queryLimit(r, 50)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	wagers, err := h.deps.Wagers.ListByAccount(r.Context(), id, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWagerDTOs(wagers))
}

// settleMatch handles POST /matches/{matchId}/settle[?family=batting]. Without
// a family every family is settled; a partial failure still reports the
// families that ran.
func (h *Handler) settleMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathInt64(r, "matchId")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if family := r.URL.Query().Get("family"); family != "" {
		summary, err := h.deps.Settlement.Settle(r.Context(), matchID, entities.MarketFamily(family))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, settleResponse{MatchID: matchID, Summaries: []*entities.SettlementSummary{summary}})
		return
	}

	summaries, err := h.deps.Settlement.SettleAll(r.Context(), matchID)
	if err != nil && len(summaries) == 0 {
		writeDomainError(w, r, err)
		return
	}

	resp := settleResponse{MatchID: matchID, Summaries: summaries}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// listDeadLetters handles GET /settlement/dead-letters
func (h *Handler) listDeadLetters(w http.ResponseWriter, r *http.Request) {
	letters, err := h.deps.DeadLetters.ListOpen(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeadLetterDTOs(letters))
}
