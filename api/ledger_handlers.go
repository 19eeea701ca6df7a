package api

import (
	"context"
	"net/http"

	"betledger/domain/interfaces"
)

type amountRequest struct {
	Amount int64 `json:"amount"`
}

type transferRequest struct {
	ToAccountID int64 `json:"to_account_id"`
	Amount      int64 `json:"amount"`
}

type balanceResponse struct {
	AccountID int64 `json:"account_id"`
	Balance   int64 `json:"balance"`
}

// registerAccount handles POST /accounts
func (h *Handler) registerAccount(w http.ResponseWriter, r *http.Request) {
	var req interfaces.RegisterAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	account, err := h.deps.Ledger.RegisterAccount(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(account))
}

// deleteAccount handles DELETE /accounts/{id}
func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := h.deps.Ledger.DeleteAccount(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// balance handles GET /accounts/{id}/balance
func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	balance, err := h.deps.Ledger.Balance(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountID: id, Balance: balance})
}

// deposit handles POST /accounts/{id}/deposit
func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) {
	h.moveExternal(w, r, h.deps.Ledger.Deposit)
}

// withdraw handles POST /accounts/{id}/withdraw
func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	h.moveExternal(w, r, h.deps.Ledger.Withdraw)
}

func (h *Handler) moveExternal(
	w http.ResponseWriter,
	r *http.Request,
	move func(ctx context.Context, accountID int64, amount int64) (int64, error),
) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	balance, err := move(r.Context(), id, req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountID: id, Balance: balance})
}

// transfer handles POST /accounts/{id}/transfer
func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := h.deps.Ledger.Transfer(r.Context(), id, req.ToAccountID, req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// history handles GET /accounts/{id}/ledger
func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
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

	entries, err := h.deps.Ledger.History(r.Context(), id, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerEntryDTOs(entries))
}

// audit handles GET /ledger/audit
func (h *Handler) audit(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Audit.CheckConservation(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
