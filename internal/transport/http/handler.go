package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"chillcoin/internal/model"
	"chillcoin/internal/service"
)

// Handler exposes read-only ops endpoints over the ledger. Balance mutation
// stays on the chat surface.
type Handler struct {
	ledger         service.Ledger
	defaultTopSize int
}

func NewHandler(ledger service.Ledger, defaultTopSize int) *Handler {
	return &Handler{ledger: ledger, defaultTopSize: defaultTopSize}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /accounts/{id}", h.GetAccount)
	mux.HandleFunc("GET /leaderboard", h.Leaderboard)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "missing_account_id")
		return
	}
	acc, err := h.ledger.GetAccount(r.Context(), id)
	if errors.Is(err, model.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "account_not_found")
		return
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "store_unavailable")
		return
	}
	h.respondJSON(w, http.StatusOK, acc)
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	n := h.defaultTopSize
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.respondError(w, http.StatusBadRequest, "invalid_n")
			return
		}
		n = parsed
	}
	entries, err := h.ledger.TopAccounts(r.Context(), n)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "store_unavailable")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
