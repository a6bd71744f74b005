package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/openalpha/dusd/api/types"
)

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	service types.AccountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(service types.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// HandleAccount handles /v1/accounts/{address} (GET for position summary)
func (h *AccountHandler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	address := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	if address == "" || strings.Contains(address, "/") {
		writeError(w, http.StatusBadRequest, "missing_address", "account address is required")
		return
	}

	account, err := h.service.GetAccount(r.Context(), address)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get_account_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"account": account})
}

// HandleAssets handles GET /v1/assets (registered collateral assets with prices)
func (h *AccountHandler) HandleAssets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	assets, err := h.service.GetAssets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get_assets_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"assets": assets})
}

// HandleBacking handles GET /v1/backing (system-wide solvency report)
func (h *AccountHandler) HandleBacking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	report, err := h.service.GetBacking(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get_backing_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Helper functions shared by all handlers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   code,
		"message": message,
	})
}
