package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/openalpha/dusd/api/types"
)

// LiquidationHandler handles liquidation HTTP requests
type LiquidationHandler struct {
	service types.LiquidationService
}

// NewLiquidationHandler creates a new liquidation handler
func NewLiquidationHandler(service types.LiquidationService) *LiquidationHandler {
	return &LiquidationHandler{service: service}
}

// HandleLiquidations handles /v1/liquidations (GET for history, POST to execute)
func (h *LiquidationHandler) HandleLiquidations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listLiquidations(w, r)
	case http.MethodPost:
		h.liquidate(w, r)
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	}
}

// HandleUnsafeAccounts handles GET /v1/liquidations/unsafe
func (h *LiquidationHandler) HandleUnsafeAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	accounts, err := h.service.GetUnsafeAccounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_unsafe_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"total":    len(accounts),
	})
}

// listLiquidations handles GET /v1/liquidations
func (h *LiquidationHandler) listLiquidations(w http.ResponseWriter, r *http.Request) {
	liquidations, err := h.service.GetLiquidations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_liquidations_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"liquidations": liquidations,
		"total":        len(liquidations),
	})
}

// liquidate handles POST /v1/liquidations
func (h *LiquidationHandler) liquidate(w http.ResponseWriter, r *http.Request) {
	var req types.LiquidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	if req.Liquidator == "" {
		req.Liquidator = r.Header.Get("X-Account-Address")
	}
	if req.Liquidator == "" {
		writeError(w, http.StatusBadRequest, "missing_liquidator", "liquidator address is required")
		return
	}
	if req.Target == "" {
		writeError(w, http.StatusBadRequest, "missing_target", "target address is required")
		return
	}
	if req.Denom == "" {
		writeError(w, http.StatusBadRequest, "missing_denom", "denom is required")
		return
	}
	if req.DebtToCover == "" {
		writeError(w, http.StatusBadRequest, "missing_debt_to_cover", "debt_to_cover is required")
		return
	}

	resp, err := h.service.Liquidate(r.Context(), &req)
	if err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "healthy"):
			writeError(w, http.StatusConflict, "target_healthy", msg)
		case strings.Contains(msg, "did not improve"):
			writeError(w, http.StatusConflict, "not_improved", msg)
		default:
			writeError(w, http.StatusBadRequest, "liquidation_failed", msg)
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
