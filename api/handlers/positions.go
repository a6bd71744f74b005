package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/openalpha/dusd/api/types"
)

// PositionHandler handles position mutation HTTP requests
type PositionHandler struct {
	service types.PositionService
}

// NewPositionHandler creates a new position handler
func NewPositionHandler(service types.PositionService) *PositionHandler {
	return &PositionHandler{service: service}
}

// HandleDeposit handles POST /v1/positions/deposit
func (h *PositionHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req types.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	if req.Depositor == "" {
		req.Depositor = r.Header.Get("X-Account-Address")
	}
	if req.Depositor == "" {
		writeError(w, http.StatusBadRequest, "missing_depositor", "depositor address is required")
		return
	}
	if req.Denom == "" {
		writeError(w, http.StatusBadRequest, "missing_denom", "denom is required")
		return
	}
	if req.Amount == "" {
		writeError(w, http.StatusBadRequest, "missing_amount", "amount is required")
		return
	}

	resp, err := h.service.Deposit(r.Context(), &req)
	if err != nil {
		writePositionError(w, "deposit_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleMint handles POST /v1/positions/mint
func (h *PositionHandler) HandleMint(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req types.MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	if req.Minter == "" {
		req.Minter = r.Header.Get("X-Account-Address")
	}
	if req.Minter == "" {
		writeError(w, http.StatusBadRequest, "missing_minter", "minter address is required")
		return
	}
	if req.Amount == "" {
		writeError(w, http.StatusBadRequest, "missing_amount", "amount is required")
		return
	}

	resp, err := h.service.Mint(r.Context(), &req)
	if err != nil {
		writePositionError(w, "mint_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleRedeem handles POST /v1/positions/redeem
func (h *PositionHandler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req types.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	if req.Redeemer == "" {
		req.Redeemer = r.Header.Get("X-Account-Address")
	}
	if req.Redeemer == "" {
		writeError(w, http.StatusBadRequest, "missing_redeemer", "redeemer address is required")
		return
	}
	if req.Denom == "" {
		writeError(w, http.StatusBadRequest, "missing_denom", "denom is required")
		return
	}
	if req.Amount == "" {
		writeError(w, http.StatusBadRequest, "missing_amount", "amount is required")
		return
	}

	resp, err := h.service.Redeem(r.Context(), &req)
	if err != nil {
		writePositionError(w, "redeem_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleBurn handles POST /v1/positions/burn
func (h *PositionHandler) HandleBurn(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req types.BurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	if req.Burner == "" {
		req.Burner = r.Header.Get("X-Account-Address")
	}
	if req.Burner == "" {
		writeError(w, http.StatusBadRequest, "missing_burner", "burner address is required")
		return
	}
	if req.Amount == "" {
		writeError(w, http.StatusBadRequest, "missing_amount", "amount is required")
		return
	}

	resp, err := h.service.Burn(r.Context(), &req)
	if err != nil {
		writePositionError(w, "burn_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleDepositAndMint handles POST /v1/positions/deposit-and-mint
func (h *PositionHandler) HandleDepositAndMint(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req types.DepositAndMintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	if req.Depositor == "" {
		req.Depositor = r.Header.Get("X-Account-Address")
	}
	if req.Depositor == "" {
		writeError(w, http.StatusBadRequest, "missing_depositor", "depositor address is required")
		return
	}
	if req.Denom == "" {
		writeError(w, http.StatusBadRequest, "missing_denom", "denom is required")
		return
	}
	if req.DepositAmount == "" || req.MintAmount == "" {
		writeError(w, http.StatusBadRequest, "missing_amount", "deposit_amount and mint_amount are required")
		return
	}

	resp, err := h.service.DepositAndMint(r.Context(), &req)
	if err != nil {
		writePositionError(w, "deposit_and_mint_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleRedeemForDusd handles POST /v1/positions/redeem-for-dusd
func (h *PositionHandler) HandleRedeemForDusd(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req types.RedeemForDusdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	if req.Redeemer == "" {
		req.Redeemer = r.Header.Get("X-Account-Address")
	}
	if req.Redeemer == "" {
		writeError(w, http.StatusBadRequest, "missing_redeemer", "redeemer address is required")
		return
	}
	if req.Denom == "" {
		writeError(w, http.StatusBadRequest, "missing_denom", "denom is required")
		return
	}
	if req.RedeemAmount == "" || req.BurnAmount == "" {
		writeError(w, http.StatusBadRequest, "missing_amount", "redeem_amount and burn_amount are required")
		return
	}

	resp, err := h.service.RedeemForDusd(r.Context(), &req)
	if err != nil {
		writePositionError(w, "redeem_for_dusd_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// requirePost rejects non-POST methods, answering OPTIONS preflights
func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return false
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return false
	}
	return true
}

// writePositionError maps engine errors onto HTTP status codes
func writePositionError(w http.ResponseWriter, code string, err error) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "health factor"):
		writeError(w, http.StatusConflict, code, msg)
	case strings.Contains(msg, "insufficient"):
		writeError(w, http.StatusBadRequest, code, msg)
	case strings.Contains(msg, "not registered"):
		writeError(w, http.StatusBadRequest, code, msg)
	case strings.Contains(msg, "price feed"):
		writeError(w, http.StatusServiceUnavailable, code, msg)
	default:
		writeError(w, http.StatusBadRequest, code, msg)
	}
}
