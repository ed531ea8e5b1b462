package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"swapguard/internal/model"
	"swapguard/internal/policy"
)

// callerHeader carries the configuration caller's address; the ownership
// check compares it against the live owner of the pool's target asset.
const callerHeader = "X-Caller"

type errorResponse struct {
	Error string `json:"error"`
}

type poolKeyRequest struct {
	Currency0   string `json:"currency0"`
	Currency1   string `json:"currency1"`
	Fee         uint32 `json:"fee"`
	TickSpacing int32  `json:"tick_spacing"`
	Hooks       string `json:"hooks"`
}

type initPoolResponse struct {
	PoolID string `json:"pool_id"`
	Active bool   `json:"active"`
}

type evaluateRequest struct {
	ZeroForOne bool   `json:"zero_for_one"`
	Amount     string `json:"amount"`
	Sender     string `json:"sender"`
	Block      uint64 `json:"block"`
	Timestamp  uint64 `json:"timestamp"`
}

type evaluateResponse struct {
	Allow    bool   `json:"allow"`
	FeePPM   uint32 `json:"fee_ppm,omitempty"`
	Override bool   `json:"override,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInitPool(w http.ResponseWriter, r *http.Request) {
	var req poolKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	key, err := parsePoolKey(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := s.store.InitializePool(r.Context(), key)
	if errors.Is(err, policy.ErrPoolExists) {
		s.metrics.PoolsInit.WithLabelValues("exists").Inc()
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	snap, err := s.store.Snapshot(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if snap.Active {
		s.metrics.PoolsInit.WithLabelValues("active").Inc()
	} else {
		s.metrics.PoolsInit.WithLabelValues("inert").Inc()
	}
	writeJSON(w, http.StatusCreated, initPoolResponse{PoolID: id.Hex(), Active: snap.Active})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.poolID(w, r)
	if !ok {
		return
	}
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	sender, err := parseAddress(req.Sender)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("sender: %w", err))
		return
	}
	amount := new(big.Int)
	if req.Amount != "" {
		if _, ok := amount.SetString(req.Amount, 10); !ok {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid amount %q", req.Amount))
			return
		}
	}

	decision, err := s.store.Evaluate(r.Context(), id, model.Swap{
		ZeroForOne: req.ZeroForOne,
		Amount:     amount,
		Sender:     sender,
		Block:      req.Block,
		Timestamp:  req.Timestamp,
	})
	if err != nil {
		if reason, denied := policy.DenialReason(err); denied {
			s.metrics.Evaluations.WithLabelValues("deny", string(reason)).Inc()
			writeJSON(w, http.StatusForbidden, evaluateResponse{Allow: false, Reason: string(reason)})
			return
		}
		if errors.Is(err, policy.ErrUnknownPool) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.metrics.Evaluations.WithLabelValues("allow", "").Inc()
	writeJSON(w, http.StatusOK, evaluateResponse{Allow: true, FeePPM: decision.FeePPM, Override: decision.Override})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := s.poolID(w, r)
	if !ok {
		return
	}
	snap, err := s.store.Snapshot(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetBlacklisted(w http.ResponseWriter, r *http.Request) {
	id, addr, ok := s.poolIDAndAddr(w, r)
	if !ok {
		return
	}
	banned, err := s.store.IsBlacklisted(id, addr)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"address": addr.Hex(), "blacklisted": banned})
}

func (s *Server) handleGetRouter(w http.ResponseWriter, r *http.Request) {
	id, addr, ok := s.poolIDAndAddr(w, r)
	if !ok {
		return
	}
	verified, err := s.store.IsVerifiedRouter(id, addr)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"address": addr.Hex(), "verified": verified})
}

func (s *Server) handleGetLastTrade(w http.ResponseWriter, r *http.Request) {
	id, addr, ok := s.poolIDAndAddr(w, r)
	if !ok {
		return
	}
	block, ts, seen, err := s.store.LastTrade(id, addr)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address":   addr.Hex(),
		"seen":      seen,
		"block":     block,
		"timestamp": ts,
	})
}

func (s *Server) handleSetBuyFee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FeePPM uint32 `json:"fee_ppm"`
	}
	s.mutation(w, r, model.FieldBuyFee, &req, func(id model.PoolID, caller common.Address) error {
		return s.store.SetBuyFee(r.Context(), id, caller, req.FeePPM)
	})
}

func (s *Server) handleSetSellFee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FeePPM uint32 `json:"fee_ppm"`
	}
	s.mutation(w, r, model.FieldSellFee, &req, func(id model.PoolID, caller common.Address) error {
		return s.store.SetSellFee(r.Context(), id, caller, req.FeePPM)
	})
}

func (s *Server) handleSetFees(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BuyFeePPM  uint32 `json:"buy_fee_ppm"`
		SellFeePPM uint32 `json:"sell_fee_ppm"`
	}
	s.mutation(w, r, "fees", &req, func(id model.PoolID, caller common.Address) error {
		return s.store.SetFees(r.Context(), id, caller, req.BuyFeePPM, req.SellFeePPM)
	})
}

func (s *Server) handleSetProtection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	s.mutation(w, r, model.FieldProtection, &req, func(id model.PoolID, caller common.Address) error {
		return s.store.SetProtectionEnabled(r.Context(), id, caller, req.Enabled)
	})
}

func (s *Server) handleSetCooldown(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds uint64 `json:"seconds"`
	}
	s.mutation(w, r, model.FieldCooldown, &req, func(id model.PoolID, caller common.Address) error {
		return s.store.SetCooldownSeconds(r.Context(), id, caller, req.Seconds)
	})
}

func (s *Server) handleSetMaxSell(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount string `json:"amount"`
	}
	s.mutation(w, r, model.FieldMaxSell, &req, func(id model.PoolID, caller common.Address) error {
		amount := new(big.Int)
		if req.Amount != "" {
			if _, ok := amount.SetString(req.Amount, 10); !ok {
				return fmt.Errorf("invalid amount %q", req.Amount)
			}
		}
		return s.store.SetMaxSellAmount(r.Context(), id, caller, amount)
	})
}

func (s *Server) handleSetBlacklisted(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Banned bool `json:"banned"`
	}
	addr, err := parseAddress(mux.Vars(r)["addr"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.mutation(w, r, model.FieldBlacklist, &req, func(id model.PoolID, caller common.Address) error {
		return s.store.SetBlacklisted(r.Context(), id, caller, addr, req.Banned)
	})
}

func (s *Server) handleSetRouter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Verified bool `json:"verified"`
	}
	addr, err := parseAddress(mux.Vars(r)["addr"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.mutation(w, r, model.FieldVerifiedRouter, &req, func(id model.PoolID, caller common.Address) error {
		return s.store.SetVerifiedRouter(r.Context(), id, caller, addr, req.Verified)
	})
}

// mutation decodes the body, resolves pool and caller, runs the store call,
// and maps the error taxonomy onto HTTP statuses.
func (s *Server) mutation(w http.ResponseWriter, r *http.Request, field string, body interface{}, fn func(id model.PoolID, caller common.Address) error) {
	id, ok := s.poolID(w, r)
	if !ok {
		return
	}
	caller, err := parseAddress(r.Header.Get(callerHeader))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%s header: %w", callerHeader, err))
		return
	}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}

	err = fn(id, caller)
	switch {
	case err == nil:
		s.metrics.Mutations.WithLabelValues(field, "ok").Inc()
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, policy.ErrUnknownPool):
		s.metrics.Mutations.WithLabelValues(field, "unknown_pool").Inc()
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, policy.ErrNoTargetAsset),
		errors.Is(err, policy.ErrOwnerQueryFailed),
		errors.Is(err, policy.ErrNotOwner):
		s.metrics.Mutations.WithLabelValues(field, "unauthorized").Inc()
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, policy.ErrFeeTooHigh):
		s.metrics.Mutations.WithLabelValues(field, "invalid").Inc()
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		s.metrics.Mutations.WithLabelValues(field, "error").Inc()
		writeError(w, http.StatusBadRequest, err)
	}
}

func (s *Server) poolID(w http.ResponseWriter, r *http.Request) (model.PoolID, bool) {
	id, err := model.ParsePoolID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return model.PoolID{}, false
	}
	return id, true
}

func (s *Server) poolIDAndAddr(w http.ResponseWriter, r *http.Request) (model.PoolID, common.Address, bool) {
	id, ok := s.poolID(w, r)
	if !ok {
		return model.PoolID{}, common.Address{}, false
	}
	addr, err := parseAddress(mux.Vars(r)["addr"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return model.PoolID{}, common.Address{}, false
	}
	return id, addr, true
}

func parsePoolKey(req poolKeyRequest) (model.PoolKey, error) {
	currency0, err := parseCurrency(req.Currency0)
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("currency0: %w", err)
	}
	currency1, err := parseCurrency(req.Currency1)
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("currency1: %w", err)
	}
	hooks := common.Address{}
	if req.Hooks != "" {
		hooks, err = parseAddress(req.Hooks)
		if err != nil {
			return model.PoolKey{}, fmt.Errorf("hooks: %w", err)
		}
	}
	return model.PoolKey{
		Currency0:   currency0,
		Currency1:   currency1,
		Fee:         req.Fee,
		TickSpacing: req.TickSpacing,
		Hooks:       hooks,
	}, nil
}

// parseCurrency accepts an address or empty string (the native sentinel).
func parseCurrency(s string) (common.Address, error) {
	if s == "" {
		return model.NativeCurrency, nil
	}
	return parseAddress(s)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
