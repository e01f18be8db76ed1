package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tutu-network/swarmpay/internal/app/credit"
	"github.com/tutu-network/swarmpay/internal/app/verify"
	"github.com/tutu-network/swarmpay/internal/domain"
)

// ─── Request Bodies ─────────────────────────────────────────────────────────

// InitPoolRequest is the body of POST /v1/pool.
type InitPoolRequest struct {
	MinStake      uint64 `json:"min_stake"`
	LeaderBonus   uint64 `json:"leader_bonus"`
	ReferralBonus uint64 `json:"referral_bonus"`
}

// AmountRequest is the body of POST /v1/pool/reserve and POST /v1/faucet.
type AmountRequest struct {
	Amount uint64 `json:"amount"`
}

// CreateTaskRequest is the body of POST /v1/tasks.
type CreateTaskRequest struct {
	ComputationUnits uint64 `json:"computation_units"`
	Reward           uint64 `json:"reward"`
}

// CompleteTaskRequest is the body of POST /v1/tasks/{id}/complete.
type CompleteTaskRequest struct {
	ResultHash domain.Digest     `json:"result_hash"`
	SwarmProof domain.SwarmProof `json:"swarm_proof"`
}

// CreateSwarmRequest is the body of POST /v1/swarms. The caller leads.
type CreateSwarmRequest struct {
	Members    []domain.Identity `json:"members"`
	TotalPower uint64            `json:"total_power"`
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid body: %s", err)
	}
	return nil
}

// ─── Stake Pool ─────────────────────────────────────────────────────────────

func (s *Server) handleInitPool(w http.ResponseWriter, r *http.Request) {
	var req InitPoolRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	pool, err := s.svc.Pools.Initialize(r.Context(), caller(r), req.MinStake, req.LeaderBonus, req.ReferralBonus)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pool)
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	pool, err := s.svc.Pools.Current(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

func (s *Server) handleFundReserve(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	pool, err := s.svc.Pools.Current(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	reserve, err := s.svc.Pools.FundReserve(r.Context(), pool.ID, domain.IdentityAccount(caller(r)), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pool": pool.ID, "reserve": reserve})
}

// ─── Tasks ──────────────────────────────────────────────────────────────────

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	task, err := s.svc.Tasks.CreateTask(r.Context(), caller(r), req.ComputationUnits, req.Reward)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f domain.TaskFilter

	if v := q.Get("status"); v != "" {
		st, err := domain.ParseTaskStatus(v)
		if err != nil {
			writeError(w, badRequest("status: %s", err))
			return
		}
		f.Status = &st
	}
	if v := q.Get("creator"); v != "" {
		id, err := domain.ParseIdentity(v)
		if err != nil {
			writeError(w, badRequest("creator: %s", err))
			return
		}
		f.Creator = &id
	}
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	f.Limit = limit

	tasks, err := s.svc.Tasks.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.Tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleTaskHash(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.Tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"task":      task.ID,
		"task_hash": verify.TaskHash(task),
	})
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	var req CompleteTaskRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	st, err := s.svc.Rewards.Complete(r.Context(), chi.URLParam(r, "id"), caller(r), req.ResultHash, req.SwarmProof)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleFailTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.Tasks.FailTask(r.Context(), chi.URLParam(r, "id"), caller(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ─── Swarms ─────────────────────────────────────────────────────────────────

func (s *Server) handleCreateSwarm(w http.ResponseWriter, r *http.Request) {
	var req CreateSwarmRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sw, err := s.svc.Swarms.CreateSwarm(r.Context(), caller(r), req.Members, req.TotalPower)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sw)
}

func (s *Server) handleListSwarms(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	swarms, err := s.svc.Swarms.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if swarms == nil {
		swarms = []domain.Swarm{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"swarms": swarms})
}

func (s *Server) handleGetSwarm(w http.ResponseWriter, r *http.Request) {
	sw, err := s.svc.Swarms.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sw)
}

// ─── Referrals ──────────────────────────────────────────────────────────────

func (s *Server) handleRegisterReferral(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.Referrals.Register(r.Context(), caller(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleGetReferral(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseIdentity(chi.URLParam(r, "referrer"))
	if err != nil {
		writeError(w, badRequest("referrer: %s", err))
		return
	}
	info, err := s.svc.Referrals.Get(r.Context(), id)
	if err != nil {
		// Unknown referrers share the registration error code.
		writeErrorStatus(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// ─── Accounts ───────────────────────────────────────────────────────────────

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	acct, err := parseAccount(chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, err)
		return
	}
	bal, err := s.svc.Credit.Balance(r.Context(), acct)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": acct, "balance": bal})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	acct, err := parseAccount(chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := s.svc.Credit.History(r.Context(), acct, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": acct, "entries": entries})
}

func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Amount > credit.MaxFaucetAmount {
		writeError(w, badRequest("faucet amount is capped at %d", credit.MaxFaucetAmount))
		return
	}
	acct := domain.IdentityAccount(caller(r))
	bal, err := s.svc.Credit.Fund(r.Context(), acct, req.Amount, "faucet")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": acct, "balance": bal})
}

// parseAccount accepts a full account name or a bare identity hex.
func parseAccount(s string) (domain.Account, error) {
	switch {
	case s == string(domain.SystemPool),
		strings.HasPrefix(s, "acct:"),
		strings.HasPrefix(s, "escrow:"),
		strings.HasPrefix(s, "reserve:"):
		return domain.Account(s), nil
	}
	id, err := domain.ParseIdentity(s)
	if err != nil {
		return "", badRequest("account %q: %s", s, err)
	}
	return domain.IdentityAccount(id), nil
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, badRequest("limit must be a non-negative integer")
	}
	return n, nil
}
