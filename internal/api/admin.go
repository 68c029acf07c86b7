package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/dharsanguruparan/ftpledger/internal/accounts"
	"github.com/dharsanguruparan/ftpledger/internal/model"
)

const (
	accessLogLimit = 100
	statsWindow    = 24 * time.Hour
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Accounts.List(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accounts.NewAccount
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	account, err := s.deps.Accounts.Create(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, account)
}

func (s *Server) handleDeactivateAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.deps.Accounts.Deactivate(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, account)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	files, err := s.deps.Files.ListFiles(r.Context(), limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nonNil(files))
}

func (s *Server) handleAccessLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.deps.AccessLogs.RecentAccess(r.Context(), accessLogLimit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nonNil(logs))
}

func (s *Server) handleServerStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Server.ServerStatus(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleServerAction(w http.ResponseWriter, r *http.Request) {
	action := model.ServerAction(mux.Vars(r)["action"])
	if !action.Valid() {
		s.respondError(w, http.StatusBadRequest, "action must be start, stop or restart")
		return
	}
	status, err := s.deps.Server.ApplyServerAction(r.Context(), action)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Stats.DashboardStats(r.Context(), s.deps.Now().Add(-statsWindow))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
