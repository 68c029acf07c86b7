package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/ftpledger/internal/model"
	"github.com/dharsanguruparan/ftpledger/internal/reconcile"
)

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleIngest(w, r)
	case http.MethodGet:
		s.handleReconcile(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	}
}

// handleIngest tracks one file reported by the FTP event notifier.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	obs, err := s.decodeObservation(w, r)
	if err != nil {
		s.log.Info("rejected sync payload", zap.Error(err))
		s.respondError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	res, err := s.deps.Sync.Ingest(r.Context(), obs)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if res.Status == model.IngestAlreadyTracked {
		s.respondJSON(w, http.StatusOK, map[string]string{"message": msgAlreadyTracked})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": msgTracked})
}

// handleReconcile runs a batch over every active account and returns the
// summary. Per-account failures still answer 200 with success=false.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Sync.ReconcileActive(r.Context(), s.deps.Source)
	if err != nil {
		s.log.Error("batch reconciliation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := reconcile.PartialFailure(summary); err != nil {
		s.log.Warn("batch reconciliation partially failed", zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSyncAsync(w http.ResponseWriter, r *http.Request) {
	if s.deps.Queue == nil {
		s.respondError(w, http.StatusServiceUnavailable, msgQueueDisabled)
		return
	}
	id, err := s.deps.Queue.EnqueueReconcile(r.Context())
	if err != nil {
		s.log.Error("enqueue reconcile", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{"queued": true, "id": id})
}

// handleSyncEvent accepts the same payload as POST /sync but leaves the
// ingest to the worker.
func (s *Server) handleSyncEvent(w http.ResponseWriter, r *http.Request) {
	if s.deps.Queue == nil {
		s.respondError(w, http.StatusServiceUnavailable, msgQueueDisabled)
		return
	}
	obs, err := s.decodeObservation(w, r)
	if err == nil {
		obs.Normalize()
		err = obs.Validate()
	}
	if err != nil {
		s.log.Info("rejected sync event", zap.Error(err))
		s.respondError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	id, err := s.deps.Queue.EnqueueIngest(r.Context(), obs)
	if err != nil {
		s.log.Error("enqueue ingest", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{"queued": true, "id": id})
}

// handleFileAccess sets last_accessed for a tracked file. The body uses the
// /sync payload names; only username and filepath are required.
func (s *Server) handleFileAccess(w http.ResponseWriter, r *http.Request) {
	obs, err := s.decodeObservation(w, r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if err := s.deps.Sync.Touch(r.Context(), obs); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) decodeObservation(w http.ResponseWriter, r *http.Request) (model.CandidateFile, error) {
	var obs model.CandidateFile
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&obs); err != nil {
		return obs, fmt.Errorf("%w: decode body: %w", reconcile.ErrInvalidInput, err)
	}
	return obs, nil
}
