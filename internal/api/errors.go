package api

import (
	"errors"
	"net/http"

	"github.com/dharsanguruparan/ftpledger/internal/accounts"
	"github.com/dharsanguruparan/ftpledger/internal/model"
	"github.com/dharsanguruparan/ftpledger/internal/reconcile"
)

const (
	msgInvalidJSON      = "Invalid JSON data"
	msgUserNotFound     = "User not found"
	msgMethodNotAllowed = "Method not allowed"
	msgAlreadyTracked   = "File already tracked"
	msgTracked          = "File tracked successfully"
	msgQueueDisabled    = "Background queue is not configured"
)

// statusFor maps a service error to its HTTP status and client message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, reconcile.ErrInvalidInput):
		return http.StatusBadRequest, msgInvalidJSON
	case errors.Is(err, reconcile.ErrAccountNotFound):
		return http.StatusNotFound, msgUserNotFound
	case errors.Is(err, accounts.ErrInvalid):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "Not found"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	s.respondError(w, status, msg)
}
