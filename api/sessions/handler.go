// Package sessions exposes the owner-facing HTTP surface of the session
// registry. Callers identify themselves with the X-Account header; the
// registry enforces per-object permissions.
package sessions

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/voltgrid/sessiond/core/billing"
	"github.com/voltgrid/sessiond/core/model"
	"github.com/voltgrid/sessiond/core/session"
)

// Registry is the subset of the session registry the HTTP surface drives.
type Registry interface {
	CreateReservationRequest(caller, evseId string, connectorId int) (*model.Reservation, error)
	CancelReservationRequest(caller string, id uint64) error
	StartSessionRequest(account, evseId string, connectorId int, reservationId uint64) (*model.Session, error)
	StopSessionRequest(caller string, sessionId uint64) error
	GetSession(caller string, sessionId uint64) (*model.Session, error)
	GetSessionByAuth(caller, account string) (*model.Session, error)
	ListSessions() []*model.Session
	GetCDR(caller string, sessionId uint64) (*billing.CDR, error)
}

// NewHandler returns the HTTP mux serving the session API.
func NewHandler(reg Registry) http.Handler {
	h := &handler{reg: reg}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions", h.sessions)
	mux.HandleFunc("/api/sessions/", h.session)
	mux.HandleFunc("/api/reservations", h.reservations)
	mux.HandleFunc("/api/reservations/", h.reservation)
	return mux
}

type handler struct {
	reg Registry
}

type startRequest struct {
	EvseId        string `json:"evse_id"`
	ConnectorId   int    `json:"connector_id"`
	ReservationId uint64 `json:"reservation_id,omitempty"`
}

type reserveRequest struct {
	EvseId      string `json:"evse_id"`
	ConnectorId int    `json:"connector_id"`
}

// sessions handles GET /api/sessions (list, or lookup by account) and
// POST /api/sessions (start request).
func (h *handler) sessions(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get("X-Account")
	switch r.Method {
	case http.MethodGet:
		if account := r.URL.Query().Get("account"); account != "" {
			s, err := h.reg.GetSessionByAuth(caller, account)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, s)
			return
		}
		writeJSON(w, h.reg.ListSessions())
	case http.MethodPost:
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		s, err := h.reg.StartSessionRequest(caller, req.EvseId, req.ConnectorId, req.ReservationId)
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		writeJSON(w, s)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// session handles /api/sessions/{id}, /api/sessions/{id}/stop and
// /api/sessions/{id}/cdr.
func (h *handler) session(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get("X-Account")
	rest := r.URL.Path[len("/api/sessions/"):]
	idPart, action := rest, ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		idPart, action = rest[:i], rest[i+1:]
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	switch {
	case action == "" && r.Method == http.MethodGet:
		s, err := h.reg.GetSession(caller, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, s)
	case action == "cdr" && r.Method == http.MethodGet:
		cdr, err := h.reg.GetCDR(caller, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, cdr)
	case action == "stop" && r.Method == http.MethodPost:
		if err := h.reg.StopSessionRequest(caller, id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// reservations handles POST /api/reservations.
func (h *handler) reservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	caller := r.Header.Get("X-Account")
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	res, err := h.reg.CreateReservationRequest(caller, req.EvseId, req.ConnectorId)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, res)
}

// reservation handles DELETE /api/reservations/{id}.
func (h *handler) reservation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	caller := r.Header.Get("X-Account")
	id, err := strconv.ParseUint(r.URL.Path[len("/api/reservations/"):], 10, 64)
	if err != nil {
		http.Error(w, "invalid reservation id", http.StatusBadRequest)
		return
	}
	if err := h.reg.CancelReservationRequest(caller, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeError maps registry sentinel errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, session.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, session.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, session.ErrInsufficientFunds):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
