package session

import (
	"fmt"

	"github.com/voltgrid/sessiond/core/model"
)

// message enumerates the inputs driving the state machines.
type message int

const (
	msgStartRequest message = iota
	msgStartResponse
	msgUpdate
	msgStopRequest
	msgStopResponse
	msgEnd
	msgReserveRequest
	msgReserveResponse
	msgCancelRequest
	msgCancelResponse
)

func (m message) String() string {
	switch m {
	case msgStartRequest:
		return "startSessionRequest"
	case msgStartResponse:
		return "startSessionResponse"
	case msgUpdate:
		return "updateSession"
	case msgStopRequest:
		return "stopSessionRequest"
	case msgStopResponse:
		return "stopSessionResponse"
	case msgEnd:
		return "endSession"
	case msgReserveRequest:
		return "createReservationRequest"
	case msgReserveResponse:
		return "createReservationResponse"
	case msgCancelRequest:
		return "cancelReservationRequest"
	case msgCancelResponse:
		return "cancelReservationResponse"
	default:
		return "unknown"
	}
}

type sessionKey struct {
	from model.SessionState
	role model.Role
	msg  message
}

type reservationKey struct {
	from model.ReservationState
	role model.Role
	msg  message
}

// The transition tables are the single authority on which (state, role,
// message) combinations are legal. Anything absent is rejected with
// ErrInvalidState; no ad hoc conditionals elsewhere decide transitions.
var sessionTransitions = map[sessionKey]model.SessionState{
	{model.SessionNone, model.RoleOwner, msgStartRequest}:           model.SessionRequested,
	{model.SessionRequested, model.RoleOracle, msgStartResponse}:    model.SessionActive,
	{model.SessionActive, model.RoleOracle, msgUpdate}:              model.SessionActive,
	{model.SessionActive, model.RoleOwner, msgStopRequest}:          model.SessionStopRequested,
	{model.SessionStopRequested, model.RoleOwner, msgStopRequest}:   model.SessionStopRequested,
	{model.SessionActive, model.RoleSystem, msgStopRequest}:         model.SessionStopRequested,
	{model.SessionStopRequested, model.RoleOracle, msgStopResponse}: model.SessionStopped,
	{model.SessionStopped, model.RoleOracle, msgEnd}:                model.SessionEnded,
}

var reservationTransitions = map[reservationKey]model.ReservationState{
	{model.ReservationNone, model.RoleOwner, msgReserveRequest}:        model.ReservationRequested,
	{model.ReservationRequested, model.RoleOracle, msgReserveResponse}: model.ReservationConfirmed,
	{model.ReservationRequested, model.RoleOwner, msgCancelRequest}:    model.ReservationRequested,
	{model.ReservationConfirmed, model.RoleOwner, msgCancelRequest}:    model.ReservationConfirmed,
	{model.ReservationRequested, model.RoleOracle, msgCancelResponse}:  model.ReservationCancelled,
	{model.ReservationConfirmed, model.RoleOracle, msgCancelResponse}:  model.ReservationCancelled,
}

// nextSessionState resolves the transition table for sessions.
func nextSessionState(from model.SessionState, role model.Role, msg message) (model.SessionState, error) {
	to, ok := sessionTransitions[sessionKey{from, role, msg}]
	if !ok {
		return from, fmt.Errorf("%w: %s by %s in state %s", ErrInvalidState, msg, role, from)
	}
	return to, nil
}

// nextReservationState resolves the transition table for reservations.
func nextReservationState(from model.ReservationState, role model.Role, msg message) (model.ReservationState, error) {
	to, ok := reservationTransitions[reservationKey{from, role, msg}]
	if !ok {
		return from, fmt.Errorf("%w: %s by %s in state %s", ErrInvalidState, msg, role, from)
	}
	return to, nil
}
