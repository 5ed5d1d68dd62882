package cpproxy

import "time"

// Wire message types exchanged with charge points. Every request carries a
// unique MessageID for correlation; responses echo the session or
// reservation id instead, since the registry state machine is the source of
// truth for what is pending.
const (
	typeReserveRequest = "ReservationRequest"
	typeCancelRequest  = "CancelReservation"
	typeStartRequest   = "SessionStartRequest"
	typeStopRequest    = "SessionStopRequest"

	typeReserveResponse = "ReservationResponse"
	typeCancelResponse  = "CancelReservationResponse"
	typeStartResponse   = "SessionStartResponse"
	typeMeterValues     = "MeterValues"
	typeStopResponse    = "SessionStopResponse"
	typeSessionEnd      = "SessionEnd"
)

// request is the envelope published to <prefix>/<evse_id>/request.
type request struct {
	MessageID     string    `json:"message_id"`
	Type          string    `json:"type"`
	EvseId        string    `json:"evse_id"`
	ConnectorId   int       `json:"connector_id,omitempty"`
	Account       string    `json:"account,omitempty"`
	SessionId     uint64    `json:"session_id,omitempty"`
	ReservationId uint64    `json:"reservation_id,omitempty"`
	TimeExpire    time.Time `json:"time_expire,omitempty"`
	Timestamp     int64     `json:"timestamp"`
}

// response is the envelope received from <prefix>/<evse_id>/response.
type response struct {
	MessageID     string    `json:"message_id"`
	Type          string    `json:"type"`
	SessionId     uint64    `json:"session_id,omitempty"`
	ReservationId uint64    `json:"reservation_id,omitempty"`
	Status        bool      `json:"status"`
	Message       string    `json:"message,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	MeterValue    int64     `json:"meter_value,omitempty"`
	Percent       int       `json:"percent,omitempty"`
	PowerW        int64     `json:"power,omitempty"`
	CurrentA      int64     `json:"current,omitempty"`
	VoltageV      int64     `json:"voltage,omitempty"`
}
