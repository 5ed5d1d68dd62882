package events

import "time"

// ReservationRequest is published when a connector hold has been requested
// and the charge point must confirm it.
type ReservationRequest struct {
	Id          uint64
	EvseId      string
	ConnectorId int
	Account     string
	TimeExpire  time.Time
}

// ReservationResponse reports the charge point's answer to a reservation
// request.
type ReservationResponse struct {
	Id     uint64
	Status bool
}

// ReservationCancelRequest asks the charge point to release a hold.
type ReservationCancelRequest struct {
	Id          uint64
	EvseId      string
	ConnectorId int
}

// ReservationCancelResponse reports the release outcome.
type ReservationCancelResponse struct {
	Id     uint64
	Status bool
}
