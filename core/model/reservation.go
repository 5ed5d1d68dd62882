package model

import "time"

// ReservationState enumerates the reservation lifecycle. Cancelled is
// terminal unless the reservation was already consumed by a session.
type ReservationState int

const (
	ReservationNone ReservationState = iota
	ReservationRequested
	ReservationConfirmed
	ReservationCancelled
)

func (s ReservationState) String() string {
	switch s {
	case ReservationNone:
		return "none"
	case ReservationRequested:
		return "requested"
	case ReservationConfirmed:
		return "confirmed"
	case ReservationCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Reservation is a time-boxed hold on a connector prior to session start.
// Expiry is a value checked lazily on the next relevant operation, never
// enforced by a timer.
type Reservation struct {
	Id          uint64           `json:"reservation_id"`
	EvseId      string           `json:"evse_id"`
	ConnectorId int              `json:"connector_id"`
	Account     string           `json:"account"`
	State       ReservationState `json:"-"`
	StateName   string           `json:"state"`
	TimeExpire  time.Time        `json:"time_expire"`
	Consumed    bool             `json:"consumed"`
}

// Expired reports whether the reservation expiry has passed at the given
// instant.
func (r *Reservation) Expired(now time.Time) bool {
	return !r.TimeExpire.IsZero() && now.After(r.TimeExpire)
}
