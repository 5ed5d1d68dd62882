// Package model holds the domain entities shared across the charging
// session engine: sessions, reservations, meter logs and connectors.
package model

import "time"

// SessionState enumerates the session lifecycle. Transitions are driven by
// the registry's transition table; Ended is terminal.
type SessionState int

const (
	SessionNone SessionState = iota
	SessionRequested
	SessionActive
	SessionStopRequested
	SessionStopped
	SessionEnded
)

// String returns a human-readable representation of the state.
func (s SessionState) String() string {
	switch s {
	case SessionNone:
		return "none"
	case SessionRequested:
		return "requested"
	case SessionActive:
		return "active"
	case SessionStopRequested:
		return "stop_requested"
	case SessionStopped:
		return "stopped"
	case SessionEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Role identifies the actor driving a transition. Owner-initiated and
// oracle-initiated paths through the state machine differ; System covers
// transitions the engine raises on its own, such as limit-breach stops.
type Role int

const (
	RoleOwner Role = iota
	RoleOracle
	RoleSystem
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleOracle:
		return "oracle"
	case RoleSystem:
		return "system"
	default:
		return "unknown"
	}
}

// MeterLog is one telemetry reading reported during an active session.
// MeterValue is cumulative watt-hours and must be non-decreasing, as must
// Timestamp.
type MeterLog struct {
	MeterValue int64     `json:"meter_value"`
	Timestamp  time.Time `json:"timestamp"`
	Percent    int       `json:"percent"`
	PowerW     int64     `json:"power"`
	CurrentA   int64     `json:"current"`
	VoltageV   int64     `json:"voltage"`
}

// Session is one charging session from request to finalization. It is
// mutated only through the registry and never after reaching Ended.
type Session struct {
	Id            uint64       `json:"session_id"`
	EvseId        string       `json:"evse_id"`
	ConnectorId   int          `json:"connector_id"`
	Account       string       `json:"account"`
	ReservationId uint64       `json:"reservation_id,omitempty"`
	TariffId      string       `json:"tariff_id"`
	State         SessionState `json:"-"`
	StateName     string       `json:"state"`
	MeterStart    int64        `json:"meter_start"`
	MeterStop     int64        `json:"meter_stop"`
	Logs          []MeterLog   `json:"meter_logs,omitempty"`
	TimeStart     time.Time    `json:"time_start"`
	TimeStop      time.Time    `json:"time_stop"`
	TimeEnd       time.Time    `json:"time_end"`
	Message       string       `json:"message,omitempty"`
}

// LastLog returns the most recent accepted meter log, or nil.
func (s *Session) LastLog() *MeterLog {
	if len(s.Logs) == 0 {
		return nil
	}
	return &s.Logs[len(s.Logs)-1]
}

// ConsumedWh returns the watt-hours delivered so far according to the most
// recent reading.
func (s *Session) ConsumedWh() int64 {
	if last := s.LastLog(); last != nil {
		return last.MeterValue - s.MeterStart
	}
	return 0
}
