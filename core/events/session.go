package events

import "time"

// SessionStartRequest is published when a session has been requested and
// the charge point must be asked to start delivery.
type SessionStartRequest struct {
	Uid         uint64
	EvseId      string
	ConnectorId int
	Account     string
}

// SessionStartResponse reports the charge point's answer. Status false is a
// recorded business outcome, not an engine error.
type SessionStartResponse struct {
	SessionId uint64
	Status    bool
	Message   string
}

// SessionUpdate is published for every accepted meter reading.
type SessionUpdate struct {
	SessionId  uint64
	MeterValue int64
	Percent    int
}

// SessionStopRequest asks the charge point to stop delivery. Spontaneous is
// set when the engine raised the stop itself on a limit breach.
type SessionStopRequest struct {
	SessionId   uint64
	EvseId      string
	ConnectorId int
	Spontaneous bool
}

// SessionStopResponse reports the charge point's answer to a stop request.
type SessionStopResponse struct {
	SessionId uint64
	Status    bool
	Message   string
}

// SessionEnd is published once a session is finalized and settled.
type SessionEnd struct {
	SessionId uint64
	EndTime   time.Time
}
