package events

// Event is the marker implemented by every type carried on the bus, so a
// publisher cannot put an arbitrary value on it.
type Event interface {
	busEvent()
}

func (SessionStartRequest) busEvent() {}

func (SessionStartResponse) busEvent() {}

func (SessionUpdate) busEvent() {}

func (SessionStopRequest) busEvent() {}

func (SessionStopResponse) busEvent() {}

func (SessionEnd) busEvent() {}

func (ReservationRequest) busEvent() {}

func (ReservationResponse) busEvent() {}

func (ReservationCancelRequest) busEvent() {}

func (ReservationCancelResponse) busEvent() {}
