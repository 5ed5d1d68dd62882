// Package events defines the session related events emitted on the event bus.
//
// Available event types:
//   - ReservationRequest / ReservationResponse: connector hold lifecycle
//   - ReservationCancelRequest / ReservationCancelResponse: hold release
//   - SessionStartRequest / SessionStartResponse: session start handshake
//   - SessionUpdate: accepted meter reading
//   - SessionStopRequest / SessionStopResponse: stop handshake
//   - SessionEnd: finalized and settled session
package events
