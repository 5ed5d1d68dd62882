// Package session owns the reservation and charging session state machines
// and orchestrates meter-log processing, tariff matching, billing and
// settlement. Every public operation is synchronous and all-or-nothing: it
// either fully applies its transition or is rejected with no side effect.
package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/voltgrid/sessiond/core/billing"
	"github.com/voltgrid/sessiond/core/events"
	"github.com/voltgrid/sessiond/core/logger"
	"github.com/voltgrid/sessiond/core/model"
	"github.com/voltgrid/sessiond/core/tariff"
	"github.com/voltgrid/sessiond/core/telemetry"
	"github.com/voltgrid/sessiond/internal/eventbus"
)

// Registry is the session engine. Collaborators are injected ports: the
// connector directory and tariff catalog are read-only for a session's
// lifetime, the ledger is debited exactly once at finalization.
type Registry struct {
	mu              sync.Mutex
	cfg             Config
	sessions        map[uint64]*record
	reservations    map[uint64]*model.Reservation
	nextSession     uint64
	nextReservation uint64
	connectors      ConnectorDirectory
	tariffs         TariffCatalog
	ledger          Ledger
	perms           PermissionChecker
	bus             eventbus.EventBus
	sink            telemetry.Sink
	log             logger.Logger
}

// NewRegistry creates a registry. The connector directory, tariff catalog,
// ledger and logger are mandatory; the permission checker defaults to
// AllowAll, bus and telemetry sink are optional.
func NewRegistry(cfg Config, connectors ConnectorDirectory, tariffs TariffCatalog, ledger Ledger, perms PermissionChecker, bus eventbus.EventBus, sink telemetry.Sink, log logger.Logger) (*Registry, error) {
	if connectors == nil || tariffs == nil || ledger == nil || log == nil {
		return nil, fmt.Errorf("session: nil parameter provided to NewRegistry")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	if perms == nil {
		perms = AllowAll{}
	}
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Registry{
		cfg:          cfg,
		sessions:     map[uint64]*record{},
		reservations: map[uint64]*model.Reservation{},
		connectors:   connectors,
		tariffs:      tariffs,
		ledger:       ledger,
		perms:        perms,
		bus:          bus,
		sink:         sink,
		log:          log,
	}, nil
}

func (r *Registry) publish(e eventbus.Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}

func (r *Registry) authorize(caller string, level AccessLevel) error {
	if !r.perms.Allowed(caller, PermissionObject, level) {
		return fmt.Errorf("%w: caller %s", ErrUnauthorized, caller)
	}
	return nil
}

// CreateReservationRequest places a hold request on a free connector and
// returns the pending reservation with its expiry. The hold becomes
// effective only once the charge point confirms it.
func (r *Registry) CreateReservationRequest(caller, evseId string, connectorId int) (*model.Reservation, error) {
	if err := r.authorize(caller, AccessUse); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, err := r.connectors.Lookup(evseId, connectorId)
	if err != nil {
		return nil, fmt.Errorf("connector %s:%d: %w", evseId, connectorId, err)
	}
	if !conn.Free() {
		return nil, fmt.Errorf("%w: connector %s:%d is %s", ErrInvalidState, evseId, connectorId, conn.Status)
	}
	state, err := nextReservationState(model.ReservationNone, model.RoleOwner, msgReserveRequest)
	if err != nil {
		return nil, err
	}
	r.nextReservation++
	res := &model.Reservation{
		Id:          r.nextReservation,
		EvseId:      evseId,
		ConnectorId: connectorId,
		Account:     caller,
		State:       state,
		TimeExpire:  time.Now().Add(time.Duration(r.cfg.ReservationTTLSeconds) * time.Second),
	}
	r.reservations[res.Id] = res
	reservationsMade.Inc()
	r.log.Infof("reservation %d requested on %s:%d for %s", res.Id, evseId, connectorId, caller)
	r.publish(events.ReservationRequest{Id: res.Id, EvseId: evseId, ConnectorId: connectorId, Account: caller, TimeExpire: res.TimeExpire})
	return reservationCopy(res), nil
}

// CreateReservationResponse records the charge point's answer. A confirmed
// hold marks the connector reserved for the account; a refused one releases
// the reservation. A refusal is a recorded outcome, not an error.
func (r *Registry) CreateReservationResponse(id uint64, accepted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[id]
	if !ok {
		return fmt.Errorf("reservation %d: %w", id, ErrNotFound)
	}
	if res.Expired(time.Now()) {
		res.State = model.ReservationCancelled
		return fmt.Errorf("%w: reservation %d expired", ErrInvalidState, id)
	}
	if _, err := nextReservationState(res.State, model.RoleOracle, msgReserveResponse); err != nil {
		return err
	}
	if accepted {
		if err := r.connectors.SetStatus(res.EvseId, res.ConnectorId, model.ConnectorReserved, res.Account); err != nil {
			return fmt.Errorf("reserve connector: %w", err)
		}
		res.State = model.ReservationConfirmed
	} else {
		res.State = model.ReservationCancelled
	}
	r.log.Infof("reservation %d response: accepted=%t", id, accepted)
	r.publish(events.ReservationResponse{Id: id, Status: accepted})
	return nil
}

// CancelReservationRequest asks the charge point to release a hold. Only
// the reservation owner may initiate it.
func (r *Registry) CancelReservationRequest(caller string, id uint64) error {
	if err := r.authorize(caller, AccessUse); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[id]
	if !ok {
		return fmt.Errorf("reservation %d: %w", id, ErrNotFound)
	}
	if res.Account != caller {
		return fmt.Errorf("%w: caller %s does not own reservation %d", ErrUnauthorized, caller, id)
	}
	if _, err := nextReservationState(res.State, model.RoleOwner, msgCancelRequest); err != nil {
		return err
	}
	r.publish(events.ReservationCancelRequest{Id: id, EvseId: res.EvseId, ConnectorId: res.ConnectorId})
	return nil
}

// CancelReservationResponse finalizes a release. On success the reservation
// is cancelled and the connector freed if it was held for this account.
func (r *Registry) CancelReservationResponse(id uint64, status bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[id]
	if !ok {
		return fmt.Errorf("reservation %d: %w", id, ErrNotFound)
	}
	if _, err := nextReservationState(res.State, model.RoleOracle, msgCancelResponse); err != nil {
		return err
	}
	if status {
		wasConfirmed := res.State == model.ReservationConfirmed
		res.State = model.ReservationCancelled
		if wasConfirmed {
			if err := r.releaseConnector(res.EvseId, res.ConnectorId); err != nil {
				return err
			}
		}
	}
	r.publish(events.ReservationCancelResponse{Id: id, Status: status})
	return nil
}

// StartSessionRequest opens a session on a connector that is either free or
// reserved for the account, provided a tariff is assigned. The session
// starts delivering only once the charge point confirms.
func (r *Registry) StartSessionRequest(account, evseId string, connectorId int, reservationId uint64) (*model.Session, error) {
	if err := r.authorize(account, AccessUse); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, err := r.connectors.Lookup(evseId, connectorId)
	if err != nil {
		return nil, fmt.Errorf("connector %s:%d: %w", evseId, connectorId, err)
	}
	if conn.TariffId == "" {
		return nil, fmt.Errorf("%w: connector %s:%d has no tariff assigned", ErrInvalidState, evseId, connectorId)
	}
	if err := r.checkConnectorClaim(conn, account, reservationId); err != nil {
		return nil, err
	}
	trf, err := r.tariffs.Get(conn.TariffId)
	if err != nil {
		return nil, fmt.Errorf("tariff %s: %w", conn.TariffId, err)
	}
	state, err := nextSessionState(model.SessionNone, model.RoleOwner, msgStartRequest)
	if err != nil {
		return nil, err
	}

	r.nextSession++
	s := &model.Session{
		Id:            r.nextSession,
		EvseId:        evseId,
		ConnectorId:   connectorId,
		Account:       account,
		ReservationId: reservationId,
		TariffId:      conn.TariffId,
		State:         state,
	}
	if reservationId != 0 {
		r.reservations[reservationId].Consumed = true
	}
	r.sessions[s.Id] = &record{session: s, tariff: trf}
	r.log.Infof("session %d requested on %s:%d for %s (tariff %s)", s.Id, evseId, connectorId, account, conn.TariffId)
	r.publish(events.SessionStartRequest{Uid: s.Id, EvseId: evseId, ConnectorId: connectorId, Account: account})
	return sessionCopy(s), nil
}

// checkConnectorClaim verifies the account may start on the connector. A
// non-zero reservation id must name a confirmed, unexpired, unconsumed hold
// owned by the account on this very connector; without one the connector
// must be free. An expired hold is lazily cancelled here.
func (r *Registry) checkConnectorClaim(conn *model.Connector, account string, reservationId uint64) error {
	if reservationId == 0 {
		if conn.Free() {
			return nil
		}
		return fmt.Errorf("%w: connector %s:%d is %s", ErrInvalidState, conn.EvseId, conn.Id, conn.Status)
	}
	res, ok := r.reservations[reservationId]
	if !ok {
		return fmt.Errorf("reservation %d: %w", reservationId, ErrNotFound)
	}
	if res.State != model.ReservationConfirmed || res.Account != account || res.Consumed {
		return fmt.Errorf("%w: reservation %d not usable", ErrInvalidState, reservationId)
	}
	if res.EvseId != conn.EvseId || res.ConnectorId != conn.Id {
		return fmt.Errorf("%w: reservation %d holds %s:%d", ErrInvalidState, reservationId, res.EvseId, res.ConnectorId)
	}
	if res.Expired(time.Now()) {
		res.State = model.ReservationCancelled
		if err := r.releaseConnector(res.EvseId, res.ConnectorId); err != nil {
			return err
		}
		return fmt.Errorf("%w: reservation %d expired", ErrInvalidState, reservationId)
	}
	if conn.Free() || conn.ReservedBy(account) {
		return nil
	}
	return fmt.Errorf("%w: connector %s:%d is %s", ErrInvalidState, conn.EvseId, conn.Id, conn.Status)
}

// StartSessionResponse records the charge point's answer to a start
// request. On success the session becomes active with its starting meter
// value; on refusal the session is discarded and the connector released,
// which is a recorded outcome rather than an error.
func (r *Registry) StartSessionResponse(sessionId uint64, ts time.Time, meterStart int64, status bool, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionId]
	if !ok {
		return fmt.Errorf("session %d: %w", sessionId, ErrNotFound)
	}
	state, err := nextSessionState(rec.session.State, model.RoleOracle, msgStartResponse)
	if err != nil {
		return err
	}
	if !status {
		rec.session.Message = message
		delete(r.sessions, sessionId)
		if err := r.releaseConnector(rec.session.EvseId, rec.session.ConnectorId); err != nil {
			return err
		}
		r.log.Infof("session %d refused by charge point: %s", sessionId, message)
		r.publish(events.SessionStartResponse{SessionId: sessionId, Status: false, Message: message})
		return nil
	}
	if err := r.connectors.SetStatus(rec.session.EvseId, rec.session.ConnectorId, model.ConnectorOccupied, ""); err != nil {
		return fmt.Errorf("occupy connector: %w", err)
	}
	rec.session.State = state
	rec.session.MeterStart = meterStart
	rec.session.TimeStart = ts
	rec.engine = billing.NewEngine(rec.tariff)
	rec.proj = newProjection(r.cfg.ProjectionSamples)
	sessionsStarted.Inc()
	r.log.Infof("session %d active, meter start %d", sessionId, meterStart)
	r.publish(events.SessionStartResponse{SessionId: sessionId, Status: true, Message: message})
	return nil
}

// UpdateSession ingests one meter reading for an active session. The
// reading is validated against the previous one and rejected atomically
// when non-monotonic. An accepted reading is matched against the tariff,
// accumulated, recorded and may raise a spontaneous stop request when the
// projected cost exceeds the account's available balance.
func (r *Registry) UpdateSession(sessionId uint64, log model.MeterLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionId]
	if !ok {
		return fmt.Errorf("session %d: %w", sessionId, ErrNotFound)
	}
	if _, err := nextSessionState(rec.session.State, model.RoleOracle, msgUpdate); err != nil {
		return err
	}
	iv, deltaWh, err := rec.validateReading(log)
	if err != nil {
		meterLogsTotal.WithLabelValues("rejected").Inc()
		return err
	}
	rec.applyReading(log, iv, deltaWh)
	meterLogsTotal.WithLabelValues("accepted").Inc()
	r.publish(events.SessionUpdate{SessionId: sessionId, MeterValue: log.MeterValue, Percent: log.Percent})
	if err := r.sink.RecordMeterReading(telemetry.MeterReading{
		SessionId:   sessionId,
		EvseId:      rec.session.EvseId,
		ConnectorId: rec.session.ConnectorId,
		Account:     rec.session.Account,
		MeterValue:  log.MeterValue,
		Percent:     log.Percent,
		PowerW:      log.PowerW,
		CurrentA:    log.CurrentA,
		VoltageV:    log.VoltageV,
		Time:        log.Timestamp,
	}); err != nil {
		r.log.Errorf("telemetry: %v", err)
	}
	r.checkCostLimit(rec, iv)
	return nil
}

// checkCostLimit projects the session cost one reading interval ahead and
// raises a stop request when it would exceed the available balance. The
// projection is advisory; billing remains exact fixed-point arithmetic.
func (r *Registry) checkCostLimit(rec *record, iv tariff.Interval) {
	if !r.cfg.CostLimitEnabled || rec.session.State != model.SessionActive {
		return
	}
	rec.proj.add(float64(iv.Elapsed), rec.engine.RunningCost().Float64())
	balance, err := r.ledger.Balance(rec.session.Account)
	if err != nil {
		r.log.Errorf("balance lookup for %s: %v", rec.session.Account, err)
		return
	}
	horizon := float64(iv.Elapsed + iv.Duration)
	if iv.Duration <= 0 {
		horizon = float64(iv.Elapsed) + 60
	}
	if rec.proj.at(horizon) < balance.Float64() {
		return
	}
	state, err := nextSessionState(rec.session.State, model.RoleSystem, msgStopRequest)
	if err != nil {
		return
	}
	rec.session.State = state
	spontaneousStops.Inc()
	r.log.Warnf("session %d: projected cost exceeds available balance, requesting stop", rec.session.Id)
	r.publish(events.SessionStopRequest{SessionId: rec.session.Id, EvseId: rec.session.EvseId, ConnectorId: rec.session.ConnectorId, Spontaneous: true})
}

// StopSessionRequest asks the charge point to stop delivery. Owner-only;
// repeating the request while a stop is already pending is allowed.
func (r *Registry) StopSessionRequest(caller string, sessionId uint64) error {
	if err := r.authorize(caller, AccessUse); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionId]
	if !ok {
		return fmt.Errorf("session %d: %w", sessionId, ErrNotFound)
	}
	if rec.session.Account != caller {
		return fmt.Errorf("%w: caller %s does not own session %d", ErrUnauthorized, caller, sessionId)
	}
	state, err := nextSessionState(rec.session.State, model.RoleOwner, msgStopRequest)
	if err != nil {
		return err
	}
	rec.session.State = state
	r.publish(events.SessionStopRequest{SessionId: sessionId, EvseId: rec.session.EvseId, ConnectorId: rec.session.ConnectorId})
	return nil
}

// StopSessionResponse records the charge point's answer to a stop request.
// On success the final meter value closes the interval stream: the tail
// delta between the last reading and the stop value is billed like any
// other. A refusal keeps the stop pending and records the message.
func (r *Registry) StopSessionResponse(sessionId uint64, meterStop int64, ts time.Time, status bool, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionId]
	if !ok {
		return fmt.Errorf("session %d: %w", sessionId, ErrNotFound)
	}
	state, err := nextSessionState(rec.session.State, model.RoleOracle, msgStopResponse)
	if err != nil {
		return err
	}
	if !status {
		rec.session.Message = message
		r.publish(events.SessionStopResponse{SessionId: sessionId, Status: false, Message: message})
		return nil
	}
	final := model.MeterLog{MeterValue: meterStop, Timestamp: ts}
	iv, deltaWh, err := rec.validateReading(final)
	if err != nil {
		return err
	}
	rec.applyReading(final, iv, deltaWh)
	rec.session.State = state
	rec.session.MeterStop = meterStop
	rec.session.TimeStop = ts
	r.log.Infof("session %d stopped, meter stop %d", sessionId, meterStop)
	r.publish(events.SessionStopResponse{SessionId: sessionId, Status: true, Message: message})
	return nil
}

// EndSession finalizes a stopped session: parking time is the gap between
// the stop and end timestamps, the CDR is built and the ledger debited in
// one atomic step. A failed debit aborts the whole operation.
func (r *Registry) EndSession(sessionId uint64, ts time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionId]
	if !ok {
		return fmt.Errorf("session %d: %w", sessionId, ErrNotFound)
	}
	state, err := nextSessionState(rec.session.State, model.RoleOracle, msgEnd)
	if err != nil {
		return err
	}
	parking := int64(ts.Sub(rec.session.TimeStop).Seconds())
	if parking < 0 {
		return fmt.Errorf("%w: end timestamp precedes stop", ErrInvalidState)
	}
	cdr := rec.engine.Finalize(sessionId, rec.session.TimeStart, ts, parking)
	if err := r.ledger.Debit(rec.session.Account, cdr.TotalCost.InclVat); err != nil {
		debitFailures.Inc()
		return fmt.Errorf("settle session %d: %w", sessionId, err)
	}
	rec.cdr = cdr
	rec.session.State = state
	rec.session.TimeEnd = ts
	if err := r.releaseConnector(rec.session.EvseId, rec.session.ConnectorId); err != nil {
		r.log.Errorf("release connector after session %d: %v", sessionId, err)
	}
	sessionsEnded.Inc()
	if err := r.sink.RecordCDR(cdr); err != nil {
		r.log.Errorf("telemetry: %v", err)
	}
	r.log.Infof("session %d ended: total %s excl VAT", sessionId, cdr.TotalCost.ExclVat)
	r.publish(events.SessionEnd{SessionId: sessionId, EndTime: ts})
	return nil
}

// GetCDR returns the finalized invoice for an ended session. Repeated calls
// return the identical result.
func (r *Registry) GetCDR(caller string, sessionId uint64) (*billing.CDR, error) {
	if err := r.authorize(caller, AccessRead); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionId]
	if !ok {
		return nil, fmt.Errorf("session %d: %w", sessionId, ErrNotFound)
	}
	if rec.cdr == nil {
		return nil, fmt.Errorf("%w: session %d not ended", ErrInvalidState, sessionId)
	}
	return rec.cdr, nil
}

// GetSession returns a snapshot of the session.
func (r *Registry) GetSession(caller string, sessionId uint64) (*model.Session, error) {
	if err := r.authorize(caller, AccessRead); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionId]
	if !ok {
		return nil, fmt.Errorf("session %d: %w", sessionId, ErrNotFound)
	}
	return sessionCopy(rec.session), nil
}

// GetSessionByAuth returns the most recent session belonging to the
// account.
func (r *Registry) GetSessionByAuth(caller, account string) (*model.Session, error) {
	if err := r.authorize(caller, AccessRead); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *model.Session
	for _, rec := range r.sessions {
		if rec.session.Account == account && (best == nil || rec.session.Id > best.Id) {
			best = rec.session
		}
	}
	if best == nil {
		return nil, fmt.Errorf("session for %s: %w", account, ErrNotFound)
	}
	return sessionCopy(best), nil
}

// Exist reports whether the session is known to the registry.
func (r *Registry) Exist(sessionId uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[sessionId]
	return ok
}

// ListSessions returns snapshots of every known session ordered by id.
func (r *Registry) ListSessions() []*model.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Session, 0, len(r.sessions))
	for _, rec := range r.sessions {
		out = append(out, sessionCopy(rec.session))
	}
	sortSessions(out)
	return out
}

func (r *Registry) releaseConnector(evseId string, connectorId int) error {
	return r.connectors.SetStatus(evseId, connectorId, model.ConnectorAvailable, "")
}

func sessionCopy(s *model.Session) *model.Session {
	c := *s
	c.StateName = s.State.String()
	c.Logs = append([]model.MeterLog(nil), s.Logs...)
	return &c
}

func reservationCopy(res *model.Reservation) *model.Reservation {
	c := *res
	c.StateName = res.State.String()
	return &c
}

func sortSessions(ss []*model.Session) {
	sort.Slice(ss, func(i, j int) bool { return ss[i].Id < ss[j].Id })
}
