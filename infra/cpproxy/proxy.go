// Package cpproxy bridges the session registry and the charge-point fleet
// over MQTT. Outbound requests raised on the event bus are published to the
// charge point's request topic; inbound responses and meter values are
// decoded and fed back into the registry as oracle operations.
package cpproxy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/voltgrid/sessiond/core/events"
	"github.com/voltgrid/sessiond/core/logger"
	"github.com/voltgrid/sessiond/core/model"
	"github.com/voltgrid/sessiond/internal/eventbus"
)

// Registry is the oracle-facing surface of the session registry the proxy
// drives with decoded charge-point responses.
type Registry interface {
	CreateReservationResponse(id uint64, accepted bool) error
	CancelReservationResponse(id uint64, status bool) error
	StartSessionResponse(sessionId uint64, ts time.Time, meterStart int64, status bool, message string) error
	UpdateSession(sessionId uint64, log model.MeterLog) error
	StopSessionResponse(sessionId uint64, meterStop int64, ts time.Time, status bool, message string) error
	EndSession(sessionId uint64, ts time.Time) error
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Proxy is the MQTT charge-point proxy.
type Proxy struct {
	cli      pahoClient
	registry Registry
	bus      eventbus.EventBus
	log      logger.Logger

	prefix     string
	qos        map[string]byte
	maxRetries int
	backoff    time.Duration
}

// New connects to the broker and subscribes to the response topic. The
// proxy starts forwarding bus events once Run is called.
func New(cfg Config, registry Registry, bus eventbus.EventBus, log logger.Logger) (*Proxy, error) {
	if registry == nil || bus == nil || log == nil {
		return nil, fmt.Errorf("cpproxy: nil parameter provided to New")
	}
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	p := &Proxy{
		registry:   registry,
		bus:        bus,
		log:        log,
		prefix:     cfg.RequestPrefix,
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	if p.maxRetries <= 0 {
		p.maxRetries = 3
	}
	if p.backoff <= 0 {
		p.backoff = 100 * time.Millisecond
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		qos := byte(0)
		if q, ok := cfg.QoS["response"]; ok {
			qos = q
		}
		if token := c.Subscribe(cfg.ResponseTopic, qos, p.onResponse); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.cli = c
	return p, nil
}

// Run forwards registry events to charge points until the context is
// canceled.
func (p *Proxy) Run(ctx context.Context) {
	sub := p.bus.Subscribe()
	defer p.bus.Unsubscribe(sub)
	for {
		select {
		case e, ok := <-sub:
			if !ok {
				return
			}
			p.forward(e)
		case <-ctx.Done():
			return
		}
	}
}

// forward translates one bus event into a charge-point request. Events that
// carry no outbound command are ignored.
func (p *Proxy) forward(e eventbus.Event) {
	switch ev := e.(type) {
	case events.ReservationRequest:
		p.send(request{Type: typeReserveRequest, EvseId: ev.EvseId, ConnectorId: ev.ConnectorId, Account: ev.Account, ReservationId: ev.Id, TimeExpire: ev.TimeExpire})
	case events.ReservationCancelRequest:
		p.send(request{Type: typeCancelRequest, EvseId: ev.EvseId, ConnectorId: ev.ConnectorId, ReservationId: ev.Id})
	case events.SessionStartRequest:
		p.send(request{Type: typeStartRequest, EvseId: ev.EvseId, ConnectorId: ev.ConnectorId, Account: ev.Account, SessionId: ev.Uid})
	case events.SessionStopRequest:
		p.send(request{Type: typeStopRequest, EvseId: ev.EvseId, ConnectorId: ev.ConnectorId, SessionId: ev.SessionId})
	}
}

// send publishes one request with retry and exponential backoff.
func (p *Proxy) send(req request) {
	req.MessageID = uuid.NewString()
	req.Timestamp = time.Now().UnixMilli()
	payload, err := json.Marshal(req)
	if err != nil {
		p.log.Errorf("encode request: %v", err)
		return
	}
	topic := fmt.Sprintf("%s/%s/request", p.prefix, req.EvseId)
	qos := byte(0)
	if q, ok := p.qos["request"]; ok {
		qos = q
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.log.Infof("sent %s %s to %s", req.Type, req.MessageID, topic)
			return
		}
		p.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(p.backoff * time.Duration(1<<attempt))
	}
}

// onResponse decodes one charge-point message and applies it to the
// registry. Registry rejections are logged, not retried: retry policy
// belongs to the charge point.
func (p *Proxy) onResponse(_ paho.Client, msg paho.Message) {
	var res response
	if err := json.Unmarshal(msg.Payload(), &res); err != nil {
		p.log.Errorf("failed to decode response: %v", err)
		return
	}
	if err := p.apply(res); err != nil {
		p.log.Warnf("%s for session %d rejected: %v", res.Type, res.SessionId, err)
	}
}

func (p *Proxy) apply(res response) error {
	switch res.Type {
	case typeReserveResponse:
		return p.registry.CreateReservationResponse(res.ReservationId, res.Status)
	case typeCancelResponse:
		return p.registry.CancelReservationResponse(res.ReservationId, res.Status)
	case typeStartResponse:
		return p.registry.StartSessionResponse(res.SessionId, res.Timestamp, res.MeterValue, res.Status, res.Message)
	case typeMeterValues:
		return p.registry.UpdateSession(res.SessionId, model.MeterLog{
			MeterValue: res.MeterValue,
			Timestamp:  res.Timestamp,
			Percent:    res.Percent,
			PowerW:     res.PowerW,
			CurrentA:   res.CurrentA,
			VoltageV:   res.VoltageV,
		})
	case typeStopResponse:
		return p.registry.StopSessionResponse(res.SessionId, res.MeterValue, res.Timestamp, res.Status, res.Message)
	case typeSessionEnd:
		return p.registry.EndSession(res.SessionId, res.Timestamp)
	default:
		return fmt.Errorf("unknown message type %q", res.Type)
	}
}

// Disconnect gracefully closes the MQTT connection.
func (p *Proxy) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
