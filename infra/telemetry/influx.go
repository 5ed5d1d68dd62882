// Package telemetry provides sink implementations for session telemetry.
package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/voltgrid/sessiond/core/billing"
	coretelemetry "github.com/voltgrid/sessiond/core/telemetry"
	"github.com/voltgrid/sessiond/infra/logger"
)

// Config defines the InfluxDB connection for the telemetry sink.
type Config struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Token   string `json:"token"`
	Org     string `json:"org"`
	Bucket  string `json:"bucket"`
}

// InfluxSink writes meter readings and CDRs to an InfluxDB instance using
// the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg Config) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg Config) coretelemetry.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coretelemetry.NopSink{}
	}
	return sink
}

// RecordMeterReading writes one accepted meter reading as line protocol.
func (s *InfluxSink) RecordMeterReading(r coretelemetry.MeterReading) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("meter_reading").
		AddTag("session_id", strconv.FormatUint(r.SessionId, 10)).
		AddTag("evse_id", r.EvseId).
		AddTag("connector_id", strconv.Itoa(r.ConnectorId)).
		AddTag("account", r.Account).
		AddField("meter_value", r.MeterValue).
		AddField("percent", r.Percent).
		AddField("power_w", r.PowerW).
		AddField("current_a", r.CurrentA).
		AddField("voltage_v", r.VoltageV).
		SetTime(r.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCDR writes the finalized invoice totals.
func (s *InfluxSink) RecordCDR(cdr *billing.CDR) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("cdr").
		AddTag("session_id", strconv.FormatUint(cdr.SessionId, 10)).
		AddTag("currency", cdr.Currency).
		AddField("total_energy_wh", cdr.TotalEnergyWh).
		AddField("total_excl_vat", cdr.TotalCost.ExclVat.String()).
		AddField("total_incl_vat", cdr.TotalCost.InclVat.String()).
		SetTime(cdr.EndDateTime)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
