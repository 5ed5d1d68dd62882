// Package telemetry defines the sinks that record meter readings and
// finalized CDRs for observability purposes.
package telemetry

import (
	"time"

	"github.com/voltgrid/sessiond/core/billing"
)

// MeterReading is one accepted telemetry point to be recorded.
type MeterReading struct {
	SessionId   uint64
	EvseId      string
	ConnectorId int
	Account     string
	MeterValue  int64
	Percent     int
	PowerW      int64
	CurrentA    int64
	VoltageV    int64
	Time        time.Time
}

// Sink records session telemetry. Implementations must be safe for
// concurrent use by independent sessions.
type Sink interface {
	RecordMeterReading(r MeterReading) error
	RecordCDR(cdr *billing.CDR) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordMeterReading(MeterReading) error { return nil }
func (NopSink) RecordCDR(*billing.CDR) error          { return nil }

// MultiSink fans out to several sinks, returning the first error.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a sink writing to all the given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordMeterReading(r MeterReading) error {
	for _, s := range m.sinks {
		if err := s.RecordMeterReading(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) RecordCDR(cdr *billing.CDR) error {
	for _, s := range m.sinks {
		if err := s.RecordCDR(cdr); err != nil {
			return err
		}
	}
	return nil
}
