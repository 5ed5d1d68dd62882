// Package infra contains technical adapters: the charge-point MQTT
// proxy, telemetry sinks and the in-memory port implementations.
// These packages should depend only on the interfaces defined in the
// core packages.
package infra
