// Package otel binds shiftAuth engine metrics to an OpenTelemetry meter.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and
// one Int64ObservableGauge per latency bucket, all fed by a single callback
// that reads [shiftAuth.Engine.MetricsSnapshot] on each collection.
//
// The caller owns the MeterProvider and must [Exporter.Close] the exporter
// to unregister the callback.
package otel
