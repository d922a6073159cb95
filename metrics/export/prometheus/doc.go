// Package prometheus renders shiftAuth engine metrics in the Prometheus text
// exposition format.
//
// [NewExporter] reads [shiftAuth.Engine.MetricsSnapshot] on every scrape.
// Counters are named shiftauth_*_total; the single histogram is
// shiftauth_authorize_latency_seconds.
//
// The exporter never registers with a global registry. Callers mount
// [Exporter.Handler] wherever they serve metrics.
package prometheus
