// Package metrics defines the sinks that receive dispatch observations.
// A sink must implement MetricsSink; the other recorder interfaces are
// optional and detected with type assertions.
package metrics
