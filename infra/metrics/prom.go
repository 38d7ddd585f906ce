package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/taxidispatch/core/metrics"
)

// PromSink records allocation outcomes in Prometheus metrics.
type PromSink struct {
	awards   *prometheus.CounterVec
	bidders  prometheus.Histogram
	notified prometheus.Histogram
	agentRev *prometheus.GaugeVec
	totalRev prometheus.Gauge
}

// NewPromSink registers the sink metrics on the default Prometheus
// registerer. The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	awards, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_awards_total",
		Help: "Fares awarded per agent and selection rule",
	}, []string{"agent_id", "reason"}))
	if err != nil {
		return nil, err
	}
	bidders, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "allocation_bidders",
		Help:    "Number of bidders competing for each awarded fare",
		Buckets: prometheus.LinearBuckets(1, 1, 8),
	}))
	if err != nil {
		return nil, err
	}
	notified, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fare_broadcast_recipients",
		Help:    "Number of agents reached by each fare broadcast",
		Buckets: prometheus.LinearBuckets(0, 2, 10),
	}))
	if err != nil {
		return nil, err
	}
	agentRev, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "agent_revenue",
		Help: "Revenue reported by each agent at the last tick",
	}, []string{"agent_id", "number"}))
	if err != nil {
		return nil, err
	}
	totalRev, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "revenue_total",
		Help: "Dispatcher plus agent revenue at the last tick",
	}))
	if err != nil {
		return nil, err
	}
	return &PromSink{awards: awards, bidders: bidders, notified: notified, agentRev: agentRev, totalRev: totalRev}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordAllocation counts each award per agent and rule.
func (s *PromSink) RecordAllocation(recs []coremetrics.AllocationRecord) error {
	for _, r := range recs {
		s.awards.WithLabelValues(string(r.Agent), r.Reason).Inc()
		s.bidders.Observe(float64(r.Bidders))
	}
	return nil
}

// RecordBroadcast observes how many agents a broadcast reached.
func (s *PromSink) RecordBroadcast(ev coremetrics.BroadcastEvent) error {
	s.notified.Observe(float64(ev.Notified))
	return nil
}

// RecordRevenue exports the per-tick revenue report.
func (s *PromSink) RecordRevenue(snap coremetrics.RevenueSnapshot) error {
	for _, a := range snap.Report.Agents {
		s.agentRev.WithLabelValues(string(a.Agent), strconv.Itoa(a.Number)).Set(a.Revenue)
	}
	s.totalRev.Set(snap.Report.Total)
	return nil
}
