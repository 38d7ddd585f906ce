package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	faresRegistered    prometheus.Counter
	faresCancelled     prometheus.Counter
	farePrice          prometheus.Histogram
	faresAllocated     *prometheus.CounterVec
	allocationDeferred *prometheus.CounterVec
	eventsIgnored      *prometheus.CounterVec
	pendingFares       prometheus.Gauge
	dispatcherRevenue  prometheus.Gauge
)

type collectors struct {
	registered, cancelled prometheus.Counter
	price                 prometheus.Histogram
	allocated, deferred   *prometheus.CounterVec
	ignored               *prometheus.CounterVec
	pending, revenue      prometheus.Gauge
}

// newCollectors creates new metric collectors.
func newCollectors() collectors {
	return collectors{
		registered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fares_registered_total",
			Help: "Number of fares that called for service",
		}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fares_cancelled_total",
			Help: "Number of fares removed by cancellation",
		}),
		price: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fare_price",
			Help:    "Price set for each broadcast fare",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		}),
		allocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fares_allocated_total",
			Help: "Number of fares awarded, by selection rule",
		}, []string{"reason"}),
		deferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "allocation_deferred_total",
			Help: "Number of allocation attempts postponed to a later tick",
		}, []string{"reason"}),
		ignored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "events_ignored_total",
			Help: "Number of inbound events dropped without effect",
		}, []string{"reason"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fares_pending",
			Help: "Fares held in the registry after the last tick",
		}),
		revenue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatcher_revenue",
			Help: "Total payments received by the dispatcher",
		}),
	}
}

func (c collectors) install() {
	faresRegistered, faresCancelled = c.registered, c.cancelled
	farePrice = c.price
	faresAllocated, allocationDeferred = c.allocated, c.deferred
	eventsIgnored = c.ignored
	pendingFares, dispatcherRevenue = c.pending, c.revenue
}

func init() {
	newCollectors().install()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(faresRegistered, faresCancelled, farePrice, faresAllocated,
		allocationDeferred, eventsIgnored, pendingFares, dispatcherRevenue)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	newCollectors().install()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
