package metrics

// MultiSink fans observations out to multiple sinks. Optional recorders are
// forwarded only to the sinks implementing them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAllocation forwards the records to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordAllocation(recs []AllocationRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordAllocation(recs); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) RecordBroadcast(ev BroadcastEvent) error {
	return forward(m.Sinks, func(r BroadcastRecorder) error { return r.RecordBroadcast(ev) })
}

func (m *MultiSink) RecordDeferral(ev DeferralEvent) error {
	return forward(m.Sinks, func(r DeferralRecorder) error { return r.RecordDeferral(ev) })
}

func (m *MultiSink) RecordPayment(ev PaymentEvent) error {
	return forward(m.Sinks, func(r PaymentRecorder) error { return r.RecordPayment(ev) })
}

func (m *MultiSink) RecordRevenue(s RevenueSnapshot) error {
	return forward(m.Sinks, func(r RevenueRecorder) error { return r.RecordRevenue(s) })
}

func (m *MultiSink) RecordPendingFares(n int) error {
	return forward(m.Sinks, func(r PendingRecorder) error { return r.RecordPendingFares(n) })
}

func forward[R any](sinks []MetricsSink, call func(R) error) error {
	for _, s := range sinks {
		if rec, ok := s.(R); ok {
			if err := call(rec); err != nil {
				return err
			}
		}
	}
	return nil
}
