package metrics

import (
	"time"

	"github.com/kilianp07/taxidispatch/core/model"
)

// AllocationRecord describes one fare award.
type AllocationRecord struct {
	Key     model.FareKey
	Agent   model.AgentID
	Reason  string
	Price   float64
	Bidders int
	Tick    int
	Time    time.Time
}

// MetricsSink records dispatch results for observability purposes.
type MetricsSink interface {
	RecordAllocation(recs []AllocationRecord) error
}

// BroadcastEvent captures a fare being priced and offered to the agents.
type BroadcastEvent struct {
	Key      model.FareKey
	Price    float64
	Notified int
	Time     time.Time
}

// BroadcastRecorder records fare broadcasts.
type BroadcastRecorder interface {
	RecordBroadcast(ev BroadcastEvent) error
}

// DeferralEvent captures an allocation postponed to a later tick.
type DeferralEvent struct {
	Key    model.FareKey
	Reason string
	Tick   int
	Time   time.Time
}

// DeferralRecorder records allocation deferrals.
type DeferralRecorder interface {
	RecordDeferral(ev DeferralEvent) error
}

// PaymentEvent is a payment credited to the dispatcher.
type PaymentEvent struct {
	Amount float64
	Total  float64
	Time   time.Time
}

// PaymentRecorder records payments.
type PaymentRecorder interface {
	RecordPayment(ev PaymentEvent) error
}

// RevenueSnapshot is the per-tick revenue report.
type RevenueSnapshot struct {
	Tick   int
	Report model.RevenueReport
	Time   time.Time
}

// RevenueRecorder records revenue reports.
type RevenueRecorder interface {
	RecordRevenue(s RevenueSnapshot) error
}

// PendingRecorder records the size of the fare board.
type PendingRecorder interface {
	RecordPendingFares(n int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordAllocation([]AllocationRecord) error { return nil }
func (NopSink) RecordBroadcast(BroadcastEvent) error      { return nil }
func (NopSink) RecordDeferral(DeferralEvent) error        { return nil }
func (NopSink) RecordPayment(PaymentEvent) error          { return nil }
func (NopSink) RecordRevenue(RevenueSnapshot) error       { return nil }
func (NopSink) RecordPendingFares(int) error              { return nil }
