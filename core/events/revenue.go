package events

import "github.com/kilianp07/taxidispatch/core/model"

// PaymentReceived is published for each payment credited to the dispatcher.
type PaymentReceived struct {
	Amount float64
	Total  float64
}

// RevenueReported carries the revenue summary computed at each tick.
type RevenueReported struct {
	Tick   int
	Report model.RevenueReport
}

func (PaymentReceived) EventName() string { return "payment_received" }
func (RevenueReported) EventName() string { return "revenue_reported" }
