// Package events defines the dispatch events emitted on the event bus.
//
// Available event types:
//   - FareRegistered: a fare called for service
//   - FareCancelled: a fare abandoned its request
//   - FareBroadcast: a fare was priced and offered to the agents
//   - FareAllocated: an agent won a fare
//   - AllocationDeferred: allocation was postponed to a later tick
//   - PaymentReceived: a completed fare paid the dispatcher
//   - RevenueReported: the per-tick revenue summary
package events
