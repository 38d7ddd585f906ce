package mqtt

import (
	"time"

	"github.com/kilianp07/taxidispatch/core/model"
)

// Client represents an MQTT client capable of sending dispatcher
// notifications to taxis and waiting for acknowledgments.
type Client interface {
	// PublishOffer broadcasts a priced fare to every taxi.
	PublishOffer(offer FareOffer) (messageID string, err error)

	// SendAllocation tells agent it won the fare waiting at origin and
	// returns the message identifier used to track the acknowledgment.
	SendAllocation(agent model.AgentID, origin model.Coord) (messageID string, err error)

	// SendCancellation tells agent the fare at origin was withdrawn.
	SendCancellation(agent model.AgentID, origin model.Coord) (messageID string, err error)

	// WaitForAck waits for an acknowledgment for the provided message
	// identifier or until the timeout expires.
	WaitForAck(messageID string, timeout time.Duration) (bool, error)
}
