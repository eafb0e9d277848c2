package notify

import "errors"

var (
	ErrNoChannel      = errors.New("notify: recipient has no live channel")
	ErrDeliveryFailed = errors.New("notify: delivery failed")
)

const EventHired = "hired"

// Event is the JSON frame pushed to a connected user.
type Event struct {
	Type      string  `json:"type"`
	Message   string  `json:"message,omitempty"`
	GigID     string  `json:"gigId"`
	GigTitle  string  `json:"gigTitle"`
	BidID     string  `json:"bidId"`
	BidAmount float64 `json:"bidAmount"`
}
