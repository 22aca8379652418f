package enums

import "fmt"

// EventType is the canonical event_name for accepted clickstream events.
type EventType string

const (
	EventPageViewed         EventType = "page_viewed"
	EventEmailCaptured      EventType = "email_filled_on_popup"
	EventProductAddedToCart EventType = "product_added_to_cart"
	EventCheckoutStarted    EventType = "checkout_started"
	EventCheckoutCompleted  EventType = "checkout_completed"
)

// Upstream trackers emit "purchase" for a completed checkout on some surfaces.
const eventPurchaseAlias = "purchase"

var validEventTypes = []EventType{
	EventPageViewed,
	EventEmailCaptured,
	EventProductAddedToCart,
	EventCheckoutStarted,
	EventCheckoutCompleted,
}

// IsValid reports whether the value matches the canonical event type enum.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// IsPurchase reports whether the event records a completed purchase.
func (e EventType) IsPurchase() bool {
	return e == EventCheckoutCompleted
}

// ParseEventType converts the raw string to EventType, folding the upstream
// "purchase" alias into checkout_completed.
func ParseEventType(value string) (EventType, error) {
	if value == eventPurchaseAlias {
		return EventCheckoutCompleted, nil
	}
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
