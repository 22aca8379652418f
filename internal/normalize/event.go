package normalize

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tidemarkdata/clickstream-engine/pkg/enums"
)

// Event is one accepted clickstream row projected into the structured form
// the downstream stages consume. It is pure data; nothing downstream mutates
// it.
type Event struct {
	// Seq preserves ingestion order and breaks ties between events of the
	// same device that share an event time.
	Seq       uint64
	DeviceID  string
	EventTime time.Time
	EventType enums.EventType

	// SelfIdentifier is the normalized identity signal (trimmed, lowercased)
	// carried by email-capture and purchase events. Empty when absent.
	SelfIdentifier string

	Traffic Traffic
	Device  Device

	// Purchase is populated only for checkout_completed events.
	Purchase *Purchase
}

// Traffic is the acquisition classification derived from the event's page
// URL and referrer.
type Traffic struct {
	Channel  enums.Channel
	Source   string
	Medium   string
	Campaign string
}

// Device is the coarse device classification derived from the user agent.
type Device struct {
	Platform string
	OS       string
	Browser  string
}

// Purchase carries the parsed payload of a completed checkout.
type Purchase struct {
	// TransactionRef is the surrogate key derived from device and time.
	// Upstream transaction identifiers collide across distinct purchases, so
	// they are retained for reference only and never used as a join key.
	TransactionRef        string
	UpstreamTransactionID string
	Revenue               decimal.Decimal
	LineItems             []LineItem
}

// LineItem is one entry of a purchase's embedded line-item list.
type LineItem struct {
	ItemID    string
	ItemName  string
	UnitPrice decimal.Decimal
	Quantity  int
}

// TransactionRef builds the deterministic surrogate purchase key.
func TransactionRef(deviceID string, eventTime time.Time) string {
	return deviceID + ":" + strconv.FormatInt(eventTime.UTC().UnixNano(), 10)
}

// IsPurchase reports whether the event is a completed checkout with parsed
// purchase detail.
func (e Event) IsPurchase() bool {
	return e.Purchase != nil
}
