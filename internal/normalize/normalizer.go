package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tidemarkdata/clickstream-engine/pkg/db/models"
	"github.com/tidemarkdata/clickstream-engine/pkg/enums"
	pkgerrors "github.com/tidemarkdata/clickstream-engine/pkg/errors"
)

// Normalizer projects accepted raw rows into structured events. It is a pure
// per-row transform: no I/O, no state beyond configuration.
type Normalizer struct {
	siteDomain string
	validate   *validator.Validate
}

// New creates a Normalizer for the given site domain. The site domain is
// needed to classify self-referrals as direct traffic.
func New(siteDomain string) (*Normalizer, error) {
	siteDomain = strings.TrimSpace(siteDomain)
	if siteDomain == "" {
		return nil, errors.New("site domain is required")
	}
	return &Normalizer{
		siteDomain: siteDomain,
		validate:   validator.New(),
	}, nil
}

// rowContract is the shape every accepted row must satisfy. Rows are
// validated upstream by the ingestor; a violation here means the contract
// between the two systems is broken and the whole run must fail rather than
// produce derived tables from corrupt input.
type rowContract struct {
	DeviceID  string    `validate:"required"`
	EventTime time.Time `validate:"required"`
	EventName string    `validate:"required"`
	UserAgent string    `validate:"required"`
}

// Normalize transforms the full accepted-event set, preserving input order.
// Any contract violation aborts with a CodeContract error.
func (n *Normalizer) Normalize(rows []models.AcceptedEvent) ([]Event, error) {
	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		event, err := n.normalizeRow(row)
		if err != nil {
			return nil, fmt.Errorf("normalizing event %d: %w", row.ID, err)
		}
		events = append(events, event)
	}
	return events, nil
}

func (n *Normalizer) normalizeRow(row models.AcceptedEvent) (Event, error) {
	contract := rowContract{
		DeviceID:  row.DeviceID,
		EventTime: row.EventTime,
		EventName: row.EventName,
		UserAgent: row.UserAgent,
	}
	if err := n.validate.Struct(contract); err != nil {
		return Event{}, pkgerrors.Wrap(pkgerrors.CodeContract, err, "accepted row missing required fields")
	}

	eventType, err := enums.ParseEventType(row.EventName)
	if err != nil {
		return Event{}, pkgerrors.Wrap(pkgerrors.CodeContract, err, "accepted row carries unknown event name")
	}

	data, err := parsePayload(row.EventData)
	if err != nil {
		return Event{}, pkgerrors.Wrap(pkgerrors.CodeContract, err, "accepted row carries unparseable event_data")
	}

	referrer := ""
	if row.Referrer != nil {
		referrer = *row.Referrer
	}

	event := Event{
		Seq:       row.ID,
		DeviceID:  row.DeviceID,
		EventTime: row.EventTime.UTC(),
		EventType: eventType,
		Traffic:   classifyTraffic(row.PageURL, referrer, n.siteDomain),
		Device:    classifyDevice(row.UserAgent),
	}

	// Identity signals ride only on email-capture and purchase events.
	if eventType == enums.EventEmailCaptured || eventType.IsPurchase() {
		event.SelfIdentifier = data.selfIdentifier()
	}

	if eventType.IsPurchase() {
		event.Purchase = &Purchase{
			TransactionRef:        TransactionRef(row.DeviceID, event.EventTime),
			UpstreamTransactionID: data.transactionID(),
			Revenue:               data.revenue(),
			LineItems:             data.lineItems(),
		}
	}

	return event, nil
}
