package session

import (
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/tidemarkdata/clickstream-engine/internal/identity"
	"github.com/tidemarkdata/clickstream-engine/internal/normalize"
	"github.com/tidemarkdata/clickstream-engine/pkg/db/models"
	"github.com/tidemarkdata/clickstream-engine/pkg/enums"
)

// Sessionizer partitions each device's chronological event stream into
// sessions separated by inactivity gaps.
type Sessionizer struct {
	gap        time.Duration
	identities *identity.Map
}

// New creates a Sessionizer. The gap is the inactivity threshold: an
// inter-event gap of exactly the threshold already starts a new session.
func New(gap time.Duration, identities *identity.Map) (*Sessionizer, error) {
	if gap <= 0 {
		return nil, errors.New("session gap must be positive")
	}
	if identities == nil {
		return nil, errors.New("identity map is required")
	}
	return &Sessionizer{gap: gap, identities: identities}, nil
}

// Sessionize produces the full session set. Sessions for one device are
// time-disjoint and together cover exactly that device's events. The output
// ordering is deterministic: by device id, then session ordinal.
func (s *Sessionizer) Sessionize(events []normalize.Event) []models.Session {
	ordered := make([]normalize.Event, len(events))
	copy(ordered, events)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.DeviceID != b.DeviceID {
			return a.DeviceID < b.DeviceID
		}
		if !a.EventTime.Equal(b.EventTime) {
			return a.EventTime.Before(b.EventTime)
		}
		return a.Seq < b.Seq
	})

	sessions := make([]models.Session, 0)
	var current *builder
	ordinal := 0

	flush := func() {
		if current != nil {
			sessions = append(sessions, current.finish())
			current = nil
		}
	}

	for _, event := range ordered {
		if current == nil || current.deviceID != event.DeviceID {
			flush()
			ordinal = 0
		} else if event.EventTime.Sub(current.lastAt) >= s.gap {
			flush()
		}

		if current == nil {
			ordinal++
			current = newBuilder(event, ordinal, s.identities.Resolve(event.DeviceID))
		}
		current.add(event)
	}
	flush()

	return sessions
}

// builder accumulates one session while its device's stream is scanned.
type builder struct {
	deviceID string
	lastAt   time.Time
	row      models.Session
}

func newBuilder(first normalize.Event, ordinal int, personID string) *builder {
	// Channel attributes and device classification are first-touch sticky:
	// later events never override them, even with different parameters.
	return &builder{
		deviceID: first.DeviceID,
		row: models.Session{
			SessionID: SessionID(first.DeviceID, ordinal),
			PersonID:  personID,
			DeviceID:  first.DeviceID,
			StartedAt: first.EventTime,
			Channel:   first.Traffic.Channel,
			Source:    first.Traffic.Source,
			Medium:    first.Traffic.Medium,
			Campaign:  first.Traffic.Campaign,
			Platform:  first.Device.Platform,
			OS:        first.Device.OS,
			Browser:   first.Device.Browser,
		},
	}
}

func (b *builder) add(event normalize.Event) {
	b.lastAt = event.EventTime
	b.row.EndedAt = event.EventTime
	b.row.Actions++

	switch event.EventType {
	case enums.EventPageViewed:
		b.row.PageViews++
	case enums.EventProductAddedToCart:
		b.row.CartAdds++
	case enums.EventCheckoutStarted:
		b.row.DidCheckout = true
	case enums.EventEmailCaptured:
		b.row.CapturedEmail = true
	case enums.EventCheckoutCompleted:
		b.row.Converted = true
	}
}

func (b *builder) finish() models.Session {
	b.row.DurationMinutes = b.row.EndedAt.Sub(b.row.StartedAt).Minutes()
	return b.row
}

// SessionID derives the reproducible session key from the device and the
// 1-based session ordinal within that device's stream.
func SessionID(deviceID string, ordinal int) string {
	return deviceID + "-" + strconv.Itoa(ordinal)
}
