package attribution

import (
	"errors"
	"sort"
	"time"

	"github.com/tidemarkdata/clickstream-engine/internal/identity"
	"github.com/tidemarkdata/clickstream-engine/internal/normalize"
	"github.com/tidemarkdata/clickstream-engine/pkg/db/models"
)

// Engine assigns first-click and last-click credit for completed purchases
// against sessions inside a bounded lookback window.
type Engine struct {
	lookback   time.Duration
	identities *identity.Map
}

// New creates an attribution Engine with the given lookback window.
func New(lookback time.Duration, identities *identity.Map) (*Engine, error) {
	if lookback <= 0 {
		return nil, errors.New("lookback window must be positive")
	}
	if identities == nil {
		return nil, errors.New("identity map is required")
	}
	return &Engine{lookback: lookback, identities: identities}, nil
}

// Result carries the attribution table plus the monitoring counter for
// purchases that matched no session.
type Result struct {
	Records      []models.AttributionRecord
	Unattributed int64
}

// Attribute computes one attribution record per purchase event, or none when
// no session of the same person started inside
// [purchase_time − lookback, purchase_time]. Dropped purchases are counted,
// never defaulted to direct. Output ordering is deterministic.
func (e *Engine) Attribute(events []normalize.Event, sessions []models.Session) Result {
	byPerson := make(map[string][]models.Session)
	for _, s := range sessions {
		byPerson[s.PersonID] = append(byPerson[s.PersonID], s)
	}

	var result Result
	for _, event := range events {
		if !event.IsPurchase() {
			continue
		}

		personID := e.identities.Resolve(event.DeviceID)
		qualifying := e.qualifyingSessions(byPerson[personID], event.EventTime)
		if len(qualifying) == 0 {
			result.Unattributed++
			continue
		}

		first, last := rank(qualifying)
		result.Records = append(result.Records, models.AttributionRecord{
			TransactionRef: event.Purchase.TransactionRef,
			PersonID:       personID,
			Revenue:        event.Purchase.Revenue,
			PurchaseTime:   event.EventTime,
			LcSessionID:    last.SessionID,
			LcChannel:      last.Channel,
			LcSource:       last.Source,
			LcMedium:       last.Medium,
			FcSessionID:    first.SessionID,
			FcChannel:      first.Channel,
			FcSource:       first.Source,
			FcMedium:       first.Medium,
		})
	}

	sort.Slice(result.Records, func(i, j int) bool {
		a, b := result.Records[i], result.Records[j]
		if !a.PurchaseTime.Equal(b.PurchaseTime) {
			return a.PurchaseTime.Before(b.PurchaseTime)
		}
		return a.TransactionRef < b.TransactionRef
	})
	return result
}

// qualifyingSessions keeps sessions with started_at inside the window,
// inclusive on both bounds: a session starting at the exact purchase instant
// qualifies, as does one starting exactly lookback before it.
func (e *Engine) qualifyingSessions(sessions []models.Session, purchaseTime time.Time) []models.Session {
	earliest := purchaseTime.Add(-e.lookback)
	qualifying := make([]models.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.StartedAt.Before(earliest) || s.StartedAt.After(purchaseTime) {
			continue
		}
		qualifying = append(qualifying, s)
	}
	return qualifying
}

// rank returns the first-click and last-click winners in one scan. Both
// models grant 100% credit: first-click to the minimal
// (started_at, session_id), last-click to the maximal.
func rank(qualifying []models.Session) (first, last models.Session) {
	first, last = qualifying[0], qualifying[0]
	for _, s := range qualifying[1:] {
		if startsBefore(s, first) {
			first = s
		}
		if startsBefore(last, s) {
			last = s
		}
	}
	return first, last
}

func startsBefore(a, b models.Session) bool {
	if !a.StartedAt.Equal(b.StartedAt) {
		return a.StartedAt.Before(b.StartedAt)
	}
	return a.SessionID < b.SessionID
}
