package attribution

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tidemarkdata/clickstream-engine/internal/identity"
	"github.com/tidemarkdata/clickstream-engine/internal/normalize"
	"github.com/tidemarkdata/clickstream-engine/pkg/db/models"
	"github.com/tidemarkdata/clickstream-engine/pkg/enums"
)

const lookback = 7 * 24 * time.Hour

var purchaseAt = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func purchase(seq uint64, deviceID string, at time.Time) normalize.Event {
	return normalize.Event{
		Seq:       seq,
		DeviceID:  deviceID,
		EventTime: at,
		EventType: enums.EventCheckoutCompleted,
		Purchase: &normalize.Purchase{
			TransactionRef: normalize.TransactionRef(deviceID, at),
			Revenue:        decimal.NewFromInt(100),
		},
	}
}

func sessionAt(id, personID string, startedAt time.Time, channel enums.Channel) models.Session {
	return models.Session{
		SessionID: id,
		PersonID:  personID,
		DeviceID:  personID,
		StartedAt: startedAt,
		EndedAt:   startedAt,
		Channel:   channel,
		Source:    string(channel),
		Medium:    string(channel),
	}
}

func engine(t *testing.T, events []normalize.Event) *Engine {
	t.Helper()
	e, err := New(lookback, identity.Build(events))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(0, identity.Build(nil)); err == nil {
		t.Fatal("expected error for non-positive lookback")
	}
	if _, err := New(lookback, nil); err == nil {
		t.Fatal("expected error for nil identity map")
	}
}

func TestAttribute_WindowBoundary(t *testing.T) {
	events := []normalize.Event{purchase(1, "dev-1", purchaseAt)}
	e := engine(t, events)

	t.Run("session exactly 7 days before qualifies", func(t *testing.T) {
		sessions := []models.Session{
			sessionAt("dev-1-1", "dev-1", purchaseAt.Add(-lookback), enums.ChannelReferral),
		}
		result := e.Attribute(events, sessions)
		if len(result.Records) != 1 || result.Unattributed != 0 {
			t.Fatalf("expected 1 record: %+v", result)
		}
	})

	t.Run("7 days and 1 second before does not qualify", func(t *testing.T) {
		sessions := []models.Session{
			sessionAt("dev-1-1", "dev-1", purchaseAt.Add(-lookback-time.Second), enums.ChannelReferral),
		}
		result := e.Attribute(events, sessions)
		if len(result.Records) != 0 || result.Unattributed != 1 {
			t.Fatalf("expected dropped purchase: %+v", result)
		}
	})

	t.Run("session starting at the purchase instant qualifies", func(t *testing.T) {
		sessions := []models.Session{
			sessionAt("dev-1-1", "dev-1", purchaseAt, enums.ChannelDirect),
		}
		result := e.Attribute(events, sessions)
		if len(result.Records) != 1 {
			t.Fatalf("expected 1 record: %+v", result)
		}
	})
}

// With exactly one qualifying session, first-click and last-click both point
// to it.
func TestAttribute_FirstLastClickSymmetry(t *testing.T) {
	events := []normalize.Event{purchase(1, "dev-1", purchaseAt)}
	sessions := []models.Session{
		sessionAt("dev-1-1", "dev-1", purchaseAt.Add(-time.Hour), enums.ChannelPaid),
	}

	result := engine(t, events).Attribute(events, sessions)
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result.Records))
	}
	r := result.Records[0]
	if r.FcSessionID != "dev-1-1" || r.LcSessionID != "dev-1-1" {
		t.Fatalf("expected symmetric attribution: %+v", r)
	}
	if r.FcChannel != enums.ChannelPaid || r.LcChannel != enums.ChannelPaid {
		t.Fatalf("channels: fc=%q lc=%q", r.FcChannel, r.LcChannel)
	}
}

func TestAttribute_FirstAndLastClickRanking(t *testing.T) {
	events := []normalize.Event{purchase(1, "dev-1", purchaseAt)}
	sessions := []models.Session{
		sessionAt("dev-1-2", "dev-1", purchaseAt.Add(-2*time.Hour), enums.ChannelOrganicSearch),
		sessionAt("dev-1-1", "dev-1", purchaseAt.Add(-3*24*time.Hour), enums.ChannelPaid),
		sessionAt("dev-1-3", "dev-1", purchaseAt.Add(-time.Hour), enums.ChannelDirect),
	}

	result := engine(t, events).Attribute(events, sessions)
	r := result.Records[0]
	if r.FcSessionID != "dev-1-1" || r.FcChannel != enums.ChannelPaid {
		t.Fatalf("first-click = %q (%q)", r.FcSessionID, r.FcChannel)
	}
	if r.LcSessionID != "dev-1-3" || r.LcChannel != enums.ChannelDirect {
		t.Fatalf("last-click = %q (%q)", r.LcSessionID, r.LcChannel)
	}
}

func TestAttribute_TiesBrokenBySessionID(t *testing.T) {
	events := []normalize.Event{purchase(1, "dev-1", purchaseAt)}
	startedAt := purchaseAt.Add(-time.Hour)
	sessions := []models.Session{
		sessionAt("dev-1-2", "dev-1", startedAt, enums.ChannelReferral),
		sessionAt("dev-1-1", "dev-1", startedAt, enums.ChannelPaid),
	}

	result := engine(t, events).Attribute(events, sessions)
	r := result.Records[0]
	if r.FcSessionID != "dev-1-1" {
		t.Fatalf("first-click tie = %q, want dev-1-1", r.FcSessionID)
	}
	if r.LcSessionID != "dev-1-2" {
		t.Fatalf("last-click tie = %q, want dev-1-2", r.LcSessionID)
	}
}

func TestAttribute_OtherPersonsSessionsDoNotQualify(t *testing.T) {
	events := []normalize.Event{purchase(1, "dev-1", purchaseAt)}
	sessions := []models.Session{
		sessionAt("dev-2-1", "dev-2", purchaseAt.Add(-time.Hour), enums.ChannelPaid),
	}

	result := engine(t, events).Attribute(events, sessions)
	if len(result.Records) != 0 || result.Unattributed != 1 {
		t.Fatalf("expected unattributed purchase: %+v", result)
	}
}

// Duplicate upstream transaction ids stay independent purchases: revenue is
// not lost even when line-item expansion dedups them.
func TestAttribute_SurrogateKeysKeepDuplicatesApart(t *testing.T) {
	events := []normalize.Event{
		purchase(1, "dev-1", purchaseAt),
		purchase(2, "dev-1", purchaseAt.Add(time.Minute)),
	}
	sessions := []models.Session{
		sessionAt("dev-1-1", "dev-1", purchaseAt.Add(-time.Hour), enums.ChannelPaid),
	}

	result := engine(t, events).Attribute(events, sessions)
	if len(result.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result.Records))
	}
	if result.Records[0].TransactionRef == result.Records[1].TransactionRef {
		t.Fatal("surrogate keys must differ")
	}
}

func TestAttribute_ResolvesPersonThroughIdentityMap(t *testing.T) {
	buy := purchase(2, "dev-1", purchaseAt)
	buy.SelfIdentifier = "buyer@example.com"
	events := []normalize.Event{buy}
	sessions := []models.Session{
		sessionAt("dev-1-1", "buyer@example.com", purchaseAt.Add(-time.Hour), enums.ChannelPaid),
	}

	result := engine(t, events).Attribute(events, sessions)
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result.Records))
	}
	if result.Records[0].PersonID != "buyer@example.com" {
		t.Fatalf("person id = %q", result.Records[0].PersonID)
	}
}
