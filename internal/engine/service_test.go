package engine

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tidemarkdata/clickstream-engine/internal/warehouse"
	"github.com/tidemarkdata/clickstream-engine/pkg/config"
	"github.com/tidemarkdata/clickstream-engine/pkg/db"
	"github.com/tidemarkdata/clickstream-engine/pkg/db/models"
	"github.com/tidemarkdata/clickstream-engine/pkg/enums"
	"github.com/tidemarkdata/clickstream-engine/pkg/logger"
)

var engineDDL = []string{
	`CREATE TABLE IF NOT EXISTS accepted_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  device_id TEXT NOT NULL,
  event_time DATETIME NOT NULL,
  event_name TEXT NOT NULL,
  event_data TEXT,
  page_url TEXT NOT NULL,
  referrer TEXT,
  user_agent TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS identity_map (
  device_id TEXT PRIMARY KEY,
  person_id TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS sessions (
  session_id TEXT PRIMARY KEY,
  person_id TEXT NOT NULL,
  device_id TEXT NOT NULL,
  started_at DATETIME NOT NULL,
  ended_at DATETIME NOT NULL,
  duration_minutes REAL NOT NULL,
  channel TEXT NOT NULL,
  source TEXT NOT NULL,
  medium TEXT NOT NULL,
  campaign TEXT,
  platform TEXT NOT NULL,
  os TEXT NOT NULL,
  browser TEXT NOT NULL,
  actions INTEGER NOT NULL,
  page_views INTEGER NOT NULL,
  cart_adds INTEGER NOT NULL,
  did_checkout INTEGER NOT NULL,
  captured_email INTEGER NOT NULL,
  converted INTEGER NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS attribution (
  transaction_ref TEXT PRIMARY KEY,
  person_id TEXT NOT NULL,
  revenue NUMERIC NOT NULL,
  purchase_time DATETIME NOT NULL,
  lc_session_id TEXT NOT NULL,
  lc_channel TEXT NOT NULL,
  lc_source TEXT NOT NULL,
  lc_medium TEXT NOT NULL,
  fc_session_id TEXT NOT NULL,
  fc_channel TEXT NOT NULL,
  fc_source TEXT NOT NULL,
  fc_medium TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS order_lines (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  transaction_ref TEXT NOT NULL,
  purchase_time DATETIME NOT NULL,
  device_id TEXT NOT NULL,
  declared_order_revenue NUMERIC NOT NULL,
  item_id TEXT NOT NULL,
  item_name TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  line_total NUMERIC NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS engine_runs (
  id TEXT PRIMARY KEY,
  started_at DATETIME NOT NULL,
  finished_at DATETIME NOT NULL,
  status TEXT NOT NULL,
  events_in INTEGER NOT NULL,
  total_sessions INTEGER NOT NULL,
  total_purchases INTEGER NOT NULL,
  attributed_revenue NUMERIC NOT NULL,
  raw_purchase_revenue NUMERIC NOT NULL,
  unattributed_purchases INTEGER NOT NULL,
  revenue_mismatch_orders INTEGER NOT NULL
);`,
}

func engineConfig() config.EngineConfig {
	return config.EngineConfig{
		SessionGap:     30 * time.Minute,
		Lookback:       7 * 24 * time.Hour,
		SiteDomain:     "shop.example.com",
		WriteBatchSize: 100,
	}
}

func setupService(t *testing.T) (*Service, *db.Client) {
	t.Helper()
	ctx := context.Background()

	cfg := config.DBConfig{
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		Driver: "sqlite",
	}
	client, err := db.New(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	for _, ddl := range engineDDL {
		require.NoError(t, client.DB().Exec(ddl).Error)
	}

	repo, err := warehouse.NewRepo(client, 100)
	require.NoError(t, err)

	logg := logger.New(logger.Options{ServiceName: "engine-test", Output: io.Discard})
	svc, err := NewService(repo, engineConfig(), logg, nil)
	require.NoError(t, err)
	return svc, client
}

func seedRow(t *testing.T, client *db.Client, deviceID, eventName, eventData string, at time.Time) {
	t.Helper()
	row := models.AcceptedEvent{
		DeviceID:  deviceID,
		EventTime: at,
		EventName: eventName,
		EventData: eventData,
		PageURL:   "https://shop.example.com/products",
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X) Safari/605.1",
	}
	require.NoError(t, client.DB().Create(&row).Error)
}

func seedScenario(t *testing.T, client *db.Client) {
	t.Helper()
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	// Device dev-1: paid session, identifies, purchases within the session.
	row := models.AcceptedEvent{
		DeviceID:  "dev-1",
		EventTime: base,
		EventName: "page_viewed",
		EventData: "{}",
		PageURL:   "https://shop.example.com/?utm_source=newsletter&utm_medium=email&utm_campaign=spring",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0 Safari/537.36",
	}
	require.NoError(t, client.DB().Create(&row).Error)

	seedRow(t, client, "dev-1", "email_filled_on_popup",
		`{"email": "Buyer@Example.com"}`, base.Add(2*time.Minute))
	seedRow(t, client, "dev-1", "product_added_to_cart", "{}", base.Add(4*time.Minute))
	seedRow(t, client, "dev-1", "checkout_started", "{}", base.Add(6*time.Minute))
	seedRow(t, client, "dev-1", "checkout_completed", `{
		"email": "buyer@example.com",
		"transaction_id": "TXN-1",
		"revenue": 39.98,
		"line_items": [{"item_id": "sku-1", "item_name": "Widget", "unit_price": 19.99, "quantity": 2}]
	}`, base.Add(8*time.Minute))

	// Device dev-2: single anonymous page view, no purchase.
	seedRow(t, client, "dev-2", "page_viewed", "{}", base.Add(time.Hour))
}

func TestRun_EndToEnd(t *testing.T) {
	svc, client := setupService(t)
	seedScenario(t, client)

	run, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, enums.RunStatusCompleted, run.Status)
	require.EqualValues(t, 6, run.EventsIn)
	require.EqualValues(t, 2, run.TotalSessions)
	require.EqualValues(t, 1, run.TotalPurchases)
	require.EqualValues(t, 0, run.UnattributedPurchases)
	require.EqualValues(t, 0, run.RevenueMismatchOrders)
	require.True(t, run.AttributedRevenue.Equal(run.RawPurchaseRevenue))

	var identities []models.IdentityMapping
	require.NoError(t, client.DB().Order("device_id").Find(&identities).Error)
	require.Len(t, identities, 2)
	require.Equal(t, "buyer@example.com", identities[0].PersonID)
	require.Equal(t, "dev-2", identities[1].PersonID)

	var sessions []models.Session
	require.NoError(t, client.DB().Order("session_id").Find(&sessions).Error)
	require.Len(t, sessions, 2)
	purchased := sessions[0]
	require.Equal(t, "dev-1-1", purchased.SessionID)
	require.Equal(t, enums.ChannelPaid, purchased.Channel)
	require.Equal(t, "newsletter", purchased.Source)
	require.True(t, purchased.Converted)
	require.True(t, purchased.CapturedEmail)
	require.True(t, purchased.DidCheckout)
	require.Equal(t, 1, purchased.CartAdds)

	var records []models.AttributionRecord
	require.NoError(t, client.DB().Find(&records).Error)
	require.Len(t, records, 1)
	require.Equal(t, "buyer@example.com", records[0].PersonID)
	require.Equal(t, "dev-1-1", records[0].FcSessionID)
	require.Equal(t, "dev-1-1", records[0].LcSessionID)

	var lines []models.OrderLine
	require.NoError(t, client.DB().Find(&lines).Error)
	require.Len(t, lines, 1)
	require.Equal(t, "sku-1", lines[0].ItemID)
	require.Equal(t, 2, lines[0].Quantity)
}

func TestRun_Idempotent(t *testing.T) {
	svc, client := setupService(t)
	seedScenario(t, client)
	ctx := context.Background()

	first, err := svc.Run(ctx)
	require.NoError(t, err)
	var firstSessions []models.Session
	require.NoError(t, client.DB().Order("session_id").Find(&firstSessions).Error)
	var firstRecords []models.AttributionRecord
	require.NoError(t, client.DB().Order("transaction_ref").Find(&firstRecords).Error)

	second, err := svc.Run(ctx)
	require.NoError(t, err)
	var secondSessions []models.Session
	require.NoError(t, client.DB().Order("session_id").Find(&secondSessions).Error)
	var secondRecords []models.AttributionRecord
	require.NoError(t, client.DB().Order("transaction_ref").Find(&secondRecords).Error)

	require.Equal(t, first.TotalSessions, second.TotalSessions)
	require.Len(t, secondSessions, len(firstSessions))
	for i := range firstSessions {
		require.Equal(t, firstSessions[i].SessionID, secondSessions[i].SessionID)
		require.Equal(t, firstSessions[i].Channel, secondSessions[i].Channel)
		require.True(t, firstSessions[i].StartedAt.Equal(secondSessions[i].StartedAt))
	}
	require.Len(t, secondRecords, len(firstRecords))
	for i := range firstRecords {
		require.Equal(t, firstRecords[i].TransactionRef, secondRecords[i].TransactionRef)
		require.Equal(t, firstRecords[i].FcSessionID, secondRecords[i].FcSessionID)
		require.Equal(t, firstRecords[i].LcSessionID, secondRecords[i].LcSessionID)
	}
}

func TestRun_ContractViolationFailsWholeRun(t *testing.T) {
	svc, client := setupService(t)
	seedScenario(t, client)
	ctx := context.Background()

	// Establish a previous good snapshot.
	_, err := svc.Run(ctx)
	require.NoError(t, err)

	seedRow(t, client, "dev-3", "unknown_event", "{}",
		time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC))

	_, err = svc.Run(ctx)
	require.Error(t, err)

	// Previous tables survive; a failed audit row is appended.
	var sessions []models.Session
	require.NoError(t, client.DB().Find(&sessions).Error)
	require.Len(t, sessions, 2)

	var runs []models.EngineRun
	require.NoError(t, client.DB().Order("started_at").Find(&runs).Error)
	require.Len(t, runs, 2)
	require.Equal(t, enums.RunStatusFailed, runs[len(runs)-1].Status)
}

func TestRun_RevenueMismatchCounted(t *testing.T) {
	svc, client := setupService(t)

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	seedRow(t, client, "dev-1", "checkout_completed", `{
		"revenue": 100,
		"transaction_id": "TXN-9",
		"line_items": [{"item_id": "sku-1", "item_name": "Widget", "unit_price": 19.99, "quantity": 2}]
	}`, base)

	run, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.EqualValues(t, 1, run.RevenueMismatchOrders)
	require.True(t, run.RawPurchaseRevenue.Equal(run.AttributedRevenue))

	var lines []models.OrderLine
	require.NoError(t, client.DB().Find(&lines).Error)
	require.Len(t, lines, 1)
}
