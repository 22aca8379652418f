package orderlines

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tidemarkdata/clickstream-engine/internal/normalize"
	"github.com/tidemarkdata/clickstream-engine/pkg/enums"
)

var purchaseAt = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func purchase(seq uint64, deviceID, txnID string, at time.Time, revenue decimal.Decimal, items []normalize.LineItem) normalize.Event {
	return normalize.Event{
		Seq:       seq,
		DeviceID:  deviceID,
		EventTime: at,
		EventType: enums.EventCheckoutCompleted,
		Purchase: &normalize.Purchase{
			TransactionRef:        normalize.TransactionRef(deviceID, at),
			UpstreamTransactionID: txnID,
			Revenue:               revenue,
			LineItems:             items,
		},
	}
}

func widget(quantity int) normalize.LineItem {
	return normalize.LineItem{
		ItemID:    "sku-1",
		ItemName:  "Widget",
		UnitPrice: decimal.RequireFromString("19.99"),
		Quantity:  quantity,
	}
}

func TestExpand_LineTotals(t *testing.T) {
	events := []normalize.Event{
		purchase(1, "dev-1", "TXN-1", purchaseAt, decimal.RequireFromString("39.98"),
			[]normalize.LineItem{widget(2)}),
	}

	result := Expand(events)
	if len(result.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(result.Lines))
	}
	line := result.Lines[0]
	if !line.LineTotal.Equal(decimal.RequireFromString("39.98")) {
		t.Fatalf("line total = %s", line.LineTotal)
	}
	if !line.DeclaredOrderRevenue.Equal(decimal.RequireFromString("39.98")) {
		t.Fatalf("declared revenue = %s", line.DeclaredOrderRevenue)
	}
	if result.MismatchOrders != 0 {
		t.Fatalf("unexpected mismatch count %d", result.MismatchOrders)
	}
}

func TestExpand_DedupKeepsEarliest(t *testing.T) {
	later := purchase(2, "dev-1", "TXN-1", purchaseAt.Add(time.Minute), decimal.NewFromInt(20),
		[]normalize.LineItem{widget(1)})
	earliest := purchase(1, "dev-1", "TXN-1", purchaseAt, decimal.RequireFromString("19.99"),
		[]normalize.LineItem{widget(1)})

	// Delivered out of order; dedup must still keep the earliest.
	result := Expand([]normalize.Event{later, earliest})

	if len(result.Lines) != 1 {
		t.Fatalf("expected 1 line after dedup, got %d", len(result.Lines))
	}
	if result.Lines[0].TransactionRef != earliest.Purchase.TransactionRef {
		t.Fatalf("kept %q, want earliest %q", result.Lines[0].TransactionRef, earliest.Purchase.TransactionRef)
	}
}

func TestExpand_DedupScopedToDevice(t *testing.T) {
	events := []normalize.Event{
		purchase(1, "dev-1", "TXN-1", purchaseAt, decimal.RequireFromString("19.99"),
			[]normalize.LineItem{widget(1)}),
		purchase(2, "dev-2", "TXN-1", purchaseAt, decimal.RequireFromString("19.99"),
			[]normalize.LineItem{widget(1)}),
	}

	result := Expand(events)
	if len(result.Lines) != 2 {
		t.Fatalf("same txn id on different devices must both expand, got %d lines", len(result.Lines))
	}
}

func TestExpand_MissingTransactionIDNeverDedups(t *testing.T) {
	events := []normalize.Event{
		purchase(1, "dev-1", "", purchaseAt, decimal.RequireFromString("19.99"),
			[]normalize.LineItem{widget(1)}),
		purchase(2, "dev-1", "", purchaseAt.Add(time.Minute), decimal.RequireFromString("19.99"),
			[]normalize.LineItem{widget(1)}),
	}

	result := Expand(events)
	if len(result.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(result.Lines))
	}
}

func TestExpand_FlagsRevenueMismatch(t *testing.T) {
	events := []normalize.Event{
		purchase(1, "dev-1", "TXN-1", purchaseAt, decimal.NewFromInt(100),
			[]normalize.LineItem{widget(2)}),
	}

	result := Expand(events)
	if result.MismatchOrders != 1 {
		t.Fatalf("mismatch count = %d, want 1", result.MismatchOrders)
	}
	// Flagged, not corrected: declared revenue stays authoritative.
	if !result.Lines[0].DeclaredOrderRevenue.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("declared revenue = %s", result.Lines[0].DeclaredOrderRevenue)
	}
}

func TestExpand_EmptyItemListYieldsNoLines(t *testing.T) {
	events := []normalize.Event{
		purchase(1, "dev-1", "TXN-1", purchaseAt, decimal.NewFromInt(30), nil),
	}

	result := Expand(events)
	if len(result.Lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(result.Lines))
	}
	if result.MismatchOrders != 0 {
		t.Fatalf("empty item list must not count as mismatch")
	}
}

func TestExpand_IgnoresNonPurchaseEvents(t *testing.T) {
	events := []normalize.Event{
		{Seq: 1, DeviceID: "dev-1", EventTime: purchaseAt, EventType: enums.EventPageViewed},
	}

	result := Expand(events)
	if len(result.Lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(result.Lines))
	}
}
