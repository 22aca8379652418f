package orderlines

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tidemarkdata/clickstream-engine/internal/normalize"
	"github.com/tidemarkdata/clickstream-engine/pkg/db/models"
)

// Result carries the expanded order-line table plus the monitoring counter
// for orders whose summed line totals disagree with the declared revenue.
type Result struct {
	Lines          []models.OrderLine
	MismatchOrders int64
}

type dedupKey struct {
	transactionID string
	deviceID      string
}

// Expand flattens each purchase's embedded line items into order-line rows.
// Raw purchase events sharing an upstream transaction id and device are
// deduplicated to the chronologically earliest; later duplicates are
// discarded entirely. Declared order revenue always comes from the
// purchase's top-level field; when the summed line totals diverge the order
// is flagged, never corrected.
func Expand(events []normalize.Event) Result {
	kept := make([]normalize.Event, 0)
	firstSeen := make(map[dedupKey]int)

	for _, event := range events {
		if !event.IsPurchase() {
			continue
		}

		// Purchases without an upstream transaction id cannot collide; their
		// surrogate key already keeps them apart.
		if event.Purchase.UpstreamTransactionID == "" {
			kept = append(kept, event)
			continue
		}

		key := dedupKey{
			transactionID: event.Purchase.UpstreamTransactionID,
			deviceID:      event.DeviceID,
		}
		idx, seen := firstSeen[key]
		if !seen {
			firstSeen[key] = len(kept)
			kept = append(kept, event)
			continue
		}
		if earlier(event, kept[idx]) {
			kept[idx] = event
		}
	}

	var result Result
	for _, event := range kept {
		lines, mismatch := expandPurchase(event)
		result.Lines = append(result.Lines, lines...)
		if mismatch {
			result.MismatchOrders++
		}
	}

	sort.Slice(result.Lines, func(i, j int) bool {
		a, b := result.Lines[i], result.Lines[j]
		if a.TransactionRef != b.TransactionRef {
			return a.TransactionRef < b.TransactionRef
		}
		return a.ItemID < b.ItemID
	})
	return result
}

func earlier(a, b normalize.Event) bool {
	if !a.EventTime.Equal(b.EventTime) {
		return a.EventTime.Before(b.EventTime)
	}
	return a.Seq < b.Seq
}

// expandPurchase produces one row per line item. An empty or unparseable
// item list yields zero rows; the purchase's revenue still flows through
// attribution untouched.
func expandPurchase(event normalize.Event) ([]models.OrderLine, bool) {
	p := event.Purchase
	if len(p.LineItems) == 0 {
		return nil, false
	}

	lines := make([]models.OrderLine, 0, len(p.LineItems))
	summed := decimal.Zero
	for _, item := range p.LineItems {
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		summed = summed.Add(lineTotal)
		lines = append(lines, models.OrderLine{
			TransactionRef:       p.TransactionRef,
			PurchaseTime:         event.EventTime,
			DeviceID:             event.DeviceID,
			DeclaredOrderRevenue: p.Revenue,
			ItemID:               item.ItemID,
			ItemName:             item.ItemName,
			UnitPrice:            item.UnitPrice,
			Quantity:             item.Quantity,
			LineTotal:            lineTotal,
		})
	}

	return lines, !summed.Equal(p.Revenue)
}
