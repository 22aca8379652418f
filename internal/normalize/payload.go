package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Upstream trackers are inconsistent about payload keys, so every field is
// resolved through an ordered fallback list.
var (
	identifierKeys  = []string{"email", "customer_email", "user_email"}
	revenueKeys     = []string{"revenue", "value", "total"}
	transactionKeys = []string{"transaction_id", "order_id"}
	lineItemKeys    = []string{"line_items", "items"}
	itemIDKeys      = []string{"item_id", "id", "sku"}
	itemNameKeys    = []string{"item_name", "name"}
	unitPriceKeys   = []string{"unit_price", "price"}
	quantityKeys    = []string{"quantity", "qty"}
)

type payload map[string]any

func parsePayload(raw string) (payload, error) {
	if strings.TrimSpace(raw) == "" {
		return payload{}, nil
	}
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("parsing event_data: %w", err)
	}
	if p == nil {
		p = payload{}
	}
	return p, nil
}

// selfIdentifier returns the normalized identity signal, or "" when the
// payload carries none.
func (p payload) selfIdentifier() string {
	raw := p.firstString(identifierKeys)
	return strings.ToLower(strings.TrimSpace(raw))
}

// revenue returns the declared order revenue, zero when absent or
// unparseable. Revenue is never inferred from line items.
func (p payload) revenue() decimal.Decimal {
	return p.firstDecimal(revenueKeys)
}

func (p payload) transactionID() string {
	return strings.TrimSpace(p.firstString(transactionKeys))
}

// lineItems parses the embedded line-item list. An unparseable list yields
// nil; the caller still keeps the purchase's top-level revenue.
func (p payload) lineItems() []LineItem {
	var rawItems []any
	for _, key := range lineItemKeys {
		if list, ok := p[key].([]any); ok {
			rawItems = list
			break
		}
	}
	if len(rawItems) == 0 {
		return nil
	}

	items := make([]LineItem, 0, len(rawItems))
	for _, raw := range rawItems {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		item := payload(entry)
		quantity := int(item.firstDecimal(quantityKeys).IntPart())
		if quantity <= 0 {
			quantity = 1
		}
		items = append(items, LineItem{
			ItemID:    strings.TrimSpace(item.firstString(itemIDKeys)),
			ItemName:  strings.TrimSpace(item.firstString(itemNameKeys)),
			UnitPrice: item.firstDecimal(unitPriceKeys),
			Quantity:  quantity,
		})
	}
	return items
}

func (p payload) firstString(keys []string) string {
	for _, key := range keys {
		if value, ok := p[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

func (p payload) firstDecimal(keys []string) decimal.Decimal {
	for _, key := range keys {
		switch value := p[key].(type) {
		case float64:
			return decimal.NewFromFloat(value)
		case string:
			parsed, err := decimal.NewFromString(strings.TrimSpace(value))
			if err == nil {
				return parsed
			}
		}
	}
	return decimal.Zero
}
