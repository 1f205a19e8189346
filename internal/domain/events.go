package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// EventKind identifies an observable sale event.
type EventKind string

const (
	EventBoxCreatedCoin        EventKind = "box_created_coin"
	EventBoxCreatedToken       EventKind = "box_created_token"
	EventBoxCreatedFree        EventKind = "box_created_free"
	EventBoxEnabled            EventKind = "box_enabled"
	EventBoxDisabled           EventKind = "box_disabled"
	EventBoxPriceChanged       EventKind = "box_price_changed"
	EventBoxSignatureChanged   EventKind = "box_signature_requirement_changed"
	EventSalePaused            EventKind = "sale_paused"
	EventSaleUnpaused          EventKind = "sale_unpaused"
	EventPaymentAddressChanged EventKind = "payment_address_changed"
	EventSignerAddressChanged  EventKind = "signer_address_changed"
	EventBaseMetadataChanged   EventKind = "base_metadata_changed"
	EventPurchaseCompleted     EventKind = "purchase_completed"
)

// Event is one observable state change, staged in the outbox inside the
// transaction that produced it and delivered to external indexers after
// commit. Delivery is at-least-once; consumers deduplicate on ID.
type Event struct {
	// ID is a ULID, so events sort lexicographically by creation time.
	ID        string         `json:"id"`
	Kind      EventKind      `json:"kind"`
	CreatedAt time.Time      `json:"created_at"`
	Payload   map[string]any `json:"payload"`
}

// NewEvent creates an event with a fresh ULID.
func NewEvent(kind EventKind, payload map[string]any) *Event {
	now := time.Now().UTC()
	return &Event{
		ID:        ulid.MustNewDefault(now).String(),
		Kind:      kind,
		CreatedAt: now,
		Payload:   payload,
	}
}

// BoxEventPayload builds the common payload for catalog events.
func BoxEventPayload(b *Box) map[string]any {
	p := map[string]any{
		"box_id":                b.ID,
		"price":                 b.Price.String(),
		"max_supply":            b.MaxSupply,
		"enabled":               b.Enabled,
		"requires_signature":    b.RequiresSignature,
		"quantity_per_purchase": b.QuantityPerPurchase,
		"payment_kind":          b.PaymentKind(),
	}
	if b.TokenContract != nil {
		p["token_contract"] = b.TokenContract.Hex()
	}
	return p
}

// PurchaseEventPayload builds the payload for purchase_completed events,
// carrying the sold-unit id, buyer, box id, price, payment kind and the
// full list of issued item identifiers.
func PurchaseEventPayload(r *Receipt) map[string]any {
	p := map[string]any{
		"sold_unit_id": r.SoldUnitID,
		"box_id":       r.BoxID,
		"buyer":        r.Buyer.Hex(),
		"price":        r.Price.String(),
		"payment_kind": r.PaymentKind,
		"item_ids":     r.ItemIDs,
	}
	if r.TokenContract != nil {
		p["token_contract"] = r.TokenContract.Hex()
	}
	return p
}
