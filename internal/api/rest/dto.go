package rest

import (
	"time"

	"github.com/feral-file/ff-boxoffice/internal/domain"
)

// CreateBoxRequest is the admin request to add a box to the catalog.
// Kind selects the payment variant: "coin", "token" or "free".
type CreateBoxRequest struct {
	Kind                string `json:"kind" binding:"required"`
	ID                  uint64 `json:"id" binding:"required"`
	Price               string `json:"price"`
	QuantityPerPurchase uint32 `json:"quantity_per_purchase" binding:"required"`
	MaxSupply           uint64 `json:"max_supply"`
	RequiresSignature   bool   `json:"requires_signature"`
	TokenContract       string `json:"token_contract"`
}

// PurchaseCoinRequest is a native-currency purchase. Amount is a decimal
// string in the smallest unit. Nonce and signature are present iff the box
// is signature-gated.
type PurchaseCoinRequest struct {
	BoxID     uint64 `json:"box_id" binding:"required"`
	Buyer     string `json:"buyer" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

// PurchaseTokenRequest is an ERC-20 purchase; the price is pulled from the
// buyer's allowance, so no amount is submitted.
type PurchaseTokenRequest struct {
	BoxID     uint64 `json:"box_id" binding:"required"`
	Buyer     string `json:"buyer" binding:"required"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

// PurchaseFreeRequest is a free-box purchase; nonce and signature are
// always required.
type PurchaseFreeRequest struct {
	BoxID     uint64 `json:"box_id" binding:"required"`
	Buyer     string `json:"buyer" binding:"required"`
	Nonce     string `json:"nonce" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// SetPriceRequest updates a priced box's price (decimal string).
type SetPriceRequest struct {
	Price string `json:"price" binding:"required"`
}

// SetSignatureRequirementRequest toggles the signature gate on a priced box.
type SetSignatureRequirementRequest struct {
	Required *bool `json:"required" binding:"required"`
}

// SetAddressRequest updates the payment or signer address.
type SetAddressRequest struct {
	Address string `json:"address" binding:"required"`
}

// SetBaseURIRequest updates the metadata base for issued items.
type SetBaseURIRequest struct {
	BaseURI string `json:"base_uri" binding:"required"`
}

// CreateWebhookEndpointRequest registers an event consumer.
type CreateWebhookEndpointRequest struct {
	URL    string `json:"url" binding:"required"`
	Secret string `json:"secret" binding:"required"`
}

// BoxResponse is the public view of a box.
type BoxResponse struct {
	ID                  uint64  `json:"id"`
	Price               string  `json:"price"`
	MaxSupply           uint64  `json:"max_supply"`
	Supply              uint64  `json:"supply"`
	Enabled             bool    `json:"enabled"`
	PaymentKind         string  `json:"payment_kind"`
	TokenContract       *string `json:"token_contract,omitempty"`
	RequiresSignature   bool    `json:"requires_signature"`
	QuantityPerPurchase uint32  `json:"quantity_per_purchase"`
	SoldOut             bool    `json:"sold_out"`
	CreatedAt           string  `json:"created_at"`
}

// ReceiptResponse is the result of a completed purchase.
type ReceiptResponse struct {
	SoldUnitID    uint64   `json:"sold_unit_id"`
	BoxID         uint64   `json:"box_id"`
	Buyer         string   `json:"buyer"`
	Price         string   `json:"price"`
	PaymentKind   string   `json:"payment_kind"`
	TokenContract *string  `json:"token_contract,omitempty"`
	ItemIDs       []uint64 `json:"item_ids"`
}

// VerifyResponse reports whether an authorization would be accepted.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// SaleStateResponse is the admin view of the sale configuration.
type SaleStateResponse struct {
	Paused         bool   `json:"paused"`
	PaymentAddress string `json:"payment_address"`
	SignerAddress  string `json:"signer_address"`
	BaseURI        string `json:"base_uri"`
}

// WebhookEndpointResponse is the registered endpoint, secret omitted.
type WebhookEndpointResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

func boxToResponse(b *domain.Box) BoxResponse {
	resp := BoxResponse{
		ID:                  uint64(b.ID),
		Price:               b.Price.String(),
		MaxSupply:           b.MaxSupply,
		Supply:              b.Supply,
		Enabled:             b.Enabled,
		PaymentKind:         string(b.PaymentKind()),
		RequiresSignature:   b.RequiresSignature,
		QuantityPerPurchase: b.QuantityPerPurchase,
		SoldOut:             b.SoldOut(),
		CreatedAt:           b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.TokenContract != nil {
		contract := b.TokenContract.Hex()
		resp.TokenContract = &contract
	}
	return resp
}

func receiptToResponse(r *domain.Receipt) ReceiptResponse {
	resp := ReceiptResponse{
		SoldUnitID:  r.SoldUnitID,
		BoxID:       uint64(r.BoxID),
		Buyer:       r.Buyer.Hex(),
		Price:       r.Price.String(),
		PaymentKind: string(r.PaymentKind),
		ItemIDs:     r.ItemIDs,
	}
	if r.TokenContract != nil {
		contract := r.TokenContract.Hex()
		resp.TokenContract = &contract
	}
	return resp
}
