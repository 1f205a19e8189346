package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BoxID identifies a sale offer. Identifier 0 is reserved and never valid.
type BoxID uint64

// Valid reports whether the identifier is usable as a box key.
func (id BoxID) Valid() bool {
	return id != 0
}

// PaymentKind describes how a box is paid for.
type PaymentKind string

const (
	// PaymentKindCoin is a purchase settled in the chain's native currency.
	PaymentKindCoin PaymentKind = "coin"
	// PaymentKindToken is a purchase settled in an ERC-20 token.
	PaymentKindToken PaymentKind = "token"
	// PaymentKindFree is a signature-gated purchase with no payment.
	PaymentKindFree PaymentKind = "free"
)

// Box is a configured sale offer. MaxSupply, QuantityPerPurchase,
// PaidWithToken and TokenContract are fixed at creation; Price may change
// while it stays nonzero, and RequiresSignature may be toggled only on
// priced boxes.
type Box struct {
	ID BoxID
	// Price in the smallest unit of the payment currency. Zero means free.
	Price *big.Int
	// MaxSupply caps the number of purchases; zero means unlimited.
	MaxSupply uint64
	// Supply counts completed purchases against this box (one per purchase,
	// not per issued item).
	Supply  uint64
	Enabled bool
	// PaidWithToken marks the box as settled via an ERC-20 transfer instead
	// of native currency.
	PaidWithToken bool
	// TokenContract is set only when PaidWithToken.
	TokenContract *common.Address
	// RequiresSignature gates the box behind an off-chain authorization.
	// Free boxes are permanently signature-gated.
	RequiresSignature bool
	// QuantityPerPurchase is the number of items issued per purchase.
	QuantityPerPurchase uint32
	CreatedAt           time.Time
}

// Free reports whether the box has a zero price.
func (b *Box) Free() bool {
	return b.Price == nil || b.Price.Sign() == 0
}

// SoldOut reports whether the box has reached its supply cap.
func (b *Box) SoldOut() bool {
	return b.MaxSupply > 0 && b.Supply >= b.MaxSupply
}

// PaymentKind returns the payment kind implied by the box configuration.
func (b *Box) PaymentKind() PaymentKind {
	switch {
	case b.Free():
		return PaymentKindFree
	case b.PaidWithToken:
		return PaymentKindToken
	default:
		return PaymentKindCoin
	}
}

// SoldUnit is one completed purchase. A unit may yield multiple issued items.
type SoldUnit struct {
	ID          uint64
	BoxID       BoxID
	Buyer       common.Address
	Price       *big.Int
	PaymentKind PaymentKind
	// TokenContract is recorded for token-paid units.
	TokenContract *common.Address
	CreatedAt     time.Time
}

// IssuedItem is one minted unit, keyed by the global item identifier and
// linked back to the sold unit that produced it.
type IssuedItem struct {
	ID         uint64
	SoldUnitID uint64
	Owner      common.Address
	CreatedAt  time.Time
}

// SaleState is the single mutable row holding the global sale configuration
// and the monotonic counters. It is created once at bootstrap and mutated
// only under a row lock.
type SaleState struct {
	Paused         bool
	PaymentAddress common.Address
	TrustedSigner  common.Address
	BaseURI        string
	// CurrentSoldUnitID is the identifier of the most recent sold unit.
	CurrentSoldUnitID uint64
	// CurrentItemID is the identifier of the most recent issued item.
	CurrentItemID uint64
	UpdatedAt     time.Time
}

// Receipt describes the outcome of a successful purchase.
type Receipt struct {
	SoldUnitID    uint64
	BoxID         BoxID
	Buyer         common.Address
	Price         *big.Int
	PaymentKind   PaymentKind
	TokenContract *common.Address
	ItemIDs       []uint64
}

// WebhookEndpoint is a registered consumer of sale events. Deliveries are
// signed with the endpoint's secret.
type WebhookEndpoint struct {
	ID        string
	URL       string
	Secret    string
	CreatedAt time.Time
}

// ZeroAddress reports whether addr is the zero address, which is never a
// valid payment destination or signer identity.
func ZeroAddress(addr common.Address) bool {
	return addr == (common.Address{})
}
