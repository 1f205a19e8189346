package schema

import (
	"time"
)

// SaleState represents the sale_states table. Exactly one row exists; every
// purchase locks it, which serializes counter updates and the pause gate.
type SaleState struct {
	// ID is always SaleStateID
	ID     uint32 `gorm:"column:id;primaryKey"`
	Paused bool   `gorm:"column:paused;not null;default:false"`
	// PaymentAddress receives forwarded payments (hex)
	PaymentAddress string `gorm:"column:payment_address;not null;type:text"`
	// TrustedSigner is the authorization signer address (hex)
	TrustedSigner     string    `gorm:"column:trusted_signer;not null;type:text"`
	BaseURI           string    `gorm:"column:base_uri;not null;default:'';type:text"`
	CurrentSoldUnitID uint64    `gorm:"column:current_sold_unit_id;not null;default:0"`
	CurrentItemID     uint64    `gorm:"column:current_item_id;not null;default:0"`
	UpdatedAt         time.Time `gorm:"column:updated_at;not null;default:now()"`
}

// SaleStateID is the fixed primary key of the singleton sale-state row.
const SaleStateID uint32 = 1

// TableName specifies the table name for the SaleState model
func (SaleState) TableName() string {
	return "sale_states"
}
