package schema

import (
	"time"
)

// SoldUnit represents the sold_units table - one row per completed purchase.
// IDs come from the sale-state counter, not from a database sequence, so the
// numbering survives backend migrations.
type SoldUnit struct {
	ID    uint64 `gorm:"column:id;primaryKey"`
	BoxID uint64 `gorm:"column:box_id;not null;index"`
	// Buyer is the purchaser's address in hex
	Buyer string `gorm:"column:buyer;not null;type:text;index"`
	// Price paid, in the smallest currency unit
	Price         string    `gorm:"column:price;not null;type:text"`
	PaymentKind   string    `gorm:"column:payment_kind;not null;type:text"`
	TokenContract *string   `gorm:"column:token_contract;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the SoldUnit model
func (SoldUnit) TableName() string {
	return "sold_units"
}
