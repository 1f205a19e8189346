package schema

import (
	"time"
)

// Box represents the boxes table - the catalog of sale offers.
type Box struct {
	// ID is the caller-chosen box identifier. Zero is reserved and never stored.
	ID uint64 `gorm:"column:id;primaryKey"`
	// Price in the smallest currency unit (string to support very large numbers)
	Price string `gorm:"column:price;not null;type:text"`
	// MaxSupply caps completed purchases; zero means unlimited
	MaxSupply uint64 `gorm:"column:max_supply;not null;default:0"`
	// Supply counts completed purchases against this box
	Supply  uint64 `gorm:"column:supply;not null;default:0"`
	Enabled bool   `gorm:"column:enabled;not null;default:true"`
	// PaidWithToken marks ERC-20 settlement; fixed at creation
	PaidWithToken bool `gorm:"column:paid_with_token;not null;default:false"`
	// TokenContract is the fungible token address (nil for coin/free boxes)
	TokenContract *string `gorm:"column:token_contract;type:text"`
	// RequiresSignature gates purchases behind an off-chain authorization
	RequiresSignature bool `gorm:"column:requires_signature;not null;default:false"`
	// QuantityPerPurchase is the number of items issued per purchase
	QuantityPerPurchase uint32    `gorm:"column:quantity_per_purchase;not null"`
	CreatedAt           time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the Box model
func (Box) TableName() string {
	return "boxes"
}
