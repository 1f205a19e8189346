package schema

import (
	"time"
)

// IssuedItem represents the issued_items table - one row per minted item,
// linked to the sold unit that produced it.
type IssuedItem struct {
	ID         uint64    `gorm:"column:id;primaryKey"`
	SoldUnitID uint64    `gorm:"column:sold_unit_id;not null;index"`
	Owner      string    `gorm:"column:owner;not null;type:text;index"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the IssuedItem model
func (IssuedItem) TableName() string {
	return "issued_items"
}
