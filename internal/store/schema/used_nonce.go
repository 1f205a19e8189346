package schema

import (
	"time"
)

// UsedNonce represents the used_nonces table - the insertion-only ledger of
// consumed authorization nonces. The namespace is global across boxes; the
// primary key makes double consumption a constraint violation.
type UsedNonce struct {
	// Nonce is the canonical decimal encoding of the nonce value
	Nonce     string    `gorm:"column:nonce;primaryKey;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the UsedNonce model
func (UsedNonce) TableName() string {
	return "used_nonces"
}
