package schema

import (
	"time"

	"gorm.io/datatypes"
)

// OutboxEvent represents the event_outbox table. Events are inserted in the
// same transaction as the state change they describe and cleared by the
// dispatcher after successful delivery.
type OutboxEvent struct {
	// ID is a ULID assigned at staging time
	ID   string `gorm:"column:id;primaryKey;type:text"`
	Kind string `gorm:"column:kind;not null;type:text;index"`
	// Payload is the event body as JSONB
	Payload      datatypes.JSON `gorm:"column:payload;not null"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null;default:now()"`
	DispatchedAt *time.Time     `gorm:"column:dispatched_at;index"`
}

// TableName specifies the table name for the OutboxEvent model
func (OutboxEvent) TableName() string {
	return "event_outbox"
}
