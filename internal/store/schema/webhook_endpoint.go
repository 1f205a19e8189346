package schema

import (
	"time"
)

// WebhookEndpoint represents the webhook_endpoints table - registered
// consumers of sale events.
type WebhookEndpoint struct {
	// ID is a UUID assigned at registration
	ID  string `gorm:"column:id;primaryKey;type:text"`
	URL string `gorm:"column:url;not null;type:text"`
	// Secret signs delivery payloads (HMAC-SHA256)
	Secret    string    `gorm:"column:secret;not null;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the WebhookEndpoint model
func (WebhookEndpoint) TableName() string {
	return "webhook_endpoints"
}
