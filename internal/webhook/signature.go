package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// GenerateSignedPayload serializes the event and signs it for delivery.
// The signed string is "{timestamp}.{event_id}.{json_body}" so receivers can
// check freshness, dedupe on the event id, and verify the body in one pass.
func GenerateSignedPayload(secret string, event WebhookEvent) (payload []byte, signature string, timestamp int64, err error) {
	payload, err = json.Marshal(event)
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	timestamp = time.Now().Unix()
	signature = sign(secret, fmt.Sprintf("%d.%s.%s", timestamp, event.EventID, payload))

	return payload, signature, timestamp, nil
}

// sign computes an HMAC-SHA256 over msg and formats it as "sha256=<hex>".
func sign(secret, msg string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(msg))
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}
