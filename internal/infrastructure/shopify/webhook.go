package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader is the header carrying the webhook body signature
const SignatureHeader = "X-Shopify-Hmac-Sha256"

// DeliveryIDHeader is the header carrying the unique webhook delivery ID,
// used to deduplicate redeliveries.
const DeliveryIDHeader = "X-Shopify-Webhook-Id"

// VerifyWebhookSignature checks a webhook body against the base64-encoded
// HMAC-SHA256 signature Shopify sends. Comparison is constant time.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
