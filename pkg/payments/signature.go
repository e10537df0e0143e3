package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyPaymentSignature checks the HMAC-SHA256 signature the gateway sends
// back after a successful checkout. The signed message is "orderID|paymentID".
func (c *Client) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool {
	if c == nil {
		return false
	}
	return verifyHMAC(c.keySecret, gatewayOrderID+"|"+paymentID, signature)
}

// VerifyWebhookSignature checks the signature header on webhook deliveries
// against the raw request body.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c == nil || c.webhookSecret == "" {
		return false
	}
	return verifyHMAC(c.webhookSecret, string(body), signature)
}

func verifyHMAC(secret, message, signature string) bool {
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
