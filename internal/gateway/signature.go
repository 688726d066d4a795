package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"go-rental-ws/internal/model"
)

// Signature computes SHA512(order_id + status_code + gross_amount + server_key).
func Signature(orderCode, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderCode + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks the signature_key a webhook payload carries.
func VerifySignature(n *model.GatewayNotification, serverKey string) bool {
	if n.SignatureKey == "" {
		return false
	}
	want := Signature(n.OrderCode, n.StatusCode, n.GrossAmountRaw, serverKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(n.SignatureKey)) == 1
}
