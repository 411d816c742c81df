package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateUUID generates a UUID v4 string.
func GenerateUUID() string {
	return uuid.New().String()
}

// VendorTxCode mints a unique vendor transaction code for a payment attempt.
// The gateway rejects duplicates and caps the field at 40 characters.
func VendorTxCode(orderID uint) string {
	code := fmt.Sprintf("ord%d-%x-%s", orderID, time.Now().UnixMilli(), RandomHex(4))
	if len(code) > 40 {
		code = code[:40]
	}
	return code
}

// RandomHex generates a random hex string of n bytes.
func RandomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
