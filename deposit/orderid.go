package deposit

import (
	"crypto/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// OrderIDPrefix marks storefront order references in transfer
// descriptions. Banks uppercase, strip or mangle free text, so the
// matcher is case-insensitive and scans anywhere in the string.
const OrderIDPrefix = "NAP"

var orderIDPattern = regexp.MustCompile(`(?i)NAP[A-Z0-9]+`)

const orderIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderID generates a transfer reference: the prefix, the current
// millisecond timestamp in base36, and 4 random characters. Timestamp
// ordering keeps references unique in practice; the store's unique
// index on order_id catches the rest.
func NewOrderID() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))

	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		panic("deposit: crypto/rand unavailable: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = orderIDAlphabet[int(b)%len(orderIDAlphabet)]
	}

	return OrderIDPrefix + ts + string(buf)
}

// ExtractOrderID scans the transfer content, then the bank reference
// code, for an order reference. The result is uppercased. Returns
// false when neither field carries one.
func ExtractOrderID(content, code string) (string, bool) {
	if m := orderIDPattern.FindString(content); m != "" {
		return strings.ToUpper(m), true
	}
	if m := orderIDPattern.FindString(code); m != "" {
		return strings.ToUpper(m), true
	}
	return "", false
}
