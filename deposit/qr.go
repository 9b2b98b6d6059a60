package deposit

import (
	"net/url"
	"strconv"
)

const qrImageBase = "https://qr.sepay.vn/img"

// QRURL builds the payment QR image URL for a deposit. The order
// reference goes in the transfer description so the webhook can match
// the transfer back.
func QRURL(bank, accountNumber, template, accountName string, amount int64, orderID string) string {
	q := url.Values{}
	q.Set("bank", bank)
	q.Set("acc", accountNumber)
	if template != "" {
		q.Set("template", template)
	}
	q.Set("amount", strconv.FormatInt(amount, 10))
	q.Set("des", orderID)
	if accountName != "" {
		q.Set("accountName", accountName)
	}

	return qrImageBase + "?" + q.Encode()
}
