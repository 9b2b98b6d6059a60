package deposit

// TransferDirection is the side of the bank transfer as reported by
// the payment gateway.
type TransferDirection string

const (
	TransferIn  TransferDirection = "in"
	TransferOut TransferDirection = "out"
)

// Notification is the typed webhook payload sent by the payment
// gateway when a bank transfer lands on the monitored account.
type Notification struct {
	// Gateway-assigned transaction identifier.
	ReferenceCode string `json:"referenceCode,omitempty"`

	Gateway       string `json:"gateway,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`

	TransferType   TransferDirection `json:"transferType"`
	TransferAmount int64             `json:"transferAmount"`

	// Content is the free-text transfer description typed by the
	// sender; Code is a bank-extracted reference field. Either may
	// carry the order reference.
	Content string `json:"content"`
	Code    string `json:"code,omitempty"`

	TransactionDate string `json:"transactionDate,omitempty"`
}

// OrderID extracts the order reference from the notification.
func (n *Notification) OrderID() (string, bool) {
	return ExtractOrderID(n.Content, n.Code)
}

// IsIncoming reports whether the transfer credits the monitored
// account. Outgoing transfers are ignored by the reconciler.
func (n *Notification) IsIncoming() bool {
	return n.TransferType == TransferIn
}

// Raw returns the notification as a generic map for audit storage.
func (n *Notification) Raw() map[string]any {
	return map[string]any{
		"referenceCode":   n.ReferenceCode,
		"gateway":         n.Gateway,
		"accountNumber":   n.AccountNumber,
		"transferType":    string(n.TransferType),
		"transferAmount":  n.TransferAmount,
		"content":         n.Content,
		"code":            n.Code,
		"transactionDate": n.TransactionDate,
	}
}
