package audithook

// Action constants for audit events.
const (
	// Deposit actions
	ActionDepositCreated  = "deposit.created"
	ActionDepositSettled  = "deposit.settled"
	ActionDepositRejected = "deposit.rejected"
	ActionAmountMismatch  = "deposit.amount_mismatch"

	// License actions
	ActionLicenseIssued  = "license.issued"
	ActionLicenseRenewed = "license.renewed"
	ActionLicenseRevoked = "license.revoked"
	ActionHWIDBound      = "license.hwid_bound"
	ActionHWIDReset      = "license.hwid_reset"

	// Usage actions
	ActionUsageFlushed = "usage.flushed"

	// Webhook actions
	ActionWebhookReceived = "webhook.received"
)

// Resource constants for audit events.
const (
	ResourceDeposit = "deposit"
	ResourceLicense = "license"
	ResourceUsage   = "usage"
	ResourceWebhook = "webhook"
)

// Category constants for audit events.
const (
	CategoryPayment     = "payment"
	CategoryLicensing   = "licensing"
	CategoryUsage       = "usage"
	CategoryIntegration = "integration"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
