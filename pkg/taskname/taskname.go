package taskname

const (
	// Payment tasks
	PaymentPixConfirm = "payment:pix:confirm"

	// Loyalty tasks
	LoyaltyExpiryRun = "loyalty:expiry:run"
)
