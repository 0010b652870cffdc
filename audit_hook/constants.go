package audithook

// Action constants for audit events.
const (
	// Registry actions
	ActionContentRegistered = "content.registered"
	ActionPriceChanged      = "content.price_changed"
	ActionRoyaltyPaid       = "royalty.paid"

	// Access actions
	ActionAccessDenied = "access.denied"

	// Purchase actions
	ActionContentPurchased = "content.purchased"
	ActionPurchaseFailed   = "purchase.failed"
	ActionFeesWithdrawn    = "fees.withdrawn"

	// Migration actions
	ActionCustodyDebited   = "custody.debited"
	ActionCustodyCredited  = "custody.credited"
	ActionCustodyReclaimed = "custody.reclaimed"
)

// Resource constants for audit events.
const (
	ResourceContent    = "content"
	ResourceAccess     = "access"
	ResourcePurchase   = "purchase"
	ResourceWithdrawal = "withdrawal"
	ResourceReceipt    = "receipt"
)

// Category constants for audit events.
const (
	CategoryCatalog   = "catalog"
	CategoryAccess    = "access"
	CategoryPayment   = "payment"
	CategoryTreasury  = "treasury"
	CategoryMigration = "migration"
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
)
