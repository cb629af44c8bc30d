package gateway

// Gateway response statuses for the direct debit sale and reconcile
// operations. PendingAsync means the outcome arrives later by callback or
// reconciliation; it is stored locally as a pending attempt.
const (
	StatusApproved     = "approved"
	StatusDeclined     = "declined"
	StatusError        = "error"
	StatusPendingAsync = "pending_async"
)

// SaleRequest is one SEPA direct debit collection submission. The
// TransactionID is generated locally before the call so timeouts can be
// resolved by reconciliation instead of blind resubmission.
type SaleRequest struct {
	TransactionID string  `json:"transaction_id"`
	IBAN          string  `json:"iban"`
	BIC           string  `json:"bic,omitempty"`
	HolderName    string  `json:"holder_name"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Descriptor    string  `json:"descriptor"`
}

// SaleResponse is the synchronous answer to a sale submission.
type SaleResponse struct {
	Status        string `json:"status"`
	CorrelationID string `json:"correlation_id"`
	RedirectURL   string `json:"redirect_url,omitempty"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message,omitempty"`
}

// ReconcileResponse is the current gateway-side state of a transaction,
// looked up by correlation id.
type ReconcileResponse struct {
	Status        string `json:"status"`
	CorrelationID string `json:"correlation_id"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message,omitempty"`
}

// ChargebackRecord is one gateway-reported chargeback.
type ChargebackRecord struct {
	CorrelationID string  `json:"correlation_id"`
	ReasonCode    string  `json:"reason_code"`
	ReasonText    string  `json:"reason_text"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	OccurredAt    string  `json:"occurred_at"`
}

// ChargebackPage is one page of the chargeback export for a date range.
type ChargebackPage struct {
	Records []ChargebackRecord `json:"records"`
	HasMore bool               `json:"has_more"`
	Next    int                `json:"next_page"`
}
