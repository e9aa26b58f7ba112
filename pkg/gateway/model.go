package gateway

import "github.com/shopspring/decimal"

type InitiateRequest struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	ReturnURL     string          `json:"return_url,omitempty"`
}

type InitiateResponse struct {
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirect_url"`
}

type VerifyRequest struct {
	TransactionID string `json:"transaction_id"`
}

// VerifyResponse carries the gateway's status string; the settlement path
// interprets "paid" as settleable and anything else as not yet payable.
type VerifyResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

const (
	StatusPaid     = "paid"
	StatusPending  = "pending"
	StatusDeclined = "declined"
)
