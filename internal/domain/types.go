package domain

import "strings"

// BankNode is one entry in the directory: the own bank or a partner.
type BankNode struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	LegalID     string `json:"legal_id"`
	APIEndpoint string `json:"api_endpoint,omitempty"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
}

// TransactionRequest is a card-present payment as received from a terminal
// or a partner switch. Amount is in micros. IssuerClaim is advisory only;
// the switch always recomputes the issuer from the card number.
type TransactionRequest struct {
	TransactionID       string
	IssuerClaim         string
	CardNumber          string
	CardExpiry          string
	CardCVC             string
	ReceivingBankCode   string
	ReceivingMerchantID string
	Amount              Money
}

// TransactionResult is the single terminal answer for a submission.
// ErrorCode is set iff Status is DECLINED.
type TransactionResult struct {
	Status        string    `json:"status"`
	ErrorCode     ErrorCode `json:"error_code,omitempty"`
	Message       string    `json:"message,omitempty"`
	TransactionID string    `json:"transaction_id"`
}

// Approved builds an APPROVED result echoing the transaction id.
func Approved(transactionID string) TransactionResult {
	return TransactionResult{Status: StatusApproved, TransactionID: transactionID}
}

// Declined builds a DECLINED result with a taxonomy code.
func Declined(transactionID string, code ErrorCode, message string) TransactionResult {
	return TransactionResult{
		Status:        StatusDeclined,
		ErrorCode:     code,
		Message:       message,
		TransactionID: transactionID,
	}
}

// MaskCard renders a card number safe for logs and journal rows:
// first six and last four digits, the rest starred.
func MaskCard(pan string) string {
	if len(pan) < 11 {
		return strings.Repeat("*", len(pan))
	}
	return pan[:6] + strings.Repeat("*", len(pan)-10) + pan[len(pan)-4:]
}
