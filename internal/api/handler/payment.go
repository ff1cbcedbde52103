package handler

import (
	"encoding/json"
	"net/http"

	"github.com/austrobank/interswitch/internal/domain"
	"github.com/austrobank/interswitch/internal/service"
)

// PaymentHandler exposes the terminal-facing submission route.
type PaymentHandler struct {
	svc *service.PaymentService
}

func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

type paymentRequest struct {
	TransactionID       string `json:"transaction_id"`
	IssuerBankCode      string `json:"issuer_bank_code"`
	CardNumber          string `json:"card_number"`
	CardExpiry          string `json:"card_expiry"`
	CardCVC             string `json:"card_cvc"`
	ReceivingBankCode   string `json:"receiving_bank_code"`
	ReceivingMerchantID string `json:"receiving_merchant_id"`
	Amount              string `json:"amount"`
}

func (p paymentRequest) toDomain() (domain.TransactionRequest, *domain.TransactionResult) {
	amount, err := domain.ParseMoney(p.Amount)
	if err != nil {
		declined := domain.Declined(p.TransactionID, domain.CodeValidationError, "amount must be a decimal number")
		return domain.TransactionRequest{}, &declined
	}
	return domain.TransactionRequest{
		TransactionID:       p.TransactionID,
		IssuerClaim:         p.IssuerBankCode,
		CardNumber:          p.CardNumber,
		CardExpiry:          p.CardExpiry,
		CardCVC:             p.CardCVC,
		ReceivingBankCode:   p.ReceivingBankCode,
		ReceivingMerchantID: p.ReceivingMerchantID,
		Amount:              amount,
	}, nil
}

// ProcessPayment accepts a merchant payment submission. Approved
// transactions answer 201; every decline is a 200 with the taxonomy code
// in the body. Transport-level problems (malformed JSON) are the only
// 4xx this route produces.
func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "payments/invalid-body", "Invalid request body")
		return
	}

	domainReq, declined := req.toDomain()
	if declined != nil {
		RespondJSON(w, http.StatusOK, declined)
		return
	}

	result := h.svc.ProcessPayment(r.Context(), domainReq)
	RespondJSON(w, resultStatus(result), result)
}

func resultStatus(result domain.TransactionResult) int {
	if result.Status == domain.StatusApproved {
		return http.StatusCreated
	}
	return http.StatusOK
}
