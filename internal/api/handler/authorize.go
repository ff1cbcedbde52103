package handler

import (
	"encoding/json"
	"net/http"

	"github.com/austrobank/interswitch/internal/domain"
	"github.com/austrobank/interswitch/internal/service"
)

// AuthorizeHandler is the issuer side of the forwarding protocol: partner
// switches call it when one of our cards is used on their network.
type AuthorizeHandler struct {
	svc *service.PaymentService
}

func NewAuthorizeHandler(svc *service.PaymentService) *AuthorizeHandler {
	return &AuthorizeHandler{svc: svc}
}

// Authorize settles an inbound authorization against the cardholder's
// account and the interbank suspense account. The response shape mirrors
// the payment route so both sides parse each other symmetrically.
func (h *AuthorizeHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	var payload service.ForwardPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondError(w, r, http.StatusBadRequest, "authorize/invalid-body", "Invalid request body")
		return
	}

	amount, err := domain.ParseMoney(payload.Amount)
	if err != nil {
		RespondJSON(w, http.StatusOK, domain.Declined(payload.TransactionID, domain.CodeValidationError, "amount must be a decimal number"))
		return
	}

	result := h.svc.AuthorizeInbound(r.Context(), domain.TransactionRequest{
		TransactionID:       payload.TransactionID,
		IssuerClaim:         payload.IssuerBankCode,
		CardNumber:          payload.CardNumber,
		CardExpiry:          payload.CardExpiry,
		CardCVC:             payload.CardCVC,
		ReceivingBankCode:   payload.ReceivingBankCode,
		ReceivingMerchantID: payload.ReceivingMerchantID,
		Amount:              amount,
	})
	RespondJSON(w, resultStatus(result), result)
}
