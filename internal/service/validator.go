package service

import (
	"context"
	"fmt"
	"time"

	"github.com/austrobank/interswitch/internal/accounts"
	"github.com/austrobank/interswitch/internal/directory"
	"github.com/austrobank/interswitch/internal/domain"
)

// ValidationError reports the first failed check with its field, a
// human-readable reason and the taxonomy code it maps to.
type ValidationError struct {
	Field  string
	Reason string
	Code   domain.ErrorCode
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validator checks an inbound transaction request before any network or
// balance effect occurs. Checks run in a fixed order and the first
// failure wins, so error reporting is deterministic. Read-only against
// the directory and the account store.
type Validator struct {
	dir   *directory.Directory
	store accounts.Store
	now   func() time.Time
}

// NewValidator builds a validator against the given collaborators.
func NewValidator(dir *directory.Directory, store accounts.Store) *Validator {
	return &Validator{dir: dir, store: store, now: time.Now}
}

// Validate runs the full check sequence: amount, card number, expiry,
// CVC, then receiver resolution.
func (v *Validator) Validate(ctx context.Context, req domain.TransactionRequest) *ValidationError {
	if verr := v.ValidateCard(req); verr != nil {
		return verr
	}
	return v.validateReceiver(ctx, req)
}

// ValidateCard runs the card-and-amount checks only (steps that also
// apply to inbound authorizations, where the receiver lives at the
// acquiring bank).
func (v *Validator) ValidateCard(req domain.TransactionRequest) *ValidationError {
	if req.Amount <= 0 {
		return &ValidationError{Field: "amount", Reason: "amount must be a positive number", Code: domain.CodeValidationError}
	}
	// Sub-cent fractions cannot cross the forwarding protocol intact, so
	// they are rejected up front instead of truncated on the wire.
	if !req.Amount.WholeCents() {
		return &ValidationError{Field: "amount", Reason: "amount cannot be finer than two decimal places", Code: domain.CodeValidationError}
	}
	if !digitsOnly(req.CardNumber) || len(req.CardNumber) < 13 || len(req.CardNumber) > 19 {
		return &ValidationError{Field: "card_number", Reason: "card number must be 13-19 digits", Code: domain.CodeValidationError}
	}
	if !v.expiryValid(req.CardExpiry) {
		return &ValidationError{Field: "card_expiry", Reason: "expiry must be MM/YY and not in the past", Code: domain.CodeValidationError}
	}
	if !digitsOnly(req.CardCVC) || len(req.CardCVC) < 3 || len(req.CardCVC) > 4 {
		return &ValidationError{Field: "card_cvc", Reason: "cvc must be 3-4 digits", Code: domain.CodeValidationError}
	}
	return nil
}

func (v *Validator) validateReceiver(ctx context.Context, req domain.TransactionRequest) *ValidationError {
	node, err := v.dir.Lookup(req.ReceivingBankCode)
	if err != nil || node.Status != domain.NodeActive {
		return &ValidationError{Field: "receiving_bank_code", Reason: "receiving bank is not an active directory node", Code: domain.CodeUnroutableBank}
	}
	merchant, err := v.store.ResolveMerchant(ctx, req.ReceivingMerchantID)
	if err != nil || !merchant.Active {
		return &ValidationError{Field: "receiving_merchant_id", Reason: "merchant is not affiliated for acquiring", Code: domain.CodeUnroutableBank}
	}
	return nil
}

// expiryValid accepts MM/YY and treats the card as valid through the last
// day of the expiry month, server clock.
func (v *Validator) expiryValid(expiry string) bool {
	t, err := time.Parse("01/06", expiry)
	if err != nil {
		return false
	}
	endOfMonth := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return v.now().UTC().Before(endOfMonth)
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
