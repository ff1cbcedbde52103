// Package accounts is the account-store collaborator: card and merchant
// resolution plus balance movements. The switch core only calls it through
// the Store interface so tests can run against the in-memory backend.
package accounts

import (
	"context"
	"errors"

	"github.com/austrobank/interswitch/internal/domain"
)

var (
	// ErrInsufficientFunds signals a debit larger than the available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrCardNotFound signals an unknown card number.
	ErrCardNotFound = errors.New("card not found")
	// ErrMerchantNotFound signals an unknown merchant identifier.
	ErrMerchantNotFound = errors.New("merchant not found")
	// ErrAccountNotFound signals an unknown account reference.
	ErrAccountNotFound = errors.New("account not found")
)

// SuspenseAccountRef parks issuer-side debits whose credited merchant
// lives at another bank, pending interbank settlement.
const SuspenseAccountRef = "suspense:interbank"

// Card is a card record as the issuing bank knows it.
type Card struct {
	PAN        string
	CVC        string
	Expiry     string
	AccountRef string
	Active     bool
}

// Merchant links a terminal-supplied merchant code to a settlement account.
type Merchant struct {
	ID         string
	Name       string
	AccountRef string
	Active     bool
}

// Store exposes the operations the settlement path needs. PairedTransfer
// is atomic: debit and credit commit together or not at all.
type Store interface {
	ResolveCard(ctx context.Context, pan string) (Card, error)
	ResolveMerchant(ctx context.Context, merchantID string) (Merchant, error)
	GetBalance(ctx context.Context, accountRef string) (domain.Money, error)
	PairedTransfer(ctx context.Context, fromRef, toRef string, amount domain.Money) error
	Credit(ctx context.Context, accountRef string, amount domain.Money) error
}
