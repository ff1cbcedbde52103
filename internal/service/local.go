package service

import (
	"context"
	"errors"

	"github.com/austrobank/interswitch/internal/accounts"
	"github.com/austrobank/interswitch/internal/domain"
	"github.com/austrobank/interswitch/internal/idempotency"
	"github.com/austrobank/interswitch/internal/observability"
	"go.uber.org/zap"
)

// LocalSettlement settles transactions whose card this bank issued. Every
// settlement runs under the idempotency store: a resubmitted transaction
// id replays the stored result without touching balances again, and two
// concurrent submissions with the same id serialize so only one debits.
type LocalSettlement struct {
	store   accounts.Store
	results *idempotency.Store
	logger  *zap.Logger
}

// NewLocalSettlement wires the settlement engine.
func NewLocalSettlement(store accounts.Store, results *idempotency.Store, logger *zap.Logger) *LocalSettlement {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalSettlement{store: store, results: results, logger: logger}
}

// Settle debits the cardholder and credits the receiving merchant
// atomically. Card problems decline as VALIDATION_ERROR, balance problems
// as INSUFFICIENT_FUNDS; account-store faults decline as
// REMOTE_UNAVAILABLE without consuming the transaction id.
func (s *LocalSettlement) Settle(ctx context.Context, req domain.TransactionRequest) domain.TransactionResult {
	return s.settle(ctx, req, func(ctx context.Context, card accounts.Card) error {
		merchant, err := s.store.ResolveMerchant(ctx, req.ReceivingMerchantID)
		if err != nil {
			return err
		}
		return s.store.PairedTransfer(ctx, card.AccountRef, merchant.AccountRef, req.Amount)
	})
}

// Authorize settles the issuer side of a payment forwarded by another
// switch: the cardholder is debited and the funds parked on the interbank
// suspense account until clearing.
func (s *LocalSettlement) Authorize(ctx context.Context, req domain.TransactionRequest) domain.TransactionResult {
	return s.settle(ctx, req, func(ctx context.Context, card accounts.Card) error {
		return s.store.PairedTransfer(ctx, card.AccountRef, accounts.SuspenseAccountRef, req.Amount)
	})
}

// errNotSettled marks a forward that produced no settlement outcome, so
// the transaction id must stay free for a retry.
var errNotSettled = errors.New("no settlement outcome")

// SettleRemote runs a forwarded settlement under the same idempotency key
// space as local ones: a resubmitted transaction id replays the stored
// result instead of forwarding again and paying the merchant twice. An
// unreachable partner stores nothing.
func (s *LocalSettlement) SettleRemote(ctx context.Context, req domain.TransactionRequest, forward func(context.Context) domain.TransactionResult) domain.TransactionResult {
	var unavailable domain.TransactionResult
	result, replayed, err := s.results.Do(ctx, req.TransactionID, func(ctx context.Context) (domain.TransactionResult, error) {
		res := forward(ctx)
		if res.ErrorCode == domain.CodeRemoteUnavailable {
			unavailable = res
			return domain.TransactionResult{}, errNotSettled
		}
		if res.Status == domain.StatusApproved {
			// The issuer has debited its cardholder; the acquiring-side
			// leg pays the receiving merchant. A failed posting is left
			// to reconciliation rather than reversing the authorization.
			if err := s.creditMerchant(ctx, req.ReceivingMerchantID, req.Amount); err != nil {
				s.logger.Error("merchant credit after remote approval failed",
					zap.String("transaction_id", req.TransactionID),
					zap.String("merchant_id", req.ReceivingMerchantID),
					zap.Error(err),
				)
			}
		}
		return res, nil
	})
	switch {
	case errors.Is(err, errNotSettled):
		return unavailable
	case err != nil:
		observability.IncrementIdempotencyEvent("settlement_error")
		s.logger.Error("remote settlement failed",
			zap.String("transaction_id", req.TransactionID),
			zap.Error(err),
		)
		return domain.Declined(req.TransactionID, domain.CodeRemoteUnavailable, "settlement temporarily unavailable")
	}
	if replayed {
		observability.IncrementIdempotencyEvent("replay")
		s.logger.Info("idempotent replay",
			zap.String("transaction_id", req.TransactionID),
			zap.String("status", result.Status),
		)
	} else {
		observability.IncrementIdempotencyEvent("settled")
	}
	return result
}

func (s *LocalSettlement) creditMerchant(ctx context.Context, merchantID string, amount domain.Money) error {
	merchant, err := s.store.ResolveMerchant(ctx, merchantID)
	if err != nil {
		return err
	}
	return s.store.Credit(ctx, merchant.AccountRef, amount)
}

func (s *LocalSettlement) settle(ctx context.Context, req domain.TransactionRequest, move func(context.Context, accounts.Card) error) domain.TransactionResult {
	result, replayed, err := s.results.Do(ctx, req.TransactionID, func(ctx context.Context) (domain.TransactionResult, error) {
		card, err := s.store.ResolveCard(ctx, req.CardNumber)
		if errors.Is(err, accounts.ErrCardNotFound) {
			return domain.Declined(req.TransactionID, domain.CodeValidationError, "no card matches the provided data"), nil
		}
		if err != nil {
			return domain.TransactionResult{}, err
		}
		if !card.Active {
			return domain.Declined(req.TransactionID, domain.CodeValidationError, "card is inoperative"), nil
		}
		if card.CVC != req.CardCVC {
			return domain.Declined(req.TransactionID, domain.CodeValidationError, "card security data mismatch"), nil
		}

		switch err := move(ctx, card); {
		case err == nil:
			return domain.Approved(req.TransactionID), nil
		case errors.Is(err, accounts.ErrInsufficientFunds):
			return domain.Declined(req.TransactionID, domain.CodeInsufficientFunds, "balance does not cover the amount"), nil
		default:
			return domain.TransactionResult{}, err
		}
	})
	if err != nil {
		// Account store unreachable or similar infrastructure fault: the
		// terminal still gets a definite decline, and the id stays free
		// for a later retry because nothing was stored.
		observability.IncrementIdempotencyEvent("settlement_error")
		s.logger.Error("local settlement failed",
			zap.String("transaction_id", req.TransactionID),
			zap.String("card", domain.MaskCard(req.CardNumber)),
			zap.Error(err),
		)
		return domain.Declined(req.TransactionID, domain.CodeRemoteUnavailable, "settlement temporarily unavailable")
	}
	if replayed {
		observability.IncrementIdempotencyEvent("replay")
		s.logger.Info("idempotent replay",
			zap.String("transaction_id", req.TransactionID),
			zap.String("status", result.Status),
		)
	} else {
		observability.IncrementIdempotencyEvent("settled")
	}
	return result
}
