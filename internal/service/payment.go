// Package service implements the switch's transaction path: validation,
// issuer resolution, local settlement and partner forwarding.
package service

import (
	"context"

	"github.com/austrobank/interswitch/internal/bin"
	"github.com/austrobank/interswitch/internal/directory"
	"github.com/austrobank/interswitch/internal/domain"
	"github.com/austrobank/interswitch/internal/journal"
	"github.com/austrobank/interswitch/internal/observability"
	"go.uber.org/zap"
)

const (
	routeLocal   = "local"
	routeRemote  = "remote"
	routeInbound = "inbound"
	routeNone    = "none"
)

// PaymentService orchestrates one submission through
// RECEIVED -> VALIDATED -> ROUTED -> SETTLED_{LOCAL|REMOTE} -> RESULTED.
// Every submission ends in exactly one terminal TransactionResult; no
// request re-enters the machine.
type PaymentService struct {
	dir       *directory.Directory
	bins      *bin.Router
	validator *Validator
	local     *LocalSettlement
	remote    *RemoteDispatcher
	journal   journal.Recorder
	logger    *zap.Logger
}

// NewPaymentService wires the orchestrator.
func NewPaymentService(dir *directory.Directory, bins *bin.Router, validator *Validator, local *LocalSettlement, remote *RemoteDispatcher, recorder journal.Recorder, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		dir:       dir,
		bins:      bins,
		validator: validator,
		local:     local,
		remote:    remote,
		journal:   recorder,
		logger:    logger,
	}
}

// ProcessPayment handles a terminal submission end to end.
func (s *PaymentService) ProcessPayment(ctx context.Context, req domain.TransactionRequest) domain.TransactionResult {
	if req.TransactionID == "" {
		return s.resulted(ctx, domain.TxKindMerchantPayment, routeNone, req,
			domain.Declined("", domain.CodeValidationError, "transaction_id is required"), "")
	}

	if verr := s.validator.Validate(ctx, req); verr != nil {
		return s.resulted(ctx, domain.TxKindMerchantPayment, routeNone, req,
			domain.Declined(req.TransactionID, verr.Code, verr.Reason), "")
	}

	// The issuer is always recomputed from the card number; a client
	// claim is a hint at most.
	issuer := s.bins.ResolveIssuer(req.CardNumber)
	if req.IssuerClaim != "" && req.IssuerClaim != issuer {
		s.logger.Warn("issuer claim overridden",
			zap.String("transaction_id", req.TransactionID),
			zap.String("claimed", req.IssuerClaim),
			zap.String("computed", issuer),
			zap.String("card", domain.MaskCard(req.CardNumber)),
		)
	}

	if issuer == s.dir.OwnCode() {
		result := s.local.Settle(ctx, req)
		return s.resulted(ctx, domain.TxKindMerchantPayment, routeLocal, req, result, issuer)
	}

	node, err := s.dir.Lookup(issuer)
	if err != nil || node.Status != domain.NodeActive || node.Kind != domain.KindPartnerBank {
		return s.resulted(ctx, domain.TxKindMerchantPayment, routeNone, req,
			domain.Declined(req.TransactionID, domain.CodeUnroutableBank, "issuing bank "+issuer+" is not routable"), issuer)
	}

	result := s.local.SettleRemote(ctx, req, func(ctx context.Context) domain.TransactionResult {
		return s.remote.Forward(ctx, req, node)
	})
	return s.resulted(ctx, domain.TxKindMerchantPayment, routeRemote, req, result, issuer)
}

// AuthorizeInbound handles the issuer side of the partner protocol: a
// remote switch asks this bank to authorize a payment on one of its
// cards. The receiver is validated at the acquiring bank, so only the
// card-side checks apply here.
func (s *PaymentService) AuthorizeInbound(ctx context.Context, req domain.TransactionRequest) domain.TransactionResult {
	own := s.dir.OwnCode()
	if req.TransactionID == "" {
		return s.resulted(ctx, domain.TxKindInboundAuth, routeInbound, req,
			domain.Declined("", domain.CodeValidationError, "transaction_id is required"), own)
	}
	if verr := s.validator.ValidateCard(req); verr != nil {
		return s.resulted(ctx, domain.TxKindInboundAuth, routeInbound, req,
			domain.Declined(req.TransactionID, verr.Code, verr.Reason), own)
	}
	if issuer := s.bins.ResolveIssuer(req.CardNumber); issuer != own {
		return s.resulted(ctx, domain.TxKindInboundAuth, routeInbound, req,
			domain.Declined(req.TransactionID, domain.CodeUnroutableBank, "card was not issued by this bank"), own)
	}

	result := s.local.Authorize(ctx, req)
	return s.resulted(ctx, domain.TxKindInboundAuth, routeInbound, req, result, own)
}

// resulted is the single exit: the terminal result is journaled and
// counted before it leaves the state machine.
func (s *PaymentService) resulted(ctx context.Context, kind, route string, req domain.TransactionRequest, result domain.TransactionResult, issuer string) domain.TransactionResult {
	observability.IncrementPaymentResult(result.Status, string(result.ErrorCode), route)

	entry := journal.Entry{
		TransactionID: req.TransactionID,
		Kind:          kind,
		AmountMicros:  req.Amount.Micros(),
		IssuerCode:    issuer,
		ReceiverCode:  req.ReceivingBankCode,
		MaskedPAN:     domain.MaskCard(req.CardNumber),
		Status:        result.Status,
		ErrorCode:     result.ErrorCode,
		Message:       result.Message,
	}
	if err := s.journal.Record(ctx, entry); err != nil {
		s.logger.Warn("journal write failed",
			zap.String("transaction_id", req.TransactionID),
			zap.Error(err),
		)
	}

	s.logger.Info("transaction resulted",
		zap.String("transaction_id", req.TransactionID),
		zap.String("kind", kind),
		zap.String("route", route),
		zap.String("status", result.Status),
		zap.String("error_code", string(result.ErrorCode)),
		zap.String("card", domain.MaskCard(req.CardNumber)),
		zap.String("amount", req.Amount.String()),
	)
	return result
}
