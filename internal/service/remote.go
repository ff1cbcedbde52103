package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/austrobank/interswitch/internal/domain"
	"github.com/austrobank/interswitch/internal/observability"
	"go.uber.org/zap"
)

// ForwardPath is the issuer-authorization route every partner switch
// exposes under its registered endpoint.
const ForwardPath = "/v1/authorize"

const maxRemoteBody = 1 << 20

// ForwardPayload is the partner forwarding protocol: the inbound
// submission shape with the transaction id preserved verbatim so the
// partner can apply the same idempotency rule.
type ForwardPayload struct {
	TransactionID       string `json:"transaction_id"`
	IssuerBankCode      string `json:"issuer_bank_code"`
	CardNumber          string `json:"card_number"`
	CardExpiry          string `json:"card_expiry"`
	CardCVC             string `json:"card_cvc"`
	ReceivingBankCode   string `json:"receiving_bank_code"`
	ReceivingMerchantID string `json:"receiving_merchant_id"`
	Amount              string `json:"amount"`
}

// remoteKind tags how a partner response was understood. The variant set
// is closed: anything unparseable becomes kindUnrecognized rather than
// flowing through untyped.
type remoteKind int

const (
	kindApproved remoteKind = iota
	kindDeclined
	kindUnrecognized
)

type remoteReply struct {
	kind          remoteKind
	code          domain.ErrorCode
	message       string
	transactionID string
}

// RemoteDispatcher forwards transactions to partner switches. Each call
// is bounded by a timeout and never retried here: blind retry of a
// payment is unsafe without confirmed non-settlement, so retry policy
// belongs to the terminal.
type RemoteDispatcher struct {
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewRemoteDispatcher builds a dispatcher with a per-call timeout.
func NewRemoteDispatcher(timeout time.Duration, logger *zap.Logger) *RemoteDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteDispatcher{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// Forward serializes the request to the partner node's endpoint and
// interprets its answer. Transport failures and timeouts decline as
// REMOTE_UNAVAILABLE; explicit partner declines as REMOTE_DECLINED. The
// caller always receives a terminal result within the timeout window.
func (d *RemoteDispatcher) Forward(ctx context.Context, req domain.TransactionRequest, node domain.BankNode) domain.TransactionResult {
	start := time.Now()
	result := d.forward(ctx, req, node)

	outcome := "approved"
	if result.Status == domain.StatusDeclined {
		outcome = strings.ToLower(string(result.ErrorCode))
	}
	observability.ObserveForward(node.Code, outcome, time.Since(start))
	return result
}

func (d *RemoteDispatcher) forward(ctx context.Context, req domain.TransactionRequest, node domain.BankNode) domain.TransactionResult {
	payload := ForwardPayload{
		TransactionID:       req.TransactionID,
		IssuerBankCode:      node.Code,
		CardNumber:          req.CardNumber,
		CardExpiry:          req.CardExpiry,
		CardCVC:             req.CardCVC,
		ReceivingBankCode:   req.ReceivingBankCode,
		ReceivingMerchantID: req.ReceivingMerchantID,
		Amount:              req.Amount.String(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Declined(req.TransactionID, domain.CodeRemoteUnavailable, "could not build partner request")
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	url := strings.TrimRight(node.APIEndpoint, "/") + ForwardPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.Declined(req.TransactionID, domain.CodeRemoteUnavailable, "could not build partner request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		d.logger.Warn("partner unreachable",
			zap.String("bank_code", node.Code),
			zap.String("transaction_id", req.TransactionID),
			zap.Error(err),
		)
		return domain.Declined(req.TransactionID, domain.CodeRemoteUnavailable, fmt.Sprintf("no connection with bank %s", node.Code))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBody))
	if err != nil {
		return domain.Declined(req.TransactionID, domain.CodeRemoteUnavailable, fmt.Sprintf("no connection with bank %s", node.Code))
	}

	reply := parseRemoteReply(resp.StatusCode, raw)
	switch reply.kind {
	case kindApproved:
		if reply.transactionID != "" && reply.transactionID != req.TransactionID {
			// The answer cannot be attributed to this request; "declined,
			// retry later" is the only safe terminal result.
			d.logger.Warn("partner echoed a different transaction id",
				zap.String("bank_code", node.Code),
				zap.String("sent", req.TransactionID),
				zap.String("echoed", reply.transactionID),
			)
			return domain.Declined(req.TransactionID, domain.CodeRemoteUnavailable, "partner response did not match the request")
		}
		return domain.Approved(req.TransactionID)
	case kindDeclined:
		code := domain.CodeRemoteDeclined
		// Whitelisted partner code that keeps its meaning locally.
		if reply.code == domain.CodeInsufficientFunds {
			code = domain.CodeInsufficientFunds
		}
		return domain.Declined(req.TransactionID, code, reply.message)
	default:
		d.logger.Warn("unrecognized partner error body",
			zap.String("bank_code", node.Code),
			zap.Int("http_status", resp.StatusCode),
			zap.String("variant", string(domain.CodeUnrecognizedRemote)),
		)
		return domain.Declined(req.TransactionID, domain.CodeRemoteDeclined, "issuer bank rejected the transaction")
	}
}

// parseRemoteReply folds a partner HTTP answer into the closed variant
// set. Two body shapes are understood: the result shape this switch emits
// and the {"error":{"code","message"}} envelope legacy nodes send.
func parseRemoteReply(httpStatus int, raw []byte) remoteReply {
	var result struct {
		Status        string `json:"status"`
		ErrorCode     string `json:"error_code"`
		Message       string `json:"message"`
		TransactionID string `json:"transaction_id"`
	}
	if err := json.Unmarshal(raw, &result); err == nil && result.Status != "" {
		if result.Status == domain.StatusApproved && httpStatus >= 200 && httpStatus < 300 {
			return remoteReply{kind: kindApproved, transactionID: result.TransactionID}
		}
		if result.Status == domain.StatusDeclined {
			msg := result.Message
			if msg == "" {
				msg = "declined by issuer bank"
			}
			return remoteReply{kind: kindDeclined, code: domain.ErrorCode(result.ErrorCode), message: msg, transactionID: result.TransactionID}
		}
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		return remoteReply{kind: kindDeclined, code: domain.ErrorCode(envelope.Error.Code), message: envelope.Error.Message}
	}

	if httpStatus >= 200 && httpStatus < 300 && len(bytes.TrimSpace(raw)) == 0 {
		// Bare 2xx with no body: legacy approval.
		return remoteReply{kind: kindApproved}
	}
	return remoteReply{kind: kindUnrecognized, code: domain.CodeUnrecognizedRemote}
}
