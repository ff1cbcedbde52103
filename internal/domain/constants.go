package domain

// Node kinds. OWN is seeded once at process start and never registered
// through the admin surface.
const (
	KindOwn             = "OWN"
	KindPartnerBank     = "PARTNER_BANK"
	KindMerchantGateway = "EXTERNAL_MERCHANT_GATEWAY"
)

// Node statuses. Nodes are never deleted; they are disabled instead so
// historical journal rows keep resolving.
const (
	NodeActive   = "ACTIVE"
	NodeDisabled = "DISABLED"
)

// Transaction result statuses.
const (
	StatusApproved = "APPROVED"
	StatusDeclined = "DECLINED"
)

// ErrorCode is the closed taxonomy surfaced to terminals and admin callers.
type ErrorCode string

const (
	CodeValidationError   ErrorCode = "VALIDATION_ERROR"
	CodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	CodeUnroutableBank    ErrorCode = "UNROUTABLE_BANK"
	CodeRemoteUnavailable ErrorCode = "REMOTE_UNAVAILABLE"
	CodeRemoteDeclined    ErrorCode = "REMOTE_DECLINED"

	CodeDuplicateCode   ErrorCode = "DUPLICATE_CODE"
	CodeInvalidFormat   ErrorCode = "INVALID_FORMAT"
	CodeInvalidEndpoint ErrorCode = "INVALID_ENDPOINT"
	CodeForbidden       ErrorCode = "FORBIDDEN"

	// CodeUnrecognizedRemote tags partner error bodies that could not be
	// parsed. It never reaches a terminal directly; the dispatcher surfaces
	// it as REMOTE_DECLINED with a generic message.
	CodeUnrecognizedRemote ErrorCode = "UNRECOGNIZED_REMOTE_ERROR"
)

// Journal entry kinds.
const (
	TxKindMerchantPayment = "MERCHANT_PAYMENT"
	TxKindInboundAuth     = "INBOUND_AUTHORIZATION"
)
