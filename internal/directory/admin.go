package directory

import (
	"github.com/austrobank/interswitch/internal/auth"
	"github.com/austrobank/interswitch/internal/bin"
	"github.com/austrobank/interswitch/internal/domain"
	"github.com/austrobank/interswitch/internal/observability"
	"go.uber.org/zap"
)

// Admin is the privileged surface over the directory and the BIN rule
// set. Every mutation first consults the auth collaborator; field and
// uniqueness validation is delegated to Directory.Register so there is a
// single source of truth for directory invariants.
type Admin struct {
	dir    *Directory
	bins   *bin.Router
	auth   auth.Authorizer
	logger *zap.Logger
}

// NewAdmin wires the admin surface.
func NewAdmin(dir *Directory, bins *bin.Router, authorizer auth.Authorizer, logger *zap.Logger) *Admin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Admin{dir: dir, bins: bins, auth: authorizer, logger: logger}
}

// RegisterBank appends a partner node on behalf of caller.
func (a *Admin) RegisterBank(node domain.BankNode, caller auth.Identity) error {
	if !a.auth.IsAdmin(caller) {
		return &Error{Code: domain.CodeForbidden, Field: "caller", Reason: "administrative capability required"}
	}
	if node.Kind == "" {
		node.Kind = domain.KindPartnerBank
	}
	node.Status = domain.NodeActive
	if err := a.dir.Register(node); err != nil {
		return err
	}
	observability.SetDirectorySize(len(a.dir.ListActive()))
	a.logger.Info("bank node registered",
		zap.String("code", node.Code),
		zap.String("kind", node.Kind),
		zap.String("by", caller.Subject),
	)
	return nil
}

// SetBankStatus enables or disables a partner node.
func (a *Admin) SetBankStatus(code, status string, caller auth.Identity) error {
	if !a.auth.IsAdmin(caller) {
		return &Error{Code: domain.CodeForbidden, Field: "caller", Reason: "administrative capability required"}
	}
	if err := a.dir.SetStatus(code, status); err != nil {
		return err
	}
	observability.SetDirectorySize(len(a.dir.ListActive()))
	a.logger.Info("bank node status changed",
		zap.String("code", code),
		zap.String("status", status),
		zap.String("by", caller.Subject),
	)
	return nil
}

// ReplaceBinRules swaps the BIN rule set. Every target bank code must
// already exist in the directory; rules may point at disabled nodes (the
// router declines those per-request).
func (a *Admin) ReplaceBinRules(rules []bin.Rule, caller auth.Identity) error {
	if !a.auth.IsAdmin(caller) {
		return &Error{Code: domain.CodeForbidden, Field: "caller", Reason: "administrative capability required"}
	}
	for _, rule := range rules {
		if _, err := a.dir.Lookup(rule.BankCode); err != nil {
			return &Error{Code: domain.CodeInvalidFormat, Field: "bank_code", Reason: "rule targets an unknown bank code: " + rule.BankCode}
		}
	}
	if err := a.bins.Replace(rules); err != nil {
		return &Error{Code: domain.CodeInvalidFormat, Field: "rules", Reason: err.Error()}
	}
	a.logger.Info("bin rules replaced", zap.Int("rules", len(rules)), zap.String("by", caller.Subject))
	return nil
}
