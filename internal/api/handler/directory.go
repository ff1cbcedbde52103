package handler

import (
	"errors"
	"net/http"

	"github.com/austrobank/interswitch/internal/api/problem"
	"github.com/austrobank/interswitch/internal/bin"
	"github.com/austrobank/interswitch/internal/directory"
	"github.com/austrobank/interswitch/internal/domain"
	"github.com/go-chi/chi/v5"
)

// DirectoryHandler exposes the administrative surface: bank registration,
// status toggles and BIN rule replacement.
type DirectoryHandler struct {
	admin *directory.Admin
	dir   *directory.Directory
	bins  *bin.Router
}

func NewDirectoryHandler(admin *directory.Admin, dir *directory.Directory, bins *bin.Router) *DirectoryHandler {
	return &DirectoryHandler{admin: admin, dir: dir, bins: bins}
}

type registerBankRequest struct {
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name" validate:"required"`
	LegalID     string `json:"legal_id" validate:"required"`
	APIEndpoint string `json:"api_endpoint" validate:"required"`
	Kind        string `json:"kind" validate:"omitempty,oneof=PARTNER_BANK EXTERNAL_MERCHANT_GATEWAY"`
}

// RegisterBank appends a partner node to the directory.
func (h *DirectoryHandler) RegisterBank(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-identity", "Authentication required")
		return
	}

	var req registerBankRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "directory/invalid-body", err.Error())
		return
	}

	node := domain.BankNode{
		Code:        req.Code,
		Name:        req.Name,
		LegalID:     req.LegalID,
		APIEndpoint: req.APIEndpoint,
		Kind:        req.Kind,
	}
	if err := h.admin.RegisterBank(node, id); err != nil {
		writeDirectoryError(w, r, err)
		return
	}

	registered, err := h.dir.Lookup(req.Code)
	if err != nil {
		RespondError(w, r, http.StatusInternalServerError, "directory/lookup-failed", "registered node not found")
		return
	}
	RespondJSON(w, http.StatusCreated, registered)
}

// ListBanks returns every node, own bank included, in registration order.
func (h *DirectoryHandler) ListBanks(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, h.dir.List())
}

type bankStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE DISABLED"`
}

// SetBankStatus enables or disables a partner node. Nodes are never
// deleted.
func (h *DirectoryHandler) SetBankStatus(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-identity", "Authentication required")
		return
	}

	var req bankStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "directory/invalid-body", err.Error())
		return
	}

	code := chi.URLParam(r, "code")
	if err := h.admin.SetBankStatus(code, req.Status, id); err != nil {
		writeDirectoryError(w, r, err)
		return
	}

	node, err := h.dir.Lookup(code)
	if err != nil {
		RespondError(w, r, http.StatusInternalServerError, "directory/lookup-failed", "updated node not found")
		return
	}
	RespondJSON(w, http.StatusOK, node)
}

type binRulesRequest struct {
	Rules []bin.Rule `json:"rules" validate:"required,dive"`
}

// ReplaceBinRules swaps the whole BIN rule set atomically.
func (h *DirectoryHandler) ReplaceBinRules(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-identity", "Authentication required")
		return
	}

	var req binRulesRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "directory/invalid-body", err.Error())
		return
	}

	if err := h.admin.ReplaceBinRules(req.Rules, id); err != nil {
		writeDirectoryError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"rules": h.bins.Rules()})
}

// ListBinRules returns the active rule set in match order.
func (h *DirectoryHandler) ListBinRules(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]interface{}{"rules": h.bins.Rules()})
}

func writeDirectoryError(w http.ResponseWriter, r *http.Request, err error) {
	var dirErr *directory.Error
	if errors.As(err, &dirErr) {
		status := http.StatusBadRequest
		switch dirErr.Code {
		case domain.CodeForbidden:
			status = http.StatusForbidden
		case domain.CodeDuplicateCode:
			status = http.StatusConflict
		}
		w.Header().Set("X-Error-Code", string(dirErr.Code))
		problem.Write(w, r, status, problem.Type("directory/"+string(dirErr.Code)), string(dirErr.Code), dirErr.Reason)
		return
	}
	if errors.Is(err, directory.ErrNotFound) {
		RespondError(w, r, http.StatusNotFound, "directory/not-found", "bank node not found")
		return
	}
	RespondError(w, r, http.StatusInternalServerError, "directory/internal", "directory operation failed")
}
