// Package directory holds the authoritative registry of bank nodes the
// switch routes against: the own bank plus every registered partner.
package directory

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sync"

	"github.com/austrobank/interswitch/internal/domain"
)

// ErrNotFound is returned by Lookup for unknown bank codes.
var ErrNotFound = errors.New("bank node not found")

var (
	codePattern  = regexp.MustCompile(`^\d{4}$`)
	legalPattern = regexp.MustCompile(`^[A-Z]-\d+-\d$`)
)

// Error is a field-level directory violation carrying a taxonomy code.
type Error struct {
	Code   domain.ErrorCode
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Reason, e.Field)
}

// Directory is the in-memory registry backed by an optional persistence
// store. Reads run concurrently; Register and SetStatus are exclusive and
// readers observe either the pre- or post-mutation directory, never a
// partial record.
type Directory struct {
	mu    sync.RWMutex
	nodes map[string]domain.BankNode
	order []string
	own   string
	store Store
}

// New seeds the own-bank record, replays persisted partner nodes from the
// store and returns the ready directory. The own record is immutable for
// the life of the process.
func New(own domain.BankNode, store Store) (*Directory, error) {
	if !codePattern.MatchString(own.Code) {
		return nil, fmt.Errorf("own bank code %q is not a 4-digit code", own.Code)
	}
	if !legalPattern.MatchString(own.LegalID) {
		return nil, fmt.Errorf("own bank legal id %q does not match the RIF pattern", own.LegalID)
	}
	own.Kind = domain.KindOwn
	own.Status = domain.NodeActive

	d := &Directory{
		nodes: map[string]domain.BankNode{own.Code: own},
		order: []string{own.Code},
		own:   own.Code,
		store: store,
	}

	if store != nil {
		persisted, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("load directory: %w", err)
		}
		for _, node := range persisted {
			if node.Code == own.Code {
				continue
			}
			if _, dup := d.nodes[node.Code]; dup {
				return nil, fmt.Errorf("persisted directory has duplicate code %s", node.Code)
			}
			d.nodes[node.Code] = node
			d.order = append(d.order, node.Code)
		}
	}
	return d, nil
}

// OwnCode returns the seeded own-bank code.
func (d *Directory) OwnCode() string {
	return d.own
}

// Lookup returns the node registered under code or ErrNotFound.
func (d *Directory) Lookup(code string) (domain.BankNode, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	node, ok := d.nodes[code]
	if !ok {
		return domain.BankNode{}, ErrNotFound
	}
	return node, nil
}

// ListActive returns the ACTIVE nodes in insertion order.
func (d *Directory) ListActive() []domain.BankNode {
	d.mu.RLock()
	defer d.mu.RUnlock()
	active := make([]domain.BankNode, 0, len(d.order))
	for _, code := range d.order {
		if node := d.nodes[code]; node.Status == domain.NodeActive {
			active = append(active, node)
		}
	}
	return active
}

// List returns every node, disabled ones included, in insertion order.
func (d *Directory) List() []domain.BankNode {
	d.mu.RLock()
	defer d.mu.RUnlock()
	all := make([]domain.BankNode, 0, len(d.order))
	for _, code := range d.order {
		all = append(all, d.nodes[code])
	}
	return all
}

// Register validates and appends a node. The new node is visible to
// Lookup and routing as soon as Register returns.
func (d *Directory) Register(node domain.BankNode) error {
	if err := validate(node); err != nil {
		return err
	}
	if node.Status == "" {
		node.Status = domain.NodeActive
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := d.nodes[node.Code]; dup {
		return &Error{Code: domain.CodeDuplicateCode, Field: "code", Reason: "bank code already registered"}
	}
	if d.store != nil {
		if err := d.store.Append(node); err != nil {
			return fmt.Errorf("persist bank node %s: %w", node.Code, err)
		}
	}
	d.nodes[node.Code] = node
	d.order = append(d.order, node.Code)
	return nil
}

// SetStatus flips a node between ACTIVE and DISABLED. The own-bank record
// cannot be touched; nodes are never removed.
func (d *Directory) SetStatus(code, status string) error {
	if status != domain.NodeActive && status != domain.NodeDisabled {
		return &Error{Code: domain.CodeInvalidFormat, Field: "status", Reason: "status must be ACTIVE or DISABLED"}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	node, ok := d.nodes[code]
	if !ok {
		return ErrNotFound
	}
	if code == d.own {
		return &Error{Code: domain.CodeForbidden, Field: "code", Reason: "own bank record is immutable"}
	}
	if node.Status == status {
		return nil
	}
	if d.store != nil {
		if err := d.store.UpdateStatus(code, status); err != nil {
			return fmt.Errorf("persist status of %s: %w", code, err)
		}
	}
	node.Status = status
	d.nodes[code] = node
	return nil
}

func validate(node domain.BankNode) error {
	if node.Kind == domain.KindOwn {
		return &Error{Code: domain.CodeInvalidFormat, Field: "kind", Reason: "own bank is seeded at startup and cannot be registered"}
	}
	if node.Kind != domain.KindPartnerBank && node.Kind != domain.KindMerchantGateway {
		return &Error{Code: domain.CodeInvalidFormat, Field: "kind", Reason: "unknown node kind"}
	}
	if !codePattern.MatchString(node.Code) {
		return &Error{Code: domain.CodeInvalidFormat, Field: "code", Reason: "code must be exactly 4 digits"}
	}
	if !legalPattern.MatchString(node.LegalID) {
		return &Error{Code: domain.CodeInvalidFormat, Field: "legal_id", Reason: "legal id must match the RIF pattern (e.g. J-12345678-9)"}
	}
	if !validEndpoint(node.APIEndpoint) {
		return &Error{Code: domain.CodeInvalidEndpoint, Field: "api_endpoint", Reason: "api endpoint must be an absolute http(s) URL"}
	}
	return nil
}

func validEndpoint(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
