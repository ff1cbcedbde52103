// Package bin maps card number prefixes to issuing bank codes.
package bin

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	prefixPattern = regexp.MustCompile(`^\d{1,12}$`)
	codePattern   = regexp.MustCompile(`^\d{4}$`)
)

// Rule maps one card prefix to the bank that issued it.
type Rule struct {
	Prefix   string `json:"prefix"`
	BankCode string `json:"bank_code"`
}

// Router resolves the issuing bank for a card number using
// longest-prefix-match over an administratively maintained rule set.
// Unmatched numbers resolve to the own bank's code: default routing is a
// documented policy, not an error.
type Router struct {
	mu      sync.RWMutex
	rules   []Rule
	ownCode string
}

// NewRouter builds a router that falls back to ownCode.
func NewRouter(ownCode string, rules []Rule) (*Router, error) {
	r := &Router{ownCode: ownCode}
	if err := r.Replace(rules); err != nil {
		return nil, err
	}
	return r, nil
}

// ResolveIssuer returns the bank code owning the card's BIN. Pure in
// the current rule set: identical inputs always yield identical outputs.
func (r *Router) ResolveIssuer(cardNumber string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rule := range r.rules {
		if strings.HasPrefix(cardNumber, rule.Prefix) {
			return rule.BankCode
		}
	}
	return r.ownCode
}

// Rules returns a copy of the current rule set in match order.
func (r *Router) Rules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Replace swaps the whole rule set atomically. This is the only way the
// rule set changes; traffic never mutates it.
func (r *Router) Replace(rules []Rule) error {
	normalized := make([]Rule, 0, len(rules))
	seen := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		if !prefixPattern.MatchString(rule.Prefix) {
			return fmt.Errorf("invalid BIN prefix %q: must be 1-12 digits", rule.Prefix)
		}
		if !codePattern.MatchString(rule.BankCode) {
			return fmt.Errorf("invalid bank code %q for prefix %s: must be 4 digits", rule.BankCode, rule.Prefix)
		}
		if _, dup := seen[rule.Prefix]; dup {
			return fmt.Errorf("duplicate BIN prefix %q", rule.Prefix)
		}
		seen[rule.Prefix] = struct{}{}
		normalized = append(normalized, rule)
	}
	// Longest prefix first; equal lengths keep a stable lexicographic order
	// so resolution stays deterministic across replacements.
	sort.SliceStable(normalized, func(i, j int) bool {
		if len(normalized[i].Prefix) != len(normalized[j].Prefix) {
			return len(normalized[i].Prefix) > len(normalized[j].Prefix)
		}
		return normalized[i].Prefix < normalized[j].Prefix
	})

	r.mu.Lock()
	r.rules = normalized
	r.mu.Unlock()
	return nil
}

// ParseRules parses the "prefix:code,prefix:code" config syntax.
func ParseRules(raw string) ([]Rule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	rules := make([]Rule, 0, len(parts))
	for _, part := range parts {
		prefix, code, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("invalid BIN rule %q: want prefix:code", part)
		}
		rules = append(rules, Rule{Prefix: strings.TrimSpace(prefix), BankCode: strings.TrimSpace(code)})
	}
	return rules, nil
}
