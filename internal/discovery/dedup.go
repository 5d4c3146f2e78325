// Package discovery implements the Discovery Orchestrator: it hydrates
// the dedup set from storage, runs the configured Discovery Sources,
// and applies the admission rule to each emission.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/atsforge/internal/interfaces"
)

// Dedup is the process-wide known-domain / known-ATS-pair set consulted
// by every Source before it does any HTTP work. Mirrors the
// mutex-guarded seen-map shape the crawler's URL queue uses, scoped to
// two maps instead of one.
type Dedup struct {
	mu      sync.Mutex
	domains map[string]bool
	ats     map[string]bool
	storage interfaces.StorageManager
}

// NewDedup builds a Dedup backed by storage for Hydrate.
func NewDedup(storage interfaces.StorageManager) *Dedup {
	return &Dedup{
		domains: make(map[string]bool),
		ats:     make(map[string]bool),
		storage: storage,
	}
}

var _ interfaces.DedupService = (*Dedup)(nil)

// Hydrate loads existing Company domains, queued DiscoveryQueue domains,
// and existing (family, identifier) pairs, so a fresh process starts
// with the same knowledge the prior run ended with.
func (d *Dedup) Hydrate(ctx context.Context) error {
	companyDomains, err := d.storage.Companies().ListDomains(ctx)
	if err != nil {
		return fmt.Errorf("hydrating dedup from companies: %w", err)
	}
	queuedDomains, err := d.storage.DiscoveryQueue().ListDomains(ctx)
	if err != nil {
		return fmt.Errorf("hydrating dedup from discovery queue: %w", err)
	}
	atsPairs, err := d.storage.Companies().ListATSPairs(ctx)
	if err != nil {
		return fmt.Errorf("hydrating dedup from ats pairs: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, dom := range companyDomains {
		d.domains[normalizeDomain(dom)] = true
	}
	for _, dom := range queuedDomains {
		d.domains[normalizeDomain(dom)] = true
	}
	for pair := range atsPairs {
		d.ats[pair] = true
	}
	return nil
}

func (d *Dedup) IsDuplicateDomain(domain string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.domains[normalizeDomain(domain)]
}

func (d *Dedup) MarkDomain(domain string) {
	if domain == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.domains[normalizeDomain(domain)] = true
}

func (d *Dedup) IsDuplicateATS(family, identifier string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ats[atsKey(family, identifier)]
}

func (d *Dedup) MarkATS(family, identifier string) {
	if family == "" || identifier == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ats[atsKey(family, identifier)] = true
}

func atsKey(family, identifier string) string {
	return strings.ToLower(family) + "|" + strings.ToLower(identifier)
}

// normalizeDomain lowercases and strips a leading "www." so
// "WWW.Example.com" and "example.com" dedupe as one.
func normalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	return strings.TrimPrefix(d, "www.")
}
