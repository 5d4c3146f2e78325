package interfaces

import (
	"context"

	"github.com/ternarybob/atsforge/internal/models"
)

// DiscoverySource is the async-iterator contract every producer
// implements. Discover streams DiscoveredCompany values onto the
// returned channel and closes it when the source is exhausted or ctx is
// cancelled; Initialize/Cleanup bracket the source's lifetime.
type DiscoverySource interface {
	Name() string
	Initialize(ctx context.Context) error
	Discover(ctx context.Context, dedup DedupService) (<-chan models.DiscoveredCompany, error)
	Cleanup(ctx context.Context) error
	// Progress reports (current, total) for run telemetry; total is -1
	// when the source cannot estimate an upper bound.
	Progress() (current, total int)
}

// DedupService is the process-wide, append-only set of known domains and
// (family, identifier) pairs consulted before any Source emits. Domain
// comparisons are case-insensitive and ignore a leading "www.".
type DedupService interface {
	// IsDuplicateDomain reports whether domain is already known —
	// either an existing Company or a previously-emitted domain this
	// run.
	IsDuplicateDomain(domain string) bool
	// MarkDomain records domain as known immediately, before any insert
	// commits, to prevent intra-run duplication across parallel sources.
	MarkDomain(domain string)
	// IsDuplicateATS reports whether (family, identifier) is already
	// associated with a Company.
	IsDuplicateATS(family, identifier string) bool
	// MarkATS records (family, identifier) as known.
	MarkATS(family, identifier string)
	// Hydrate loads existing Company domains, queued domains, and
	// (family, identifier) pairs from storage. The discovery
	// Orchestrator calls it at the start of every RunSources.
	Hydrate(ctx context.Context) error
}

// OperationRegistry guards mutual exclusion between concurrently
// requested operations keyed by string. Distinct keys (e.g.
// "crawl_greenhouse" vs "crawl_lever") may run concurrently.
type OperationRegistry interface {
	// Start attempts to mark key as running. It returns false if key is
	// already live.
	Start(key string) bool
	// End releases key. Any End call frees a live key, whether or not
	// the caller's own Start succeeded.
	End(key string)
	// IsRunning reports whether key is currently live.
	IsRunning(key string) bool
}
