package common

import (
	"github.com/google/uuid"
)

// NewID generates a unique identifier with the given entity prefix.
// Format: <prefix>_<uuid>, e.g. "company_3fa9...".
func NewID(prefix string) string {
	return prefix + "_" + uuid.New().String()
}

// NewCompanyID generates a Company identifier.
func NewCompanyID() string { return NewID("company") }

// NewJobID generates a Job identifier.
func NewJobID() string { return NewID("job") }

// NewRunID generates an identifier for any *Run record (DiscoveryRun,
// PipelineRun, MaintenanceRun, VerificationRun).
func NewRunID(kind string) string { return NewID(kind) }
