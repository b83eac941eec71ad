// Package idhash derives deterministic identifiers.
package idhash

import (
	"fmt"

	"github.com/google/uuid"
)

// findingNamespace is the UUIDv5 namespace for finding identifiers.
var findingNamespace = uuid.MustParse("6f1c54a2-7d0e-5b8e-9a43-0c2f4e6d8b1a")

// ComputeFindingID computes a deterministic finding_id.
// Formula: UUIDv5(namespace, kind|block_number|evidence_key)
// Identical findings from repeated runs share the same id.
func ComputeFindingID(kind string, blockNumber uint64, evidenceKey string) string {
	data := fmt.Sprintf("%s|%d|%s", kind, blockNumber, evidenceKey)
	return uuid.NewSHA1(findingNamespace, []byte(data)).String()
}

// NewReportID returns a random report id.
func NewReportID() string {
	return uuid.NewString()
}

// NewCaseID returns a random case id.
func NewCaseID() string {
	return uuid.NewString()
}
