package service

import (
	"strings"
	"sync"
)

// Feature is an optional backend column group that some deployments lack.
type Feature string

const (
	FeatureCoordinates     Feature = "coordinates"
	FeatureListingMetadata Feature = "listing_metadata"
	FeatureProofPhoto      Feature = "proof_photo"
)

var featureColumns = map[Feature][]string{
	FeatureCoordinates:     {"latitude", "longitude"},
	FeatureListingMetadata: {"listing_type", "condition"},
	FeatureProofPhoto:      {"proof_photo_url"},
}

// Error fragments the backend uses when a query names a column it does not
// have. Codes are PostgREST (PGRST2xx) and Postgres (42703).
var unknownColumnSignatures = []string{
	"pgrst204",
	"pgrst200",
	"42703",
	"does not exist",
	"could not find",
	"schema cache",
	"unknown column",
	"no such column",
}

// FeatureRegistry records which optional columns the backend is known to
// support. Every feature starts supported and can only be downgraded; the
// registry never checks the column again.
type FeatureRegistry struct {
	mu          sync.RWMutex
	unsupported map[Feature]bool
}

func NewFeatureRegistry() *FeatureRegistry {
	return &FeatureRegistry{
		unsupported: make(map[Feature]bool),
	}
}

func (r *FeatureRegistry) IsSupported(f Feature) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.unsupported[f]
}

// MarkUnsupported downgrades f. It reports whether this call made the
// transition, so concurrent callers can tell who logged it first.
func (r *FeatureRegistry) MarkUnsupported(f Feature) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unsupported[f] {
		return false
	}
	r.unsupported[f] = true
	return true
}

// Reset restores every feature to supported. Tests only.
func (r *FeatureRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsupported = make(map[Feature]bool)
}

// Columns returns the optional columns f guards.
func (r *FeatureRegistry) Columns(f Feature) []string {
	return featureColumns[f]
}

// SupportedColumns returns the columns of every supported feature in fs, in
// order.
func (r *FeatureRegistry) SupportedColumns(fs ...Feature) []string {
	var cols []string
	for _, f := range fs {
		if r.IsSupported(f) {
			cols = append(cols, featureColumns[f]...)
		}
	}
	return cols
}

// IsCompatibilityError reports whether errorText is the backend rejecting one
// of f's columns: the text must name the column and carry an unknown-column
// signature.
func (r *FeatureRegistry) IsCompatibilityError(errorText string, f Feature) bool {
	return IsCompatibilityError(errorText, f)
}

func IsCompatibilityError(errorText string, f Feature) bool {
	text := strings.ToLower(errorText)
	if text == "" {
		return false
	}

	mentionsColumn := false
	for _, col := range featureColumns[f] {
		if strings.Contains(text, col) {
			mentionsColumn = true
			break
		}
	}
	if !mentionsColumn {
		return false
	}

	for _, sig := range unknownColumnSignatures {
		if strings.Contains(text, sig) {
			return true
		}
	}
	return false
}
