package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Record stores and transport
// clients return these (optionally wrapped) so callers can translate them
// into domain errors without inspecting driver-specific failures.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: verification request does not exist in the record source
// - ErrUnavailable: backing service (redis, postgres, broker) unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
