package recommend

import "errors"

var (
	// ErrEngineTimeout marks a single scoring engine exceeding its bound.
	// Recovered inside the ensemble whenever the other engine delivered.
	ErrEngineTimeout = errors.New("scoring engine timed out")

	// ErrEngineUnavailable means no selected engine produced results. It is
	// the only condition surfaced to callers, as an empty result set with a
	// reason code rather than a hard failure.
	ErrEngineUnavailable = errors.New("no scoring engine available")
)
