package kb

import "errors"

// Error taxonomy shared across the pipeline. Callers branch with errors.Is;
// the concrete wrapping carries operation context.
var (
	// ErrInvalidInput marks empty or unusable input rejected at the boundary.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotReady marks operations attempted before the embedder finished
	// initialization. Retrieval callers degrade to keyword-only on it.
	ErrNotReady = errors.New("embedder not ready")

	// ErrDimensionMismatch marks an upsert whose vector does not match the
	// index's configured dimension. Fatal for that chunk only.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrIndexUnavailable marks index failures that survived retries.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrGenerationFailed marks a failed text-generation call. Never surfaced
	// to end callers; the orchestrator resolves it to a fallback answer.
	ErrGenerationFailed = errors.New("generation failed")
)
