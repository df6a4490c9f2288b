package engine

import "context"

// Adapter turns a document's source into rendered markdown plus side
// artifacts for one target format. Implementations must be idempotent with
// respect to the fingerprint inputs: two calls with identical source content
// and identity-relevant options must be semantically interchangeable, since
// the freeze cache substitutes stored results for fresh executions.
//
// Cancellation honors ctx; timeouts are an adapter concern, not the
// orchestrator's.
type Adapter interface {
	Execute(ctx context.Context, root string, doc Document, format TargetFormat) (*ExecutionResult, error)
}
