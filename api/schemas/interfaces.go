// api/schemas/interfaces.go
package schemas

import "context"

// BrowserSession is the capability surface the agent consumes from the
// browser layer. Exactly one session is owned by an orchestrator for the
// duration of a run and released on every exit path.
type BrowserSession interface {
	// Navigate loads the given URL and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// Observe captures a PageObservation including a fresh screenshot.
	Observe(ctx context.Context) (*PageObservation, error)
	// ExecuteScript runs the given JavaScript inside the page. A false
	// return with a nil error means the script itself reported failure.
	ExecuteScript(ctx context.Context, code string) (bool, string, error)
	// Close releases the underlying tab. Idempotent.
	Close(ctx context.Context) error
}

// OracleClient is the inference capability the agent consumes. Errors are
// classified by the implementation as transient or fatal (see
// internal/oracle) before they reach the caller.
type OracleClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}
