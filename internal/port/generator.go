package port

import "context"

// GenerateResult carries generated text plus token accounting.
type GenerateResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Generator is the external text-generation capability. Fails with
// domain.ErrNotConfigured when no credential is present and
// domain.ErrUpstreamUnavailable for transient provider failures.
type Generator interface {
	Generate(ctx context.Context, system, user string, maxTokens int) (GenerateResult, error)

	// Ping verifies the provider is reachable and the credential is
	// valid without running inference.
	Ping(ctx context.Context) error

	// Configured reports whether a usable credential is present. It
	// never touches the network.
	Configured() bool

	ModelName() string
}
