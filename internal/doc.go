// Package internal contains helper utilities that are private to shiftAuth,
// currently API key generation and encoding.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: server YAML config loading with environment overrides
//   - logging: slog logger construction
//   - rate: Redis-backed login throttling
//
// # What this package must NOT do
//
//   - Export types that appear in the public shiftAuth API.
//   - Be imported by any package outside the shiftAuth module.
package internal
