// Package session keeps each session's state whitelist for the lifetime of
// the session. Nothing here is durable beyond the session TTL.
package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/sells-group/geotarget/internal/region"
)

// Store persists one Whitelist per session id. Concurrent writers for the
// same session are not serialized; a reader may observe a stale whitelist.
type Store interface {
	// Get returns the session's whitelist, empty when none was set.
	Get(ctx context.Context, id string) (region.Whitelist, error)
	// Replace validates codes and swaps the whitelist wholesale. On a
	// *region.InvalidCodesError the stored whitelist is left unchanged.
	Replace(ctx context.Context, id string, codes []string) (region.Whitelist, error)
	// Clear empties the whitelist.
	Clear(ctx context.Context, id string) (region.Whitelist, error)
}

// NewID mints a new session id.
func NewID() string {
	return uuid.NewString()
}
