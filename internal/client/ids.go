package client

import (
	"strings"

	"github.com/google/uuid"
)

const provisionalPrefix = "prov_"

// NewProvisionalID mints a client-local identifier for an entity that does
// not exist on the server yet. Provisional IDs stay stable for the lifetime
// of the local session; reconciliation maps them to canonical IDs without
// rewriting local references.
func NewProvisionalID() string {
	return provisionalPrefix + uuid.NewString()
}

// IsProvisionalID reports whether id was minted locally.
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, provisionalPrefix)
}
