package localid

import (
	"strings"

	"github.com/google/uuid"
)

const prefix = "local-"

// New returns an identifier for a record created while the remote ledger is
// unreachable. The prefix keeps local-only rows distinguishable from
// backend-assigned ids until the next full sync replaces them.
func New() string {
	return prefix + uuid.NewString()
}

// IsLocal reports whether id was generated by New.
func IsLocal(id string) bool {
	return strings.HasPrefix(id, prefix)
}
