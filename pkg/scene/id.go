package scene

import (
	"crypto/sha256"
	"encoding/hex"
)

// NodeID is a content-addressed identifier derived from the path a node
// was created under.
type NodeID string

// ZeroID is the unset node id.
const ZeroID NodeID = ""

// NewNodeID hashes path into a NodeID, so the same script yields the
// same ids on every evaluation.
func NewNodeID(path string) NodeID {
	sum := sha256.Sum256([]byte(path))
	return NodeID(hex.EncodeToString(sum[:]))
}

// IsZero reports whether id is unset.
func (id NodeID) IsZero() bool { return id == ZeroID }

// Short returns the first 8 hex characters for log and error messages.
func (id NodeID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}
