package trie

import "github.com/google/uuid"

// Ownership is a token threaded through every mutating trie operation. A trie node created under a token may be
// mutated in place by later operations carrying the same token; under any other token it is copied first. Tokens
// compare by value and must never be shared by two states whose mutations could interleave.
type Ownership struct {
	id uuid.UUID
}

// NoOwnership is the token of pure operations: nodes created or touched with it are never mutated in place.
var NoOwnership = Ownership{}

// NewOwnership mints a fresh token, distinct from every other token.
func NewOwnership() Ownership {
	return Ownership{id: uuid.New()}
}

// IsOwner indicates whether the token may mutate a node owned by other.
func (o Ownership) IsOwner(other Ownership) bool {
	return o != NoOwnership && o == other
}

// String returns the textual form of the token.
func (o Ownership) String() string {
	if o == NoOwnership {
		return "none"
	}
	return o.id.String()
}
