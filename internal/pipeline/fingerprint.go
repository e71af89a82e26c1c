package pipeline

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/pgschema/pgschema/internal/ir"
)

// Fingerprint is a content hash of a DbSchema, adapted from the teacher's
// per-schema fingerprint into one covering the whole flat model. Push
// returns one in its PushResult and compares the caller's last-known
// fingerprint with the remote's, logging a match; it does not skip
// introspection on a match.
type Fingerprint struct {
	Hash string
}

// Compute hashes schema's JSON encoding. encoding/json writes struct
// fields in declaration order and sorts map keys, so two structurally
// identical DbSchemas built from maps with different insertion order still
// hash identically.
func Compute(schema *ir.DbSchema) (Fingerprint, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("pipeline: fingerprint: %w", err)
	}
	sum := sha256.Sum256(data)
	return Fingerprint{Hash: fmt.Sprintf("%x", sum)}, nil
}

func (f Fingerprint) String() string {
	if len(f.Hash) < 8 {
		return f.Hash
	}
	return f.Hash[:8]
}

func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Hash != "" && f.Hash == other.Hash
}
