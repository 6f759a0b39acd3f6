package trace

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeTraceHash computes the deterministic hash of a canonical trace
// encoding (sha256, hex-encoded).
//
// The input must already be canonical, e.g. from GenerationTrace.CanonicalJSON.
// Empty input hashes to "".
func ComputeTraceHash(canonicalEncoding []byte) string {
	if len(canonicalEncoding) == 0 {
		return ""
	}
	return Digest(canonicalEncoding)
}

// Digest is the hex sha256 of data. Used for generated outputs so a trace
// pins the exact bytes that were written.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
