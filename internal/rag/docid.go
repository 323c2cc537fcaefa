package rag

import (
	"crypto/sha256"
	"fmt"
)

// ChunkDocID implements spec §3/§8's deterministic chunk id: the first 16
// bytes of sha256(indexName ":" fileSHA256 ":" chunkIndex), formatted as a
// UUID. Stable across runs for the same inputs, so re-ingesting an
// unchanged file produces the same document ids (idempotent upsert).
func ChunkDocID(indexName, fileSHA256 string, chunkIndex int) string {
	input := fmt.Sprintf("%s:%s:%d", indexName, fileSHA256, chunkIndex)
	sum := sha256.Sum256([]byte(input))
	b := sum[:16]
	// RFC 4122 formatting of 16 raw bytes, without forcing a version/variant
	// bit — the spec only requires determinism and UUID shape, not a
	// specific UUID version.
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
