// Package domain holds the data types shared across the erasure-coding
// pipeline, the metadata vault, and the orchestrator.
package domain

// RedactedKey is the sentinel value substituted for EncryptionKey in any
// externally visible rendering of a Manifest.
const RedactedKey = "[redacted]"

// Manifest is the full record produced at the end of a successful upload.
// It is never persisted in this shape — only its sealed (authenticated
// encrypted) serialization ever reaches disk.
type Manifest struct {
	Filename       string         `json:"filename"`
	FileHash       string         `json:"file_hash"`
	FileSize       int64          `json:"file_size"`
	EncryptionKey  string         `json:"encryption_key"`
	KRequired      int            `json:"k_required"`
	MTotal         int            `json:"m_total"`
	ShardMetadata  map[int]string `json:"shard_metadata"`
	UploadDate     string         `json:"upload_date"`
	ShardLocations map[int]string `json:"shard_locations"`
}

// PublicSummary is the redacted, list-safe projection of a Manifest.
// It never carries EncryptionKey or per-shard hashes.
type PublicSummary struct {
	Filename        string `json:"filename"`
	FileHashPrefix  string `json:"file_hash_prefix"`
	FileSize        int64  `json:"file_size"`
	UploadDate      string `json:"upload_date"`
	KRequired       int    `json:"k_required"`
	MTotal          int    `json:"m_total"`
}

const fileHashPrefixLen = 12

// ViewPublic returns the redacted view of m suitable for any external
// interface (gateway responses, list endpoints, logs).
func ViewPublic(m Manifest) PublicSummary {
	prefix := m.FileHash
	if len(prefix) > fileHashPrefixLen {
		prefix = prefix[:fileHashPrefixLen]
	}
	return PublicSummary{
		Filename:       m.Filename,
		FileHashPrefix: prefix,
		FileSize:       m.FileSize,
		UploadDate:     m.UploadDate,
		KRequired:      m.KRequired,
		MTotal:         m.MTotal,
	}
}

// Redacted returns a copy of m with EncryptionKey replaced by the
// sentinel, for rendering a full Manifest across a component boundary
// that isn't allowed to see the key. The gateway's /metadata/{filename}
// route does not use it: that route serves the ViewPublic summary, so
// shard hashes and shard locations are not part of its response.
func Redacted(m Manifest) Manifest {
	clone := m
	clone.EncryptionKey = RedactedKey
	clone.ShardMetadata = cloneIntStringMap(m.ShardMetadata)
	clone.ShardLocations = cloneIntStringMap(m.ShardLocations)
	return clone
}

// UseInternal returns m unmodified. It exists only so call sites make the
// trust boundary explicit: UseInternal(m) vs Redacted(m).
func UseInternal(m Manifest) Manifest {
	return m
}

func cloneIntStringMap(src map[int]string) map[int]string {
	if src == nil {
		return nil
	}
	dst := make(map[int]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
