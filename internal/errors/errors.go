// Package errors defines the flat error taxonomy used across the
// erasure-coding pipeline and the orchestrator: a handful of sentinels
// for errors.Is, plus a few wrapper types for the cases that carry a
// payload (a shard id, a failure count).
package errors

import (
	"errors"
	"fmt"
)

// Engine errors (crypto-erasure pipeline, spec.md §4.1).
var (
	ErrCrypto             = errors.New("cryptographic operation failed")
	ErrCode               = errors.New("erasure coding operation failed")
	ErrEmptyFile          = errors.New("cannot upload empty file")
	ErrInsufficientShards = errors.New("insufficient shards available for reconstruction")
)

// Vault errors (spec.md §4.3).
var (
	ErrNoMasterKey = errors.New("MASTER_VAULT_KEY is unset or not a valid Fernet key")
	ErrVaultSchema = errors.New("sealed manifest does not match the manifest schema")
)

// Orchestrator / configuration errors (spec.md §7).
var (
	ErrConfiguration  = errors.New("invalid configuration")
	ErrUnknownFile    = errors.New("no manifest exists for this filename")
	ErrNodeUnavailable = errors.New("insufficient nodes online for this operation")
)

// Tampered indicates a verified integrity failure: a shard hash
// mismatch, an authenticated-decryption failure, or a whole-file hash
// mismatch. ShardID is -1 for whole-file tamper detection.
type Tampered struct {
	ShardID int
	Reason  string
}

func (t *Tampered) Error() string {
	if t.ShardID < 0 {
		return fmt.Sprintf("tamper detected: %s", t.Reason)
	}
	return fmt.Sprintf("tamper detected on shard %d: %s", t.ShardID, t.Reason)
}

// IsWholeFile reports whether this Tampered error was raised for the
// reconstructed plaintext/ciphertext rather than a single shard.
func (t *Tampered) IsWholeFile() bool { return t.ShardID < 0 }

// NewShardTampered builds a Tampered error for a specific shard.
func NewShardTampered(shardID int, reason string) *Tampered {
	return &Tampered{ShardID: shardID, Reason: reason}
}

// NewWholeFileTampered builds a Tampered error not attributable to a
// single shard (decryption failure or whole-file hash mismatch).
func NewWholeFileTampered(reason string) *Tampered {
	return &Tampered{ShardID: -1, Reason: reason}
}

// UploadFailed reports that Count of the m shard uploads failed and
// that a rollback of every accepted shard has already run.
type UploadFailed struct {
	Count int
}

func (e *UploadFailed) Error() string {
	return fmt.Sprintf("upload failed: %d shard(s) rejected, rollback complete", e.Count)
}

// ManifestPersistFailed reports that all m shards were accepted but
// the sealed manifest could not be written, and that a rollback of
// every accepted shard has already run.
type ManifestPersistFailed struct {
	Cause error
}

func (e *ManifestPersistFailed) Error() string {
	return fmt.Sprintf("manifest persist failed, rollback complete: %v", e.Cause)
}

func (e *ManifestPersistFailed) Unwrap() error { return e.Cause }

// Unavailable reports that fewer than KRequired shards answered
// successfully at download time.
type Unavailable struct {
	Have int
	Need int
}

func (e *Unavailable) Error() string {
	return fmt.Sprintf("unavailable: have %d shards, need %d", e.Have, e.Need)
}

// FetchingResourceError generates a formatted error for a failed fetch
// of a resource by id, matching the shape the rest of the pack uses for
// ad hoc wrapped errors.
func FetchingResourceError(resource string) error {
	return fmt.Errorf("failed to fetch %s by id", resource)
}

// ConfigNotSetError reports a missing required environment variable.
func ConfigNotSetError(name string) error {
	return fmt.Errorf("%w: the %s environment variable must be set", ErrConfiguration, name)
}
