// Package engine implements the encrypt-then-shard / verify-then-
// reconstruct-then-decrypt pipeline. It is a pure, stateless-per-call
// transformation: no per-file key is ever held as a struct field
// (spec.md §9, "the source's engine ... mutates its own per-file key
// between operations" — resolved here by making the key an output of
// EncryptAndShard, never engine state), and no plaintext or key ever
// leaves through a return value other than the ones callers must see.
//
// Grounded on internal/service/erasure_coding_service.go (the
// klauspost/reedsolomon Split/Encode/Reconstruct/Join calls and the
// per-shard hashing loop), generalized from CRC64 to SHA-256 and from
// an unencrypted ciphertext-is-the-plaintext model to Fernet
// encryption preceding the split, per spec.md §3 and §4.1.
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/fernet/fernet-go"
	"github.com/klauspost/reedsolomon"

	apperr "github.com/zzenonn/cryptoshard/internal/errors"
)

// Result is the full output of EncryptAndShard.
type Result struct {
	Shards        [][]byte
	ShardHashes   map[int]string // shard_id -> hex(sha256(shard))
	PerFileKey    string         // urlsafe-base64 Fernet key, caller-owned
	WholeFileHash string         // hex(sha256(plaintext))
}

// EncryptAndShard implements spec.md §4.1 encrypt_and_shard:
//  1. generate a fresh per-file key
//  2. hash the plaintext
//  3. Fernet-encrypt the plaintext (this MUST precede sharding)
//  4. split the ciphertext into m systematic-MDS shards, any k of
//     which reconstruct it
//  5. hash every shard
func EncryptAndShard(plaintext []byte, k, m int) (Result, error) {
	if len(plaintext) == 0 {
		return Result{}, apperr.ErrEmptyFile
	}
	if k < 1 || k > m {
		return Result{}, fmt.Errorf("%w: k=%d m=%d violates 1<=k<=m", apperr.ErrConfiguration, k, m)
	}

	key := new(fernet.Key)
	if err := key.Generate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", apperr.ErrCrypto, err)
	}

	wholeFileHash := sha256.Sum256(plaintext)

	ciphertext, err := fernet.EncryptAndSign(plaintext, key)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", apperr.ErrCrypto, err)
	}

	// Ordering invariant (spec.md §3 invariant 5, §8 property 6): the
	// coder only ever sees ciphertext, never plaintext. Proven by
	// construction here, not just by convention.

	parityShards := m - k
	enc, err := reedsolomon.New(k, parityShards)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", apperr.ErrCode, err)
	}

	shards, err := enc.Split(ciphertext)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", apperr.ErrCode, err)
	}
	if err := enc.Encode(shards); err != nil {
		return Result{}, fmt.Errorf("%w: %v", apperr.ErrCode, err)
	}

	hashes := make(map[int]string, len(shards))
	for i, shard := range shards {
		hashes[i] = hashHex(shard)
	}

	return Result{
		Shards:        shards,
		ShardHashes:   hashes,
		PerFileKey:    key.Encode(),
		WholeFileHash: hashHex(wholeFileHash[:]),
	}, nil
}

// RecoverAndDecrypt implements spec.md §4.1 recover_and_decrypt.
// Integrity verification is mandatory: every supplied shard is
// checked against shardHashes before any reconstruction is attempted,
// and the whole-file hash is checked after decryption. No partial or
// best-effort result is ever returned on a tamper detection — callers
// get an error, never truncated/garbage bytes.
func RecoverAndDecrypt(
	shardBytes [][]byte,
	shardIDs []int,
	shardHashes map[int]string,
	perFileKey string,
	expectedWholeFileHash string,
	expectedSize int64,
	k, m int,
) ([]byte, error) {
	if len(shardBytes) != len(shardIDs) || len(shardBytes) < k {
		return nil, apperr.ErrInsufficientShards
	}

	for i, id := range shardIDs {
		want, ok := shardHashes[id]
		if !ok {
			return nil, apperr.NewShardTampered(id, "no expected hash recorded for this shard id")
		}
		got := hashHex(shardBytes[i])
		if got != want {
			return nil, apperr.NewShardTampered(id, "sha256 mismatch")
		}
	}

	parityShards := m - k
	enc, err := reedsolomon.New(k, parityShards)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrCode, err)
	}

	reconstructShards := make([][]byte, m)
	for i, id := range shardIDs {
		if id < 0 || id >= m {
			continue
		}
		reconstructShards[id] = shardBytes[i]
	}
	if err := enc.Reconstruct(reconstructShards); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrCode, err)
	}

	padded, err := joinShards(enc, reconstructShards, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrCode, err)
	}

	key, err := fernet.DecodeKeys(perFileKey)
	if err != nil || len(key) == 0 {
		return nil, apperr.NewWholeFileTampered("malformed per-file key")
	}

	// The erasure coder pads ciphertext up to a multiple of k bytes
	// before splitting (spec.md §4.1 step 5); the manifest's file_size
	// is the post-decrypt plaintext length and says nothing about the
	// padded ciphertext length, so the exact number of pad bytes (at
	// most k-1) isn't recoverable from the manifest alone. Fernet's
	// HMAC is a witness for the correct length: only the true token
	// boundary verifies, so the small bounded search below is an exact
	// (not approximate) inversion of the coder's padding.
	plaintext := decryptTryingPadding(padded, k, key)
	if plaintext == nil {
		return nil, apperr.NewWholeFileTampered("fernet authentication failed")
	}

	if expectedSize >= 0 && int64(len(plaintext)) > expectedSize {
		plaintext = plaintext[:expectedSize]
	}

	gotHash := hashHex(plaintext)
	if gotHash != expectedWholeFileHash {
		return nil, apperr.NewWholeFileTampered("whole-file hash mismatch")
	}

	return plaintext, nil
}

func hashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
