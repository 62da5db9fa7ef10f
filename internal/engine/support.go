package engine

import (
	"bytes"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/klauspost/reedsolomon"
)

// fernetMaxAge bounds how old a sealed token may be before
// VerifyAndDecrypt rejects it. Manifests and per-file keys have no
// expiry concept in this system (spec.md §3, "immutable thereafter"),
// so this is set far beyond any realistic operational lifetime; only a
// future-dated token (clock skew or tamper) or a bad MAC is ever
// rejected on that basis. See SPEC_FULL.md "Open Questions".
const fernetMaxAge = 100 * 365 * 24 * time.Hour

func joinShards(enc reedsolomon.Encoder, shards [][]byte, k int) ([]byte, error) {
	// Join reads only the first k (data) shards and requires outSize <=
	// sum(len(shards[:k])) — passing the sum over all m shards
	// overshoots that bound whenever m > k and Join fails with
	// ErrShortData every time. We don't know the ciphertext length up
	// front, so bound it by the data shards' own total size and let the
	// caller (RecoverAndDecrypt) trim to the Fernet-verified plaintext
	// length afterwards — Join only strips reedsolomon's own internal
	// padding, using the data-shard size as the bound.
	var buf bytes.Buffer
	total := 0
	for _, s := range shards[:k] {
		total += len(s)
	}
	if err := enc.Join(&buf, shards, total); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decryptTryingPadding strips 0..k-1 trailing bytes from padded (the
// coder's own zero-padding, added by the split in EncryptAndShard step 4) until Fernet's
// HMAC validates, returning the first successfully authenticated
// plaintext. Returns nil if no candidate length validates.
func decryptTryingPadding(padded []byte, k int, keys []*fernet.Key) []byte {
	for n := 0; n < k && n <= len(padded); n++ {
		candidate := padded[:len(padded)-n]
		if msg := fernet.VerifyAndDecrypt(candidate, fernetMaxAge, keys); msg != nil {
			return msg
		}
	}
	return nil
}
