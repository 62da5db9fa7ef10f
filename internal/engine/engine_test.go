package engine_test

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzenonn/cryptoshard/internal/engine"
	apperr "github.com/zzenonn/cryptoshard/internal/errors"
)

const (
	testK = 3
	testM = 5
)

func TestEncryptAndShard_RejectsEmpty(t *testing.T) {
	_, err := engine.EncryptAndShard(nil, testK, testM)
	assert.ErrorIs(t, err, apperr.ErrEmptyFile)
}

func TestEncryptAndShard_RejectsInvalidThreshold(t *testing.T) {
	_, err := engine.EncryptAndShard([]byte("hello world"), 5, 3)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestEncryptAndShard_OrderingInvariant(t *testing.T) {
	// spec.md §8 property 6. The ciphertext itself is not exposed, so
	// this checks that WholeFileHash is sha256(plaintext) and that no
	// shard hashes to it.
	plaintext := []byte("hello world")
	res, err := engine.EncryptAndShard(plaintext, testK, testM)
	require.NoError(t, err)

	plaintextHash := sha256.Sum256(plaintext)
	assert.Equal(t, hex.EncodeToString(plaintextHash[:]), res.WholeFileHash)

	for _, shard := range res.Shards {
		shardHash := sha256.Sum256(shard)
		assert.NotEqual(t, hex.EncodeToString(plaintextHash[:]), hex.EncodeToString(shardHash[:]))
	}
}

func TestRoundTrip(t *testing.T) {
	sizes := []int{1, 11, 4096, 2_000_000}
	for _, size := range sizes {
		size := size
		t.Run("", func(t *testing.T) {
			plaintext := make([]byte, size)
			_, err := rand.Read(plaintext)
			require.NoError(t, err)

			res, err := engine.EncryptAndShard(plaintext, testK, testM)
			require.NoError(t, err)
			require.Len(t, res.Shards, testM)

			ids := allIDs(testM)
			out, err := engine.RecoverAndDecrypt(res.Shards, ids, res.ShardHashes, res.PerFileKey, res.WholeFileHash, int64(size), testK, testM)
			require.NoError(t, err)
			assert.Equal(t, plaintext, out)
		})
	}
}

func TestThresholdSufficiency(t *testing.T) {
	plaintext := []byte("the quick brown fox jumps over the lazy dog, repeatedly, to pad this out a bit")
	res, err := engine.EncryptAndShard(plaintext, testK, testM)
	require.NoError(t, err)

	subsets := [][]int{
		{0, 1, 2},
		{1, 3, 4},
		{0, 2, 4},
		{0, 1, 2, 3, 4},
	}
	for _, subset := range subsets {
		shards := make([][]byte, len(subset))
		for i, id := range subset {
			shards[i] = res.Shards[id]
		}
		out, err := engine.RecoverAndDecrypt(shards, subset, res.ShardHashes, res.PerFileKey, res.WholeFileHash, int64(len(plaintext)), testK, testM)
		require.NoError(t, err)
		assert.Equal(t, plaintext, out)
	}
}

func TestThresholdNecessity(t *testing.T) {
	plaintext := []byte("not enough shards here")
	res, err := engine.EncryptAndShard(plaintext, testK, testM)
	require.NoError(t, err)

	subset := []int{0, 1}
	shards := [][]byte{res.Shards[0], res.Shards[1]}
	_, err = engine.RecoverAndDecrypt(shards, subset, res.ShardHashes, res.PerFileKey, res.WholeFileHash, int64(len(plaintext)), testK, testM)
	assert.ErrorIs(t, err, apperr.ErrInsufficientShards)
}

func TestTamperDetection_SingleByteFlip(t *testing.T) {
	plaintext := make([]byte, 1<<20)
	_, err := rand.Read(plaintext)
	require.NoError(t, err)

	res, err := engine.EncryptAndShard(plaintext, testK, testM)
	require.NoError(t, err)

	tampered := append([]byte(nil), res.Shards[2]...)
	tampered[0] ^= 0xFF

	ids := allIDs(testM)
	shards := append([][]byte(nil), res.Shards...)
	shards[2] = tampered

	_, err = engine.RecoverAndDecrypt(shards, ids, res.ShardHashes, res.PerFileKey, res.WholeFileHash, int64(len(plaintext)), testK, testM)
	require.Error(t, err)
	var tamperErr *apperr.Tampered
	require.ErrorAs(t, err, &tamperErr)
	assert.Equal(t, 2, tamperErr.ShardID)
}

func TestWholeFileTamper_WrongKey(t *testing.T) {
	plaintext := []byte("some secret payload")
	res, err := engine.EncryptAndShard(plaintext, testK, testM)
	require.NoError(t, err)

	other, err := engine.EncryptAndShard([]byte("unrelated"), testK, testM)
	require.NoError(t, err)

	ids := allIDs(testM)
	_, err = engine.RecoverAndDecrypt(res.Shards, ids, res.ShardHashes, other.PerFileKey, res.WholeFileHash, int64(len(plaintext)), testK, testM)
	require.Error(t, err)
	var tamperErr *apperr.Tampered
	require.ErrorAs(t, err, &tamperErr)
	assert.True(t, tamperErr.IsWholeFile())
}

func allIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}
