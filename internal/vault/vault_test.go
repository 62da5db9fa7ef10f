package vault_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzenonn/cryptoshard/internal/domain"
	apperr "github.com/zzenonn/cryptoshard/internal/errors"
	"github.com/zzenonn/cryptoshard/internal/vault"
)

func genKey(t *testing.T) string {
	t.Helper()
	k := new(fernet.Key)
	require.NoError(t, k.Generate())
	return k.Encode()
}

func TestNew_MissingKey(t *testing.T) {
	_, err := vault.NewFromEnvValue("")
	assert.ErrorIs(t, err, apperr.ErrNoMasterKey)
}

func TestNew_MalformedKey(t *testing.T) {
	_, err := vault.NewFromEnvValue("not-a-valid-fernet-key")
	assert.ErrorIs(t, err, apperr.ErrNoMasterKey)
}

func testManifest() domain.Manifest {
	return domain.Manifest{
		Filename:      "report.pdf",
		FileHash:      "abc123",
		FileSize:      11,
		EncryptionKey: "super-secret-per-file-key",
		KRequired:     3,
		MTotal:        5,
		ShardMetadata: map[int]string{0: "h0", 1: "h1", 2: "h2", 3: "h3", 4: "h4"},
		UploadDate:    "2026-07-30T00:00:00Z",
		ShardLocations: map[int]string{
			0: "http://node0", 1: "http://node1", 2: "http://node2",
			3: "http://node3", 4: "http://node4",
		},
	}
}

func TestSealUnseal_RoundTrip(t *testing.T) {
	v, err := vault.NewFromEnvValue(genKey(t))
	require.NoError(t, err)

	m := testManifest()
	sealed, err := v.Seal(m)
	require.NoError(t, err)

	got, err := v.Unseal(sealed)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestSeal_ManifestConfidentiality(t *testing.T) {
	// spec.md §8 property 5: no byte of the per-file key appears in
	// the sealed bytes.
	v, err := vault.NewFromEnvValue(genKey(t))
	require.NoError(t, err)

	m := testManifest()
	sealed, err := v.Seal(m)
	require.NoError(t, err)

	assert.False(t, bytes.Contains(sealed, []byte(m.EncryptionKey)))
	assert.False(t, strings.Contains(string(sealed), m.Filename))
}

func TestUnseal_WrongKeyIsTampered(t *testing.T) {
	v1, err := vault.NewFromEnvValue(genKey(t))
	require.NoError(t, err)
	v2, err := vault.NewFromEnvValue(genKey(t))
	require.NoError(t, err)

	sealed, err := v1.Seal(testManifest())
	require.NoError(t, err)

	_, err = v2.Unseal(sealed)
	require.Error(t, err)
	var tamperErr *apperr.Tampered
	assert.ErrorAs(t, err, &tamperErr)
}

func TestUnseal_CorruptBytes(t *testing.T) {
	v, err := vault.NewFromEnvValue(genKey(t))
	require.NoError(t, err)

	sealed, err := v.Seal(testManifest())
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xFF

	_, err = v.Unseal(sealed)
	require.Error(t, err)
}

func TestRedaction(t *testing.T) {
	m := testManifest()
	public := domain.ViewPublic(m)
	assert.NotContains(t, public.Filename+public.FileHashPrefix, m.EncryptionKey)

	redacted := domain.Redacted(m)
	assert.Equal(t, domain.RedactedKey, redacted.EncryptionKey)
	assert.Equal(t, m.Filename, redacted.Filename)
}
