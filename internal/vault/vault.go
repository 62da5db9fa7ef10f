// Package vault implements envelope encryption for the manifest: the
// master key is loaded once from MASTER_VAULT_KEY, and every manifest
// is sealed (canonical JSON + Fernet authenticated encryption) before
// it ever touches disk. No unsealed manifest is ever persisted
// (spec.md §3 invariant 4, §4.3).
//
// Grounded on the teacher's configuration-loading posture
// (internal/config/config.go: read once at startup, fail fast on a
// bad value) generalized from AWS SDK config to a single symmetric
// key, since the teacher has no equivalent of a master key.
package vault

import (
	"encoding/json"
	"os"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/zzenonn/cryptoshard/internal/domain"
	apperr "github.com/zzenonn/cryptoshard/internal/errors"
)

// sealedTokenMaxAge bounds how old a sealed manifest may be before
// Unseal rejects it. See engine.fernetMaxAge for the same rationale:
// manifests have no expiry in this system, so this only ever rejects
// a future-dated (clock skew / tampered) token or a bad MAC.
const sealedTokenMaxAge = 100 * 365 * 24 * time.Hour

// Vault holds the process-wide master key for the lifetime of the
// orchestrator. It is never written to disk or transmitted (spec.md
// §6.4).
type Vault struct {
	masterKey *fernet.Key
}

// New loads the master key from the MASTER_VAULT_KEY environment
// variable. It fails fast — a missing or malformed key is a
// Configuration error, not something callers can work around.
func New() (*Vault, error) {
	return NewFromEnvValue(os.Getenv("MASTER_VAULT_KEY"))
}

// NewFromEnvValue builds a Vault from an explicit key string, letting
// callers (tests, alternative bootstrap paths) avoid mutating the
// process environment.
func NewFromEnvValue(raw string) (*Vault, error) {
	if raw == "" {
		return nil, apperr.ErrNoMasterKey
	}
	keys, err := fernet.DecodeKeys(raw)
	if err != nil || len(keys) == 0 {
		return nil, apperr.ErrNoMasterKey
	}
	return &Vault{masterKey: keys[0]}, nil
}

// Seal canonically JSON-encodes the manifest and authenticated-
// encrypts it under the master key. This is the only form of a
// manifest ever allowed on disk (spec.md §4.3).
func (v *Vault) Seal(m domain.Manifest) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	sealed, err := fernet.EncryptAndSign(raw, v.masterKey)
	if err != nil {
		return nil, err
	}
	return sealed, nil
}

// Unseal authenticated-decrypts sealed bytes and parses the resulting
// JSON into a Manifest. A MAC failure or corruption is reported as
// VaultError::Tampered (mapped here to apperr.Tampered so it composes
// with the rest of the error taxonomy); a JSON/schema mismatch is
// reported as ErrVaultSchema. There is no fallback to plaintext
// parsing (spec.md §4.3 — legacy plaintext manifests are rejected,
// not transparently accepted).
func (v *Vault) Unseal(sealed []byte) (domain.Manifest, error) {
	raw := fernet.VerifyAndDecrypt(sealed, sealedTokenMaxAge, []*fernet.Key{v.masterKey})
	if raw == nil {
		return domain.Manifest{}, apperr.NewWholeFileTampered("sealed manifest failed authentication")
	}

	var m domain.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return domain.Manifest{}, apperr.ErrVaultSchema
	}
	if m.Filename == "" || m.MTotal == 0 {
		return domain.Manifest{}, apperr.ErrVaultSchema
	}
	return m, nil
}
