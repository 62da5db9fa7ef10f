package orchestrator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/zzenonn/cryptoshard/internal/domain"
	apperr "github.com/zzenonn/cryptoshard/internal/errors"
	"github.com/zzenonn/cryptoshard/internal/vault"
)

// manifestSuffix matches spec.md §6.3: despite the name, the content
// is always sealed (binary) bytes, never plaintext JSON.
const manifestSuffix = ".metadata.json"

// manifestStore persists sealed manifests under one directory, one
// file per filename. Grounded on spec.md §4.4 step 6 and §6.3; there
// is no teacher equivalent (the teacher persists metadata in
// DynamoDB), so the write discipline (temp file in the same directory,
// fsync, rename) is new, resolving the "Open Questions" entry in
// SPEC_FULL.md.
type manifestStore struct {
	dir   string
	vault *vault.Vault
}

func newManifestStore(dir string, v *vault.Vault) *manifestStore {
	return &manifestStore{dir: dir, vault: v}
}

func (s *manifestStore) path(filename string) string {
	return filepath.Join(s.dir, filename+manifestSuffix)
}

// write seals the manifest and persists it via write-to-temp, fsync,
// rename (spec.md §4.4 step 6). The rename is the single commit point:
// no partial write is ever observable at the final path.
func (s *manifestStore) write(m domain.Manifest) error {
	sealed, err := s.vault.Seal(m)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+m.Filename+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, s.path(m.Filename))
}

// read loads and unseals the manifest for filename. A missing file is
// reported as ErrUnknownFile; any vault error surfaces unchanged
// (spec.md §4.4 download step 1).
func (s *manifestStore) read(filename string) (domain.Manifest, error) {
	raw, err := os.ReadFile(s.path(filename))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Manifest{}, apperr.ErrUnknownFile
		}
		return domain.Manifest{}, err
	}
	return s.vault.Unseal(raw)
}

// remove deletes the manifest file for filename, if present. Used on
// explicit delete.
func (s *manifestStore) remove(filename string) error {
	err := os.Remove(s.path(filename))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// listFilenames returns every filename with a persisted manifest,
// derived from the directory entries (spec.md §4.4 List protocol).
func (s *manifestStore) listFilenames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".tmp-") {
			continue
		}
		if strings.HasSuffix(name, manifestSuffix) {
			names = append(names, strings.TrimSuffix(name, manifestSuffix))
		}
	}
	return names, nil
}
