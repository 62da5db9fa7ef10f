// Package orchestrator binds the crypto-erasure engine, the node
// clients, and the metadata vault into atomic, rollback-capable
// distributed uploads and downloads with per-filename mutual
// exclusion and health aggregation (spec.md §4.4, §5).
//
// Generalized from internal/service/file_service.go: the state
// machine, rollback behaviour, and fan-out shape follow the teacher,
// but the failure policy is a deliberate redesign — the teacher
// tolerates up to `parityShards` upload failures before giving up;
// this system requires all `m` uploads to succeed or rolls back
// everything, per spec.md §4.4 step 4 ("If |F| > 0, enter rollback").
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/zzenonn/cryptoshard/internal/domain"
	"github.com/zzenonn/cryptoshard/internal/engine"
	apperr "github.com/zzenonn/cryptoshard/internal/errors"
	"github.com/zzenonn/cryptoshard/internal/placement"
	"github.com/zzenonn/cryptoshard/internal/vault"
)

// Index is implemented by an optional manifest index (see
// internal/repository/db.ManifestIndex), kept up to date on upload and
// delete. A nil Index is always valid. List never consults it: List
// always reads every sealed manifest from disk, which remains
// authoritative (spec.md §3 invariant 4).
type Index interface {
	Upsert(ctx context.Context, summary domain.PublicSummary) error
	Remove(ctx context.Context, filename string) error
}

// Archiver is implemented by an optional cold-archive sink (see
// internal/repository/archive). It is never consulted during
// recover_and_decrypt — a nil Archiver is always valid.
type Archiver interface {
	Put(ctx context.Context, key string, data []byte) error
	Platform() string
}

// Orchestrator implements spec.md §4.4.
type Orchestrator struct {
	nodes    *placement.NodeSet
	vault    *vault.Vault
	store    *manifestStore
	locks    *filenameLocks
	index    Index
	archiver Archiver
	k, m     int
}

// New constructs an Orchestrator bound to an already-populated
// NodeSet (exactly m nodes registered, position-locked) and an
// already-loaded Vault. metadataDir is created if it does not exist.
func New(nodes *placement.NodeSet, v *vault.Vault, metadataDir string, k, m int) (*Orchestrator, error) {
	if k < 1 || k > m {
		return nil, fmt.Errorf("%w: k=%d m=%d violates 1<=k<=m", apperr.ErrConfiguration, k, m)
	}
	if nodes.Len() != m {
		return nil, fmt.Errorf("%w: %d nodes registered, want m=%d", apperr.ErrConfiguration, nodes.Len(), m)
	}
	if err := os.MkdirAll(metadataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating metadata directory: %v", apperr.ErrConfiguration, err)
	}
	return &Orchestrator{
		nodes: nodes,
		vault: v,
		store: newManifestStore(metadataDir, v),
		locks: newFilenameLocks(),
		k:     k,
		m:     m,
	}, nil
}

// SetIndex attaches an optional manifest index accelerator. Never
// required for correctness; see internal/repository/db.
func (o *Orchestrator) SetIndex(idx Index) { o.index = idx }

// SetArchiver attaches an optional cold-archive sink. Never required
// for correctness; see internal/repository/archive.
func (o *Orchestrator) SetArchiver(a Archiver) { o.archiver = a }

// Upload implements spec.md §4.4 Upload protocol and state machine:
// IDLE -> ENCODING -> FANOUT -> (SEALING | ROLLBACK_FANOUT -> FAILED).
func (o *Orchestrator) Upload(ctx context.Context, filename string, plaintext []byte) (domain.Manifest, error) {
	release := o.locks.acquire(filename)
	defer release()

	health := o.Health(ctx)
	if health.OnlineCount < o.m {
		return domain.Manifest{}, fmt.Errorf("%w: %d/%d nodes online, upload requires all %d", apperr.ErrNodeUnavailable, health.OnlineCount, o.m, o.m)
	}

	log.Debugf("upload %s: ENCODING", filename)
	res, err := engine.EncryptAndShard(plaintext, o.k, o.m)
	if err != nil {
		return domain.Manifest{}, err
	}

	log.Debugf("upload %s: FANOUT", filename)
	accepted, failed := o.uploadShards(ctx, filename, res.Shards)
	if len(failed) > 0 {
		log.Warnf("upload %s: %d/%d shards rejected, rolling back", filename, len(failed), o.m)
		o.rollback(context.Background(), filename, accepted)
		return domain.Manifest{}, &apperr.UploadFailed{Count: len(failed)}
	}

	locations := make(map[int]string, o.m)
	urls := o.nodes.URLs()
	for i, url := range urls {
		locations[i] = url
	}

	manifest := domain.Manifest{
		Filename:       filename,
		FileHash:       res.WholeFileHash,
		FileSize:       int64(len(plaintext)),
		EncryptionKey:  res.PerFileKey,
		KRequired:      o.k,
		MTotal:         o.m,
		ShardMetadata:  res.ShardHashes,
		UploadDate:     time.Now().UTC().Format(time.RFC3339),
		ShardLocations: locations,
	}

	log.Debugf("upload %s: SEALING", filename)
	if err := o.store.write(manifest); err != nil {
		log.Warnf("upload %s: manifest persist failed, rolling back: %v", filename, err)
		o.rollback(context.Background(), filename, allIndices(o.m))
		return domain.Manifest{}, &apperr.ManifestPersistFailed{Cause: err}
	}

	if o.index != nil {
		if err := o.index.Upsert(ctx, domain.ViewPublic(manifest)); err != nil {
			log.Warnf("upload %s: manifest index upsert failed (non-authoritative): %v", filename, err)
		}
	}

	if o.archiver != nil {
		o.archiveAsync(filename, res.Shards)
	}

	log.Debugf("upload %s: DONE", filename)
	return manifest, nil
}

// archiveAsync copies every shard to the configured cold-archive sink
// in the background. It runs detached from the caller's context:
// archival is best-effort and must not be cancelled just because the
// HTTP request that triggered the upload completed (spec.md's
// Non-goal "no replication beyond (k, m)" still holds — this is pure
// disaster-recovery redundancy, never part of reconstruction).
func (o *Orchestrator) archiveAsync(filename string, shards [][]byte) {
	byIndex := make(map[int][]byte, len(shards))
	for i, s := range shards {
		byIndex[i] = s
	}
	go func() {
		for id, data := range byIndex {
			key := shardStorageID(filename, id)
			if err := o.archiver.Put(context.Background(), key, data); err != nil {
				log.Warnf("upload %s: archive copy failed for shard %d: %v", filename, id, err)
			}
		}
	}()
}

// Download implements spec.md §4.4 Download protocol.
func (o *Orchestrator) Download(ctx context.Context, filename string) ([]byte, error) {
	manifest, err := o.store.read(filename)
	if err != nil {
		return nil, err
	}

	health := o.Health(ctx)
	if health.OnlineCount < manifest.KRequired {
		return nil, &apperr.Unavailable{Have: health.OnlineCount, Need: manifest.KRequired}
	}

	shardBytes, shardIDs := o.downloadShards(ctx, manifest)
	if len(shardIDs) < manifest.KRequired {
		return nil, &apperr.Unavailable{Have: len(shardIDs), Need: manifest.KRequired}
	}

	return engine.RecoverAndDecrypt(
		shardBytes, shardIDs, manifest.ShardMetadata,
		manifest.EncryptionKey, manifest.FileHash, manifest.FileSize,
		manifest.KRequired, manifest.MTotal,
	)
}

// Delete removes every shard of filename from its nodes (best effort,
// idempotent per spec.md §8 property 9) and then the manifest itself.
func (o *Orchestrator) Delete(ctx context.Context, filename string) error {
	release := o.locks.acquire(filename)
	defer release()

	manifest, err := o.store.read(filename)
	if err != nil {
		return err
	}

	o.rollback(ctx, filename, allIndices(manifest.MTotal))
	if err := o.store.remove(filename); err != nil {
		return err
	}
	if o.index != nil {
		if err := o.index.Remove(ctx, filename); err != nil {
			log.Warnf("delete %s: manifest index removal failed (non-authoritative): %v", filename, err)
		}
	}
	return nil
}

// List implements spec.md §4.4 List protocol: every sealed manifest,
// redacted to its public summary. The filesystem is always
// authoritative; an Index, if attached, is never consulted here to
// keep that guarantee simple — it exists purely as a side channel for
// callers that want fast enumeration without this full unseal pass.
func (o *Orchestrator) List(ctx context.Context) ([]domain.PublicSummary, error) {
	names, err := o.store.listFilenames()
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.PublicSummary, 0, len(names))
	for _, name := range names {
		m, err := o.store.read(name)
		if err != nil {
			log.Warnf("list: skipping %s, unseal failed: %v", name, err)
			continue
		}
		summaries = append(summaries, domain.ViewPublic(m))
	}
	return summaries, nil
}

// Health implements spec.md §4.4 Health protocol.
func (o *Orchestrator) Health(ctx context.Context) HealthReport {
	nodes := o.nodes.All()
	perNode := make([]bool, len(nodes))

	var wg sync.WaitGroup
	for i, n := range nodes {
		i, n := i, n
		wg.Add(1)
		go func() {
			defer wg.Done()
			perNode[i] = n.Health(ctx)
		}()
	}
	wg.Wait()

	online := 0
	for _, ok := range perNode {
		if ok {
			online++
		}
	}
	return HealthReport{
		OnlineCount: online,
		Total:       len(nodes),
		PerNode:     perNode,
		Status:      deriveStatus(online, o.k, o.m),
	}
}

// uploadShards dispatches all m shard uploads in parallel and waits
// for every one to finish — as in downloadShards, there is no early exit:
// spec.md §4.4 step 4 requires observing every result before deciding
// whether to roll back.
func (o *Orchestrator) uploadShards(ctx context.Context, filename string, shards [][]byte) (accepted, failed []int) {
	ok := make([]bool, len(shards))

	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		i, shard := i, shard
		g.Go(func() error {
			client, err := o.nodes.Place(i)
			if err != nil {
				ok[i] = false
				return nil
			}
			shardID := shardStorageID(filename, i)
			ok[i] = client.Upload(gctx, shardID, shard)
			return nil
		})
	}
	g.Wait() // errors are never returned above; every shard result lands in ok

	for i, success := range ok {
		if success {
			accepted = append(accepted, i)
		} else {
			failed = append(failed, i)
		}
	}
	return accepted, failed
}

// downloadShards dispatches all m shard downloads in parallel and awaits
// every one of them before returning, per spec.md §4.4 step 3 ("Await
// all. Collect the successful pairs into available") — there is no
// early cancellation once k successes arrive. The spec is explicit about
// why: passing every available shard (not just the first k) to the
// engine lets it detect tampering on shards beyond the minimum needed
// for reconstruction, which is only guaranteed if every node is actually
// given the chance to answer.
func (o *Orchestrator) downloadShards(ctx context.Context, m domain.Manifest) ([][]byte, []int) {
	type result struct {
		id   int
		data []byte
	}

	results := make(chan result, m.MTotal)
	var wg sync.WaitGroup
	for i := 0; i < m.MTotal; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			client, err := o.nodes.Place(i)
			if err != nil {
				return
			}
			data, found := client.Download(ctx, shardStorageID(m.Filename, i))
			if !found {
				return
			}
			results <- result{id: i, data: data}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var ids []int
	var bytesOut [][]byte
	for r := range results {
		ids = append(ids, r.id)
		bytesOut = append(bytesOut, r.data)
	}
	return bytesOut, ids
}

// rollback best-effort deletes every shard index in indices. Used both
// for upload rollback (spec.md §4.4 step 4) and for file deletion.
// Failures are logged, never surfaced — per spec.md §4.2, delete is
// best-effort by contract.
func (o *Orchestrator) rollback(ctx context.Context, filename string, indices []int) {
	var wg sync.WaitGroup
	for _, i := range indices {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			client, err := o.nodes.Place(i)
			if err != nil {
				return
			}
			if !client.Delete(ctx, shardStorageID(filename, i)) {
				log.Warnf("rollback %s: delete of shard %d failed", filename, i)
			}
		}()
	}
	wg.Wait()
}

// shardStorageID implements spec.md §3 "Shard storage identifier":
// "{filename}_shard_{i}".
func shardStorageID(filename string, i int) string {
	return fmt.Sprintf("%s_shard_%d", filename, i)
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
