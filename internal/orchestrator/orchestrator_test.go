package orchestrator_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/zzenonn/cryptoshard/internal/errors"
	"github.com/zzenonn/cryptoshard/internal/nodeclient"
	"github.com/zzenonn/cryptoshard/internal/orchestrator"
	"github.com/zzenonn/cryptoshard/internal/placement"
	"github.com/zzenonn/cryptoshard/internal/vault"
)

const (
	testK = 3
	testM = 5
)

// fakeNode is a minimal in-memory implementation of spec.md §6.1,
// standing in for the real shardserver in these orchestrator-focused
// tests.
type fakeNode struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	down    bool
	healthy bool
}

func newFakeNode() *fakeNode {
	return &fakeNode{blobs: make(map[string][]byte), healthy: true}
}

func (n *fakeNode) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/store/", func(w http.ResponseWriter, r *http.Request) {
		if n.rejecting() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/store/")
		body, _ := io.ReadAll(r.Body)
		n.mu.Lock()
		n.blobs[id] = body
		n.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/retrieve/", func(w http.ResponseWriter, r *http.Request) {
		if n.rejecting() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/retrieve/")
		n.mu.Lock()
		data, ok := n.blobs[id]
		n.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	})
	mux.HandleFunc("/delete/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/delete/")
		n.mu.Lock()
		delete(n.blobs, id)
		n.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		n.mu.Lock()
		healthy := n.healthy
		n.mu.Unlock()
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func (n *fakeNode) rejecting() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.down
}

func (n *fakeNode) setDown(down bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.down = down
}

func (n *fakeNode) setHealthy(healthy bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.healthy = healthy
}

func (n *fakeNode) shardCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.blobs)
}

type testCluster struct {
	nodes   []*fakeNode
	servers []*httptest.Server
	orch    *orchestrator.Orchestrator
}

func newTestCluster(t *testing.T) *testCluster {
	t.Helper()

	key := new(fernet.Key)
	require.NoError(t, key.Generate())
	v, err := vault.NewFromEnvValue(key.Encode())
	require.NoError(t, err)

	set := placement.NewNodeSet()
	tc := &testCluster{}
	for i := 0; i < testM; i++ {
		n := newFakeNode()
		srv := n.server()
		t.Cleanup(srv.Close)
		set.RegisterNode(nodeclient.New(srv.URL))
		tc.nodes = append(tc.nodes, n)
		tc.servers = append(tc.servers, srv)
	}

	dir := t.TempDir()
	orch, err := orchestrator.New(set, v, dir, testK, testM)
	require.NoError(t, err)
	tc.orch = orch
	return tc
}

func TestUploadDownload_RoundTrip(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	plaintext := []byte("hello world")
	_, err := tc.orch.Upload(ctx, "greeting.txt", plaintext)
	require.NoError(t, err)

	for _, n := range tc.nodes {
		assert.Equal(t, 1, n.shardCount())
	}

	got, err := tc.orch.Download(ctx, "greeting.txt")
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestDownload_SurvivesTwoNodesDown(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	plaintext := []byte("hello world")
	_, err := tc.orch.Upload(ctx, "greeting.txt", plaintext)
	require.NoError(t, err)

	tc.nodes[0].setDown(true)
	tc.nodes[0].setHealthy(false)
	tc.nodes[1].setDown(true)
	tc.nodes[1].setHealthy(false)

	got, err := tc.orch.Download(ctx, "greeting.txt")
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestDownload_FailsBelowThreshold(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	_, err := tc.orch.Upload(ctx, "greeting.txt", []byte("hello world"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		tc.nodes[i].setDown(true)
		tc.nodes[i].setHealthy(false)
	}

	_, err = tc.orch.Download(ctx, "greeting.txt")
	require.Error(t, err)
	var unavailable *apperr.Unavailable
	require.ErrorAs(t, err, &unavailable)
}

func TestUpload_RejectedWhenNodeDown(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	tc.nodes[4].setHealthy(false)

	_, err := tc.orch.Upload(ctx, "anything.txt", []byte("data"))
	assert.ErrorIs(t, err, apperr.ErrNodeUnavailable)
}

func TestUpload_RollsBackOnShardFailure(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	// Node 3 answers health but rejects the PUT itself (spec.md S4).
	tc.nodes[3].setDown(true)

	_, err := tc.orch.Upload(ctx, "will-fail.txt", []byte("some content"))
	require.Error(t, err)
	var uploadFailed *apperr.UploadFailed
	require.ErrorAs(t, err, &uploadFailed)

	for i, n := range tc.nodes {
		assert.Equal(t, 0, n.shardCount(), "node %d should have been rolled back", i)
	}

	_, err = tc.orch.Download(ctx, "will-fail.txt")
	assert.ErrorIs(t, err, apperr.ErrUnknownFile)
}

func TestDelete_RemovesShardsAndManifest(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	_, err := tc.orch.Upload(ctx, "to-delete.txt", []byte("bye"))
	require.NoError(t, err)

	require.NoError(t, tc.orch.Delete(ctx, "to-delete.txt"))

	for _, n := range tc.nodes {
		assert.Equal(t, 0, n.shardCount())
	}

	_, err = tc.orch.Download(ctx, "to-delete.txt")
	assert.ErrorIs(t, err, apperr.ErrUnknownFile)
}

func TestDelete_SecondCallReportsUnknownFile(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	_, err := tc.orch.Upload(ctx, "twice.txt", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, tc.orch.Delete(ctx, "twice.txt"))
	err = tc.orch.Delete(ctx, "twice.txt")
	assert.ErrorIs(t, err, apperr.ErrUnknownFile)
}

func TestList_RedactsKeyAndReturnsSummaries(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	_, err := tc.orch.Upload(ctx, "a.txt", []byte("aaaa"))
	require.NoError(t, err)
	_, err = tc.orch.Upload(ctx, "b.txt", []byte("bbbb"))
	require.NoError(t, err)

	summaries, err := tc.orch.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	names := []string{summaries[0].Filename, summaries[1].Filename}
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, names)
	for _, s := range summaries {
		assert.Equal(t, testK, s.KRequired)
		assert.Equal(t, testM, s.MTotal)
	}
}

func TestHealth_Aggregation(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	report := tc.orch.Health(ctx)
	assert.Equal(t, testM, report.OnlineCount)
	assert.Equal(t, orchestrator.StatusOptimal, report.Status)

	tc.nodes[0].setHealthy(false)
	report = tc.orch.Health(ctx)
	assert.Equal(t, testM-1, report.OnlineCount)
	assert.Equal(t, orchestrator.StatusDegraded, report.Status)

	tc.nodes[1].setHealthy(false)
	tc.nodes[2].setHealthy(false)
	report = tc.orch.Health(ctx)
	assert.Equal(t, testM-3, report.OnlineCount)
	assert.Equal(t, orchestrator.StatusCritical, report.Status)
}

func TestTamperedShard_FailsDownload(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	plaintext := make([]byte, 1<<20)
	for i := range plaintext {
		plaintext[i] = byte(i)
	}
	_, err := tc.orch.Upload(ctx, "big.bin", plaintext)
	require.NoError(t, err)

	tc.nodes[2].mu.Lock()
	for id, data := range tc.nodes[2].blobs {
		if len(data) > 0 {
			data[0] ^= 0xFF
		}
		tc.nodes[2].blobs[id] = data
	}
	tc.nodes[2].mu.Unlock()

	_, err = tc.orch.Download(ctx, "big.bin")
	require.Error(t, err)
	var tampered *apperr.Tampered
	require.ErrorAs(t, err, &tampered)
}
