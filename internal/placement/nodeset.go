// Package placement manages the ordered registry of storage node
// clients shard bytes are fanned out to.
//
// Grounded on internal/placement/{placement.go,round_robin.go} (the
// Placer interface and its RWMutex-guarded registry), narrowed from
// round-robin bucket selection to the spec's position-locked
// assignment: since shard i always belongs at node N[i] (spec.md §3,
// "Shard-to-node assignment is position-locked"), there is no
// balancing decision left to make — Place(i) degenerates to Nodes[i].
// The registry abstraction survives because the orchestrator, health
// aggregation, and CLI all still want a single ordered view of "every
// configured node" rather than a bare slice threaded through them.
package placement

import (
	"fmt"
	"sync"

	apperr "github.com/zzenonn/cryptoshard/internal/errors"
	"github.com/zzenonn/cryptoshard/internal/nodeclient"
)

// NodeSet is an ordered, thread-safe registry of node clients. Index i
// in the set is always the node shard i is written to and read from.
type NodeSet struct {
	mu    sync.RWMutex
	nodes []*nodeclient.Client
}

// NewNodeSet builds an empty registry. Nodes must be registered in
// shard-index order via RegisterNode.
func NewNodeSet() *NodeSet {
	return &NodeSet{}
}

// RegisterNode appends a node client, assigning it the next shard
// index (len(nodes) at call time).
func (s *NodeSet) RegisterNode(c *nodeclient.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = append(s.nodes, c)
}

// Place returns the node client owning shardIndex. Position-locked:
// there is exactly one valid answer, unlike the teacher's round-robin
// Place which picked among several.
func (s *NodeSet) Place(shardIndex int) (*nodeclient.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if shardIndex < 0 || shardIndex >= len(s.nodes) {
		return nil, fmt.Errorf("%w: shard index %d out of range for %d registered nodes", apperr.ErrConfiguration, shardIndex, len(s.nodes))
	}
	return s.nodes[shardIndex], nil
}

// Len reports how many nodes are registered (the configured m).
func (s *NodeSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// All returns a defensive copy of every registered node, in shard-index
// order. Used by health aggregation.
func (s *NodeSet) All() []*nodeclient.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*nodeclient.Client, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// URLs returns the base URL of every registered node, in shard-index
// order, for populating shard_locations in a freshly sealed manifest.
func (s *NodeSet) URLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.BaseURL()
	}
	return out
}
