package main

import (
	"fmt"

	"github.com/zzenonn/cryptoshard/internal/config"
	apperr "github.com/zzenonn/cryptoshard/internal/errors"
	"github.com/zzenonn/cryptoshard/internal/nodeclient"
	"github.com/zzenonn/cryptoshard/internal/orchestrator"
	"github.com/zzenonn/cryptoshard/internal/placement"
	"github.com/zzenonn/cryptoshard/internal/vault"
)

// buildOrchestrator wires an Orchestrator from Config the way
// cmd/main.go wires FileService from *config.Config in the teacher:
// load the master key, register every node, construct.
func buildOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, error) {
	if len(cfg.NodeURLs) != cfg.MTotal {
		return nil, fmt.Errorf("%w: %d node_urls configured, want m_total=%d", apperr.ErrConfiguration, len(cfg.NodeURLs), cfg.MTotal)
	}

	v, err := vault.New()
	if err != nil {
		return nil, err
	}

	nodes := placement.NewNodeSet()
	for _, url := range cfg.NodeURLs {
		nodes.RegisterNode(nodeclient.New(url))
	}

	return orchestrator.New(nodes, v, cfg.MetadataDir, cfg.KRequired, cfg.MTotal)
}
