package main

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zzenonn/cryptoshard/internal/shardserver"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run a storage node's shard HTTP server",
	Run:   runNode,
}

func init() {
	rootCmd.AddCommand(nodeCmd)
}

func runNode(cmd *cobra.Command, args []string) {
	srv, err := shardserver.New(cfg.NodeStorageDir)
	if err != nil {
		log.Fatalf("node: %v", err)
	}

	addr := cfg.NodeAddr
	log.Infof("node: listening on %s, storing shards under %s", addr, cfg.NodeStorageDir)
	if err := http.ListenAndServe(addr, srv); err != nil {
		log.Fatalf("node: %v", err)
	}
}
