package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zzenonn/cryptoshard/internal/config"
	"github.com/zzenonn/cryptoshard/internal/logging"
)

var (
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "cryptoshard",
	Short: "Client-side-encrypted, erasure-coded object store",
	Long:  "A CLI application for running the gateway and storage-node services, and for driving uploads, downloads, and deletes directly.",
}

func init() {
	cobra.OnInitialize(initConfig)
	setupFlags()
}

// setupFlags defines persistent CLI flags, layered over config.yaml and
// CRYPTOSHARD_* environment variables by internal/config.Load.
func setupFlags() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringSlice("node-urls", nil, "storage node base URLs, N[0..m-1]")
	rootCmd.PersistentFlags().Int("k-required", 3, "minimum shards required to reconstruct a file")
	rootCmd.PersistentFlags().Int("m-total", 5, "total shards per file")
	rootCmd.PersistentFlags().String("metadata-dir", "./metadata", "directory holding sealed manifests")
	rootCmd.PersistentFlags().String("gateway-addr", ":8080", "gateway HTTP listen address")
	rootCmd.PersistentFlags().String("node-addr", ":9090", "storage node HTTP listen address")
	rootCmd.PersistentFlags().String("node-storage-dir", "./storage", "directory a storage node keeps shard blobs in")
	rootCmd.PersistentFlags().String("dynamodb-table", "", "optional DynamoDB manifest index table name")
	rootCmd.PersistentFlags().String("archive-bucket", "", "optional cold-archive bucket spec (s3://bucket or gs://bucket)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(configPath, rootCmd)
	if err != nil {
		log.Fatalf("error loading configuration: %v", err)
	}
	logging.Init(cfg.LogLevel)
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Show resolved configuration for debugging",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Configuration:\n")
		fmt.Printf("  Log Level:        %s\n", cfg.LogLevel)
		fmt.Printf("  k / m:            %d / %d\n", cfg.KRequired, cfg.MTotal)
		fmt.Printf("  Node URLs:        %v\n", cfg.NodeURLs)
		fmt.Printf("  Metadata Dir:     %s\n", cfg.MetadataDir)
		fmt.Printf("  Gateway Addr:     %s\n", cfg.GatewayAddr)
		fmt.Printf("  Node Addr:        %s\n", cfg.NodeAddr)
		fmt.Printf("  Node Storage Dir: %s\n", cfg.NodeStorageDir)
		if cfg.DynamoDBTable != "" {
			fmt.Printf("  DynamoDB Table:   %s\n", cfg.DynamoDBTable)
		}
		if cfg.ArchiveBucket != "" {
			fmt.Printf("  Archive Bucket:   %s (%s)\n", cfg.ArchiveBucket, cfg.ArchivePlatform)
		}
		fmt.Println("\nnote: MASTER_VAULT_KEY is never shown here — it is read directly from the OS environment and never flows through viper.")
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
