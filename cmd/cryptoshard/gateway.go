package main

import (
	"context"
	"fmt"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zzenonn/cryptoshard/internal/gatewayhttp"
	"github.com/zzenonn/cryptoshard/internal/repository/archive"
	"github.com/zzenonn/cryptoshard/internal/repository/db"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the client-facing HTTP gateway",
	Run:   runGateway,
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

func runGateway(cmd *cobra.Command, args []string) {
	orch, err := buildOrchestrator(cfg)
	if err != nil {
		log.Fatalf("gateway: building orchestrator: %v", err)
	}

	if cfg.DynamoDBTable != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			log.Fatalf("gateway: loading AWS config for manifest index: %v", err)
		}
		idx := db.NewManifestIndex(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable)
		orch.SetIndex(idx)
		log.Infof("gateway: manifest index accelerator attached (table=%s)", cfg.DynamoDBTable)
	}

	if cfg.ArchiveBucket != "" {
		platform, bucket, err := archive.ParseBucketSpec(cfg.ArchiveBucket)
		if err != nil {
			log.Fatalf("gateway: parsing archive bucket: %v", err)
		}
		sink, err := buildArchiveSink(platform, bucket)
		if err != nil {
			log.Fatalf("gateway: building archive sink: %v", err)
		}
		orch.SetArchiver(sink)
		log.Infof("gateway: cold-archive sink attached (%s://%s)", platform, bucket)
	}

	mux := http.NewServeMux()
	gatewayhttp.New(mux, orch)

	addr := cfg.GatewayAddr
	log.Infof("gateway: listening on %s (k=%d m=%d, %d nodes configured)", addr, cfg.KRequired, cfg.MTotal, len(cfg.NodeURLs))
	if err := http.ListenAndServe(addr, requestIDMiddleware(mux)); err != nil {
		log.Fatalf("gateway: %v", err)
	}
}

func buildArchiveSink(platform, bucket string) (archive.Sink, error) {
	ctx := context.Background()
	switch platform {
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		return archive.NewS3Sink(s3.NewFromConfig(awsCfg), bucket), nil
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("building GCS client: %w", err)
		}
		return archive.NewGCSSink(client, bucket), nil
	default:
		return nil, fmt.Errorf("unsupported archive platform %q", platform)
	}
}

// requestIDMiddleware stamps every request with a unique correlation ID,
// logged at Debug and echoed back in the X-Request-Id response header —
// the gateway's only use of a generated identifier, since shard and
// manifest identifiers are already derived from the filename itself
// (spec.md §3).
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		log.Debugf("gateway: request %s: %s %s", id, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
