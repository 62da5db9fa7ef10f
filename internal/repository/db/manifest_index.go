package db

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/zzenonn/cryptoshard/internal/domain"
)

// indexRecord is the DynamoDB item shape: exactly the fields
// domain.PublicSummary already exposes, keyed by filename. Never the
// sealed manifest bytes, never the per-file key.
type indexRecord struct {
	Filename       string `dynamodbav:"filename"`
	FileHashPrefix string `dynamodbav:"file_hash_prefix"`
	FileSize       int64  `dynamodbav:"file_size"`
	UploadDate     string `dynamodbav:"upload_date"`
	KRequired      int    `dynamodbav:"k_required"`
	MTotal         int    `dynamodbav:"m_total"`
}

// ManifestIndex implements orchestrator.Index. Grounded on
// internal/repository/db/metadata_repository.go (PutItem/GetItem/
// Query/DeleteItem shape via attributevalue marshalling), narrowed
// from the teacher's full ObjectMetadata schema to the public summary
// fields only, and from a (prefix, file_name) composite key to a
// single filename partition key since this system has no directory
// hierarchy.
type ManifestIndex struct {
	client    *dynamodb.Client
	tableName string
}

// NewManifestIndex builds a ManifestIndex over the given table.
func NewManifestIndex(client *dynamodb.Client, tableName string) *ManifestIndex {
	return &ManifestIndex{client: client, tableName: tableName}
}

// Upsert writes (or replaces) the index entry for a summary. Failure
// here never fails an upload — see orchestrator.Upload, which only
// logs an Upsert error.
func (idx *ManifestIndex) Upsert(ctx context.Context, summary domain.PublicSummary) error {
	record := indexRecord{
		Filename:       summary.Filename,
		FileHashPrefix: summary.FileHashPrefix,
		FileSize:       summary.FileSize,
		UploadDate:     summary.UploadDate,
		KRequired:      summary.KRequired,
		MTotal:         summary.MTotal,
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest index record: %w", err)
	}

	_, err = idx.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(idx.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert manifest index record: %w", err)
	}
	return nil
}

// Remove deletes the index entry for filename, if present.
func (idx *ManifestIndex) Remove(ctx context.Context, filename string) error {
	_, err := idx.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(idx.tableName),
		Key: map[string]types.AttributeValue{
			"filename": &types.AttributeValueMemberS{Value: filename},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to remove manifest index record: %w", err)
	}
	return nil
}

// List returns every indexed summary, for callers that want fast
// enumeration without unsealing every manifest on disk. Not used by
// orchestrator.List (which always reads the authoritative filesystem
// state) but available to CLI tooling that explicitly opts into the
// accelerator and tolerates eventual consistency.
func (idx *ManifestIndex) List(ctx context.Context) ([]domain.PublicSummary, error) {
	result, err := idx.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(idx.tableName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan manifest index: %w", err)
	}

	summaries := make([]domain.PublicSummary, 0, len(result.Items))
	for _, item := range result.Items {
		var record indexRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal manifest index record: %w", err)
		}
		summaries = append(summaries, domain.PublicSummary{
			Filename:       record.Filename,
			FileHashPrefix: record.FileHashPrefix,
			FileSize:       record.FileSize,
			UploadDate:     record.UploadDate,
			KRequired:      record.KRequired,
			MTotal:         record.MTotal,
		})
	}
	return summaries, nil
}
