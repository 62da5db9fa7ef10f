// Package migrate provisions the optional DynamoDB manifest index
// table. Adapted from
// internal/repository/migrate/0001_create_object_metadata.go: the
// composite (prefix, file_name) key collapses to a single filename
// partition key since this system has no directory hierarchy, and the
// table now only ever holds the fields domain.PublicSummary exposes.
package migrate

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	ManifestIndexTableName = "manifest_index"
	ManifestIndexVersion   = "20260730000000_manifest_index_table"
)

// CreateManifestIndexTable provisions the manifest_index table.
type CreateManifestIndexTable struct{}

func (m *CreateManifestIndexTable) Version() string   { return ManifestIndexVersion }
func (m *CreateManifestIndexTable) TableName() string { return ManifestIndexTableName }

func (m *CreateManifestIndexTable) Up(ctx context.Context, client *dynamodb.Client) error {
	input := &dynamodb.CreateTableInput{
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("filename"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("filename"),
				KeyType:       types.KeyTypeHash,
			},
		},
		TableName:   aws.String(ManifestIndexTableName),
		BillingMode: types.BillingModePayPerRequest,
		Tags: []types.Tag{
			{Key: aws.String("Purpose"), Value: aws.String("ManifestIndexAccelerator")},
		},
	}

	if _, err := client.CreateTable(ctx, input); err != nil {
		return err
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(ManifestIndexTableName),
	}, 5*time.Minute)
}

func (m *CreateManifestIndexTable) Down(ctx context.Context, client *dynamodb.Client) error {
	_, err := client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(ManifestIndexTableName),
	})
	return err
}
