// Package db repurposes the teacher's DynamoDB-backed metadata
// repository as an optional, non-authoritative index accelerating the
// List protocol (spec.md §4.4, SPEC_FULL.md [DOMAIN+] "Supplemental
// features"). The filesystem's sealed manifests remain the only
// source of truth (spec.md §3 invariant 4); this package never stores
// anything that isn't already safe to expose via domain.ViewPublic.
package db

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	log "github.com/sirupsen/logrus"
)

// DynamoDb wraps the AWS SDK client. Grounded on
// internal/repository/db/db.go; the teacher's resourcegroupstaggingapi
// client is dropped here (see DESIGN.md) since this system has no
// tagging-cleanup operation for it to serve.
type DynamoDb struct {
	Client *dynamodb.Client
}

// NewDatabase builds a DynamoDb client from an already-loaded AWS
// config.
func NewDatabase(awsConfig aws.Config) (*DynamoDb, error) {
	client := dynamodb.NewFromConfig(awsConfig)
	if client == nil {
		log.Fatal("failed to create DynamoDB client")
	}
	return &DynamoDb{Client: client}, nil
}
