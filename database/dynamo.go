package database

import (
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// NewDynamoClient builds a DynamoDB client. AWS_DYNAMODB_ENDPOINT points it at LocalStack or dynamodb-local.
func NewDynamoClient(cfg sdkaws.Config) *dynamodb.Client {
	endpoint := os.Getenv("AWS_DYNAMODB_ENDPOINT")
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = sdkaws.String(endpoint)
		}
	})
}
