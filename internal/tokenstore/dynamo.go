package tokenstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jun/fitadvice/internal/crypto"
	"github.com/jun/fitadvice/internal/model"
)

// DynamoAPI is the subset of *dynamodb.Client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore keeps tokens in a DynamoDB table keyed by user_id.
// Token strings are encrypted before they are written.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
	enc       crypto.Encryptor
}

func NewDynamoStore(client DynamoAPI, tableName string, enc crypto.Encryptor) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName, enc: enc}
}

func (s *DynamoStore) Save(ctx context.Context, tok model.StoredToken) error {
	sealed, err := sealToken(ctx, s.enc, tok)
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(sealed)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save token to DynamoDB: %w", err)
	}
	return nil
}

func (s *DynamoStore) Load(ctx context.Context, userID string) (*model.StoredToken, error) {
	if userID == "" {
		return nil, ErrNotFound
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from DynamoDB: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var sealed model.StoredToken
	if err := attributevalue.UnmarshalMap(out.Item, &sealed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	tok, err := openToken(ctx, s.enc, sealed)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}
