package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI interface for mocking
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoDBControlStateStore persists per-user control state in a table keyed
// by user_id.
type DynamoDBControlStateStore struct {
	client    DynamoDBAPI
	tableName string
}

func NewDynamoDBControlStateStore(client DynamoDBAPI, tableName string) *DynamoDBControlStateStore {
	return &DynamoDBControlStateStore{
		client:    client,
		tableName: tableName,
	}
}

func (d *DynamoDBControlStateStore) GetControlState(ctx context.Context, userID string) (*ControlState, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get control state: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var state ControlState
	if err := attributevalue.UnmarshalMap(result.Item, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal control state: %w", err)
	}

	return &state, nil
}

func (d *DynamoDBControlStateStore) PutControlState(ctx context.Context, userID string, state *ControlState) error {
	item, err := attributevalue.MarshalMap(state)
	if err != nil {
		return fmt.Errorf("failed to marshal control state: %w", err)
	}
	item["user_id"] = &types.AttributeValueMemberS{Value: userID}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put control state: %w", err)
	}

	return nil
}

// DynamoDBControlLogStore persists the bounded control log in a table with
// partition key user_id and sort key entry_key. The sort key is the entry
// timestamp in nanoseconds plus the entry ID, so insertion order survives
// clock collisions.
type DynamoDBControlLogStore struct {
	client    DynamoDBAPI
	tableName string
}

func NewDynamoDBControlLogStore(client DynamoDBAPI, tableName string) *DynamoDBControlLogStore {
	return &DynamoDBControlLogStore{
		client:    client,
		tableName: tableName,
	}
}

func entryKey(entry *LogEntry) string {
	return fmt.Sprintf("%020d#%s", entry.Timestamp.UnixNano(), entry.ID)
}

func (d *DynamoDBControlLogStore) AppendLogEntry(ctx context.Context, userID string, entry *LogEntry) error {
	copied := *entry
	copied.UserID = userID

	item, err := attributevalue.MarshalMap(&copied)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	item["entry_key"] = &types.AttributeValueMemberS{Value: entryKey(&copied)}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put log entry: %w", err)
	}

	return d.evictOldest(ctx, userID)
}

// evictOldest drops entries beyond MaxLogEntries, oldest first.
func (d *DynamoDBControlLogStore) evictOldest(ctx context.Context, userID string) error {
	keys, err := d.queryKeys(ctx, userID)
	if err != nil {
		return err
	}

	if len(keys) <= MaxLogEntries {
		return nil
	}

	return d.deleteKeys(ctx, userID, keys[:len(keys)-MaxLogEntries])
}

func (d *DynamoDBControlLogStore) ListLogEntries(ctx context.Context, userID string, limit int) ([]*LogEntry, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("user_id = :user_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":user_id": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false), // most recent first
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	result, err := d.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query log entries: %w", err)
	}

	var entries []*LogEntry
	for _, item := range result.Items {
		var entry LogEntry
		if err := attributevalue.UnmarshalMap(item, &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal log entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	return entries, nil
}

func (d *DynamoDBControlLogStore) ClearLogEntries(ctx context.Context, userID string) error {
	keys, err := d.queryKeys(ctx, userID)
	if err != nil {
		return err
	}

	return d.deleteKeys(ctx, userID, keys)
}

// queryKeys returns all of the user's sort keys in ascending order,
// following pagination.
func (d *DynamoDBControlLogStore) queryKeys(ctx context.Context, userID string) ([]string, error) {
	var keys []string
	var startKey map[string]types.AttributeValue

	for {
		result, err := d.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(d.tableName),
			KeyConditionExpression: aws.String("user_id = :user_id"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":user_id": &types.AttributeValueMemberS{Value: userID},
			},
			ProjectionExpression: aws.String("entry_key"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query log keys: %w", err)
		}

		for _, item := range result.Items {
			if v, ok := item["entry_key"].(*types.AttributeValueMemberS); ok {
				keys = append(keys, v.Value)
			}
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	return keys, nil
}

func (d *DynamoDBControlLogStore) deleteKeys(ctx context.Context, userID string, keys []string) error {
	// BatchWriteItem accepts at most 25 requests per call.
	const batchSize = 25

	for start := 0; start < len(keys); start += batchSize {
		end := start + batchSize
		if end > len(keys) {
			end = len(keys)
		}

		var requests []types.WriteRequest
		for _, key := range keys[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{
						"user_id":   &types.AttributeValueMemberS{Value: userID},
						"entry_key": &types.AttributeValueMemberS{Value: key},
					},
				},
			})
		}

		_, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				d.tableName: requests,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete log entries: %w", err)
		}
	}

	return nil
}
