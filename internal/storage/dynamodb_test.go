package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockDynamoDBClient mocks the DynamoDB client
type MockDynamoDBClient struct {
	mock.Mock
}

func (m *MockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(*dynamodb.PutItemOutput), args.Error(1)
}

func (m *MockDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(*dynamodb.GetItemOutput), args.Error(1)
}

func (m *MockDynamoDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(*dynamodb.QueryOutput), args.Error(1)
}

func (m *MockDynamoDBClient) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(*dynamodb.BatchWriteItemOutput), args.Error(1)
}

func TestDynamoDBControlStateStore_PutControlState(t *testing.T) {
	mockClient := new(MockDynamoDBClient)
	store := NewDynamoDBControlStateStore(mockClient, "test-control-state")

	mockClient.On("PutItem", mock.Anything, mock.MatchedBy(func(input *dynamodb.PutItemInput) bool {
		userID, ok := input.Item["user_id"].(*types.AttributeValueMemberS)
		return *input.TableName == "test-control-state" && ok && userID.Value == "user-1"
	})).Return(&dynamodb.PutItemOutput{}, nil)

	err := store.PutControlState(context.Background(), "user-1", DefaultControlState())

	assert.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestDynamoDBControlStateStore_GetControlState(t *testing.T) {
	mockClient := new(MockDynamoDBClient)
	store := NewDynamoDBControlStateStore(mockClient, "test-control-state")

	mockClient.On("GetItem", mock.Anything, mock.MatchedBy(func(input *dynamodb.GetItemInput) bool {
		return *input.TableName == "test-control-state"
	})).Return(&dynamodb.GetItemOutput{
		Item: map[string]types.AttributeValue{
			"user_id":       &types.AttributeValueMemberS{Value: "user-1"},
			"door_locked":   &types.AttributeValueMemberBOOL{Value: false},
			"engine_on":     &types.AttributeValueMemberBOOL{Value: true},
			"ac_on":         &types.AttributeValueMemberBOOL{Value: true},
			"target_temp_c": &types.AttributeValueMemberN{Value: "18"},
		},
	}, nil)

	state, err := store.GetControlState(context.Background(), "user-1")

	assert.NoError(t, err)
	assert.False(t, state.DoorLocked)
	assert.True(t, state.EngineOn)
	assert.True(t, state.AcOn)
	assert.Equal(t, 18, state.TargetTempC)
	mockClient.AssertExpectations(t)
}

func TestDynamoDBControlStateStore_GetControlState_NotFound(t *testing.T) {
	mockClient := new(MockDynamoDBClient)
	store := NewDynamoDBControlStateStore(mockClient, "test-control-state")

	mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: nil}, nil)

	state, err := store.GetControlState(context.Background(), "unknown")

	assert.NoError(t, err)
	assert.Nil(t, state)
}

func logKeyItems(count int) []map[string]types.AttributeValue {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := make([]map[string]types.AttributeValue, count)
	for i := range items {
		key := fmt.Sprintf("%020d#entry-%d", base.Add(time.Duration(i)*time.Millisecond).UnixNano(), i)
		items[i] = map[string]types.AttributeValue{
			"entry_key": &types.AttributeValueMemberS{Value: key},
		}
	}
	return items
}

func TestDynamoDBControlLogStore_AppendUnderCap(t *testing.T) {
	mockClient := new(MockDynamoDBClient)
	store := NewDynamoDBControlLogStore(mockClient, "test-control-log")

	mockClient.On("PutItem", mock.Anything, mock.MatchedBy(func(input *dynamodb.PutItemInput) bool {
		_, hasKey := input.Item["entry_key"].(*types.AttributeValueMemberS)
		return *input.TableName == "test-control-log" && hasKey
	})).Return(&dynamodb.PutItemOutput{}, nil)
	mockClient.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{
		Items: logKeyItems(3),
	}, nil)

	err := store.AppendLogEntry(context.Background(), "user-1", &LogEntry{
		ID:        "entry-3",
		Timestamp: time.Now().UTC(),
		Action:    "lock",
		Outcome:   "success",
	})

	assert.NoError(t, err)
	mockClient.AssertExpectations(t)
	mockClient.AssertNotCalled(t, "BatchWriteItem", mock.Anything, mock.Anything)
}

func TestDynamoDBControlLogStore_AppendEvictsOldest(t *testing.T) {
	mockClient := new(MockDynamoDBClient)
	store := NewDynamoDBControlLogStore(mockClient, "test-control-log")

	items := logKeyItems(MaxLogEntries + 1)
	oldestKey := items[0]["entry_key"].(*types.AttributeValueMemberS).Value

	mockClient.On("PutItem", mock.Anything, mock.Anything).Return(&dynamodb.PutItemOutput{}, nil)
	mockClient.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{Items: items}, nil)
	mockClient.On("BatchWriteItem", mock.Anything, mock.MatchedBy(func(input *dynamodb.BatchWriteItemInput) bool {
		requests := input.RequestItems["test-control-log"]
		if len(requests) != 1 {
			return false
		}
		key := requests[0].DeleteRequest.Key["entry_key"].(*types.AttributeValueMemberS)
		return key.Value == oldestKey
	})).Return(&dynamodb.BatchWriteItemOutput{}, nil)

	err := store.AppendLogEntry(context.Background(), "user-1", &LogEntry{
		ID:        "new-entry",
		Timestamp: time.Now().UTC(),
		Action:    "lock",
		Outcome:   "success",
	})

	assert.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestDynamoDBControlLogStore_ListMostRecentFirst(t *testing.T) {
	mockClient := new(MockDynamoDBClient)
	store := NewDynamoDBControlLogStore(mockClient, "test-control-log")

	mockClient.On("Query", mock.Anything, mock.MatchedBy(func(input *dynamodb.QueryInput) bool {
		return input.ScanIndexForward != nil && !*input.ScanIndexForward && *input.Limit == 2
	})).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{
			{
				"id":      &types.AttributeValueMemberS{Value: "entry-2"},
				"user_id": &types.AttributeValueMemberS{Value: "user-1"},
				"action":  &types.AttributeValueMemberS{Value: "unlock"},
				"outcome": &types.AttributeValueMemberS{Value: "success"},
			},
			{
				"id":      &types.AttributeValueMemberS{Value: "entry-1"},
				"user_id": &types.AttributeValueMemberS{Value: "user-1"},
				"action":  &types.AttributeValueMemberS{Value: "lock"},
				"outcome": &types.AttributeValueMemberS{Value: "success"},
			},
		},
	}, nil)

	entries, err := store.ListLogEntries(context.Background(), "user-1", 2)

	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "entry-2", entries[0].ID)
	assert.Equal(t, "unlock", entries[0].Action)
	mockClient.AssertExpectations(t)
}

func TestDynamoDBControlLogStore_Clear(t *testing.T) {
	mockClient := new(MockDynamoDBClient)
	store := NewDynamoDBControlLogStore(mockClient, "test-control-log")

	mockClient.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{
		Items: logKeyItems(2),
	}, nil)
	mockClient.On("BatchWriteItem", mock.Anything, mock.MatchedBy(func(input *dynamodb.BatchWriteItemInput) bool {
		return len(input.RequestItems["test-control-log"]) == 2
	})).Return(&dynamodb.BatchWriteItemOutput{}, nil)

	err := store.ClearLogEntries(context.Background(), "user-1")

	assert.NoError(t, err)
	mockClient.AssertExpectations(t)
}
