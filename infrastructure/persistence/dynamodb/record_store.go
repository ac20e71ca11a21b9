// Package dynamodb stores records in a single DynamoDB table.
//
// Layout:
//
//	PK = STORE#<namespace>  SK = REC#<key>             current record
//	PK = STORE#<namespace>  SK = VER#<key>#<version>   one item per change
//
// Index values are copied onto the record item as IDX_<name> attributes and
// matched with a filter expression.
package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/ports"
	pkgerrors "github.com/moatasim-KT/interactive-knowledge-system-sub006/pkg/errors"
)

const (
	recordPrefix  = "REC#"
	versionPrefix = "VER#"
	indexPrefix   = "IDX_"
)

// API is the subset of the DynamoDB client the store uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type recordItem struct {
	PK      string `dynamodbav:"PK"`
	SK      string `dynamodbav:"SK"`
	Key     string `dynamodbav:"Key"`
	Data    string `dynamodbav:"Data"`
	Seq     int64  `dynamodbav:"Seq"`
	Version int    `dynamodbav:"Version"`
}

type versionItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	Key         string `dynamodbav:"Key"`
	Version     int    `dynamodbav:"Version"`
	Data        string `dynamodbav:"Data,omitempty"`
	Description string `dynamodbav:"Description,omitempty"`
	ChangedAt   string `dynamodbav:"ChangedAt"`
	Deleted     bool   `dynamodbav:"Deleted"`
}

// RecordStore implements ports.RecordStore on DynamoDB
type RecordStore[T ports.Record] struct {
	client    API
	tableName string
	namespace string
	logger    *zap.Logger
	now       func() time.Time

	seqMu   sync.Mutex
	lastSeq int64
}

// NewRecordStore creates a store for one namespace of the table
func NewRecordStore[T ports.Record](client API, tableName, namespace string, logger *zap.Logger) *RecordStore[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordStore[T]{
		client:    client,
		tableName: tableName,
		namespace: namespace,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *RecordStore[T]) pk() string {
	return "STORE#" + s.namespace
}

func recordSK(key string) string {
	return recordPrefix + key
}

func versionSK(key string, version int) string {
	return fmt.Sprintf("%s%s#%010d", versionPrefix, key, version)
}

func (s *RecordStore[T]) keyOf(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: s.pk()},
		"SK": &types.AttributeValueMemberS{Value: recordSK(key)},
	}
}

// Get returns the record stored under key
func (s *RecordStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	item, err := s.getItem(ctx, key)
	if err != nil || item == nil {
		return zero, false, err
	}
	rec, err := decode[T](item.Data)
	if err != nil {
		return zero, false, err
	}
	return rec, true, nil
}

func (s *RecordStore[T]) getItem(ctx context.Context, key string) (*recordItem, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.keyOf(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("DynamoDB GetItem failed for %s: %w", key, err)
	}
	if result.Item == nil {
		return nil, nil
	}
	var item recordItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", key, err)
	}
	return &item, nil
}

// GetAll returns records in insertion order
func (s *RecordStore[T]) GetAll(ctx context.Context, limit int) ([]T, error) {
	items, err := s.queryRecords(ctx, nil)
	if err != nil {
		return nil, err
	}
	return s.decodeAll(items, limit)
}

// SearchByIndex returns records in key order whose index value matches
func (s *RecordStore[T]) SearchByIndex(ctx context.Context, index, value string, limit int) ([]T, error) {
	filter := expression.Name(indexPrefix + index).Equal(expression.Value(value))
	items, err := s.queryRecords(ctx, &filter)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return s.decodeAll(items, limit)
}

func (s *RecordStore[T]) queryRecords(ctx context.Context, filter *expression.ConditionBuilder) ([]recordItem, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(s.pk())).
		And(expression.Key("SK").BeginsWith(recordPrefix))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if filter != nil {
		builder = builder.WithFilter(*filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if filter != nil {
		input.FilterExpression = expr.Filter()
	}

	var items []recordItem
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("DynamoDB Query failed: %w", err)
		}
		for _, raw := range result.Items {
			var item recordItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				s.logger.Warn("Failed to parse record item", zap.Error(err))
				continue
			}
			items = append(items, item)
		}
		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Seq != items[j].Seq {
			return items[i].Seq < items[j].Seq
		}
		return items[i].Key < items[j].Key
	})
	return items, nil
}

func (s *RecordStore[T]) decodeAll(items []recordItem, limit int) ([]T, error) {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		rec, err := decode[T](item.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Add inserts a new record
func (s *RecordStore[T]) Add(ctx context.Context, record T, description string) error {
	cond := expression.AttributeNotExists(expression.Name("PK"))
	return s.write(ctx, record, nil, cond, description)
}

// Put inserts or replaces a record. Concurrent writers of the same key are
// detected through the stored version and reported as a conflict.
func (s *RecordStore[T]) Put(ctx context.Context, record T, description string) error {
	existing, err := s.getItem(ctx, record.GetID())
	if err != nil {
		return err
	}
	cond := expression.AttributeNotExists(expression.Name("PK"))
	if existing != nil {
		cond = expression.Name("Version").Equal(expression.Value(existing.Version))
	}
	return s.write(ctx, record, existing, cond, description)
}

func (s *RecordStore[T]) write(ctx context.Context, record T, existing *recordItem, cond expression.ConditionBuilder, description string) error {
	key := record.GetID()
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", key, err)
	}

	now := s.now().UTC()
	item := recordItem{
		PK:      s.pk(),
		SK:      recordSK(key),
		Key:     key,
		Data:    string(data),
		Seq:     s.nextSeq(now),
		Version: 1,
	}
	if existing != nil {
		item.Seq = existing.Seq
		item.Version = existing.Version + 1
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", key, err)
	}
	for index, value := range record.IndexValues() {
		av[indexPrefix+index] = &types.AttributeValueMemberS{Value: value}
	}

	version, err := attributevalue.MarshalMap(versionItem{
		PK:          s.pk(),
		SK:          versionSK(key, item.Version),
		Key:         key,
		Version:     item.Version,
		Data:        string(data),
		Description: description,
		ChangedAt:   now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal version of %s: %w", key, err)
	}

	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build condition for %s: %w", key, err)
	}

	return s.transact(ctx, key, []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:                 aws.String(s.tableName),
			Item:                      av,
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}},
		{Put: &types.Put{
			TableName: aws.String(s.tableName),
			Item:      version,
		}},
	})
}

// nextSeq orders inserts made by this process even within one clock tick
func (s *RecordStore[T]) nextSeq(now time.Time) int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	seq := now.UnixNano()
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	s.lastSeq = seq
	return seq
}

// Delete removes a record
func (s *RecordStore[T]) Delete(ctx context.Context, key string, description string) (bool, error) {
	existing, err := s.getItem(ctx, key)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	version, err := attributevalue.MarshalMap(versionItem{
		PK:          s.pk(),
		SK:          versionSK(key, existing.Version+1),
		Key:         key,
		Version:     existing.Version + 1,
		Description: description,
		ChangedAt:   s.now().UTC().Format(time.RFC3339Nano),
		Deleted:     true,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal version of %s: %w", key, err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("Version").Equal(expression.Value(existing.Version))).
		Build()
	if err != nil {
		return false, fmt.Errorf("failed to build condition for %s: %w", key, err)
	}

	err = s.transact(ctx, key, []types.TransactWriteItem{
		{Delete: &types.Delete{
			TableName:                 aws.String(s.tableName),
			Key:                       s.keyOf(key),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}},
		{Put: &types.Put{
			TableName: aws.String(s.tableName),
			Item:      version,
		}},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// History returns every version of key, oldest first
func (s *RecordStore[T]) History(ctx context.Context, key string) ([]ports.Version[T], error) {
	keyCond := expression.Key("PK").Equal(expression.Value(s.pk())).
		And(expression.Key("SK").BeginsWith(versionPrefix + key + "#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build history expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	}

	var versions []ports.Version[T]
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("DynamoDB Query failed for history of %s: %w", key, err)
		}
		for _, raw := range result.Items {
			var item versionItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal version of %s: %w", key, err)
			}
			v, err := toVersion[T](item)
			if err != nil {
				return nil, err
			}
			versions = append(versions, v)
		}
		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return versions, nil
}

func toVersion[T ports.Record](item versionItem) (ports.Version[T], error) {
	v := ports.Version[T]{
		Version:     item.Version,
		Description: item.Description,
		Deleted:     item.Deleted,
	}
	changedAt, err := time.Parse(time.RFC3339Nano, item.ChangedAt)
	if err != nil {
		return v, fmt.Errorf("failed to parse version time: %w", err)
	}
	v.ChangedAt = changedAt
	if !item.Deleted && item.Data != "" {
		rec, err := decode[T](item.Data)
		if err != nil {
			return v, err
		}
		v.Record = &rec
	}
	return v, nil
}

func (s *RecordStore[T]) transact(ctx context.Context, key string, items []types.TransactWriteItem) error {
	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return nil
	}
	if conditionFailed(err) {
		return pkgerrors.NewConflict(fmt.Sprintf("record %s was modified concurrently or already exists", key))
	}
	return fmt.Errorf("DynamoDB TransactWriteItems failed for %s: %w", key, err)
}

func conditionFailed(err error) bool {
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if strings.EqualFold(aws.ToString(reason.Code), "ConditionalCheckFailed") {
				return true
			}
		}
	}
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func decode[T any](data string) (T, error) {
	var rec T
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return rec, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}
