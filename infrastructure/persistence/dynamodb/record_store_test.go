package dynamodb_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	dynamostore "github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/persistence/dynamodb"
	pkgerrors "github.com/moatasim-KT/interactive-knowledge-system-sub006/pkg/errors"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/tests/fixtures"
)

// fakeTable keeps items in memory and understands just enough of the
// expressions the store emits: a PK/SK prefix key condition, one equality
// filter, attribute_not_exists and a version equality condition.
type fakeTable struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	pageSize int
	failWith error
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: make(map[string]map[string]types.AttributeValue)}
}

func str(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

func itemKey(item map[string]types.AttributeValue) string {
	return str(item["PK"]) + "|" + str(item["SK"])
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeTable) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var pk, prefix, filterAttr, filterValue string
	for _, v := range in.ExpressionAttributeValues {
		s := str(v)
		switch {
		case strings.HasPrefix(s, "STORE#"):
			pk = s
		case strings.HasPrefix(s, "REC#") || strings.HasPrefix(s, "VER#"):
			prefix = s
		default:
			filterValue = s
		}
	}
	for _, name := range in.ExpressionAttributeNames {
		if strings.HasPrefix(name, "IDX_") {
			filterAttr = name
		}
	}

	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		after := itemKey(in.ExclusiveStartKey)
		start = sort.SearchStrings(keys, after) + 1
	}

	out := &dynamodb.QueryOutput{}
	var prev map[string]types.AttributeValue
	evaluated := 0
	for i := start; i < len(keys); i++ {
		item := f.items[keys[i]]
		if str(item["PK"]) != pk || !strings.HasPrefix(str(item["SK"]), prefix) {
			continue
		}
		if f.pageSize > 0 && evaluated == f.pageSize {
			out.LastEvaluatedKey = lastKey(prev)
			break
		}
		evaluated++
		prev = item
		if filterAttr != "" && str(item[filterAttr]) != filterValue {
			continue
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func lastKey(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"PK": item["PK"], "SK": item["SK"]}
}

func (f *fakeTable) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, ti := range in.TransactItems {
		var key, cond string
		var values map[string]types.AttributeValue
		switch {
		case ti.Put != nil:
			key, cond, values = itemKey(ti.Put.Item), aws.ToString(ti.Put.ConditionExpression), ti.Put.ExpressionAttributeValues
		case ti.Delete != nil:
			key, cond, values = itemKey(ti.Delete.Key), aws.ToString(ti.Delete.ConditionExpression), ti.Delete.ExpressionAttributeValues
		}
		if !f.holds(key, cond, values) {
			reasons[i].Code = aws.String("ConditionalCheckFailed")
			failed = true
		} else {
			reasons[i].Code = aws.String("None")
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{CancellationReasons: reasons}
	}

	for _, ti := range in.TransactItems {
		if ti.Put != nil {
			f.items[itemKey(ti.Put.Item)] = ti.Put.Item
		}
		if ti.Delete != nil {
			delete(f.items, itemKey(ti.Delete.Key))
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeTable) holds(key, cond string, values map[string]types.AttributeValue) bool {
	existing, exists := f.items[key]
	switch {
	case cond == "":
		return true
	case strings.Contains(cond, "attribute_not_exists"):
		return !exists
	default:
		if !exists {
			return false
		}
		for _, v := range values {
			return str(existing["Version"]) == str(v)
		}
		return false
	}
}

func newStore(table *fakeTable) *dynamostore.RecordStore[entities.ContentLink] {
	return dynamostore.NewRecordStore[entities.ContentLink](table, "links-table", "links", nil)
}

func TestRecordStore_AddGetConflict(t *testing.T) {
	store := newStore(newFakeTable())
	ctx := context.Background()
	link := fixtures.NewLinkBuilder("a", "b").WithID("l1").Build()

	require.NoError(t, store.Add(ctx, link, "created"))
	err := store.Add(ctx, link, "again")

	assert.True(t, pkgerrors.IsConflict(err))
	got, ok, err := store.Get(ctx, "l1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, link, got)

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordStore_PutKeepsInsertionOrder(t *testing.T) {
	store := newStore(newFakeTable())
	ctx := context.Background()
	for _, id := range []string{"z", "x", "y"} {
		require.NoError(t, store.Add(ctx, fixtures.NewLinkBuilder(id, "t").WithID(id).Build(), ""))
	}

	updated := fixtures.NewLinkBuilder("z", "t").WithID("z").WithStrength(0.2).Build()
	require.NoError(t, store.Put(ctx, updated, "weakened"))

	all, err := store.GetAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "z", all[0].ID)
	assert.Equal(t, 0.2, all[0].Strength)

	two, err := store.GetAll(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestRecordStore_SearchByIndexAcrossPages(t *testing.T) {
	// Arrange
	table := newFakeTable()
	table.pageSize = 1
	store := newStore(table)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, fixtures.NewLinkBuilder("a", "b").WithID("l2").Build(), ""))
	require.NoError(t, store.Add(ctx, fixtures.NewLinkBuilder("a", "c").WithID("l1").Build(), ""))
	require.NoError(t, store.Add(ctx, fixtures.NewLinkBuilder("x", "b").WithID("l3").Build(), ""))

	// Act
	bySource, err := store.SearchByIndex(ctx, entities.IndexSourceID, "a", 0)

	// Assert
	require.NoError(t, err)
	require.Len(t, bySource, 2)
	assert.Equal(t, "l1", bySource[0].ID)
	assert.Equal(t, "l2", bySource[1].ID)
}

func TestRecordStore_DeleteAndHistory(t *testing.T) {
	store := newStore(newFakeTable())
	ctx := context.Background()
	link := fixtures.NewLinkBuilder("a", "b").WithID("l1").Build()
	require.NoError(t, store.Add(ctx, link, "created"))
	link.Strength = 0.5
	require.NoError(t, store.Put(ctx, link, "weakened"))

	deleted, err := store.Delete(ctx, "l1", "removed")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = store.Delete(ctx, "l1", "removed")
	require.NoError(t, err)
	assert.False(t, deleted)

	history, err := store.History(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{history[0].Version, history[1].Version, history[2].Version})
	assert.Equal(t, "weakened", history[1].Description)
	require.NotNil(t, history[1].Record)
	assert.Equal(t, 0.5, history[1].Record.Strength)
	assert.True(t, history[2].Deleted)
	assert.Nil(t, history[2].Record)
}

func TestRecordStore_WrapsTransportErrors(t *testing.T) {
	table := newFakeTable()
	table.failWith = errors.New("connection reset")
	store := newStore(table)

	err := store.Add(context.Background(), fixtures.NewLinkBuilder("a", "b").Build(), "")

	require.Error(t, err)
	assert.False(t, pkgerrors.IsConflict(err))
	assert.Contains(t, err.Error(), "connection reset")
}
