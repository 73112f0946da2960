package dynamodb

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jonboulle/clockwork"
	"github.com/matjip-map/discovery-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fake DynamoDB ---

type fakeTable struct {
	mu       sync.Mutex
	items    map[string]map[string]dynamodbtypes.AttributeValue
	lastGet  *dynamodb.GetItemInput
	failWith error
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: make(map[string]map[string]dynamodbtypes.AttributeValue)}
}

func (f *fakeTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	key := in.Item["session_id"].(*dynamodbtypes.AttributeValueMemberS).Value
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastGet = in
	if f.failWith != nil {
		return nil, f.failWith
	}
	key := in.Key["session_id"].(*dynamodbtypes.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[key]}, nil
}

func (f *fakeTable) DescribeTable(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{}, f.failWith
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestSessionStore_RoundTrip(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	table := newFakeTable()
	store := NewSessionStore(table, "session_locations", clockwork.NewFakeClockAt(start), discardLogger())
	ctx := context.Background()

	c := domain.Coordinate{Lat: 37.6027, Lng: 126.9292}
	require.NoError(t, store.SetLocation(ctx, "s1", c))

	loc, ok, err := store.GetLocation(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "s1", loc.SessionID)
	assert.Equal(t, c, loc.Coordinate)
	assert.True(t, start.Equal(loc.UpdatedAt))

	require.NotNil(t, table.lastGet)
	assert.True(t, aws.ToBool(table.lastGet.ConsistentRead))
	assert.Equal(t, "session_locations", aws.ToString(table.lastGet.TableName))
}

func TestSessionStore_Missing(t *testing.T) {
	store := NewSessionStore(newFakeTable(), "t", clockwork.NewFakeClock(), discardLogger())

	_, ok, err := store.GetLocation(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_OverwriteAdvancesTimestamp(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewSessionStore(newFakeTable(), "t", clock, discardLogger())
	ctx := context.Background()
	c := domain.Coordinate{Lat: 37.2636, Lng: 127.0286}

	require.NoError(t, store.SetLocation(ctx, "s1", c))
	first, _, _ := store.GetLocation(ctx, "s1")
	clock.Advance(30 * time.Second)
	require.NoError(t, store.SetLocation(ctx, "s1", c))
	second, _, _ := store.GetLocation(ctx, "s1")

	assert.Equal(t, first.Coordinate, second.Coordinate)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestSessionStore_RejectsInvalid(t *testing.T) {
	table := newFakeTable()
	store := NewSessionStore(table, "t", nil, discardLogger())

	err := store.SetLocation(context.Background(), "s1", domain.Coordinate{Lat: -91})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Empty(t, table.items)
}

func TestSessionStore_BackendFailureIsUnavailable(t *testing.T) {
	table := newFakeTable()
	table.failWith = errors.New("throttled")
	store := NewSessionStore(table, "t", nil, discardLogger())
	ctx := context.Background()

	err := store.SetLocation(ctx, "s1", domain.Coordinate{Lat: 1, Lng: 1})
	require.ErrorIs(t, err, domain.ErrUnavailable)

	_, _, err = store.GetLocation(ctx, "s1")
	require.ErrorIs(t, err, domain.ErrUnavailable)

	require.ErrorIs(t, store.Ping(ctx), domain.ErrUnavailable)
}

func TestSessionStore_CorruptItemIsUnavailable(t *testing.T) {
	table := newFakeTable()
	table.items["s1"] = map[string]dynamodbtypes.AttributeValue{
		"session_id": &dynamodbtypes.AttributeValueMemberS{Value: "s1"},
		"lat":        &dynamodbtypes.AttributeValueMemberS{Value: "north"},
		"lng":        &dynamodbtypes.AttributeValueMemberN{Value: "127"},
	}
	store := NewSessionStore(table, "t", nil, discardLogger())

	_, ok, err := store.GetLocation(context.Background(), "s1")
	require.ErrorIs(t, err, domain.ErrUnavailable)
	assert.False(t, ok)
}
