// Package dynamodb stores session locations in an Amazon DynamoDB table keyed by session_id.
package dynamodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jonboulle/clockwork"
	"github.com/matjip-map/discovery-service/internal/domain"
)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// item is the table row layout.
type item struct {
	SessionID string    `dynamodbav:"session_id"`
	Lat       float64   `dynamodbav:"lat"`
	Lng       float64   `dynamodbav:"lng"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}

// SessionStore implements domain.SessionStore on DynamoDB. Each write replaces
// the whole item, so a read never mixes two reports.
type SessionStore struct {
	client    API
	tableName string
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewClient builds a DynamoDB client from the default AWS credential chain.
func NewClient(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// NewSessionStore creates a store over tableName. A nil clock means the wall clock.
func NewSessionStore(client API, tableName string, clock clockwork.Clock, logger *slog.Logger) *SessionStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionStore{client: client, tableName: tableName, clock: clock, logger: logger}
}

// SetLocation overwrites the session's item.
func (s *SessionStore) SetLocation(ctx context.Context, sessionID string, c domain.Coordinate) error {
	if err := c.Validate(); err != nil {
		return err
	}

	av, err := attributevalue.MarshalMap(item{
		SessionID: sessionID,
		Lat:       c.Lat,
		Lng:       c.Lng,
		UpdatedAt: s.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal session location: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put session location: %w: %w", domain.ErrUnavailable, err)
	}
	s.logger.Debug("session location stored", "session_id", sessionID)
	return nil
}

// GetLocation reads the session's item with a strongly consistent read.
func (s *SessionStore) GetLocation(ctx context.Context, sessionID string) (domain.SessionLocation, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]dynamodbtypes.AttributeValue{
			"session_id": &dynamodbtypes.AttributeValueMemberS{Value: sessionID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.SessionLocation{}, false, fmt.Errorf("get session location: %w: %w", domain.ErrUnavailable, err)
	}
	if len(out.Item) == 0 {
		return domain.SessionLocation{}, false, nil
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return domain.SessionLocation{}, false, fmt.Errorf("unmarshal session location: %w: %w", domain.ErrUnavailable, err)
	}
	return domain.SessionLocation{
		SessionID:  it.SessionID,
		Coordinate: domain.Coordinate{Lat: it.Lat, Lng: it.Lng},
		UpdatedAt:  it.UpdatedAt,
	}, true, nil
}

// Ping checks that the table exists and is reachable.
func (s *SessionStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)})
	if err != nil {
		return fmt.Errorf("describe table %s: %w: %w", s.tableName, domain.ErrUnavailable, err)
	}
	return nil
}
