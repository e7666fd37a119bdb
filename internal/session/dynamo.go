package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sentinel-intel/sentinel/pkg/logging"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type sessionItem struct {
	Identity     string     `dynamodbav:"identity"`
	History      []Exchange `dynamodbav:"history"`
	LastActivity string     `dynamodbav:"lastActivity"`
	Language     string     `dynamodbav:"language,omitempty"`
	ExpiresAt    int64      `dynamodbav:"expiresAt"`
}

// DynamoStore persists sessions in DynamoDB. The expiresAt attribute is meant
// to be registered as the table's TTL attribute; DynamoDB's sweep is
// best-effort, so Get applies the lazy-expiry check regardless.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
	ttl       time.Duration
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDynamoStore builds a store backed by the provided DynamoDB client.
func NewDynamoStore(client dynamoAPI, tableName string, logger *logging.Logger) *DynamoStore {
	if client == nil {
		panic("session: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("session: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
		ttl:       DefaultTTL,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

var _ Store = (*DynamoStore)(nil)

func (s *DynamoStore) Get(ctx context.Context, identity string) (Session, bool, error) {
	if identity == "" {
		return Session{}, false, errors.New("session: identity required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"identity": &types.AttributeValueMemberS{Value: identity},
		},
	})
	if err != nil {
		return Session{}, false, fmt.Errorf("session: failed to fetch session: %w", err)
	}
	if out.Item == nil {
		return Session{}, false, nil
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return Session{}, false, fmt.Errorf("session: failed to decode session: %w", err)
	}

	sess, err := item.toSession()
	if err != nil {
		return Session{}, false, err
	}
	if expired(sess.LastActivity, s.now(), s.ttl) {
		return Session{}, false, nil
	}
	return sess, true, nil
}

func (s *DynamoStore) Upsert(ctx context.Context, identity, language string, ex Exchange) error {
	if identity == "" {
		return errors.New("session: identity required")
	}

	lock := s.identityLock(identity)
	lock.Lock()
	defer lock.Unlock()

	if ex.Timestamp.IsZero() {
		ex.Timestamp = s.now()
	}

	sess, found, err := s.Get(ctx, identity)
	if err != nil {
		return err
	}
	if !found {
		sess = Session{Identity: identity}
	}

	sess.History = appendBounded(sess.History, ex)
	sess.LastActivity = s.now()
	if language != "" {
		sess.Language = language
	}

	item := sessionItem{
		Identity:     identity,
		History:      sess.History,
		LastActivity: sess.LastActivity.UTC().Format(time.RFC3339Nano),
		Language:     sess.Language,
		ExpiresAt:    sess.LastActivity.Add(s.ttl).Unix(),
	}
	marshaled, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("session: failed to marshal session: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      marshaled,
	})
	if err != nil {
		return fmt.Errorf("session: failed to persist session: %w", err)
	}
	return nil
}

// Cleanup deletes sessions whose expiresAt is in the past. DynamoDB TTL does
// this eventually on its own; this exists for the explicit admin sweep.
func (s *DynamoStore) Cleanup(ctx context.Context) (int, error) {
	cutoff := s.now().Unix()
	removed := 0

	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(s.tableName),
			FilterExpression:          aws.String("expiresAt <= :cutoff"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":cutoff": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", cutoff)}},
			ExpressionAttributeNames:  map[string]string{"#id": "identity"},
			ProjectionExpression:      aws.String("#id"),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return removed, fmt.Errorf("session: cleanup scan failed: %w", err)
		}

		for _, item := range out.Items {
			idAttr, ok := item["identity"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					"identity": &types.AttributeValueMemberS{Value: idAttr.Value},
				},
			})
			if err != nil {
				s.logger.Error("failed to delete expired session", "error", err)
				continue
			}
			removed++
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return removed, nil
}

func (s *DynamoStore) identityLock(identity string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[identity]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[identity] = lock
	}
	return lock
}

func (it sessionItem) toSession() (Session, error) {
	last, err := time.Parse(time.RFC3339Nano, it.LastActivity)
	if err != nil {
		return Session{}, fmt.Errorf("session: bad lastActivity timestamp: %w", err)
	}
	return Session{
		Identity:     it.Identity,
		History:      it.History,
		LastActivity: last,
		Language:     it.Language,
	}, nil
}
