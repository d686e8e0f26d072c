package analytics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// timestampLayout is fixed-width so the range key sorts chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

const maxAppendAttempts = 5

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore keeps events in a table keyed by orgId (hash) and timestamp
// (range), with ttl as the table's expiry attribute.
type DynamoStore struct {
	Client DynamoAPI
	Table  string
	Now    func() time.Time
}

type eventItem struct {
	OrgID     string         `dynamodbav:"orgId"`
	Timestamp string         `dynamodbav:"timestamp"`
	EventType string         `dynamodbav:"eventType"`
	UserID    string         `dynamodbav:"userId,omitempty"`
	Metadata  map[string]any `dynamodbav:"metadata"`
	TTL       int64          `dynamodbav:"ttl"`
}

// Append writes the event once. Events never overwrite each other: when
// another event already holds the same org and timestamp, the write moves
// forward one microsecond and tries again.
func (s *DynamoStore) Append(ctx context.Context, e Event) error {
	if err := e.validate(); err != nil {
		return err
	}
	ts := e.Timestamp.UTC()
	for attempt := 1; ; attempt++ {
		item, err := attributevalue.MarshalMap(eventItem{
			OrgID:     e.OrgID,
			Timestamp: ts.Format(timestampLayout),
			EventType: string(e.EventType),
			UserID:    e.UserID,
			Metadata:  cloneMetadata(e.Metadata),
			TTL:       e.TTL,
		})
		if err != nil {
			return fmt.Errorf("encode analytics event: %w", err)
		}
		_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                aws.String(s.Table),
			Item:                     item,
			ConditionExpression:      aws.String("attribute_not_exists(#ts)"),
			ExpressionAttributeNames: map[string]string{"#ts": "timestamp"},
		})
		var taken *types.ConditionalCheckFailedException
		switch {
		case err == nil:
			return nil
		case errors.As(err, &taken) && attempt < maxAppendAttempts:
			ts = ts.Add(time.Microsecond)
		default:
			return fmt.Errorf("put analytics event: %w", err)
		}
	}
}

// Recent pages through the partition newest first. DynamoDB applies Limit
// before the expiry filter, so paging continues until limit live events are found.
func (s *DynamoStore) Recent(ctx context.Context, orgID string, limit int) ([]Event, error) {
	out := make([]Event, 0)
	err := s.query(ctx, orgID, limit, func(e Event) bool {
		out = append(out, e)
		return limit <= 0 || len(out) < limit
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DynamoStore) Stats(ctx context.Context, orgID string) (Stats, error) {
	var events []Event
	err := s.query(ctx, orgID, 0, func(e Event) bool {
		events = append(events, e)
		return true
	})
	if err != nil {
		return Stats{}, err
	}
	return aggregate(orgID, events), nil
}

func (s *DynamoStore) query(ctx context.Context, orgID string, pageSize int, visit func(Event) bool) error {
	now := s.now().Unix()
	var startKey map[string]types.AttributeValue
	for {
		in := &dynamodb.QueryInput{
			TableName:              aws.String(s.Table),
			KeyConditionExpression: aws.String("orgId = :orgId"),
			FilterExpression:       aws.String("#ttl > :now"),
			ExpressionAttributeNames: map[string]string{
				"#ttl": "ttl",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":orgId": &types.AttributeValueMemberS{Value: orgID},
				":now":   &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)},
			},
			ScanIndexForward:  aws.Bool(false),
			ExclusiveStartKey: startKey,
		}
		if pageSize > 0 {
			in.Limit = aws.Int32(int32(pageSize))
		}
		page, err := s.Client.Query(ctx, in)
		if err != nil {
			return fmt.Errorf("query analytics events: %w", err)
		}
		var items []eventItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return fmt.Errorf("decode analytics events: %w", err)
		}
		for _, it := range items {
			e, err := it.event()
			if err != nil {
				return err
			}
			if !visit(e) {
				return nil
			}
		}
		if len(page.LastEvaluatedKey) == 0 {
			return nil
		}
		startKey = page.LastEvaluatedKey
	}
}

func (it eventItem) event() (Event, error) {
	ts, err := time.Parse(timestampLayout, it.Timestamp)
	if err != nil {
		ts, err = time.Parse(time.RFC3339Nano, it.Timestamp)
		if err != nil {
			return Event{}, fmt.Errorf("decode event timestamp %q: %w", it.Timestamp, err)
		}
	}
	md := it.Metadata
	if md == nil {
		md = map[string]any{}
	}
	return Event{
		OrgID:     it.OrgID,
		Timestamp: ts,
		EventType: EventType(it.EventType),
		UserID:    it.UserID,
		Metadata:  md,
		TTL:       it.TTL,
	}, nil
}

func (s *DynamoStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

var _ Store = (*DynamoStore)(nil)
