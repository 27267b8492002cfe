package dynamo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/qna-api/internal/domain"
)

// NotificationRepo provides typed DynamoDB operations for the notifications
// table. All per-user reads go through the user_id-created_at GSI.
type NotificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

const notifUserIndex = "user_id-created_at-index"

func NewNotificationRepo(client *dynamodb.Client, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

// notificationItem is the storage shape. created_at is a fixed-width string
// (see tsLayout) so GSI range conditions compare chronologically.
type notificationItem struct {
	NotificationID string `dynamodbav:"notification_id"`
	UserID         string `dynamodbav:"user_id"`
	ActorUserID    string `dynamodbav:"actor_user_id"`
	EventType      string `dynamodbav:"event_type"`
	ResourceType   string `dynamodbav:"resource_type"`
	ResourceID     string `dynamodbav:"resource_id"`
	Message        string `dynamodbav:"message"`
	IsRead         bool   `dynamodbav:"is_read"`
	CreatedAt      string `dynamodbav:"created_at"`
}

func toItem(n *domain.Notification) notificationItem {
	return notificationItem{
		NotificationID: n.NotificationID,
		UserID:         n.UserID,
		ActorUserID:    n.ActorUserID,
		EventType:      n.EventType,
		ResourceType:   n.ResourceType,
		ResourceID:     n.ResourceID,
		Message:        n.Message,
		IsRead:         n.IsRead,
		CreatedAt:      formatTS(n.CreatedAt),
	}
}

func (it notificationItem) toDomain() (domain.Notification, error) {
	createdAt, err := parseTS(it.CreatedAt)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("parse created_at of %s: %w", it.NotificationID, err)
	}
	return domain.Notification{
		NotificationID: it.NotificationID,
		UserID:         it.UserID,
		ActorUserID:    it.ActorUserID,
		EventType:      it.EventType,
		ResourceType:   it.ResourceType,
		ResourceID:     it.ResourceID,
		Message:        it.Message,
		IsRead:         it.IsRead,
		CreatedAt:      createdAt,
	}, nil
}

func (r *NotificationRepo) Put(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(toItem(n))
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("notification_id", notificationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	var it notificationItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	n, err := it.toDomain()
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByUser returns one page of a user's notifications, newest first.
// DynamoDB has no native offset, so the query walks offset+limit items and
// slices; page depth is bounded by the handler's size cap.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Notification, error) {
	want := offset + limit
	items := make([]notificationItem, 0, want)
	var cursor map[string]types.AttributeValue
	for len(items) < want {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(notifUserIndex),
			KeyConditionExpression: aws.String("user_id = :uid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: userID},
			},
			ScanIndexForward:  aws.Bool(false),
			Limit:             aws.Int32(int32(want - len(items))),
			ExclusiveStartKey: cursor,
		})
		if err != nil {
			return nil, err
		}
		var page []notificationItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		items = append(items, page...)
		cursor = out.LastEvaluatedKey
		if cursor == nil {
			break
		}
	}
	if offset >= len(items) {
		return []domain.Notification{}, nil
	}
	return itemsToDomain(items[offset:])
}

// Counts returns the total and unread notification counts for a user.
func (r *NotificationRepo) Counts(ctx context.Context, userID string) (total, unread int, err error) {
	total, err = r.count(ctx, userID, false)
	if err != nil {
		return 0, 0, err
	}
	unread, err = r.count(ctx, userID, true)
	if err != nil {
		return 0, 0, err
	}
	return total, unread, nil
}

func (r *NotificationRepo) count(ctx context.Context, userID string, unreadOnly bool) (int, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(notifUserIndex),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		Select: types.SelectCount,
	}
	if unreadOnly {
		input.FilterExpression = aws.String("is_read = :f")
		input.ExpressionAttributeValues[":f"] = &types.AttributeValueMemberBOOL{Value: false}
	}
	n := 0
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return 0, err
		}
		n += int(out.Count)
		if out.LastEvaluatedKey == nil {
			return n, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// ListSince returns all notifications with created_at strictly after since
// for the given users, merged across users and sorted created_at ascending.
// One bounded Query per user id: the caller passes only users with a live
// connection on this instance, which is a handful at most.
func (r *NotificationRepo) ListSince(ctx context.Context, since time.Time, userIDs []string) ([]domain.Notification, error) {
	var items []notificationItem
	sinceTS := formatTS(since)
	for _, userID := range userIDs {
		var cursor map[string]types.AttributeValue
		for {
			out, err := r.client.Query(ctx, &dynamodb.QueryInput{
				TableName:              aws.String(r.tableName),
				IndexName:              aws.String(notifUserIndex),
				KeyConditionExpression: aws.String("user_id = :uid AND created_at > :since"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":uid":   &types.AttributeValueMemberS{Value: userID},
					":since": &types.AttributeValueMemberS{Value: sinceTS},
				},
				ExclusiveStartKey: cursor,
			})
			if err != nil {
				return nil, fmt.Errorf("list since for %s: %w", userID, err)
			}
			var page []notificationItem
			if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
				return nil, err
			}
			items = append(items, page...)
			cursor = out.LastEvaluatedKey
			if cursor == nil {
				break
			}
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt < items[j].CreatedAt })
	return itemsToDomain(items)
}

// MarkRead flips is_read on one notification. Re-marking an already-read row
// rewrites the same value, so the operation is idempotent.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{"is_read": true})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("notification_id", notificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// ListUnreadIDs returns the ids of a user's unread notifications.
func (r *NotificationRepo) ListUnreadIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	var cursor map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(notifUserIndex),
			KeyConditionExpression: aws.String("user_id = :uid"),
			FilterExpression:       aws.String("is_read = :f"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: userID},
				":f":   &types.AttributeValueMemberBOOL{Value: false},
			},
			ProjectionExpression: aws.String("notification_id"),
			ExclusiveStartKey:    cursor,
		})
		if err != nil {
			return nil, err
		}
		for _, item := range out.Items {
			if av, ok := item["notification_id"].(*types.AttributeValueMemberS); ok {
				ids = append(ids, av.Value)
			}
		}
		cursor = out.LastEvaluatedKey
		if cursor == nil {
			return ids, nil
		}
	}
}

func itemsToDomain(items []notificationItem) ([]domain.Notification, error) {
	out := make([]domain.Notification, 0, len(items))
	for _, it := range items {
		n, err := it.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
