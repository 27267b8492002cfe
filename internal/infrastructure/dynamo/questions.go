package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/qna-api/internal/domain"
)

// QuestionRepo provides typed DynamoDB operations for the questions table.
type QuestionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewQuestionRepo(client *dynamodb.Client, tableName string) *QuestionRepo {
	return &QuestionRepo{client: client, tableName: tableName}
}

func (r *QuestionRepo) Put(ctx context.Context, q *domain.Question) error {
	item, err := attributevalue.MarshalMap(q)
	if err != nil {
		return fmt.Errorf("marshal question: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *QuestionRepo) Get(ctx context.Context, questionID string) (*domain.Question, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("question_id", questionID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("question %s: %w", questionID, domain.ErrNotFound)
	}
	var q domain.Question
	if err := attributevalue.UnmarshalMap(out.Item, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// AddVote atomically increments the vote counter.
func (r *QuestionRepo) AddVote(ctx context.Context, questionID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey("question_id", questionID),
		UpdateExpression: aws.String("ADD votes :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ConditionExpression: aws.String("attribute_exists(question_id)"),
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return fmt.Errorf("question %s: %w", questionID, domain.ErrNotFound)
		}
	}
	return err
}

// Scan returns every question. Fine for a small board; a real listing would
// page through a GSI.
func (r *QuestionRepo) Scan(ctx context.Context) ([]domain.Question, error) {
	var questions []domain.Question
	var cursor map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: cursor,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.Question
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		questions = append(questions, page...)
		cursor = out.LastEvaluatedKey
		if cursor == nil {
			return questions, nil
		}
	}
}
