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

// AnswerRepo provides typed DynamoDB operations for the answers table.
type AnswerRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAnswerRepo(client *dynamodb.Client, tableName string) *AnswerRepo {
	return &AnswerRepo{client: client, tableName: tableName}
}

func (r *AnswerRepo) Put(ctx context.Context, a *domain.Answer) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *AnswerRepo) Get(ctx context.Context, answerID string) (*domain.Answer, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("answer_id", answerID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("answer %s: %w", answerID, domain.ErrNotFound)
	}
	var a domain.Answer
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByQuestion returns every answer to a question via the question_id GSI.
func (r *AnswerRepo) ListByQuestion(ctx context.Context, questionID string) ([]domain.Answer, error) {
	var answers []domain.Answer
	var cursor map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("question_id-index"),
			KeyConditionExpression: aws.String("question_id = :qid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":qid": &types.AttributeValueMemberS{Value: questionID},
			},
			ExclusiveStartKey: cursor,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.Answer
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		answers = append(answers, page...)
		cursor = out.LastEvaluatedKey
		if cursor == nil {
			return answers, nil
		}
	}
}

// AddVote atomically increments the vote counter.
func (r *AnswerRepo) AddVote(ctx context.Context, answerID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey("answer_id", answerID),
		UpdateExpression: aws.String("ADD votes :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ConditionExpression: aws.String("attribute_exists(answer_id)"),
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return fmt.Errorf("answer %s: %w", answerID, domain.ErrNotFound)
		}
	}
	return err
}
