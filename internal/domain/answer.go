package domain

import "time"

type Answer struct {
	AnswerID     string    `json:"id" dynamodbav:"answer_id"`
	QuestionID   string    `json:"question_id" dynamodbav:"question_id"`
	AuthorUserID string    `json:"author_user_id" dynamodbav:"author_user_id"`
	Content      string    `json:"content" dynamodbav:"content"`
	Votes        int       `json:"votes" dynamodbav:"votes"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateAnswerRequest struct {
	Content string `json:"content" validate:"required"`
}
