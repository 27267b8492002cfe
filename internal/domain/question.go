package domain

import "time"

type Question struct {
	QuestionID   string    `json:"id" dynamodbav:"question_id"`
	AuthorUserID string    `json:"author_user_id" dynamodbav:"author_user_id"`
	Subject      string    `json:"subject" dynamodbav:"subject"`
	Content      string    `json:"content" dynamodbav:"content"`
	Votes        int       `json:"votes" dynamodbav:"votes"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateQuestionRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}
