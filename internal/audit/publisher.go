// Package audit publishes pipeline completion events to an async
// queue for downstream analytics. Publishing is advisory: a failure is
// the caller's to log, never to fail an operation over.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Event types.
const (
	EventScanCompleted = "scanCompleted"
	EventEmailsDeleted = "emailsDeleted"
)

// Event is one pipeline completion record.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	EmailCount int       `json:"emailCount"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher publishes audit events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// SQSSender abstracts SQS send operations for dependency inversion.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher publishes audit events to an SQS queue.
type SQSPublisher struct {
	client   SQSSender
	queueURL string
}

// NewSQSPublisher creates a new SQSPublisher.
func NewSQSPublisher(client SQSSender, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

// Publish sends one event to the queue.
func (p *SQSPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	bodyStr := string(body)
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &p.queueURL,
		MessageBody: &bodyStr,
	})
	return err
}
