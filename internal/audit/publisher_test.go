package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type mockSQSSender struct {
	sendMessage func(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

func (m *mockSQSSender) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return m.sendMessage(ctx, params, optFns...)
}

func TestPublish(t *testing.T) {
	var captured *sqs.SendMessageInput
	sender := &mockSQSSender{
		sendMessage: func(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
			captured = params
			return &sqs.SendMessageOutput{}, nil
		},
	}

	occurred := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	err := NewSQSPublisher(sender, "https://sqs.example/queue").Publish(context.Background(), Event{
		Type:       EventScanCompleted,
		UserID:     "u1",
		EmailCount: 42,
		OccurredAt: occurred,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *captured.QueueUrl != "https://sqs.example/queue" {
		t.Errorf("queueUrl = %q", *captured.QueueUrl)
	}

	var event Event
	if err := json.Unmarshal([]byte(*captured.MessageBody), &event); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if event.Type != EventScanCompleted || event.UserID != "u1" || event.EmailCount != 42 {
		t.Errorf("event = %+v", event)
	}
	if !event.OccurredAt.Equal(occurred) {
		t.Errorf("occurredAt = %v, want %v", event.OccurredAt, occurred)
	}
}

func TestPublish_DefaultsTimestamp(t *testing.T) {
	sender := &mockSQSSender{
		sendMessage: func(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
			var event Event
			if err := json.Unmarshal([]byte(*params.MessageBody), &event); err != nil {
				t.Fatalf("unmarshal body: %v", err)
			}
			if event.OccurredAt.IsZero() {
				t.Error("occurredAt was not defaulted")
			}
			return &sqs.SendMessageOutput{}, nil
		},
	}

	err := NewSQSPublisher(sender, "q").Publish(context.Background(), Event{Type: EventEmailsDeleted, UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPublish_SendError(t *testing.T) {
	wantErr := errors.New("queue unavailable")
	sender := &mockSQSSender{
		sendMessage: func(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
			return nil, wantErr
		},
	}

	err := NewSQSPublisher(sender, "q").Publish(context.Background(), Event{Type: EventScanCompleted})
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
}
