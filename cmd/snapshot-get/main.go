// Package main implements the snapshot-get Lambda handler: the
// session-start read of a user's persisted scan snapshot.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mailsweep/mailsweep-service/internal/awsinit"
	"github.com/mailsweep/mailsweep-service/internal/logging"
	"github.com/mailsweep/mailsweep-service/internal/snapshot"
	"github.com/mailsweep/mailsweep-service/internal/tracing"
)

var logger = logging.New()

// SnapshotLoader reads persisted snapshots.
type SnapshotLoader interface {
	Load(ctx context.Context, userID string) (*snapshot.Snapshot, error)
}

// Request is the snapshot-get invocation payload.
type Request struct {
	UserID string `json:"userId"`
}

// ErrorInfo describes a failed invocation.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the snapshot-get invocation result. Found is false when
// the user has never completed a scan.
type Response struct {
	Found         bool                        `json:"found"`
	Emails        []snapshot.CategorizedEmail `json:"emails"`
	NextPageToken string                      `json:"nextPageToken,omitempty"`
	UpdatedAt     *time.Time                  `json:"updatedAt,omitempty"`
	Error         *ErrorInfo                  `json:"error,omitempty"`
}

// handler implements the snapshot-get logic.
type handler struct {
	store SnapshotLoader
}

// newHandler creates a new handler.
func newHandler(store SnapshotLoader) *handler {
	return &handler{store: store}
}

// handle reads the user's snapshot.
func (h *handler) handle(ctx context.Context, request Request) (Response, error) {
	tracer := tracing.Tracer("mailsweep-snapshot-get")
	ctx, span := tracer.Start(ctx, "SnapshotGetHandler")
	defer span.End()

	if request.UserID == "" {
		return Response{Error: &ErrorInfo{Code: "invalidRequest", Message: "userId is required"}}, nil
	}

	snap, err := h.store.Load(ctx, request.UserID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load snapshot",
			slog.String("user_id", request.UserID),
			slog.String("error", err.Error()),
		)
		return Response{Error: &ErrorInfo{Code: "internal", Message: err.Error()}}, nil
	}
	if snap == nil {
		return Response{Found: false, Emails: []snapshot.CategorizedEmail{}}, nil
	}

	updatedAt := snap.UpdatedAt
	return Response{
		Found:         true,
		Emails:        snap.CategorizedEmails,
		NextPageToken: snap.NextPageToken,
		UpdatedAt:     &updatedAt,
	}, nil
}

func main() {
	ctx := context.Background()

	result, err := awsinit.Init(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to initialize", slog.String("error", err.Error()))
		panic(err)
	}

	tableName := os.Getenv("SNAPSHOT_TABLE_NAME")

	dynamoClient := dynamodb.NewFromConfig(result.Config)

	// Warm the DynamoDB connection during init
	warmCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	_, _ = dynamoClient.Query(warmCtx, &dynamodb.QueryInput{
		TableName:              aws.String(tableName),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "WARMUP"},
		},
		Limit: aws.Int32(1),
	})
	cancel()

	store := snapshot.NewRepository(dynamoClient, tableName)

	h := newHandler(store)
	result.Start(h.handle)
}
