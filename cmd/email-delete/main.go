// Package main implements the email-delete Lambda handler: batch
// deletion at the provider followed by snapshot reconciliation.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mailsweep/mailsweep-service/internal/audit"
	"github.com/mailsweep/mailsweep-service/internal/awsinit"
	"github.com/mailsweep/mailsweep-service/internal/gmail"
	"github.com/mailsweep/mailsweep-service/internal/logging"
	"github.com/mailsweep/mailsweep-service/internal/snapshot"
	"github.com/mailsweep/mailsweep-service/internal/tracing"
)

var logger = logging.New()

// Deleter submits batch deletes to the provider.
type Deleter interface {
	BatchDelete(ctx context.Context, accessToken string, ids []string) (gmail.DeleteResult, error)
}

// SnapshotRemover removes deleted ids from the stored snapshot.
type SnapshotRemover interface {
	RemoveEmails(ctx context.Context, userID string, ids []string) error
}

// Request is the email-delete invocation payload.
type Request struct {
	UserID      string   `json:"userId"`
	AccessToken string   `json:"accessToken"`
	IDs         []string `json:"ids"`
}

// ErrorInfo describes a failed invocation. Code "auth" tells the
// caller to force re-authentication.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the email-delete invocation result. DeletedCount is
// only meaningful when Success is true.
type Response struct {
	Success      bool       `json:"success"`
	DeletedCount int        `json:"deletedCount"`
	Error        *ErrorInfo `json:"error,omitempty"`
}

// handler implements the email-delete logic.
type handler struct {
	deleter Deleter
	store   SnapshotRemover
	auditor audit.Publisher
}

// newHandler creates a new handler.
func newHandler(deleter Deleter, store SnapshotRemover, auditor audit.Publisher) *handler {
	return &handler{deleter: deleter, store: store, auditor: auditor}
}

// handle processes one delete confirmation. The provider call is
// all-or-nothing; only after it succeeds are the ids removed from the
// persisted snapshot.
func (h *handler) handle(ctx context.Context, request Request) (Response, error) {
	tracer := tracing.Tracer("mailsweep-email-delete")
	ctx, span := tracer.Start(ctx, "EmailDeleteHandler")
	defer span.End()

	if request.UserID == "" || request.AccessToken == "" {
		return Response{Error: &ErrorInfo{Code: "invalidRequest", Message: "userId and accessToken are required"}}, nil
	}

	result, err := h.deleter.BatchDelete(ctx, request.AccessToken, request.IDs)
	if err != nil {
		logger.ErrorContext(ctx, "Batch delete failed",
			slog.String("user_id", request.UserID),
			slog.Int("ids", len(request.IDs)),
			slog.String("error", err.Error()),
		)
		return Response{Error: errorInfo(err)}, nil
	}

	if err := h.store.RemoveEmails(ctx, request.UserID, request.IDs); err != nil {
		// The provider delete went through; the snapshot is now ahead
		// of the cache. Surface the failure so the caller rescans.
		logger.ErrorContext(ctx, "Failed to reconcile snapshot after delete",
			slog.String("user_id", request.UserID),
			slog.String("error", err.Error()),
		)
		return Response{Error: &ErrorInfo{Code: "snapshot", Message: err.Error()}}, nil
	}

	if h.auditor != nil && result.DeletedCount > 0 {
		if err := h.auditor.Publish(ctx, audit.Event{
			Type:       audit.EventEmailsDeleted,
			UserID:     request.UserID,
			EmailCount: result.DeletedCount,
		}); err != nil {
			logger.WarnContext(ctx, "Failed to publish delete audit event",
				slog.String("user_id", request.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	logger.InfoContext(ctx, "Emails deleted",
		slog.String("user_id", request.UserID),
		slog.Int("deleted", result.DeletedCount),
	)

	return Response{Success: result.Success, DeletedCount: result.DeletedCount}, nil
}

// errorInfo maps the pipeline error taxonomy to response codes.
func errorInfo(err error) *ErrorInfo {
	var (
		authErr   *gmail.AuthError
		deleteErr *gmail.DeleteError
	)
	switch {
	case errors.As(err, &authErr):
		return &ErrorInfo{Code: "auth", Message: "access token rejected; re-authentication required"}
	case errors.As(err, &deleteErr):
		return &ErrorInfo{Code: "delete", Message: deleteErr.Error()}
	default:
		return &ErrorInfo{Code: "internal", Message: err.Error()}
	}
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

	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	gmailClient := gmail.NewClient(os.Getenv("GMAIL_API_BASE_URL"), httpClient)

	store := snapshot.NewRepository(dynamoClient, tableName)

	var auditor audit.Publisher
	if queueURL := os.Getenv("AUDIT_QUEUE_URL"); queueURL != "" {
		auditor = audit.NewSQSPublisher(sqs.NewFromConfig(result.Config), queueURL)
	}

	h := newHandler(gmailClient, store, auditor)
	result.Start(h.handle)
}
