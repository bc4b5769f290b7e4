// Package main implements the inbox-scan Lambda handler: the scan,
// rescan, and scan-more triggers of the pipeline.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mailsweep/mailsweep-service/internal/audit"
	"github.com/mailsweep/mailsweep-service/internal/awsinit"
	"github.com/mailsweep/mailsweep-service/internal/classify"
	"github.com/mailsweep/mailsweep-service/internal/gmail"
	"github.com/mailsweep/mailsweep-service/internal/logging"
	"github.com/mailsweep/mailsweep-service/internal/scan"
	"github.com/mailsweep/mailsweep-service/internal/snapshot"
	"github.com/mailsweep/mailsweep-service/internal/tracing"
)

var logger = logging.New()

// Scanner runs one scan chain.
type Scanner interface {
	Scan(ctx context.Context, req scan.Request) (*scan.Result, error)
}

// Request is the inbox-scan invocation payload.
type Request struct {
	UserID      string `json:"userId"`
	AccessToken string `json:"accessToken"`
	PageToken   string `json:"pageToken,omitempty"`
	ForceRescan bool   `json:"forceRescan,omitempty"`
}

// ErrorInfo describes a failed invocation. Code "auth" tells the
// caller to force re-authentication.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the inbox-scan invocation result. Stale reports that a
// newer scan chain finished first and this chain's result was
// discarded; the caller should re-read the snapshot.
type Response struct {
	Emails        []snapshot.CategorizedEmail `json:"emails"`
	NextPageToken string                      `json:"nextPageToken,omitempty"`
	FromCache     bool                        `json:"fromCache"`
	ScanID        string                      `json:"scanId,omitempty"`
	Stale         bool                        `json:"stale,omitempty"`
	Error         *ErrorInfo                  `json:"error,omitempty"`
}

// handler implements the inbox-scan logic.
type handler struct {
	scanner Scanner
	auditor audit.Publisher
}

// newHandler creates a new handler.
func newHandler(scanner Scanner, auditor audit.Publisher) *handler {
	return &handler{scanner: scanner, auditor: auditor}
}

// handle processes one scan trigger.
func (h *handler) handle(ctx context.Context, request Request) (Response, error) {
	tracer := tracing.Tracer("mailsweep-inbox-scan")
	ctx, span := tracer.Start(ctx, "InboxScanHandler")
	defer span.End()

	if request.UserID == "" || request.AccessToken == "" {
		return Response{Error: &ErrorInfo{Code: "invalidRequest", Message: "userId and accessToken are required"}}, nil
	}

	result, err := h.scanner.Scan(ctx, scan.Request{
		UserID:      request.UserID,
		AccessToken: request.AccessToken,
		PageToken:   request.PageToken,
		ForceRescan: request.ForceRescan,
	})
	if err != nil {
		if errors.Is(err, snapshot.ErrStaleScan) {
			logger.InfoContext(ctx, "Discarded stale scan result",
				slog.String("user_id", request.UserID),
			)
			return Response{Emails: []snapshot.CategorizedEmail{}, Stale: true}, nil
		}
		logger.ErrorContext(ctx, "Scan failed",
			slog.String("user_id", request.UserID),
			slog.String("error", err.Error()),
		)
		return Response{Error: errorInfo(err)}, nil
	}

	if h.auditor != nil && !result.FromCache {
		if err := h.auditor.Publish(ctx, audit.Event{
			Type:       audit.EventScanCompleted,
			UserID:     request.UserID,
			EmailCount: len(result.Emails),
		}); err != nil {
			logger.WarnContext(ctx, "Failed to publish scan audit event",
				slog.String("user_id", request.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	return Response{
		Emails:        result.Emails,
		NextPageToken: result.NextPageToken,
		FromCache:     result.FromCache,
		ScanID:        result.ScanID,
	}, nil
}

// errorInfo maps the pipeline error taxonomy to response codes.
func errorInfo(err error) *ErrorInfo {
	var (
		authErr       *gmail.AuthError
		listErr       *gmail.UpstreamListError
		validationErr *gmail.ValidationError
		classifyErr   *classify.ClassificationError
	)
	switch {
	case errors.As(err, &authErr):
		return &ErrorInfo{Code: "auth", Message: "access token rejected; re-authentication required"}
	case errors.As(err, &listErr):
		return &ErrorInfo{Code: "upstreamList", Message: listErr.Error()}
	case errors.As(err, &validationErr):
		return &ErrorInfo{Code: "validation", Message: validationErr.Error()}
	case errors.As(err, &classifyErr):
		return &ErrorInfo{Code: "classification", Message: classifyErr.Error()}
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
	fetcher := gmail.NewFetcher(gmailClient, logger)

	bedrockClient := bedrockruntime.NewFromConfig(result.Config)
	classifier := classify.NewBedrockClassifier(bedrockClient, classify.Config{
		ModelID: os.Getenv("CLASSIFY_MODEL_ID"),
	})

	store := snapshot.NewRepository(dynamoClient, tableName)
	coordinator := scan.NewCoordinator(fetcher, classifier, store, logger)

	var auditor audit.Publisher
	if queueURL := os.Getenv("AUDIT_QUEUE_URL"); queueURL != "" {
		auditor = audit.NewSQSPublisher(sqs.NewFromConfig(result.Config), queueURL)
	}

	h := newHandler(coordinator, auditor)
	result.Start(h.handle)
}
