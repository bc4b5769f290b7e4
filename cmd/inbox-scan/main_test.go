package main

import (
	"context"
	"errors"
	"testing"

	"github.com/mailsweep/mailsweep-service/internal/audit"
	"github.com/mailsweep/mailsweep-service/internal/classify"
	"github.com/mailsweep/mailsweep-service/internal/gmail"
	"github.com/mailsweep/mailsweep-service/internal/scan"
	"github.com/mailsweep/mailsweep-service/internal/snapshot"
)

// mockScanner implements the Scanner interface for testing.
type mockScanner struct {
	scanFunc func(ctx context.Context, req scan.Request) (*scan.Result, error)
}

func (m *mockScanner) Scan(ctx context.Context, req scan.Request) (*scan.Result, error) {
	return m.scanFunc(ctx, req)
}

// mockPublisher implements the audit.Publisher interface for testing.
type mockPublisher struct {
	publishFunc func(ctx context.Context, event audit.Event) error
}

func (m *mockPublisher) Publish(ctx context.Context, event audit.Event) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, event)
	}
	return nil
}

func scanResult(fromCache bool, ids ...string) *scan.Result {
	result := &scan.Result{
		FromCache: fromCache,
		ScanID:    "scan-1",
		State:     scan.StateReady,
	}
	if fromCache {
		result.State = scan.StateCached
	}
	for _, id := range ids {
		result.Emails = append(result.Emails, snapshot.CategorizedEmail{
			Email:    gmail.Email{ID: id, Subject: "s"},
			Category: classify.CategoryOther,
		})
	}
	return result
}

func TestHandler_Scan(t *testing.T) {
	var gotReq scan.Request
	scanner := &mockScanner{
		scanFunc: func(ctx context.Context, req scan.Request) (*scan.Result, error) {
			gotReq = req
			return scanResult(false, "m1", "m2"), nil
		},
	}

	h := newHandler(scanner, nil)
	response, err := h.handle(context.Background(), Request{
		UserID:      "user-1",
		AccessToken: "tok",
		PageToken:   "page2",
		ForceRescan: true,
	})
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	if gotReq.UserID != "user-1" || gotReq.AccessToken != "tok" || gotReq.PageToken != "page2" || !gotReq.ForceRescan {
		t.Errorf("scan request = %+v, not passed through", gotReq)
	}
	if response.Error != nil {
		t.Fatalf("error = %+v, want none", response.Error)
	}
	if len(response.Emails) != 2 {
		t.Errorf("emails = %d, want 2", len(response.Emails))
	}
	if response.ScanID != "scan-1" {
		t.Errorf("scanId = %q, want scan-1", response.ScanID)
	}
}

func TestHandler_MissingFields(t *testing.T) {
	scanner := &mockScanner{
		scanFunc: func(ctx context.Context, req scan.Request) (*scan.Result, error) {
			t.Error("scanner should not run for an invalid request")
			return nil, nil
		},
	}

	h := newHandler(scanner, nil)
	for _, request := range []Request{
		{AccessToken: "tok"},
		{UserID: "user-1"},
		{},
	} {
		response, err := h.handle(context.Background(), request)
		if err != nil {
			t.Fatalf("handle failed: %v", err)
		}
		if response.Error == nil || response.Error.Code != "invalidRequest" {
			t.Errorf("request %+v: error = %+v, want invalidRequest", request, response.Error)
		}
	}
}

func TestHandler_StaleScan(t *testing.T) {
	scanner := &mockScanner{
		scanFunc: func(ctx context.Context, req scan.Request) (*scan.Result, error) {
			return nil, snapshot.ErrStaleScan
		},
	}

	h := newHandler(scanner, nil)
	response, err := h.handle(context.Background(), Request{UserID: "user-1", AccessToken: "tok"})
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if !response.Stale {
		t.Error("want Stale")
	}
	if response.Error != nil {
		t.Errorf("error = %+v, want none for a stale result", response.Error)
	}
	if response.Emails == nil {
		t.Error("emails should be an empty slice, not null")
	}
}

func TestHandler_ErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"auth", &gmail.AuthError{Status: 401}, "auth"},
		{"upstream list", &gmail.UpstreamListError{Status: 500, Body: "boom"}, "upstreamList"},
		{"validation", &gmail.ValidationError{Path: "payload", Message: "missing"}, "validation"},
		{"classification", &classify.ClassificationError{Err: classify.ErrNoStructuredOutput}, "classification"},
		{"internal", errors.New("wires crossed"), "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := &mockScanner{
				scanFunc: func(ctx context.Context, req scan.Request) (*scan.Result, error) {
					return nil, tt.err
				},
			}

			h := newHandler(scanner, nil)
			response, err := h.handle(context.Background(), Request{UserID: "user-1", AccessToken: "tok"})
			if err != nil {
				t.Fatalf("handle failed: %v", err)
			}
			if response.Error == nil || response.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %q", response.Error, tt.wantCode)
			}
		})
	}
}

func TestHandler_PublishesAuditEvent(t *testing.T) {
	scanner := &mockScanner{
		scanFunc: func(ctx context.Context, req scan.Request) (*scan.Result, error) {
			return scanResult(false, "m1", "m2", "m3"), nil
		},
	}

	var published *audit.Event
	auditor := &mockPublisher{
		publishFunc: func(ctx context.Context, event audit.Event) error {
			published = &event
			return nil
		},
	}

	h := newHandler(scanner, auditor)
	if _, err := h.handle(context.Background(), Request{UserID: "user-1", AccessToken: "tok"}); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if published == nil {
		t.Fatal("no audit event published")
	}
	if published.Type != audit.EventScanCompleted || published.UserID != "user-1" || published.EmailCount != 3 {
		t.Errorf("event = %+v", published)
	}
}

func TestHandler_CacheHitSkipsAudit(t *testing.T) {
	scanner := &mockScanner{
		scanFunc: func(ctx context.Context, req scan.Request) (*scan.Result, error) {
			return scanResult(true, "m1"), nil
		},
	}
	auditor := &mockPublisher{
		publishFunc: func(ctx context.Context, event audit.Event) error {
			t.Error("no audit event expected for a cache hit")
			return nil
		},
	}

	h := newHandler(scanner, auditor)
	response, err := h.handle(context.Background(), Request{UserID: "user-1", AccessToken: "tok"})
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if !response.FromCache {
		t.Error("want FromCache")
	}
}

func TestHandler_AuditFailureDoesNotFailScan(t *testing.T) {
	scanner := &mockScanner{
		scanFunc: func(ctx context.Context, req scan.Request) (*scan.Result, error) {
			return scanResult(false, "m1"), nil
		},
	}
	auditor := &mockPublisher{
		publishFunc: func(ctx context.Context, event audit.Event) error {
			return errors.New("queue down")
		},
	}

	h := newHandler(scanner, auditor)
	response, err := h.handle(context.Background(), Request{UserID: "user-1", AccessToken: "tok"})
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if response.Error != nil {
		t.Errorf("error = %+v, want none", response.Error)
	}
}
