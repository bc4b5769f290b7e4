package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mailsweep/mailsweep-service/internal/classify"
	"github.com/mailsweep/mailsweep-service/internal/gmail"
	"github.com/mailsweep/mailsweep-service/internal/snapshot"
)

// PageFetcher fetches one normalized inbox page.
type PageFetcher interface {
	FetchPage(ctx context.Context, accessToken, pageToken string) (*gmail.Page, error)
}

// Classifier assigns one category per email, by position.
type Classifier interface {
	Categorize(ctx context.Context, emails []classify.EmailSummary) ([]classify.Category, error)
}

// SnapshotStore persists per-user snapshots.
type SnapshotStore interface {
	Load(ctx context.Context, userID string) (*snapshot.Snapshot, error)
	Save(ctx context.Context, userID string, snap *snapshot.Snapshot, expectedScanID string) error
}

// Request describes one scan trigger.
type Request struct {
	UserID      string
	AccessToken string
	// PageToken continues a previous listing ("scan more"). The new
	// page is appended to the persisted list instead of replacing it.
	PageToken string
	// ForceRescan skips the cache read and overwrites the snapshot
	// with the fresh result.
	ForceRescan bool
}

// Result is the outcome of one scan chain.
type Result struct {
	Emails        []snapshot.CategorizedEmail
	NextPageToken string
	// FromCache reports that the persisted snapshot satisfied the
	// request and no provider or model call was made.
	FromCache bool
	// State is the terminal state of the chain (cached or ready).
	State State
	// ScanID identifies the chain that produced the persisted
	// snapshot.
	ScanID string
}

// Coordinator runs scan chains: cache-first on session start, full
// fetch+categorize on rescan, append on pagination continuation.
type Coordinator struct {
	fetcher    PageFetcher
	classifier Classifier
	store      SnapshotStore
	logger     *slog.Logger
	now        func() time.Time
	newScanID  func() string
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(fetcher PageFetcher, classifier Classifier, store SnapshotStore, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		fetcher:    fetcher,
		classifier: classifier,
		store:      store,
		logger:     logger,
		now:        time.Now,
		newScanID:  func() string { return uuid.NewString() },
	}
}

// Scan executes one scan chain.
//
// Session start (no page token, no force): if a non-empty snapshot
// exists it is returned as-is; the fetcher and classifier are skipped
// entirely. Otherwise, and for rescan and scan-more, one page is
// fetched, categorized in a single batch, reconciled with the
// persisted list (replace on rescan and first scan, append on
// continuation) and saved before returning.
//
// The save is conditioned on the scan id observed at load time, so a
// chain that was overtaken by a newer rescan becomes a no-op instead
// of clobbering fresher state; the stale chain surfaces
// snapshot.ErrStaleScan.
func (c *Coordinator) Scan(ctx context.Context, req Request) (*Result, error) {
	m := newMachine()
	continuation := req.PageToken != ""

	var prior *snapshot.Snapshot
	if !req.ForceRescan || continuation {
		loaded, err := c.store.Load(ctx, req.UserID)
		if err != nil {
			m.fail()
			return nil, err
		}
		prior = loaded
	}

	// Cache-first: a non-empty snapshot satisfies session start.
	if !req.ForceRescan && !continuation && prior != nil && len(prior.CategorizedEmails) > 0 {
		if err := m.to(StateCached); err != nil {
			return nil, err
		}
		c.logger.InfoContext(ctx, "Scan served from snapshot",
			slog.String("user_id", req.UserID),
			slog.Int("emails", len(prior.CategorizedEmails)),
		)
		return &Result{
			Emails:        prior.CategorizedEmails,
			NextPageToken: prior.NextPageToken,
			FromCache:     true,
			State:         m.state,
			ScanID:        prior.ScanID,
		}, nil
	}

	// Forced rescans carry fresh user intent and claim the snapshot
	// unconditionally; every other chain may only save over the state
	// it observed, so a chain overtaken by a rescan becomes a no-op.
	expectedScanID := snapshot.ScanAny
	if !req.ForceRescan {
		expectedScanID = ""
		if prior != nil {
			expectedScanID = prior.ScanID
		}
	}

	if err := m.to(StateFetching); err != nil {
		return nil, err
	}
	page, err := c.fetcher.FetchPage(ctx, req.AccessToken, req.PageToken)
	if err != nil {
		m.fail()
		return nil, err
	}

	if err := m.to(StateCategorizing); err != nil {
		return nil, err
	}
	categorized, err := c.categorizePage(ctx, page.Emails)
	if err != nil {
		m.fail()
		return nil, err
	}

	list := categorized
	if continuation && prior != nil {
		list = append(append([]snapshot.CategorizedEmail{}, prior.CategorizedEmails...), categorized...)
	}

	snap := &snapshot.Snapshot{
		CategorizedEmails: list,
		NextPageToken:     page.NextPageToken,
		UpdatedAt:         c.now().UTC(),
		ScanID:            c.newScanID(),
	}
	if err := c.store.Save(ctx, req.UserID, snap, expectedScanID); err != nil {
		m.fail()
		return nil, err
	}

	if err := m.to(StateReady); err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "Scan completed",
		slog.String("user_id", req.UserID),
		slog.String("scan_id", snap.ScanID),
		slog.Int("page_emails", len(categorized)),
		slog.Int("total_emails", len(list)),
		slog.Bool("continuation", continuation),
	)

	return &Result{
		Emails:        list,
		NextPageToken: page.NextPageToken,
		State:         m.state,
		ScanID:        snap.ScanID,
	}, nil
}

// categorizePage classifies a fetched page in one batch and zips the
// labels back onto the emails by position.
func (c *Coordinator) categorizePage(ctx context.Context, emails []gmail.Email) ([]snapshot.CategorizedEmail, error) {
	summaries := make([]classify.EmailSummary, len(emails))
	for i, e := range emails {
		summaries[i] = classify.EmailSummary{
			Subject: e.Subject,
			Sender:  e.Sender,
			Body:    e.Body,
		}
	}

	categories, err := c.classifier.Categorize(ctx, summaries)
	if err != nil {
		return nil, err
	}
	if len(categories) != len(emails) {
		return nil, fmt.Errorf("classifier returned %d categories for %d emails", len(categories), len(emails))
	}

	categorized := make([]snapshot.CategorizedEmail, len(emails))
	for i, e := range emails {
		categorized[i] = snapshot.CategorizedEmail{Email: e, Category: categories[i]}
	}
	return categorized, nil
}
