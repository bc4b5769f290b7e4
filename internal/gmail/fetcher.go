package gmail

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// detailConcurrency caps simultaneous in-flight detail fetches within
// one page, balancing throughput against provider rate limits.
const detailConcurrency = 60

// MessageAPI is the provider surface the fetcher consumes.
type MessageAPI interface {
	ListMessages(ctx context.Context, accessToken, pageToken string) (*ListResponse, error)
	GetMessage(ctx context.Context, accessToken, messageID string) (*Message, error)
}

// Fetcher walks the provider's paged message listing and retrieves
// full detail for each listed message under bounded concurrency.
type Fetcher struct {
	api    MessageAPI
	logger *slog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(api MessageAPI, logger *slog.Logger) *Fetcher {
	return &Fetcher{api: api, logger: logger}
}

// FetchPage fetches one page of the inbox: a listing call followed by
// a detail fetch per message id, at most detailConcurrency in flight.
//
// A failed detail fetch is logged and excluded from the result; it
// does not abort the page. The exceptions are token rejection, which
// aborts with *AuthError so the caller can re-authenticate, and
// context cancellation. Emails are returned in completion order;
// listing order is not preserved.
func (f *Fetcher) FetchPage(ctx context.Context, accessToken, pageToken string) (*Page, error) {
	list, err := f.api.ListMessages(ctx, accessToken, pageToken)
	if err != nil {
		return nil, err
	}
	if len(list.Messages) == 0 {
		return &Page{Emails: []Email{}}, nil
	}

	var (
		mu     sync.Mutex
		emails = make([]Email, 0, len(list.Messages))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)

	for _, ref := range list.Messages {
		g.Go(func() error {
			msg, err := f.api.GetMessage(gctx, accessToken, ref.ID)
			if err != nil {
				var authErr *AuthError
				if errors.As(err, &authErr) {
					return err
				}
				if gctx.Err() != nil {
					return gctx.Err()
				}
				f.logger.WarnContext(gctx, "Skipping message after failed detail fetch",
					slog.String("message_id", ref.ID),
					slog.String("error", err.Error()),
				)
				return nil
			}

			email := Normalize(msg)
			mu.Lock()
			emails = append(emails, email)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.logger.InfoContext(ctx, "Fetched inbox page",
		slog.Int("listed", len(list.Messages)),
		slog.Int("retrieved", len(emails)),
		slog.Bool("has_next_page", list.NextPageToken != ""),
	)

	return &Page{Emails: emails, NextPageToken: list.NextPageToken}, nil
}
