package gmail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DefaultBaseURL is the production provider endpoint.
const DefaultBaseURL = "https://www.googleapis.com/gmail/v1/users/me"

// listPageSize is the fixed page size for message listing.
const listPageSize = 500

// listQuery excludes trashed messages from listing.
const listQuery = "-in:trash"

// HTTPDoer abstracts HTTP client operations for dependency inversion.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the mail provider's REST API. The access token is an
// opaque credential attached to every call; the client never inspects
// or refreshes it.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a Client. An empty baseURL selects the production
// endpoint.
func NewClient(baseURL string, httpClient HTTPDoer) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// ListMessages retrieves up to one page of message ids, excluding
// trashed messages, optionally continuing from pageToken.
func (c *Client) ListMessages(ctx context.Context, accessToken, pageToken string) (*ListResponse, error) {
	u := fmt.Sprintf("%s/messages?maxResults=%d&q=%s", c.baseURL, listPageSize, url.QueryEscape(listQuery))
	if pageToken != "" {
		u += "&pageToken=" + url.QueryEscape(pageToken)
	}

	status, body, err := c.get(ctx, u, accessToken)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, &AuthError{Status: status, Body: string(body)}
	}
	if status < 200 || status >= 300 {
		return nil, &UpstreamListError{Status: status, Body: string(body)}
	}

	var resp ListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ValidationError{Path: "(root)", Message: err.Error()}
	}
	if err := ValidateListResponse(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetMessage retrieves the full detail of one message.
func (c *Client) GetMessage(ctx context.Context, accessToken, messageID string) (*Message, error) {
	u := c.baseURL + "/messages/" + url.PathEscape(messageID) + "?format=full"

	status, body, err := c.get(ctx, u, accessToken)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, &AuthError{Status: status, Body: string(body)}
	}
	if status < 200 || status >= 300 {
		return nil, &UpstreamDetailError{MessageID: messageID, Status: status, Body: string(body)}
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, &ValidationError{Path: "(root)", Message: err.Error()}
	}
	if err := ValidateMessage(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// BatchDelete permanently removes the given message ids. The provider
// endpoint is all-or-nothing: either every id is removed or the call
// fails with no per-id result. Empty ids short-circuits without a
// network call.
func (c *Client) BatchDelete(ctx context.Context, accessToken string, ids []string) (DeleteResult, error) {
	if len(ids) == 0 {
		return DeleteResult{Success: true, DeletedCount: 0}, nil
	}

	payload, err := json.Marshal(struct {
		IDs []string `json:"ids"`
	}{IDs: ids})
	if err != nil {
		return DeleteResult{}, fmt.Errorf("marshal batch delete request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages/batchDelete", bytes.NewReader(payload))
	if err != nil {
		return DeleteResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return DeleteResult{}, err
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return DeleteResult{}, &AuthError{Status: resp.StatusCode, Body: string(body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return DeleteResult{}, &DeleteError{Status: resp.StatusCode, Body: string(body)}
	}
	return DeleteResult{Success: true, DeletedCount: len(ids)}, nil
}

// get issues a bearer-authorized GET and returns status and body.
func (c *Client) get(ctx context.Context, u, accessToken string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
