package gmail

import "fmt"

// AuthError indicates the provider rejected the access token. The
// caller is expected to force re-authentication; no other recovery is
// possible with the current credential.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("provider rejected access token (status %d)", e.Status)
}

// UpstreamListError indicates a non-success status from the message
// list endpoint. Fatal to the fetch. Body carries the raw provider
// response for diagnostics.
type UpstreamListError struct {
	Status int
	Body   string
}

func (e *UpstreamListError) Error() string {
	return fmt.Sprintf("message list failed (status %d): %s", e.Status, e.Body)
}

// UpstreamDetailError indicates a non-success status for a single
// message detail fetch. Per-item: it reduces the page result rather
// than aborting the batch.
type UpstreamDetailError struct {
	MessageID string
	Status    int
	Body      string
}

func (e *UpstreamDetailError) Error() string {
	return fmt.Sprintf("message detail %s failed (status %d): %s", e.MessageID, e.Status, e.Body)
}

// DeleteError indicates the batch delete call failed. The provider's
// batch endpoint is all-or-nothing, so no id was removed.
type DeleteError struct {
	Status int
	Body   string
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("batch delete failed (status %d): %s", e.Status, e.Body)
}

// ValidationError indicates a provider response failed schema
// validation. Path names the violated field.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid provider response: %s: %s", e.Path, e.Message)
}
