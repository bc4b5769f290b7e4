// Package snapshot persists the per-user categorized-email collection.
package snapshot

import (
	"fmt"
	"time"

	"github.com/mailsweep/mailsweep-service/internal/classify"
	"github.com/mailsweep/mailsweep-service/internal/gmail"
)

// CategorizedEmail is a normalized email plus its category label.
type CategorizedEmail struct {
	gmail.Email
	Category classify.Category `json:"category"`
}

// Snapshot is the persisted scan state for one user: the full
// categorized collection, the last-seen continuation token, and the
// time of the last write. ScanID identifies the scan chain that
// produced the snapshot; it drives the stale-scan write guard.
type Snapshot struct {
	CategorizedEmails []CategorizedEmail `json:"categorizedEmails"`
	NextPageToken     string             `json:"nextPageToken,omitempty"`
	UpdatedAt         time.Time          `json:"updatedAt"`
	ScanID            string             `json:"scanId,omitempty"`
}

// key prefixes and sort keys for the single-table layout.
const (
	prefixUser = "USER#"
	prefixMail = "EMAIL#"
	skMeta     = "SCAN"
)

// userPK returns the partition key for a user's snapshot.
func userPK(userID string) string {
	return prefixUser + userID
}

// emailSK returns the sort key for one categorized email.
func emailSK(emailID string) string {
	return fmt.Sprintf("%s%s", prefixMail, emailID)
}
