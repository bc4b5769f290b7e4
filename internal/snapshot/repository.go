package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mailsweep/mailsweep-service/internal/classify"
	"github.com/mailsweep/mailsweep-service/internal/gmail"
)

// Error values for repository operations.
var (
	// ErrStaleScan reports that the snapshot was rewritten by a newer
	// scan chain between this chain's load and its save. The stale
	// result must be discarded, not retried.
	ErrStaleScan = errors.New("snapshot owned by a newer scan")
)

// ScanAny disables the stale-scan condition on Save. Used by forced
// rescans, which carry fresh user intent and always win.
const ScanAny = "*"

// Attribute names for snapshot items.
const (
	attrPK            = "pk"
	attrSK            = "sk"
	attrSender        = "sender"
	attrSubject       = "subject"
	attrBody          = "body"
	attrDate          = "date"
	attrCategory      = "category"
	attrNextPageToken = "nextPageToken"
	attrUpdatedAt     = "updatedAt"
	attrScanID        = "scanId"
)

// batchWriteLimit is the DynamoDB BatchWriteItem request ceiling.
const batchWriteLimit = 25

// DynamoDBClient defines the interface for DynamoDB operations.
type DynamoDBClient interface {
	Query(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	BatchWriteItem(ctx context.Context, input *dynamodb.BatchWriteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Repository stores one snapshot per user: an item per categorized
// email plus a meta item carrying the continuation token, the update
// timestamp, and the owning scan id.
//
// Writes across items are not transactional; a failed save surfaces as
// an error and the caller must treat the snapshot as unsaved.
// Concurrent sessions resolve write-write races last-write-wins at the
// snapshot level, with the scan-id condition guarding against a stale
// scan chain clobbering a newer one.
type Repository struct {
	client    DynamoDBClient
	tableName string
}

// NewRepository creates a new Repository.
func NewRepository(client DynamoDBClient, tableName string) *Repository {
	return &Repository{client: client, tableName: tableName}
}

// Load reads the user's snapshot. Returns (nil, nil) when no snapshot
// has ever been saved.
func (r *Repository) Load(ctx context.Context, userID string) (*Snapshot, error) {
	items, err := r.queryUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	snap := &Snapshot{CategorizedEmails: []CategorizedEmail{}}
	for _, item := range items {
		sk := stringAttr(item, attrSK)
		if sk == skMeta {
			snap.NextPageToken = stringAttr(item, attrNextPageToken)
			snap.ScanID = stringAttr(item, attrScanID)
			if ts := stringAttr(item, attrUpdatedAt); ts != "" {
				if t, err := time.Parse(time.RFC3339, ts); err == nil {
					snap.UpdatedAt = t
				}
			}
			continue
		}
		if !strings.HasPrefix(sk, prefixMail) {
			continue
		}
		snap.CategorizedEmails = append(snap.CategorizedEmails, CategorizedEmail{
			Email: gmail.Email{
				ID:      strings.TrimPrefix(sk, prefixMail),
				Sender:  stringAttr(item, attrSender),
				Subject: stringAttr(item, attrSubject),
				Body:    stringAttr(item, attrBody),
				Date:    stringAttr(item, attrDate),
			},
			Category: classify.SanitizeCategory(stringAttr(item, attrCategory)),
		})
	}
	return snap, nil
}

// Save overwrites the user's snapshot wholesale: the meta item is
// rewritten, new email items are put, and items absent from snap are
// deleted. expectedScanID must be the scan id observed when the scan
// chain loaded the snapshot (empty for a chain that started from an
// absent snapshot); if another chain has claimed the snapshot since,
// Save fails with ErrStaleScan and writes nothing.
func (r *Repository) Save(ctx context.Context, userID string, snap *Snapshot, expectedScanID string) error {
	existing, err := r.queryUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if err := r.claimMeta(ctx, userID, snap, expectedScanID); err != nil {
		return err
	}

	keep := make(map[string]bool, len(snap.CategorizedEmails))
	writes := make([]types.WriteRequest, 0, len(snap.CategorizedEmails))
	for _, e := range snap.CategorizedEmails {
		sk := emailSK(e.ID)
		keep[sk] = true
		writes = append(writes, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: map[string]types.AttributeValue{
				attrPK:       &types.AttributeValueMemberS{Value: userPK(userID)},
				attrSK:       &types.AttributeValueMemberS{Value: sk},
				attrSender:   &types.AttributeValueMemberS{Value: e.Sender},
				attrSubject:  &types.AttributeValueMemberS{Value: e.Subject},
				attrBody:     &types.AttributeValueMemberS{Value: e.Body},
				attrDate:     &types.AttributeValueMemberS{Value: e.Date},
				attrCategory: &types.AttributeValueMemberS{Value: string(e.Category)},
			}},
		})
	}

	// Delete rows the fresh snapshot no longer contains.
	for _, item := range existing {
		sk := stringAttr(item, attrSK)
		if sk == skMeta || keep[sk] {
			continue
		}
		writes = append(writes, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
				attrPK: &types.AttributeValueMemberS{Value: userPK(userID)},
				attrSK: &types.AttributeValueMemberS{Value: sk},
			}},
		})
	}

	if err := r.batchWrite(ctx, writes); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// RemoveEmails deletes exactly the given ids from the stored snapshot
// and refreshes the meta timestamp. Used after a successful provider
// batch delete.
func (r *Repository) RemoveEmails(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	writes := make([]types.WriteRequest, 0, len(ids))
	for _, id := range ids {
		writes = append(writes, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
				attrPK: &types.AttributeValueMemberS{Value: userPK(userID)},
				attrSK: &types.AttributeValueMemberS{Value: emailSK(id)},
			}},
		})
	}
	if err := r.batchWrite(ctx, writes); err != nil {
		return fmt.Errorf("remove emails: %w", err)
	}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: userPK(userID)},
			attrSK: &types.AttributeValueMemberS{Value: skMeta},
		},
		UpdateExpression: aws.String("SET " + attrUpdatedAt + " = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("remove emails: update meta: %w", err)
	}
	return nil
}

// claimMeta writes the meta item, conditioned on the snapshot still
// being owned by expectedScanID.
func (r *Repository) claimMeta(ctx context.Context, userID string, snap *Snapshot, expectedScanID string) error {
	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	item := map[string]types.AttributeValue{
		attrPK:        &types.AttributeValueMemberS{Value: userPK(userID)},
		attrSK:        &types.AttributeValueMemberS{Value: skMeta},
		attrUpdatedAt: &types.AttributeValueMemberS{Value: updatedAt.UTC().Format(time.RFC3339)},
		attrScanID:    &types.AttributeValueMemberS{Value: snap.ScanID},
	}
	if snap.NextPageToken != "" {
		item[attrNextPageToken] = &types.AttributeValueMemberS{Value: snap.NextPageToken}
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}
	switch expectedScanID {
	case ScanAny:
		// Forced rescan: claim unconditionally.
	case "":
		// Chain started from an absent snapshot: only valid while the
		// snapshot is still absent.
		input.ConditionExpression = aws.String("attribute_not_exists(" + attrPK + ")")
	default:
		input.ConditionExpression = aws.String("attribute_not_exists(" + attrPK + ") OR " + attrScanID + " = :expected")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberS{Value: expectedScanID},
		}
	}

	_, err := r.client.PutItem(ctx, input)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrStaleScan
		}
		return fmt.Errorf("save snapshot: claim meta: %w", err)
	}
	return nil
}

// queryUser reads every item under the user's partition key, following
// pagination.
func (r *Repository) queryUser(ctx context.Context, userID string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue

	for {
		output, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String(attrPK + " = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: userPK(userID)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		items = append(items, output.Items...)
		if output.LastEvaluatedKey == nil {
			return items, nil
		}
		startKey = output.LastEvaluatedKey
	}
}

// batchWrite submits write requests in chunks, retrying unprocessed
// items until DynamoDB accepts them all.
func (r *Repository) batchWrite(ctx context.Context, writes []types.WriteRequest) error {
	for start := 0; start < len(writes); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(writes) {
			end = len(writes)
		}

		pending := writes[start:end]
		for len(pending) > 0 {
			output, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{
					r.tableName: pending,
				},
			})
			if err != nil {
				return err
			}
			pending = output.UnprocessedItems[r.tableName]
		}
	}
	return nil
}

// stringAttr extracts a string attribute, defaulting to "".
func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
