package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/muxinc/video-archivist/internal/queue"
)

var errReadOnly = errors.New("queue store is read-only")

// OfferEncoder turns an offer ID into its public hash.
type OfferEncoder interface {
	Encode(id int64) (string, error)
}

// QueueActionService captures queue operations needed by per-item retry.
type QueueActionService interface {
	Describe(ctx context.Context, id int64) (*QueueItem, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
}

type RetryItemOutcome string

const (
	RetryItemUpdated   RetryItemOutcome = "retried"
	RetryItemNotFound  RetryItemOutcome = "not_found"
	RetryItemNotFailed RetryItemOutcome = "not_failed"
)

type RetryItemResult struct {
	ID          int64            `json:"id"`
	Outcome     RetryItemOutcome `json:"outcome"`
	PriorStatus string           `json:"priorStatus,omitempty"`
}

type RetryItemsResult struct {
	UpdatedCount int64             `json:"updatedCount"`
	Items        []RetryItemResult `json:"items"`
}

// RetryItemsByID validates IDs and retries only failed or rejected items.
func RetryItemsByID(ctx context.Context, service QueueActionService, ids []int64) (RetryItemsResult, error) {
	result := RetryItemsResult{Items: make([]RetryItemResult, 0, len(ids))}
	for _, id := range ids {
		item, err := service.Describe(ctx, id)
		if err != nil {
			return RetryItemsResult{}, err
		}
		if item == nil {
			result.Items = append(result.Items, RetryItemResult{ID: id, Outcome: RetryItemNotFound})
			continue
		}
		status, ok := queue.ParseStatus(item.Status)
		if !ok || (status != queue.StatusFailed && status != queue.StatusRejected) {
			result.Items = append(result.Items, RetryItemResult{ID: id, Outcome: RetryItemNotFailed, PriorStatus: item.Status})
			continue
		}
		updated, err := service.Retry(ctx, []int64{id})
		if err != nil {
			return RetryItemsResult{}, err
		}
		if updated > 0 {
			result.UpdatedCount += updated
			result.Items = append(result.Items, RetryItemResult{ID: id, Outcome: RetryItemUpdated, PriorStatus: item.Status})
			continue
		}
		result.Items = append(result.Items, RetryItemResult{ID: id, Outcome: RetryItemNotFailed, PriorStatus: item.Status})
	}
	return result, nil
}

// Enqueue validates req and inserts a pending item. When the offer already
// has an item that is in flight, or that completed from the same URL, that
// item is returned with Duplicate set and nothing is inserted.
func Enqueue(ctx context.Context, store QueueStore, offers OfferEncoder, req EnqueueRequest) (EnqueueResult, error) {
	url := strings.TrimSpace(req.URL)
	prefix := strings.Trim(strings.TrimSpace(req.Prefix), "/")

	hash, err := ResolveOfferHash(offers, req.OfferID, prefix)
	if err != nil {
		return EnqueueResult{}, err
	}

	owner, name, err := SplitRepo(req.Repo)
	if err != nil {
		return EnqueueResult{}, err
	}

	existing, err := store.FindByOfferHash(ctx, hash)
	if err != nil {
		return EnqueueResult{}, err
	}
	if existing != nil && coversRequest(existing, url) {
		return EnqueueResult{Item: FromQueueItem(existing), Duplicate: true}, nil
	}

	item, err := store.NewRequest(ctx, queue.Request{
		OfferID:           req.OfferID,
		OfferHash:         hash,
		SourceURL:         url,
		DestinationPrefix: prefix,
		RepoOwner:         owner,
		RepoName:          name,
		IssueNumber:       req.IssueNumber,
	})
	if err != nil {
		return EnqueueResult{}, err
	}
	return EnqueueResult{Item: FromQueueItem(item)}, nil
}

// ResolveOfferHash returns the hash naming an archive: the encoded offer ID
// when one is given, otherwise the trimmed prefix.
func ResolveOfferHash(offers OfferEncoder, offerID int64, prefix string) (string, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	switch {
	case offerID < 0:
		return "", fmt.Errorf("%w: offer_id must be positive", queue.ErrInvalidRequest)
	case offerID == 0 && prefix == "":
		return "", fmt.Errorf("%w: offer_id or prefix is required", queue.ErrInvalidRequest)
	case offerID == 0:
		return prefix, nil
	case offers == nil:
		return "", errors.New("offer hasher not configured")
	}
	hash, err := offers.Encode(offerID)
	if err != nil {
		return "", fmt.Errorf("encode offer id: %w", err)
	}
	return hash, nil
}

func coversRequest(item *queue.Item, url string) bool {
	switch item.Status {
	case queue.StatusPending, queue.StatusArchiving:
		return true
	case queue.StatusCompleted:
		return item.SourceURL == url
	default:
		return false
	}
}

// SplitRepo parses "owner/name". An empty value yields empty parts.
func SplitRepo(repo string) (string, string, error) {
	repo = strings.TrimSpace(repo)
	if repo == "" {
		return "", "", nil
	}
	owner, name, ok := strings.Cut(repo, "/")
	owner, name = strings.TrimSpace(owner), strings.TrimSpace(name)
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("%w: repo must be owner/name, got %q", queue.ErrInvalidRequest, repo)
	}
	return owner, name, nil
}
