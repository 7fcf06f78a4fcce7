package api

import (
	"time"

	"github.com/muxinc/video-archivist/internal/queue"
	"github.com/muxinc/video-archivist/internal/workflow"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	dto := QueueItem{
		ID:                item.ID,
		OfferID:           item.OfferID,
		OfferHash:         item.OfferHash,
		SourceURL:         item.SourceURL,
		DestinationPrefix: item.DestinationPrefix,
		Repo:              item.Repo(),
		IssueNumber:       item.IssueNumber,
		Status:            string(item.Status),
		ArchiveURL:        item.ArchiveURL,
		ErrorMessage:      item.ErrorMessage,
		Attempts:          item.Attempts,
		Progress: QueueProgress{
			Stage:   item.ProgressStage,
			Percent: item.ProgressPercent,
			Message: item.ProgressMessage,
		},
		CreatedAt: FormatTime(item.CreatedAt),
		UpdatedAt: FormatTime(item.UpdatedAt),
	}
	if item.LastHeartbeat != nil {
		dto.LastHeartbeat = FormatTime(*item.LastHeartbeat)
	}
	return dto
}

// FromQueueItems converts a slice of queue records into API DTOs.
func FromQueueItems(items []*queue.Item) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromQueueItem(item))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:    summary.Running,
		QueueStats: MergeQueueStats(summary.QueueStats),
		LastError:  summary.LastError,
	}
	if summary.LastItem != nil {
		last := FromQueueItem(summary.LastItem)
		wf.LastItem = &last
	}
	return wf
}

// MergeQueueStats produces a string-keyed representation of queue stats
// with every known status present.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = 0
	}
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
