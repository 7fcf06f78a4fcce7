package api

import "github.com/muxinc/video-archivist/internal/queue"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID                int64         `json:"id"`
	OfferID           int64         `json:"offerId,omitempty"`
	OfferHash         string        `json:"offerHash"`
	SourceURL         string        `json:"sourceUrl"`
	DestinationPrefix string        `json:"destinationPrefix"`
	Repo              string        `json:"repo,omitempty"`
	IssueNumber       int           `json:"issueNumber,omitempty"`
	Status            string        `json:"status"`
	ArchiveURL        string        `json:"archiveUrl,omitempty"`
	ErrorMessage      string        `json:"errorMessage,omitempty"`
	Attempts          int           `json:"attempts"`
	Progress          QueueProgress `json:"progress"`
	LastHeartbeat     string        `json:"lastHeartbeat,omitempty"`
	CreatedAt         string        `json:"createdAt,omitempty"`
	UpdatedAt         string        `json:"updatedAt,omitempty"`
}

// QueueProgress captures progress information for a queue entry.
type QueueProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running    bool           `json:"running"`
	QueueStats map[string]int `json:"queueStats"`
	LastError  string         `json:"lastError,omitempty"`
	LastItem   *QueueItem     `json:"lastItem,omitempty"`
}

// StorageStatus describes where archives are written.
type StorageStatus struct {
	Backend string `json:"backend"`
	Bucket  string `json:"bucket"`
	URLBase string `json:"urlBase"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	QueueDBPath  string         `json:"queueDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	Storage      StorageStatus  `json:"storage"`
	GitHub       bool           `json:"githubComments"`
	Workflow     WorkflowStatus `json:"workflow"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}

// EnqueueRequest asks for a URL to be archived. Either OfferID or Prefix
// must be set; Repo ("owner/name") and IssueNumber are optional but must be
// given together.
type EnqueueRequest struct {
	URL         string `json:"url"`
	OfferID     int64  `json:"offer_id,omitempty"`
	Prefix      string `json:"prefix,omitempty"`
	Repo        string `json:"repo,omitempty"`
	IssueNumber int    `json:"issue_number,omitempty"`
}

// EnqueueResult reports the item created for, or already covering, a
// request.
type EnqueueResult struct {
	Item      QueueItem `json:"item"`
	Duplicate bool      `json:"duplicate"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse combines queue counts with database diagnostics.
type HealthResponse struct {
	Queue    queue.HealthSummary  `json:"queue"`
	Database queue.DatabaseHealth `json:"database"`
}

// NotificationResponse reports the outcome of a test notification.
type NotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
