package queue

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusArchiving Status = "archiving"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	// StatusRejected marks requests that will not succeed without changing
	// the source (circular playlists, malformed manifests, missing media).
	StatusRejected Status = "rejected"
)

// DaemonStopReason is the error message set when items are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusArchiving,
	StatusCompleted,
	StatusFailed,
	StatusRejected,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string   `json:"dbPath"`
	DatabaseExists   bool     `json:"databaseExists"`
	DatabaseReadable bool     `json:"databaseReadable"`
	SchemaVersion    string   `json:"schemaVersion"`
	TableExists      bool     `json:"tableExists"`
	ColumnsPresent   []string `json:"columnsPresent,omitempty"`
	MissingColumns   []string `json:"missingColumns,omitempty"`
	IntegrityCheck   bool     `json:"integrityCheck"`
	TotalItems       int      `json:"totalItems"`
	Error            string   `json:"error,omitempty"`
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Rejected   int `json:"rejected"`
	Completed  int `json:"completed"`
}

// Request describes a new archive request.
type Request struct {
	OfferID           int64
	OfferHash         string
	SourceURL         string
	DestinationPrefix string
	RepoOwner         string
	RepoName          string
	IssueNumber       int
}

// Validate reports missing or malformed fields.
func (r Request) Validate() error {
	url := strings.TrimSpace(r.SourceURL)
	if url == "" {
		return fmt.Errorf("%w: source url is required", ErrInvalidRequest)
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("%w: source url must be http(s): %q", ErrInvalidRequest, url)
	}
	if strings.TrimSpace(r.OfferHash) == "" {
		return fmt.Errorf("%w: offer hash is required", ErrInvalidRequest)
	}
	if (r.RepoOwner == "") != (r.RepoName == "") {
		return fmt.Errorf("%w: repo owner and name must be set together", ErrInvalidRequest)
	}
	if r.RepoOwner != "" && r.IssueNumber <= 0 {
		return fmt.Errorf("%w: issue number is required with a repo", ErrInvalidRequest)
	}
	return nil
}

// Item represents a queue item persisted in SQLite.
type Item struct {
	ID                int64
	OfferID           int64
	OfferHash         string
	SourceURL         string
	DestinationPrefix string
	RepoOwner         string
	RepoName          string
	IssueNumber       int
	Status            Status
	ArchiveURL        string
	ErrorMessage      string
	Attempts          int
	ProgressStage     string
	ProgressPercent   float64
	ProgressMessage   string
	LastHeartbeat     *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the item is being archived.
func (i Item) IsProcessing() bool {
	return i.Status == StatusArchiving
}

// IsTerminal reports whether the item has finished, successfully or not.
func (i Item) IsTerminal() bool {
	switch i.Status {
	case StatusCompleted, StatusFailed, StatusRejected:
		return true
	default:
		return false
	}
}

// HasIssue reports whether the request came from an issue that should be
// told about the outcome.
func (i Item) HasIssue() bool {
	return i.RepoOwner != "" && i.RepoName != "" && i.IssueNumber > 0
}

// Repo returns "owner/name", or "" when the item has no repo.
func (i Item) Repo() string {
	if i.RepoOwner == "" {
		return ""
	}
	return i.RepoOwner + "/" + i.RepoName
}

// SetProgress updates all three progress fields atomically.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetCompleted records a successful archive.
func (i *Item) SetCompleted(archiveURL string) {
	i.Status = StatusCompleted
	i.ArchiveURL = archiveURL
	i.ErrorMessage = ""
	i.LastHeartbeat = nil
	i.SetProgress("Completed", "Archived to "+archiveURL, 100)
}

// SetFailed marks the item with a failure status and message.
// Clears heartbeat and sets progress fields appropriately.
func (i *Item) SetFailed(status Status, message string) {
	if status != StatusRejected {
		status = StatusFailed
	}
	i.Status = status
	i.ErrorMessage = message
	i.LastHeartbeat = nil
	i.SetProgress("Failed", message, 0)
}
