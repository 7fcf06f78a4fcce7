package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, offer_id, offer_hash, source_url, destination_prefix, repo_owner, repo_name, issue_number, status, archive_url, error_message, attempts, progress_stage, progress_percent, progress_message, last_heartbeat, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id                int64
		offerID           sql.NullInt64
		offerHash         string
		sourceURL         string
		destinationPrefix string
		repoOwner         sql.NullString
		repoName          sql.NullString
		issueNumber       sql.NullInt64
		statusStr         string
		archiveURL        sql.NullString
		errorMessage      sql.NullString
		attempts          int
		progressStage     sql.NullString
		progressPercent   sql.NullFloat64
		progressMessage   sql.NullString
		lastHeartbeatRaw  sql.NullString
		createdRaw        sql.NullString
		updatedRaw        sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&offerID,
		&offerHash,
		&sourceURL,
		&destinationPrefix,
		&repoOwner,
		&repoName,
		&issueNumber,
		&statusStr,
		&archiveURL,
		&errorMessage,
		&attempts,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&lastHeartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:                id,
		OfferID:           offerID.Int64,
		OfferHash:         offerHash,
		SourceURL:         sourceURL,
		DestinationPrefix: destinationPrefix,
		RepoOwner:         repoOwner.String,
		RepoName:          repoName.String,
		IssueNumber:       int(issueNumber.Int64),
		Status:            Status(statusStr),
		ArchiveURL:        archiveURL.String,
		ErrorMessage:      errorMessage.String,
		Attempts:          attempts,
		ProgressStage:     progressStage.String,
		ProgressPercent:   progressPercent.Float64,
		ProgressMessage:   progressMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	return args
}
