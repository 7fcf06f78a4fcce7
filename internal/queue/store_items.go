package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NewRequest inserts a pending archive request.
func (s *Store) NewRequest(ctx context.Context, req Request) (*Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	prefix := strings.Trim(strings.TrimSpace(req.DestinationPrefix), "/")
	if prefix == "" {
		prefix = req.OfferHash
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            offer_id, offer_hash, source_url, destination_prefix,
            repo_owner, repo_name, issue_number, status,
            progress_stage, progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableInt(req.OfferID),
		strings.TrimSpace(req.OfferHash),
		strings.TrimSpace(req.SourceURL),
		prefix,
		nullableString(req.RepoOwner),
		nullableString(req.RepoName),
		nullableInt(int64(req.IssueNumber)),
		StatusPending,
		"Queued",
		0.0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier. A missing item returns nil
// without error.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// FindByOfferHash returns the newest item for an offer, or nil.
func (s *Store) FindByOfferHash(ctx context.Context, hash string) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE offer_hash = ? ORDER BY id DESC LIMIT 1`,
		strings.TrimSpace(hash),
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by offer hash: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing queue item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, archive_url = ?, error_message = ?, attempts = ?,
             progress_stage = ?, progress_percent = ?, progress_message = ?,
             last_heartbeat = ?, updated_at = ?
         WHERE id = ?`,
		item.Status,
		nullableString(item.ArchiveURL),
		nullableString(item.ErrorMessage),
		item.Attempts,
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		nullableTime(item.LastHeartbeat),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// Claim moves a pending item to archiving, stamping the first heartbeat and
// counting the attempt. It reports false when another worker got there first.
func (s *Store) Claim(ctx context.Context, item *Item) (bool, error) {
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, attempts = attempts + 1, progress_stage = 'Archiving',
             progress_percent = 0, progress_message = NULL, error_message = NULL,
             last_heartbeat = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusArchiving,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		item.ID,
		StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	item.Status = StatusArchiving
	item.Attempts++
	item.ProgressStage = "Archiving"
	item.ProgressPercent = 0
	item.ProgressMessage = ""
	item.ErrorMessage = ""
	item.LastHeartbeat = &now
	item.UpdatedAt = now
	return true, nil
}

// List returns queue items filtered by status set (or all items when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		query := baseQuery + ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, statusArgs(statuses)...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NextForStatuses returns the oldest item matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Item, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query := `SELECT ` + itemColumns + ` FROM queue_items WHERE status IN (` + makePlaceholders(len(statuses)) + `) ORDER BY created_at, id LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, statusArgs(statuses)...)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Remove deletes an item by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearStatuses removes items in any of the given statuses.
func (s *Store) ClearStatuses(ctx context.Context, statuses ...Status) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE status IN (`+makePlaceholders(len(statuses))+`)`, statusArgs(statuses)...)
	if err != nil {
		return 0, fmt.Errorf("clear %v: %w", statuses, err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes only completed items from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	return s.ClearStatuses(ctx, StatusCompleted)
}

// ClearFailed removes failed and rejected items from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	return s.ClearStatuses(ctx, StatusFailed, StatusRejected)
}

// Clear removes all items from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}
