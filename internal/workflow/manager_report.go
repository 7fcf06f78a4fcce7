package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/muxinc/video-archivist/internal/logging"
	"github.com/muxinc/video-archivist/internal/notifications"
	"github.com/muxinc/video-archivist/internal/queue"
	"github.com/muxinc/video-archivist/internal/services/github"
)

const reportTimeout = 30 * time.Second

// Reports run on a context detached from shutdown so a completed archive is
// still announced when the daemon is stopping.
func reportContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
}

func (m *Manager) reportSuccess(ctx context.Context, logger *slog.Logger, item *queue.Item) {
	ctx, cancel := reportContext(ctx)
	defer cancel()

	if m.reporter != nil && item.HasIssue() {
		body := github.SuccessComment(item.OfferHash, item.SourceURL, item.ArchiveURL)
		m.postComment(ctx, logger, item, body)
	}
	if err := m.notifier.Publish(ctx, notifications.EventArchiveCompleted, notifications.Payload{
		"hash":       item.OfferHash,
		"url":        item.SourceURL,
		"archiveURL": item.ArchiveURL,
	}); err != nil {
		logger.Debug("archive notification failed", logging.Error(err))
	}
}

func (m *Manager) reportFailure(ctx context.Context, logger *slog.Logger, item *queue.Item) {
	ctx, cancel := reportContext(ctx)
	defer cancel()

	if m.reporter != nil && item.HasIssue() {
		body := github.FailureComment(item.OfferHash, item.SourceURL, item.ErrorMessage, m.botUsername(ctx, logger))
		m.postComment(ctx, logger, item, body)
	}
	if err := m.notifier.Publish(ctx, notifications.EventArchiveFailed, notifications.Payload{
		"hash":   item.OfferHash,
		"url":    item.SourceURL,
		"error":  item.ErrorMessage,
		"status": string(item.Status),
	}); err != nil {
		logger.Debug("failure notification failed", logging.Error(err))
	}
}

func (m *Manager) notifyError(ctx context.Context, label string, err error) {
	ctx, cancel := reportContext(ctx)
	defer cancel()
	if notifyErr := m.notifier.Publish(ctx, notifications.EventError, notifications.Payload{
		"context": label,
		"error":   err,
	}); notifyErr != nil {
		m.logger.Debug("error notification failed", logging.Error(notifyErr))
	}
}

func (m *Manager) postComment(ctx context.Context, logger *slog.Logger, item *queue.Item, body string) {
	comment, err := m.reporter.CreateIssueComment(ctx, item.RepoOwner, item.RepoName, item.IssueNumber, body)
	if err != nil {
		logging.WarnWithContext(logger, "issue comment failed; requester was not told the outcome", "issue_comment_failed",
			logging.Error(err),
			logging.String("repo", item.Repo()),
			logging.Int("issue_number", item.IssueNumber),
			logging.String(logging.FieldErrorHint, "check github.token permissions and that the issue still exists"),
			logging.String(logging.FieldImpact, "archive result recorded in the queue only"),
		)
		return
	}
	logger.Info("issue comment posted",
		logging.String(logging.FieldEventType, "issue_comment_posted"),
		logging.String("repo", item.Repo()),
		logging.Int("issue_number", item.IssueNumber),
		logging.String("comment_url", comment.HTMLURL),
	)
}

// botUsername returns the configured bot login, looking it up from the token
// on first use. Lookup failures fall back to the comment default and are
// retried on the next failure.
func (m *Manager) botUsername(ctx context.Context, logger *slog.Logger) string {
	m.botMu.Lock()
	defer m.botMu.Unlock()
	if m.botLogin != "" {
		return m.botLogin
	}
	login, err := m.reporter.AuthenticatedLogin(ctx)
	if err != nil {
		logger.Warn("bot login lookup failed", logging.Error(err))
		return ""
	}
	m.botLogin = login
	return login
}
