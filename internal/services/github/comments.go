package github

import (
	"fmt"
	"strings"
)

// SuccessComment is posted once an archive completes.
func SuccessComment(hash, sourceURL, archiveURL string) string {
	return fmt.Sprintf("OK, we've archived %s (%s) over at %s and we'll keep it there for future reference.",
		hash, sourceURL, archiveURL)
}

// FailureComment is posted when an archive fails. bot is the account users
// mention to retry.
func FailureComment(hash, sourceURL, errMessage, bot string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Unfortunately, trying to archive %s failed with the following error:\n\n", sourceURL)
	b.WriteString("```")
	b.WriteString(strings.TrimSpace(errMessage))
	b.WriteString("\n```\n\n")
	bot = strings.TrimPrefix(strings.TrimSpace(bot), "@")
	if bot == "" {
		bot = "archivist"
	}
	fmt.Fprintf(&b, "If this doesn't look fatal, you can try to save this again with the command `@%s save %s`.", bot, hash)
	return b.String()
}
