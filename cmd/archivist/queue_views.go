package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/muxinc/video-archivist/internal/api"
	"github.com/muxinc/video-archivist/internal/queue"
)

var titleCaser = cases.Title(language.English)

var queueListColumns = []column{
	{title: "ID", right: true},
	{title: "Offer"},
	{title: "Status"},
	{title: "Source", maxWidth: 60},
	{title: "Issue"},
	{title: "Created"},
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		count, ok := stats[string(status)]
		if !ok {
			continue
		}
		rows = append(rows, []string{formatStatusLabel(string(status)), strconv.Itoa(count)})
	}
	return rows
}

func buildQueueListRows(items []api.QueueItem) [][]string {
	sorted := api.SortQueueItemsNewestFirst(items)
	rows := make([][]string, 0, len(sorted))
	for _, item := range sorted {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.OfferHash,
			formatStatusLabel(item.Status),
			item.SourceURL,
			formatIssue(item.Repo, item.IssueNumber),
			formatDisplayTime(item.CreatedAt),
		})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	return titleCaser.String(strings.ReplaceAll(status, "_", " "))
}

func formatIssue(repo string, number int) string {
	if repo == "" || number <= 0 {
		return "-"
	}
	return fmt.Sprintf("%s#%d", repo, number)
}

func formatDisplayTime(value string) string {
	t := api.ParseQueueTime(value)
	if t.IsZero() {
		return strings.TrimSpace(value)
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func formatAge(value string, now time.Time) string {
	t := api.ParseQueueTime(value)
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t).Round(time.Second)
	if d < 0 {
		d = 0
	}
	return d.String() + " ago"
}
