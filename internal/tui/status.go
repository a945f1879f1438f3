package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/pders01/newsd/internal/feed"
)

// Canonical short status messages used across the dashboard.
const (
	MsgRefreshing     = "Refreshing…"
	MsgLoadingArticle = "Loading article…"
	MsgCacheEmpty     = "Cache is empty"
	MsgAllTopics      = "all topics"
	MsgOpened         = "Opened in external app"
)

func MsgRefreshSummary(articles int, topics []string) string {
	return fmt.Sprintf("Refreshed %s • %d articles", strings.Join(topics, ", "), articles)
}

func MsgArticleCount(n int) string {
	if n == 1 {
		return "1 article"
	}
	return fmt.Sprintf("%d articles", n)
}

// formatStats renders the one-line cache summary shown under the headlines.
func formatStats(s feed.Stats, now time.Time) string {
	if s.FetchedAt.IsZero() {
		parts := []string{MsgCacheEmpty}
		if s.Failures > 0 {
			parts = append(parts, fmt.Sprintf("%d failures", s.Failures))
		}
		return strings.Join(parts, " • ")
	}

	state := "fresh"
	if s.Stale {
		state = "stale"
	}
	parts := []string{
		fmt.Sprintf("fetched %s ago (%s)", humanAge(now.Sub(s.FetchedAt)), state),
		MsgArticleCount(s.Articles),
		fmt.Sprintf("%d refreshes", s.Refreshes),
	}
	if s.Failures > 0 {
		parts = append(parts, fmt.Sprintf("%d failures", s.Failures))
	}
	return strings.Join(parts, " • ")
}

func humanAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "0s"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// statsKind picks the severity the status line is drawn with.
func statsKind(s feed.Stats) StatusKind {
	switch {
	case s.FetchedAt.IsZero() && s.Failures > 0:
		return StatusError
	case s.LastError != "":
		return StatusWarn
	case s.Stale:
		return StatusInfo
	default:
		return StatusSuccess
	}
}
