package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/newsd/internal/storage"
)

// refreshTimeout bounds a manual refresh from the dashboard.
const refreshTimeout = 30 * time.Second

func (a *App) tick() tea.Cmd {
	return tea.Tick(a.refreshEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// poll reads the cache without refreshing it.
func (a *App) poll() tea.Cmd {
	source := a.source
	return func() tea.Msg {
		return snapshotMsg{snap: source.Snapshot(), stats: source.Stats()}
	}
}

// refreshTopics keeps every category the dashboard currently shows, so a
// manual refresh never narrows the snapshot. An empty cache asks the
// configured topic source.
func (a *App) refreshTopics() []string {
	if len(a.categories) > 0 {
		return append([]string(nil), a.categories...)
	}
	return a.topics.Topics(a.snapshot)
}

func (a *App) refresh() tea.Cmd {
	source := a.source
	topics := a.refreshTopics()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		snap, err := source.Refresh(ctx, topics)
		return refreshDoneMsg{snap: snap, topics: topics, err: wrapErr("refresh", err)}
	}
}

func (a *App) renderArticle(article storage.Article) tea.Cmd {
	return func() tea.Msg {
		r, err := a.getRenderer()
		if err != nil {
			return articleRenderedMsg{content: "Error initializing renderer: " + err.Error()}
		}

		rendered, err := r.Render(articleMarkdown(article))
		if err != nil {
			// still clears the loading state
			return articleRenderedMsg{content: fmt.Sprintf("Failed to render article: %s\n\nPress Escape to go back.", err.Error())}
		}
		return articleRenderedMsg{content: rendered}
	}
}

func articleMarkdown(article storage.Article) string {
	var content strings.Builder
	content.WriteString(fmt.Sprintf("# %s\n\n", article.Title))

	meta := []string{article.Category}
	if article.Source != "" {
		meta = append(meta, article.Source)
	}
	if !article.PublishedAt.IsZero() {
		meta = append(meta, article.PublishedAt.Format(time.RFC1123))
	}
	content.WriteString("*" + strings.Join(meta, " • ") + "*\n\n")

	if article.URL != "" {
		content.WriteString(fmt.Sprintf("[Read Online](%s)\n\n", article.URL))
	}

	content.WriteString("---\n\n")

	if article.Description != "" {
		content.WriteString(article.Description)
	} else {
		content.WriteString("_No description provided._")
	}
	content.WriteString("\n")

	content.WriteString(fmt.Sprintf("\n`id: %s`\n", article.ID))
	return content.String()
}
