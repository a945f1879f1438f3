package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/newsd/internal/config"
	"github.com/pders01/newsd/internal/feed"
	"github.com/pders01/newsd/internal/media"
	"github.com/pders01/newsd/internal/storage"
)

// chromeHeight is the separator, status and help lines under the content.
const chromeHeight = 3

// Source is the part of the news cache the dashboard reads and refreshes.
type Source interface {
	Snapshot() *storage.Snapshot
	Stats() feed.Stats
	Refresh(ctx context.Context, topics []string) (*storage.Snapshot, error)
}

// Opener hands an article link to a program outside the terminal.
type Opener interface {
	Open(url string) error
}

type App struct {
	source       Source
	topics       feed.TopicSource
	refreshEvery time.Duration
	article      config.ArticleConfig
	opener       Opener
	now          func() time.Time

	keyHandler *KeyHandler
	headlines  list.Model
	viewport   viewport.Model
	view       View

	snapshot   *storage.Snapshot
	categories []string
	filter     string // empty shows every category
	stats      feed.Stats
	current    *storage.Article

	status     string
	statusKind StatusKind
	refreshing bool
	err        error

	width           int
	height          int
	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
	loadingArticle  bool
}

// NewApp builds the dashboard. topics decides what a manual refresh fetches
// while the cache is empty; nil means the first-article strategy.
func NewApp(source Source, cfg *config.Config, topics feed.TopicSource) *App {
	headlines := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	headlines.Title = "› headlines"
	headlines.SetShowStatusBar(false)
	headlines.SetFilteringEnabled(true)
	headlines.SetShowHelp(false)

	if topics == nil {
		topics = feed.FirstArticleTopics{Default: cfg.Cache.DefaultTopic}
	}
	every := cfg.UI.RefreshEvery
	if every <= 0 {
		every = time.Second
	}

	app := &App{
		source:       source,
		topics:       topics,
		refreshEvery: every,
		article:      cfg.UI.Article,
		opener:       media.NewLauncher(cfg.UI.Media),
		now:          time.Now,
		headlines:    headlines,
		viewport:     viewport.New(0, 0),
		view:         ViewHeadlines,
		snapshot:     &storage.Snapshot{},
	}
	app.keyHandler = NewKeyHandler(app)
	return app
}

// Run starts the dashboard and blocks until the user quits or ctx ends.
func Run(ctx context.Context, source Source, cfg *config.Config, topics feed.TopicSource) error {
	ApplyColors(cfg.UI.Colors)
	p := tea.NewProgram(NewApp(source, cfg, topics), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return wrapErr("dashboard", err)
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	maxWidth := a.article.WordWrapMaxWidth
	if maxWidth <= 0 {
		maxWidth = 120
	}
	minWidth := a.article.WordWrapMinWidth
	if minWidth <= 0 {
		minWidth = 40
	}

	wordWrapWidth := (a.width * 9) / 10
	if wordWrapWidth > maxWidth {
		wordWrapWidth = maxWidth
	}
	if wordWrapWidth < minWidth {
		wordWrapWidth = minWidth
	}
	if a.width > 0 && a.width < minWidth+10 {
		wordWrapWidth = max(a.width-4, 20)
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.poll(), a.tick())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.headlines.SetSize(msg.Width, msg.Height-chromeHeight)
		a.viewport.Width = msg.Width
		a.viewport.Height = max(msg.Height-chromeHeight-2, 1)

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case tickMsg:
		return a, tea.Batch(a.poll(), a.tick())

	case snapshotMsg:
		a.stats = msg.stats
		if msg.snap != a.snapshot {
			cmds = append(cmds, a.setSnapshot(msg.snap))
		}

	case refreshDoneMsg:
		a.refreshing = false
		if msg.err != nil {
			a.err = msg.err
			a.setStatus("", StatusError)
		} else {
			a.err = nil
			a.setStatus(MsgRefreshSummary(msg.snap.Len(), msg.topics), StatusSuccess)
		}
		cmds = append(cmds, a.setSnapshot(msg.snap), a.poll())

	case articleRenderedMsg:
		if a.view == ViewReader {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
			a.loadingArticle = false
			a.setStatus("", StatusInfo)
		}
	}

	switch a.view {
	case ViewHeadlines:
		newListModel, cmd := a.headlines.Update(msg)
		a.headlines = newListModel
		cmds = append(cmds, cmd)
	case ViewReader:
		switch msg.(type) {
		case tea.WindowSizeMsg, tea.MouseMsg:
			newViewport, cmd := a.viewport.Update(msg)
			a.viewport = newViewport
			cmds = append(cmds, cmd)
		}
	}

	return a, tea.Batch(cmds...)
}

// setSnapshot swaps in a newly published snapshot and rebuilds the list.
// A topic filter naming a category the snapshot lacks is dropped.
func (a *App) setSnapshot(snap *storage.Snapshot) tea.Cmd {
	if snap == nil {
		snap = &storage.Snapshot{}
	}
	a.snapshot = snap

	a.categories = a.categories[:0]
	seen := make(map[string]bool)
	for _, art := range snap.Articles {
		if art.Category != "" && !seen[art.Category] {
			seen[art.Category] = true
			a.categories = append(a.categories, art.Category)
		}
	}
	if a.filter != "" && !seen[a.filter] {
		a.filter = ""
	}
	return a.applyFilter()
}

func (a *App) applyFilter() tea.Cmd {
	items := make([]list.Item, 0, a.snapshot.Len())
	for _, art := range a.snapshot.Articles {
		if a.filter == "" || art.Category == a.filter {
			items = append(items, headlineItem{article: art})
		}
	}

	scope := MsgAllTopics
	if a.filter != "" {
		scope = a.filter
	}
	a.headlines.Title = fmt.Sprintf("› headlines • %s", scope)
	return a.headlines.SetItems(items)
}

// cycleFilter moves the topic filter by step through "all" and each category.
func (a *App) cycleFilter(step int) tea.Cmd {
	if len(a.categories) == 0 {
		return nil
	}
	options := append([]string{""}, a.categories...)
	idx := 0
	for i, c := range options {
		if c == a.filter {
			idx = i
			break
		}
	}
	idx = (idx + step + len(options)) % len(options)
	a.filter = options[idx]
	a.headlines.ResetSelected()
	return a.applyFilter()
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
}

func (a *App) View() string {
	contentHeight := a.height - chromeHeight

	var content string
	switch a.view {
	case ViewHeadlines:
		if a.snapshot.Empty() {
			content = renderCentered(a.width, contentHeight, GetWelcomeMessage())
		} else {
			content = a.headlines.View()
		}
	case ViewReader:
		header := ""
		if a.current != nil {
			header = renderHeader(a.current.Title, articleByline(*a.current), a.width)
		}
		body := a.viewport.View()
		if a.loadingArticle {
			body = renderCentered(a.width, max(contentHeight-2, 1), renderMuted(MsgLoadingArticle))
		}
		content = lipgloss.JoinVertical(lipgloss.Top, header, body)
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(max(contentHeight, 0)).
		MaxHeight(max(contentHeight, 0)).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Top,
		content,
		renderSeparator(a.width),
		a.statusLine(),
		renderHelp(a.keyHandler.helpLine()),
	)
}

func (a *App) statusLine() string {
	if a.err != nil {
		return StatusBarStyle.Render(StatusErrorStyle.Render(fmt.Sprintf("✗ %v", a.err)))
	}

	line := StatusInfoStyle.Render(formatStats(a.stats, a.now()))
	if a.refreshing {
		return StatusBarStyle.Render(StatusWarnStyle.Render(MsgRefreshing) + " " + line)
	}
	if a.status != "" {
		return StatusBarStyle.Render(a.statusKind.style().Render(a.status) + renderMuted(" • ") + line)
	}
	return StatusBarStyle.Render(statsKind(a.stats).style().Render(formatStats(a.stats, a.now())))
}

type headlineItem struct {
	article storage.Article
}

func (i headlineItem) Title() string {
	return CategoryStyle.Render("["+i.article.Category+"]") + " " + i.article.Title
}

func (i headlineItem) Description() string {
	desc := truncateEnd(i.article.Description, 80)
	if desc == "" {
		desc = truncateMiddle(i.article.URL, 60)
	}

	timeStr := ""
	if !i.article.PublishedAt.IsZero() {
		timeStr = TimeStyle.Render(" • " + i.article.PublishedAt.Format("Jan 2, 15:04"))
	}

	return renderMuted(desc) + timeStr
}

func (i headlineItem) FilterValue() string {
	return i.article.Title + " " + i.article.Category
}

func articleByline(art storage.Article) string {
	byline := art.Category
	if art.Source != "" {
		byline += " • " + art.Source
	}
	if !art.PublishedAt.IsZero() {
		byline += " • " + art.PublishedAt.Format("Jan 2, 15:04")
	}
	return byline
}

type tickMsg time.Time

type snapshotMsg struct {
	snap  *storage.Snapshot
	stats feed.Stats
}

type refreshDoneMsg struct {
	snap   *storage.Snapshot
	topics []string
	err    error
}

type articleRenderedMsg struct {
	content string
}
