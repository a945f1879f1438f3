package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/newsd/internal/storage"
)

type KeyHandler struct {
	app *App
}

func NewKeyHandler(app *App) *KeyHandler {
	return &KeyHandler{app: app}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return kh.app, tea.Quit
	}

	// typing into the list filter must not trigger shortcuts
	if kh.isFiltering() {
		return kh.delegateToCharm(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(key); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isFiltering() bool {
	return kh.app.view == ViewHeadlines && kh.app.headlines.FilterState() == list.Filtering
}

func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "q":
		return kh.app, tea.Quit, true
	case "r":
		return kh.app, kh.startRefresh(), true
	case "esc":
		return kh.navigateBack()
	case "o":
		return kh.app, kh.openExternal(), true
	}

	if kh.app.view == ViewHeadlines {
		return kh.handleHeadlinesCustomKeys(key)
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleHeadlinesCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "tab":
		return kh.app, kh.app.cycleFilter(1), true
	case "shift+tab":
		return kh.app, kh.app.cycleFilter(-1), true
	case "enter":
		if i, ok := kh.app.headlines.SelectedItem().(headlineItem); ok {
			return kh.app, kh.openArticle(i.article), true
		}
		return kh.app, nil, true
	}
	return kh.app, nil, false
}

// startRefresh is a no-op while a refresh is already in flight.
func (kh *KeyHandler) startRefresh() tea.Cmd {
	if kh.app.refreshing {
		return nil
	}
	kh.app.refreshing = true
	kh.app.err = nil
	kh.app.setStatus("", StatusInfo)
	return kh.app.refresh()
}

func (kh *KeyHandler) openArticle(art storage.Article) tea.Cmd {
	kh.app.current = &art
	kh.app.view = ViewReader
	kh.app.loadingArticle = true
	kh.app.setStatus(MsgLoadingArticle, StatusInfo)
	return kh.app.renderArticle(art)
}

// openExternal opens the article under the cursor, or the one being read,
// with the configured media launcher.
func (kh *KeyHandler) openExternal() tea.Cmd {
	var art *storage.Article
	switch kh.app.view {
	case ViewReader:
		art = kh.app.current
	case ViewHeadlines:
		if i, ok := kh.app.headlines.SelectedItem().(headlineItem); ok {
			art = &i.article
		}
	}
	if art == nil || art.URL == "" || kh.app.opener == nil {
		return nil
	}

	if err := kh.app.opener.Open(art.URL); err != nil {
		kh.app.err = wrapErr("open", err)
		return nil
	}
	kh.app.setStatus(MsgOpened, StatusSuccess)
	return nil
}

func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd, bool) {
	switch kh.app.view {
	case ViewReader:
		kh.app.view = ViewHeadlines
		kh.app.current = nil
		kh.app.loadingArticle = false
		kh.app.setStatus("", StatusInfo)
		return kh.app, nil, true
	case ViewHeadlines:
		// an applied list filter is cleared by the list itself
		if kh.app.headlines.FilterState() != list.Unfiltered {
			return kh.app, nil, false
		}
		if kh.app.filter != "" {
			kh.app.filter = ""
			return kh.app, kh.app.applyFilter(), true
		}
		if kh.app.err != nil {
			kh.app.err = nil
			return kh.app, nil, true
		}
	}
	return kh.app, nil, false
}

// delegateToCharm lets the bubbles components handle keys we don't intercept.
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch kh.app.view {
	case ViewHeadlines:
		kh.app.headlines, cmd = kh.app.headlines.Update(msg)
	case ViewReader:
		kh.app.viewport, cmd = kh.app.viewport.Update(msg)
	}
	return kh.app, cmd
}

func (kh *KeyHandler) GetHelpForCurrentView() []string {
	switch kh.app.view {
	case ViewReader:
		return []string{"↑↓: scroll", "o: open", "esc: back", "r: refresh", "q: quit"}
	default:
		if kh.isFiltering() {
			return []string{"enter: apply filter", "esc: cancel"}
		}
		return []string{"enter: read", "o: open", "tab: topic", "/: filter", "r: refresh", "q: quit"}
	}
}

func (kh *KeyHandler) helpLine() string {
	return strings.Join(kh.GetHelpForCurrentView(), " • ")
}
