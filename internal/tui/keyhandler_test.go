package tui

import (
	"errors"
	"testing"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyHandler_Quit(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			app := newTestApp(t, &fakeSource{})
			_, cmd := app.Update(key(k))
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestKeyHandler_QWhileFilteringIsText(t *testing.T) {
	src := &fakeSource{snap: testSnapshot()}
	app := newTestApp(t, src)
	load(app, src)

	app.Update(key("/"))
	require.Equal(t, list.Filtering, app.headlines.FilterState())

	app.Update(key("q"))
	assert.Equal(t, list.Filtering, app.headlines.FilterState())
	assert.Equal(t, "q", app.headlines.FilterValue())
}

func TestKeyHandler_EnterOnEmptyList(t *testing.T) {
	app := newTestApp(t, &fakeSource{})
	_, cmd := app.Update(key("enter"))
	assert.Nil(t, cmd)
	assert.Equal(t, ViewHeadlines, app.view)
}

func TestKeyHandler_TabWithoutCategories(t *testing.T) {
	app := newTestApp(t, &fakeSource{})
	app.Update(key("tab"))
	assert.Equal(t, "", app.filter)
}

func TestKeyHandler_HelpPerView(t *testing.T) {
	src := &fakeSource{snap: testSnapshot()}
	app := newTestApp(t, src)
	load(app, src)

	assert.Contains(t, app.keyHandler.helpLine(), "tab: topic")

	app.Update(key("enter"))
	help := app.keyHandler.GetHelpForCurrentView()
	assert.Contains(t, help, "esc: back")
	assert.NotContains(t, help, "tab: topic")
}

type fakeOpener struct {
	opened []string
	err    error
}

func (f *fakeOpener) Open(url string) error {
	if f.err != nil {
		return f.err
	}
	f.opened = append(f.opened, url)
	return nil
}

func TestKeyHandler_OpenExternal(t *testing.T) {
	src := &fakeSource{snap: testSnapshot()}
	app := newTestApp(t, src)
	load(app, src)
	opener := &fakeOpener{}
	app.opener = opener

	// t1 has no link
	app.Update(key("o"))
	assert.Empty(t, opener.opened)
	assert.Nil(t, app.err)

	app.headlines.Select(2)
	app.Update(key("o"))
	assert.Equal(t, []string{"https://example.com/phone"}, opener.opened)
	assert.Equal(t, MsgOpened, app.status)

	app.Update(key("enter"))
	require.Equal(t, ViewReader, app.view)
	app.Update(key("o"))
	assert.Len(t, opener.opened, 2)
}

func TestKeyHandler_OpenExternalFailure(t *testing.T) {
	src := &fakeSource{snap: testSnapshot()}
	app := newTestApp(t, src)
	load(app, src)
	app.opener = &fakeOpener{err: errors.New("no application found")}

	app.headlines.Select(2)
	app.Update(key("o"))
	require.Error(t, app.err)
	assert.Contains(t, app.err.Error(), "open: no application found")
	assert.Contains(t, app.statusLine(), "no application found")
}
