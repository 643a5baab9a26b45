package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/snackx/internal/favorites"
	"github.com/desertthunder/snackx/internal/formatter"
	"github.com/desertthunder/snackx/internal/models"
	"github.com/desertthunder/snackx/internal/shared"
	"github.com/desertthunder/snackx/internal/tasks"
)

var _ Painter = (*Palette)(nil)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	BrowseView ViewState = iota
	DetailView
	FavoritesView
)

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	browser *tasks.Browser
	details tasks.DetailSource
	store   *favorites.Store

	events      chan favorites.Event
	unsubscribe func()

	width    int
	height   int
	input    textinput.Model
	typing   bool
	results  list.Model
	favList  list.Model
	detail   *models.SnackDetail
	loading  bool
	status   string
	err      error
	help     help.Model
	keys     keyMap
	lastView ViewState
}

// NewModel creates a new TUI model with the provided dependencies.
//
// The model subscribes to store; call [Model.Close] once the program exits.
func NewModel(ctx context.Context, browser *tasks.Browser, details tasks.DetailSource, store *favorites.Store) *Model {
	input := textinput.New()
	input.Placeholder = "간식 이름으로 검색"
	input.Prompt = "/ "
	input.CharLimit = 64

	m := &Model{
		ctx:     ctx,
		view:    BrowseView,
		browser: browser,
		details: details,
		store:   store,
		events:  make(chan favorites.Event, 32),
		input:   input,
		results: newList("간식 목록"),
		favList: newList("찜한 간식"),
		help:    help.New(),
		keys:    newKeyMap(),
	}
	m.unsubscribe = store.Subscribe(func(ev favorites.Event) {
		// A dropped event loses nothing: syncFavorites re-reads the store on the next one.
		select {
		case m.events <- ev:
		default:
		}
	})
	m.syncFavorites()
	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return l
}

// Close detaches the model from the favorites store.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Init loads the first catalog page and refreshes favorites from the server.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadPage(models.SnackQuery{}), m.refreshFavorites(), m.waitForEvent())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.results.SetSize(msg.Width-4, msg.Height-8)
		m.favList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if m.typing {
			return m.handleSearchKeys(msg)
		}
		switch m.view {
		case BrowseView:
			return m.handleBrowseKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case FavoritesView:
			return m.handleFavoritesKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPageLoaded:
		data := msg.data.(pageLoaded)
		if errors.Is(data.err, shared.ErrSuperseded) {
			return m, nil
		}
		m.loading = false
		m.err = data.err
		if data.page != nil {
			m.setResults(data.page.Items)
			m.status = fmt.Sprintf("page %d/%d · %d snacks", data.page.Page+1, max(data.page.TotalPages, 1), data.page.TotalElements)
		} else {
			m.setResults(nil)
		}
		return m, nil

	case MsgDetailLoaded:
		data := msg.data.(detailLoaded)
		m.loading = false
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.detail = data.detail
		m.lastView, m.view = m.view, DetailView
		return m, nil

	case MsgFavoritesChanged:
		ev := msg.data.(favorites.Event)
		m.syncFavorites()
		if ev.Err != nil {
			m.err = ev.Err
		}
		return m, m.waitForEvent()

	case MsgToggleDone:
		data := msg.data.(toggleDone)
		if data.err != nil {
			m.err = data.err
		} else {
			m.err = nil
			if m.store.IsFavorite(data.id) {
				m.status = "찜 목록에 추가했어요"
			} else {
				m.status = "찜 목록에서 뺐어요"
			}
		}
		m.syncFavorites()
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case BrowseView:
		body = m.renderBrowse()
	case DetailView:
		body = m.renderDetail()
	case FavoritesView:
		body = m.renderFavorites()
	}

	footer := styles.ok.Render(m.status)
	if m.err != nil {
		footer = styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	}
	return fmt.Sprintf("%s\n%s\n%s", body, footer, m.help.ShortHelpView(m.helpKeys()))
}

func (m *Model) helpKeys() []key.Binding {
	switch m.view {
	case DetailView:
		return []key.Binding{m.keys.favorite, m.keys.back, m.keys.quit}
	case FavoritesView:
		return []key.Binding{m.keys.enter, m.keys.favorite, m.keys.refresh, m.keys.tab, m.keys.quit}
	default:
		return []key.Binding{m.keys.search, m.keys.enter, m.keys.favorite, m.keys.next, m.keys.prev, m.keys.tab, m.keys.quit}
	}
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.typing = false
		m.input.Blur()
		return m, nil
	case "enter":
		m.typing = false
		m.input.Blur()
		q := m.browser.State().Query
		q.Keyword = strings.TrimSpace(m.input.Value())
		q.Page = 0
		return m, m.loadPage(q)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleBrowseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.search):
		m.typing = true
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.tab):
		m.view = FavoritesView
		return m, nil
	case key.Matches(msg, m.keys.next):
		return m, m.pageCmd(m.browser.Next)
	case key.Matches(msg, m.keys.prev):
		return m, m.pageCmd(m.browser.Prev)
	case key.Matches(msg, m.keys.favorite):
		if it, ok := m.results.SelectedItem().(snackItem); ok {
			return m, m.toggle(it.snack.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if it, ok := m.results.SelectedItem().(snackItem); ok {
			return m, m.loadDetail(it.snack.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = m.lastView
		m.detail = nil
		return m, nil
	case key.Matches(msg, m.keys.favorite):
		if m.detail != nil {
			return m, m.toggle(m.detail.ID)
		}
	}
	return m, nil
}

func (m *Model) handleFavoritesKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab), key.Matches(msg, m.keys.back):
		m.view = BrowseView
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.refreshFavorites()
	case key.Matches(msg, m.keys.favorite):
		if it, ok := m.favList.SelectedItem().(favoriteItem); ok {
			return m, m.toggle(it.item.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if it, ok := m.favList.SelectedItem().(favoriteItem); ok {
			return m, m.loadDetail(it.item.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.favList, cmd = m.favList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case BrowseView:
		m.results, cmd = m.results.Update(msg)
	case FavoritesView:
		m.favList, cmd = m.favList.Update(msg)
	}
	return m, cmd
}

// setResults replaces the catalog list, drawing hearts from the store.
func (m *Model) setResults(snacks []models.Snack) {
	items := make([]list.Item, len(snacks))
	for i, s := range snacks {
		items[i] = snackItem{snack: s, fav: m.store.IsFavorite(s.ID), pending: m.store.Pending(s.ID)}
	}
	m.results.SetItems(items)
}

// syncFavorites redraws hearts and the favorites list from the store.
func (m *Model) syncFavorites() {
	snacks := make([]models.Snack, 0, len(m.results.Items()))
	for _, it := range m.results.Items() {
		snacks = append(snacks, it.(snackItem).snack)
	}
	m.setResults(snacks)

	favs := m.store.List()
	items := make([]list.Item, len(favs))
	for i, f := range favs {
		items[i] = favoriteItem{item: f, pending: m.store.Pending(f.ID)}
	}
	m.favList.SetItems(items)
	m.favList.Title = fmt.Sprintf("찜한 간식 (%d)", len(favs))
}

func (m *Model) loadPage(q models.SnackQuery) tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		page, err := m.browser.Load(m.ctx, q)
		return pageLoadedMsg(page, err)
	}
}

func (m *Model) pageCmd(fn func(context.Context) (*models.SnackPage, error)) tea.Cmd {
	return func() tea.Msg {
		page, err := fn(m.ctx)
		if errors.Is(err, shared.ErrInvalidArgument) {
			return nil
		}
		return pageLoadedMsg(page, err)
	}
}

func (m *Model) loadDetail(id int64) tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		d, err := m.details.Detail(m.ctx, id)
		return detailLoadedMsg(d, err)
	}
}

func (m *Model) toggle(id int64) tea.Cmd {
	return func() tea.Msg {
		return toggleDoneMsg(id, m.store.Toggle(m.ctx, id))
	}
}

func (m *Model) refreshFavorites() tea.Cmd {
	return func() tea.Msg {
		// failures arrive as store events
		_ = m.store.Refresh(m.ctx)
		return nil
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-m.events:
			return favoritesChangedMsg(ev)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) renderBrowse() string {
	var b strings.Builder
	if m.typing {
		b.WriteString(m.input.View() + "\n\n")
	} else if q := m.browser.State().Query; q.Keyword != "" {
		b.WriteString(styles.help.Render(fmt.Sprintf("검색어: %s", q.Keyword)) + "\n\n")
	}
	if m.loading && len(m.results.Items()) == 0 {
		b.WriteString("Loading...\n")
		return b.String()
	}
	b.WriteString(m.results.View())
	return b.String()
}

func (m *Model) renderDetail() string {
	if m.detail == nil {
		return "Loading..."
	}

	fav, pending := m.store.IsFavorite(m.detail.ID), m.store.Pending(m.detail.ID)
	title := styles.title.Render(fmt.Sprintf("%s %s", styles.heart.Render(heart(fav, pending)), m.detail.Name))

	var b strings.Builder
	formatter.WriteDetail(&b, m.detail, fav)
	body := b.String()
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	}
	return fmt.Sprintf("%s\n%s", title, body)
}

func (m *Model) renderFavorites() string {
	if len(m.favList.Items()) == 0 {
		return styles.title.Render("찜한 간식") + "\n\n" + styles.warn.Render("아직 찜한 간식이 없어요. 목록에서 f를 눌러 추가하세요.")
	}
	return m.favList.View()
}
