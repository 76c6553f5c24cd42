// Package tui is the terminal front end. It renders controller snapshots and
// reports which rows are on screen so the controller can page and prefetch.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/reel/internal/feed"
	"github.com/mmcdole/reel/internal/player"
	"github.com/mmcdole/reel/internal/search"
	"github.com/mmcdole/reel/internal/tui/styles"
)

const (
	eventBuffer       = 128
	minInspectorWidth = 80
	maxThumbnails     = 64
)

type thumbKey struct {
	uri        string
	cols, rows int
}

// thumbCache holds rendered thumbnails for the current session
type thumbCache struct {
	rendered map[thumbKey]string
}

func (c *thumbCache) reset() { c.rendered = make(map[thumbKey]string) }

// Model is the main application model
type Model struct {
	ctrl     *feed.Controller
	observer *ChannelObserver
	cancel   func()

	state    feed.State
	session  string
	cursor   int
	top      int
	reported []int // record indices last reported visible

	width  int
	height int
	ready  bool

	spinner   spinner.Model
	filter    textinput.Model
	filtering bool
	query     string
	results   []search.Result

	help      help.Model
	showHelp  bool
	status    string
	statusErr bool
	statusSeq int

	thumbs *thumbCache
}

// NewModel subscribes to ctrl and returns the initial model. Call Close after
// the program exits.
func NewModel(ctrl *feed.Controller) Model {
	obs := NewChannelObserver(eventBuffer)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	ti := textinput.New()
	ti.Prompt = "/"
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle
	ti.Placeholder = "title, #tag or author"
	ti.CharLimit = 64

	h := help.New()
	h.Styles.FullKey = styles.HelpKeyStyle
	h.Styles.FullDesc = styles.HelpDescStyle
	h.Styles.FullSeparator = styles.HelpSepStyle
	h.Styles.ShortKey = styles.HelpKeyStyle
	h.Styles.ShortDesc = styles.HelpDescStyle
	h.Styles.ShortSeparator = styles.HelpSepStyle

	thumbs := &thumbCache{}
	thumbs.reset()

	st := ctrl.Snapshot()
	return Model{
		ctrl:     ctrl,
		observer: obs,
		cancel:   ctrl.Subscribe(obs.OnEvent),
		state:    st,
		session:  st.Session,
		spinner:  sp,
		filter:   ti,
		help:     h,
		thumbs:   thumbs,
	}
}

// Close unsubscribes from the controller.
func (m Model) Close() {
	m.cancel()
	m.observer.Close()
}

// Init starts the initial load, event delivery and the spinner.
func (m Model) Init() tea.Cmd {
	ctrl := m.ctrl
	return tea.Batch(
		func() tea.Msg {
			ctrl.LoadInitial()
			return nil
		},
		m.observer.Wait(),
		m.spinner.Tick,
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.clampCursor()
		m.syncVisible()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		// Catches up on any events dropped from a full channel
		m.applyState(m.ctrl.Snapshot())
		return m, cmd

	case FeedEventMsg:
		if msg.Event.Kind == feed.StateChanged {
			m.applyState(msg.Event.State)
		}
		return m, m.observer.Wait()

	case StatusMsg:
		cmd := m.setStatus(msg.Message, msg.IsError)
		return m, cmd

	case ClearStatusMsg:
		if msg.Seq == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) applyState(st feed.State) {
	if st.Session != m.session {
		m.session = st.Session
		m.reported = nil
		m.cursor = 0
		m.top = 0
		m.thumbs.reset()
	}
	m.state = st
	if m.query != "" {
		m.results = search.Filter(st.Videos, m.query)
	}
	m.clampCursor()
	m.syncVisible()
}

func (m *Model) setStatus(msg string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status = msg
	m.statusErr = isErr
	return clearStatusCmd(m.statusSeq)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.filtering {
		switch {
		case key.Matches(msg, Keys.Escape):
			m.filtering = false
			m.filter.Blur()
			m.setQuery("")
			return m, nil
		case msg.Type == tea.KeyEnter:
			m.filtering = false
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.setQuery(m.filter.Value())
		return m, cmd
	}

	page := max(1, m.listHeight())

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.showHelp = true

	case key.Matches(msg, Keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, Keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, Keys.HalfUp):
		m.moveCursor(-page / 2)
	case key.Matches(msg, Keys.HalfDown):
		m.moveCursor(page / 2)
	case key.Matches(msg, Keys.PageUp):
		m.moveCursor(-page)
	case key.Matches(msg, Keys.PageDown):
		m.moveCursor(page)
	case key.Matches(msg, Keys.Home):
		m.moveCursor(-m.rowCount())
	case key.Matches(msg, Keys.End):
		m.moveCursor(m.rowCount())

	case key.Matches(msg, Keys.Play):
		idx, ok := m.selectedIndex()
		if !ok {
			return m, nil
		}
		m.ctrl.Activate(idx)
		cmd := m.setStatus("Playing "+m.state.Videos[idx].Title, false)
		return m, cmd

	case key.Matches(msg, Keys.Pause):
		m.ctrl.Pause()
		cmd := m.setStatus("Paused", false)
		return m, cmd

	case key.Matches(msg, Keys.Refresh):
		m.setQuery("")
		m.filter.SetValue("")
		m.ctrl.Refresh()
		cmd := m.setStatus("Refreshing feed", false)
		return m, cmd

	case key.Matches(msg, Keys.More):
		m.ctrl.LoadMoreIfNeeded()

	case key.Matches(msg, Keys.Filter):
		m.filtering = true
		m.filter.SetValue(m.query)
		cmd := m.filter.Focus()
		return m, cmd

	case key.Matches(msg, Keys.Escape):
		if m.query != "" {
			m.filter.SetValue("")
			m.setQuery("")
		}
	}

	return m, nil
}

func (m *Model) setQuery(q string) {
	if q == m.query {
		return
	}
	m.query = q
	m.results = search.Filter(m.state.Videos, q)
	m.cursor = 0
	m.top = 0
	m.syncVisible()
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
	m.syncVisible()
}

func (m *Model) clampCursor() {
	n := m.rowCount()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.top = scrollTop(m.top, m.cursor, m.listHeight(), n)
}

// rowCount is the number of list rows under the current filter
func (m Model) rowCount() int {
	if m.query != "" {
		return len(m.results)
	}
	return len(m.state.Videos)
}

// recordIndex maps a list row to its feed index
func (m Model) recordIndex(row int) int {
	if m.query != "" {
		return m.results[row].Index
	}
	return row
}

func (m Model) selectedIndex() (int, bool) {
	if m.cursor < 0 || m.cursor >= m.rowCount() {
		return 0, false
	}
	return m.recordIndex(m.cursor), true
}

// visibleIndices returns the feed indices of the rows on screen
func (m Model) visibleIndices() []int {
	if !m.ready {
		return nil
	}
	end := min(m.top+m.listHeight(), m.rowCount())
	out := make([]int, 0, max(0, end-m.top))
	for row := m.top; row < end; row++ {
		out = append(out, m.recordIndex(row))
	}
	return out
}

// syncVisible reports rows that scrolled in or out since the last call
func (m *Model) syncVisible() {
	next := m.visibleIndices()
	shown, hidden := diffIndices(m.reported, next)
	for _, i := range hidden {
		m.ctrl.OnItemHidden(i)
	}
	for _, i := range shown {
		m.ctrl.OnItemVisible(i)
	}
	m.reported = next
}

// Layout

func (m Model) listHeight() int {
	return max(0, m.height-2) // header + footer
}

func (m Model) showInspector() bool {
	return m.width >= minInspectorWidth
}

func (m Model) listWidth() int {
	if m.showInspector() {
		return m.width * 3 / 5
	}
	return m.width
}

// View renders the current model state
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	listWidth := m.listWidth()
	height := m.listHeight()

	list := lipgloss.NewStyle().
		Width(listWidth).
		Height(height).
		MaxHeight(height).
		Render(m.renderList(listWidth, height))

	body := list
	if m.showInspector() {
		inspectorWidth := m.width - listWidth - 2
		inspector := styles.InspectorStyle.
			Width(inspectorWidth).
			MaxHeight(height).
			Render(m.renderInspector(inspectorWidth-2, height))
		body = lipgloss.JoinHorizontal(lipgloss.Top, list, inspector)
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m Model) renderHeader() string {
	title := styles.AccentStyle.Bold(true).Render("reel")
	count := styles.DimStyle.Render(fmt.Sprintf("  %d videos", len(m.state.Videos)))
	if m.query != "" {
		count = styles.DimStyle.Render(fmt.Sprintf("  %d of %d videos", len(m.results), len(m.state.Videos)))
	}

	var filter string
	if m.filtering {
		filter = "  " + m.filter.View()
	} else if m.query != "" {
		filter = "  " + styles.FilterPromptStyle.Render("/") + styles.FilterStyle.Render(m.query)
	}

	return title + count + filter
}

func (m Model) renderList(width, height int) string {
	n := m.rowCount()
	if n == 0 {
		switch {
		case m.state.IsLoading:
			return m.spinner.View() + " " + styles.DimStyle.Render("Loading feed...")
		case m.state.ErrorMessage != "":
			return RenderError(m.state.ErrorMessage, width)
		case m.query != "":
			return styles.DimStyle.Render("No matches")
		default:
			return styles.DimStyle.Render("No videos")
		}
	}

	var b strings.Builder
	end := min(m.top+height, n)
	for row := m.top; row < end; row++ {
		idx := m.recordIndex(row)
		var matched []int
		if m.query != "" && m.results[row].Field == search.FieldTitle {
			matched = m.results[row].MatchedIndexes
		}
		b.WriteString(RenderVideoRow(
			m.state.Videos[idx],
			m.ctrl.PlayerState(idx),
			m.ctrl.IsReady(idx),
			row == m.cursor,
			matched,
			width,
		))
		if row < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderInspector(width, height int) string {
	idx, ok := m.selectedIndex()
	if !ok {
		return RenderInspector(nil, "", player.Uncreated, width)
	}
	v := m.state.Videos[idx]
	return RenderInspector(&v, m.thumbnail(idx, width, height/2), m.ctrl.PlayerState(idx), width)
}

// thumbnail renders the cached image for idx, or "" while it is loading
func (m Model) thumbnail(idx, cols, maxRows int) string {
	asset := m.ctrl.Thumbnail(idx)
	if asset == nil || cols <= 0 || maxRows <= 0 {
		return ""
	}
	// Portrait video: 9:16 at two pixels per cell
	rows := min(maxRows, cols*8/9)
	k := thumbKey{uri: asset.URI, cols: cols, rows: rows}
	if s, ok := m.thumbs.rendered[k]; ok {
		return s
	}
	if len(m.thumbs.rendered) >= maxThumbnails {
		m.thumbs.reset()
	}
	s := RenderThumbnail(asset.Image, cols, rows)
	m.thumbs.rendered[k] = s
	return s
}

func (m Model) renderFooter() string {
	var left string
	switch {
	case m.state.IsLoading:
		left = m.spinner.View() + " " + styles.DimStyle.Render("Loading feed...")
	case m.state.IsLoadingMore:
		left = m.spinner.View() + " " + styles.DimStyle.Render("Loading more...")
	case m.status != "":
		if m.statusErr {
			left = styles.ErrorStyle.Render(m.status)
		} else {
			left = styles.DimStyle.Render(m.status)
		}
	case m.state.ErrorMessage != "":
		left = styles.ErrorStyle.Render(m.state.ErrorMessage)
	case !m.state.HasMoreVideos && len(m.state.Videos) > 0:
		left = styles.DimStyle.Render("End of feed")
	}

	var center string
	if n := m.rowCount(); n > 0 {
		center = styles.DimStyle.Render(fmt.Sprintf("%d/%d", m.cursor+1, n))
	}

	right := styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help")
	if m.width >= minInspectorWidth {
		right = m.help.ShortHelpView(Keys.ShortHelp())
	}

	leftWidth := lipgloss.Width(left)
	centerWidth := lipgloss.Width(center)
	rightWidth := lipgloss.Width(right)

	if leftWidth+centerWidth+rightWidth >= m.width {
		gap := max(0, m.width-leftWidth-rightWidth)
		return left + strings.Repeat(" ", gap) + right
	}

	available := m.width - leftWidth - rightWidth
	leftPad := (available - centerWidth) / 2
	rightPad := available - centerWidth - leftPad

	return left + strings.Repeat(" ", leftPad) + center + strings.Repeat(" ", rightPad) + right
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("Keys"),
		"",
		m.help.FullHelpView(Keys.FullHelp()),
		"",
		styles.DimStyle.Render("Press any key to return..."),
	)

	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(body))
}

// Run starts the program and blocks until the user quits.
func Run(ctrl *feed.Controller) error {
	m := NewModel(ctrl)
	defer m.Close()

	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
