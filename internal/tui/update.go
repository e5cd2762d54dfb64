package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
)

// Update handles messages.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.preview = newViewport(m.previewWidth(), m.panelHeight())
		m.previewKey = ""
		return m, m.loadCurrentPreview()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case debounceTickMsg:
		// only fire if the query hasn't changed since the tick was scheduled
		if msg.query == m.query {
			return m, m.runQuery(msg.query)
		}
		return m, nil

	case searchResultMsg:
		if msg.query != m.query || msg.source != m.filters.Source {
			return m, nil // stale
		}
		m.results = msg.results
		m.gen = msg.gen
		m.cursor = 0
		m.listOffset = 0
		m.previewKey = ""
		if len(m.results) == 0 {
			m.preview.SetContent("")
			return m, nil
		}
		return m, m.loadCurrentPreview()

	case rebuildDoneMsg:
		m.rebuilding = false
		if msg.err != nil {
			m.notice = "rebuild failed: " + msg.err.Error()
		} else {
			m.notice = fmt.Sprintf("rebuilt: %d sessions in %s", msg.stats.Sessions, msg.stats.Duration.Round(time.Millisecond))
		}
		return m, m.runQuery(m.query)

	case previewRenderedMsg:
		return m.applyPreview(msg), nil
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Enter):
		if len(m.results) > 0 && m.cursor < len(m.results) {
			r := m.results[m.cursor]
			m.openResult = &r
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.adjustListScroll(m.panelHeight())
			return m, m.loadCurrentPreview()
		}
		return m, nil

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.results)-1 {
			m.cursor++
			m.adjustListScroll(m.panelHeight())
			return m, m.loadCurrentPreview()
		}
		return m, nil

	case key.Matches(msg, keys.PreviewUp):
		m.preview.LineUp(m.panelHeight() / 2)
		return m, nil

	case key.Matches(msg, keys.PreviewDn):
		m.preview.LineDown(m.panelHeight() / 2)
		return m, nil

	case key.Matches(msg, keys.PageUp):
		m.preview.LineUp(m.panelHeight())
		return m, nil

	case key.Matches(msg, keys.PageDown):
		m.preview.LineDown(m.panelHeight())
		return m, nil

	case key.Matches(msg, keys.CycleSource):
		m.filters.Source = nextSource(m.filters.Source)
		return m, m.runQuery(m.query)

	case key.Matches(msg, keys.Rebuild):
		if m.rebuilding {
			return m, nil
		}
		m.rebuilding = true
		m.notice = ""
		return m, m.rebuildCmd()

	case key.Matches(msg, keys.OnlyUser):
		m.onlyUser = !m.onlyUser
		return m, m.loadCurrentPreview()

	case key.Matches(msg, keys.Reverse):
		m.reverse = !m.reverse
		return m, m.loadCurrentPreview()
	}

	// remaining keys go to the text input
	var cmds []tea.Cmd
	var tiCmd tea.Cmd
	m.filterInput, tiCmd = m.filterInput.Update(msg)
	cmds = append(cmds, tiCmd)

	if q := m.filterInput.Value(); q != m.query {
		m.query = q
		cmds = append(cmds, m.scheduleDebouncedSearch(q))
	}
	return m, tea.Batch(cmds...)
}

// nextSource cycles all -> cli -> desktop -> all.
func nextSource(k parse.SourceKind) parse.SourceKind {
	switch k {
	case "":
		return parse.StructuredLog
	case parse.StructuredLog:
		return parse.BinaryStore
	default:
		return ""
	}
}

func (m model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !m.ready || len(m.results) == 0 {
		return m, nil
	}

	region, itemIdx := m.hitTest(msg.X, msg.Y)

	switch {
	case region == regionList && msg.Button == tea.MouseButtonWheelUp:
		if m.listOffset > 0 {
			m.listOffset--
		}

	case region == regionList && msg.Button == tea.MouseButtonWheelDown:
		maxOffset := max(0, len(m.results)-m.panelHeight()/linesPerItem)
		if m.listOffset < maxOffset {
			m.listOffset++
		}

	case region == regionList && msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		if itemIdx >= 0 && itemIdx < len(m.results) && m.cursor != itemIdx {
			m.cursor = itemIdx
			m.adjustListScroll(m.panelHeight())
			return m, m.loadCurrentPreview()
		}

	case region == regionPreview && (msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown):
		var vpCmd tea.Cmd
		m.preview, vpCmd = m.preview.Update(msg)
		return m, vpCmd
	}

	return m, nil
}

type mouseRegion int

const (
	regionNone mouseRegion = iota
	regionList
	regionPreview
)

// hitTest maps terminal coordinates to a panel region and list item index.
func (m model) hitTest(x, y int) (mouseRegion, int) {
	contentYStart := 2 // input row (1) + top border (1)
	contentYEnd := contentYStart + m.panelHeight() - 1
	if y < contentYStart || y > contentYEnd {
		return regionNone, -1
	}

	lw := m.listWidth()
	switch {
	case x >= 1 && x <= lw: // col 0 border, 1..lw content
		return regionList, m.listOffset + (y-contentYStart)/linesPerItem
	case x > lw+2:
		return regionPreview, -1
	default:
		return regionNone, -1
	}
}

// applyPreview shows a rendered preview unless the selection moved on.
func (m model) applyPreview(msg previewRenderedMsg) model {
	if len(m.results) == 0 || m.cursor >= len(m.results) {
		return m
	}
	r := m.results[m.cursor]
	want := previewRequest{id: r.ID, hit: r.HitIndex, gen: m.gen, onlyUser: m.onlyUser, reverse: m.reverse}
	if msg.req != want {
		return m // stale
	}
	if msg.err != nil {
		m.preview.SetContent("Preview error: " + msg.err.Error())
	} else {
		m.preview.SetContent(msg.content)
		if msg.hitLine > 0 {
			m.preview.SetYOffset(msg.hitLine)
		} else {
			m.preview.GotoTop()
		}
	}
	m.previewKey = msg.req.key()
	return m
}
