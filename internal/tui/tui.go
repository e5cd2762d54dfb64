package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Zuo-Peng/ai-session-viewer/internal/index"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/search"
)

const debounceDelay = 200 * time.Millisecond

type tuiMode int

const (
	modeSearch tuiMode = iota
	modeList
)

type searchResultMsg struct {
	query   string
	source  parse.SourceKind
	gen     uint64
	results []search.Summary
}

type debounceTickMsg struct {
	query string
}

type rebuildDoneMsg struct {
	gen   uint64
	stats index.Stats
	err   error
}

type model struct {
	idx     *index.Index
	src     index.Sources
	filters search.Filters
	mode    tuiMode

	query      string
	gen        uint64 // snapshot generation the results came from
	results    []search.Summary
	cursor     int
	listOffset int

	filterInput textinput.Model
	preview     viewport.Model
	previewKey  string // avoids duplicate renders
	onlyUser    bool
	reverse     bool

	rebuilding bool
	notice     string

	width      int
	height     int
	ready      bool
	quitting   bool
	openResult *search.Summary
}

func initialModel(idx *index.Index, src index.Sources, query string, f search.Filters) model {
	ti := textinput.New()
	ti.Placeholder = "Search..."
	ti.Focus()
	ti.SetValue(query)
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = 256

	return model{
		idx:         idx,
		src:         src,
		filters:     f,
		query:       query,
		filterInput: ti,
		preview:     viewport.New(0, 0),
	}
}

// Run starts the search TUI and blocks until it exits. Selecting a result
// copies its resume command to the clipboard.
func Run(idx *index.Index, src index.Sources, query string, f search.Filters) error {
	return run(initialModel(idx, src, query, f))
}

// RunList starts the TUI in list mode, showing all sessions newest first.
func RunList(idx *index.Index, src index.Sources, f search.Filters) error {
	m := initialModel(idx, src, "", f)
	m.mode = modeList
	m.filterInput.Placeholder = "Filter..."
	return run(m)
}

func run(m model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	fm := finalModel.(model)
	if fm.openResult == nil {
		return nil
	}
	sess, err := search.GetSession(m.idx.Current(), fm.openResult.ID)
	if err != nil {
		return err
	}
	return copyResumeCommand(sess)
}

// Init triggers the initial search/list load.
func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.runQuery(m.query))
}

// View renders the full TUI.
func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	listW := m.listWidth()
	previewW := m.previewWidth()
	panelH := m.panelHeight()

	listPanel := stylePanelBorder.
		Width(listW).
		Height(panelH).
		Render(m.renderList(listW, panelH))

	m.preview.Width = previewW
	m.preview.Height = panelH
	previewPanel := styleActiveBorder.
		Width(previewW).
		Height(panelH).
		Render(m.preview.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel)
	return lipgloss.JoinVertical(lipgloss.Left, m.filterInput.View(), panels, m.statusBar())
}

func (m model) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	// 40% for list, minus border padding
	return max(20, m.width*40/100-4)
}

func (m model) previewWidth() int {
	if m.width <= 0 {
		return 60
	}
	return max(20, m.width*60/100-4)
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// input row (1) + status bar (1) + borders (4)
	return max(5, m.height-6)
}

func sourceLabel(k parse.SourceKind) string {
	switch k {
	case parse.StructuredLog:
		return "cli"
	case parse.BinaryStore:
		return "desktop"
	default:
		return "all"
	}
}

func (m model) statusBar() string {
	parts := []string{
		fmt.Sprintf("%d results", len(m.results)),
		"src " + sourceLabel(m.filters.Source),
		fmt.Sprintf("gen %d", m.gen),
	}
	switch {
	case m.rebuilding:
		parts = append(parts, "rebuilding...")
	case m.notice != "":
		parts = append(parts, m.notice)
	}
	parts = append(parts, "Tab source", "C-r rebuild", "C-o user-only", "C-t reverse", "Enter copy resume cmd", "Esc quit")
	return styleStatusBar.Render(strings.Join(parts, " | "))
}

// runQuery searches whichever snapshot is current when the command
// executes, so a rebuild in flight never shows through half done. In search
// mode an empty query clears the results; in list mode it lists everything.
func (m model) runQuery(query string) tea.Cmd {
	idx := m.idx
	f := m.filters
	f.Terms = search.ParseTerms(query)
	listAll := m.mode == modeList
	return func() tea.Msg {
		snap := idx.Current()
		msg := searchResultMsg{query: query, source: f.Source, gen: snap.Generation}
		if len(f.Terms) == 0 && !listAll {
			return msg
		}
		msg.results = search.Search(snap, f)
		return msg
	}
}

func (m model) rebuildCmd() tea.Cmd {
	idx, src := m.idx, m.src
	return func() tea.Msg {
		snap, err := idx.Rebuild(context.Background(), src)
		return rebuildDoneMsg{gen: snap.Generation, stats: snap.Stats, err: err}
	}
}

func (m model) scheduleDebouncedSearch(query string) tea.Cmd {
	return tea.Tick(debounceDelay, func(time.Time) tea.Msg {
		return debounceTickMsg{query: query}
	})
}

func (m model) loadCurrentPreview() tea.Cmd {
	if len(m.results) == 0 || m.cursor >= len(m.results) {
		return nil
	}
	r := m.results[m.cursor]
	req := previewRequest{
		id:       r.ID,
		hit:      r.HitIndex,
		gen:      m.gen,
		onlyUser: m.onlyUser,
		reverse:  m.reverse,
	}
	if req.key() == m.previewKey {
		return nil // already showing this preview
	}
	return loadPreviewCmd(m.idx, req, m.query, m.previewWidth())
}
