package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zuo-Peng/ai-session-viewer/internal/index"
	"github.com/Zuo-Peng/ai-session-viewer/internal/render"
	"github.com/Zuo-Peng/ai-session-viewer/internal/search"
)

// previewRequest identifies one rendering of one session.
type previewRequest struct {
	id       string
	hit      int
	gen      uint64
	onlyUser bool
	reverse  bool
}

func (r previewRequest) key() string {
	return fmt.Sprintf("%s:%d:%d:%t:%t", r.id, r.hit, r.gen, r.onlyUser, r.reverse)
}

// previewRenderedMsg is sent when an async preview render completes.
type previewRenderedMsg struct {
	req     previewRequest
	content string
	hitLine int
	err     error
}

// loadPreviewCmd returns a tea.Cmd that renders the conversation preview async.
func loadPreviewCmd(idx *index.Index, req previewRequest, query string, width int) tea.Cmd {
	return func() tea.Msg {
		sess, err := search.GetSession(idx.Current(), req.id)
		if err != nil {
			return previewRenderedMsg{req: req, err: err}
		}
		content, hitLine := render.Session(sess, render.Options{
			Hit:      req.hit,
			Context:  -1,
			Width:    width,
			Query:    query,
			OnlyUser: req.onlyUser,
			Reverse:  req.reverse,
		})
		return previewRenderedMsg{req: req, content: content, hitLine: hitLine}
	}
}

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = stylePanelBorder
	return vp
}
