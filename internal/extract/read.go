package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	aerrors "github.com/Zuo-Peng/ai-session-viewer/internal/errors"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/pathkey"
)

// DesktopProject is the project of a binary session with no path hint.
const DesktopProject = "(desktop)"

// ReadWindows loads path whole when it is at most max bytes. Larger files
// are sampled as a head and a tail window of max/2 bytes each, and partial
// is true. max <= 0 means no bound.
func ReadWindows(path string, max int64) (windows []Window, partial bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, false, err
	}
	size := info.Size()

	if max <= 0 || size <= max {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, false, err
		}
		return []Window{{Offset: 0, Data: data}}, false, nil
	}

	half := max / 2
	head := make([]byte, half)
	if _, err := io.ReadFull(f, head); err != nil {
		return nil, false, fmt.Errorf("read head: %w", err)
	}
	tail := make([]byte, half)
	if _, err := f.ReadAt(tail, size-half); err != nil && err != io.EOF {
		return nil, false, fmt.Errorf("read tail: %w", err)
	}
	return []Window{{Offset: 0, Data: head}, {Offset: size - half, Data: tail}}, true, nil
}

// ParseBlob builds a BinaryStore session from one store file under root.
// A file that cannot be read is a READ_FAILED error; a file with no
// recoverable snippets is an empty session, not an error.
func (e *Extractor) ParseBlob(path, root string, maxBytes int64) (*parse.Session, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, aerrors.NewReadFailed(path, err)
	}
	windows, partial, err := ReadWindows(path, maxBytes)
	if err != nil {
		return nil, aerrors.NewReadFailed(path, err)
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	res := e.ExtractWindows(windows)
	sess := &parse.Session{
		ID:           parse.BinaryStore.IDPrefix() + ":" + rel,
		Source:       parse.BinaryStore,
		RelativePath: rel,
		FilePath:     path,
		Messages:     res.Messages,
		Partial:      partial,
		ParseErrors:  res.Rejected,
		Mtime:        info.ModTime(),
		Size:         info.Size(),
	}
	if strings.TrimSpace(res.ProjectHint) != "" {
		sess.Cwd = res.ProjectHint
		sess.Project = pathkey.Normalize(res.ProjectHint)
	} else {
		sess.Project = pathkey.Normalize(DesktopProject)
	}
	for _, s := range res.Snippets {
		if m, ok := s.Value.GetString("model"); ok && m != "" {
			sess.Model = m
			break
		}
	}
	return sess, nil
}
