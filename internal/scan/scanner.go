package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	aerrors "github.com/Zuo-Peng/ai-session-viewer/internal/errors"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
)

// Roots are the configured directories for each source kind.
type Roots struct {
	Structured []string
	Binary     []string
}

// Count is the number of configured roots.
func (r Roots) Count() int { return len(r.Structured) + len(r.Binary) }

type FileInfo struct {
	Path  string
	Root  string
	Kind  parse.SourceKind
	Mtime time.Time
	Size  int64
}

type Result struct {
	Files       []FileInfo // newest first
	Warnings    []error    // one SOURCE_UNAVAILABLE per skipped root
	RootsOK     int
	RootsFailed int
}

// ScanRoots walks every root. A root that is missing or not a readable
// directory is skipped with a warning; unreadable subdirectories are
// skipped silently.
func ScanRoots(roots Roots) Result {
	var res Result
	walk := func(list []string, kind parse.SourceKind, match func(string) bool, skipDir func(string) bool) {
		for _, root := range list {
			files, err := walkRoot(root, kind, match, skipDir)
			if err != nil {
				res.RootsFailed++
				res.Warnings = append(res.Warnings, aerrors.NewSourceUnavailable(root, err))
				continue
			}
			res.RootsOK++
			res.Files = append(res.Files, files...)
		}
	}
	walk(roots.Structured, parse.StructuredLog, isSessionLog, func(name string) bool { return name == "subagents" })
	walk(roots.Binary, parse.BinaryStore, isStoreFile, func(string) bool { return false })

	sort.SliceStable(res.Files, func(i, j int) bool {
		return res.Files[i].Mtime.After(res.Files[j].Mtime)
	})
	return res
}

func isSessionLog(name string) bool {
	return filepath.Ext(name) == ".jsonl" && !strings.Contains(name, "sessions-index")
}

// isStoreFile matches LevelDB tables, write-ahead logs and manifests.
func isStoreFile(name string) bool {
	switch filepath.Ext(name) {
	case ".ldb", ".log":
		return true
	}
	return strings.HasPrefix(name, "MANIFEST-")
}

func walkRoot(root string, kind parse.SourceKind, match, skipDir func(string) bool) ([]FileInfo, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "scan", Path: root, Err: fs.ErrInvalid}
	}
	if _, err := os.ReadDir(root); err != nil {
		return nil, err
	}

	var files []FileInfo
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !match(d.Name()) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{
			Path:  path,
			Root:  root,
			Kind:  kind,
			Mtime: fi.ModTime(),
			Size:  fi.Size(),
		})
		return nil
	})
	return files, err
}
