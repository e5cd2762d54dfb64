package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	aerrors "github.com/Zuo-Peng/ai-session-viewer/internal/errors"
	"github.com/Zuo-Peng/ai-session-viewer/internal/extract"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/scan"
)

// Sources describes one rebuild: where to look and how to read binary files.
type Sources struct {
	Roots          scan.Roots
	MaxBinaryBytes int64
	Extract        extract.Options
	Policy         extract.Policy // nil means extract.DefaultPolicy
	Budget         time.Duration  // zero means no limit
	Workers        int
}

// Index holds the current snapshot. Readers call Current and never block;
// Rebuild builds a complete new snapshot and then swaps it in.
type Index struct {
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex // serializes rebuilds
	gen     uint64
	cache   *lru.Cache[string, cacheEntry]
	readCfg string // binary read settings the cached sessions were built with
	logger  *slog.Logger
}

type cacheEntry struct {
	mtime time.Time
	size  int64
	sess  *parse.Session
}

// New returns an Index holding an empty generation-0 snapshot. cacheSize
// bounds the number of parsed files kept between rebuilds.
func New(cacheSize int, logger *slog.Logger) *Index {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, _ := lru.New[string, cacheEntry](cacheSize) // only fails for size <= 0
	ix := &Index{cache: cache, logger: logger}
	ix.current.Store(NewSnapshot(0, nil, Stats{}))
	return ix
}

// Current returns the latest completed snapshot.
func (ix *Index) Current() *Snapshot {
	return ix.current.Load()
}

// Validate checks that at least one configured root is a readable
// directory.
func Validate(roots scan.Roots) error {
	all := append(append([]string{}, roots.Structured...), roots.Binary...)
	for _, r := range all {
		if info, err := os.Stat(r); err == nil && info.IsDir() {
			if _, err := os.ReadDir(r); err == nil {
				return nil
			}
		}
	}
	return aerrors.NewNoSources(all)
}

type loaded struct {
	file   scan.FileInfo
	sess   *parse.Session
	cached bool
	err    error
}

// Rebuild scans every source and publishes a new snapshot. Per-file
// failures are counted in the snapshot's Stats. When every configured root
// fails, the empty snapshot is still published and a REBUILD_FAILURE error
// is returned with it. Once the time budget runs out no further files are
// started; the snapshot holds what completed. A cancelled ctx abandons the
// rebuild: nothing is published and the current snapshot is returned with
// ctx's error.
func (ix *Index) Rebuild(ctx context.Context, src Sources) (*Snapshot, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return ix.Current(), fmt.Errorf("rebuild cancelled: %w", err)
	}

	start := time.Now()
	var stats Stats

	found := scan.ScanRoots(src.Roots)
	stats.Scanned = len(found.Files)
	stats.Warnings = append(stats.Warnings, found.Warnings...)
	for _, w := range found.Warnings {
		ix.logger.Warn("source unavailable", "err", w)
	}

	if src.Roots.Count() == 0 || found.RootsOK == 0 {
		stats.Duration = time.Since(start)
		snap := ix.publish(nil, stats)
		if src.Roots.Count() == 0 {
			return snap, aerrors.NewNoSources(nil)
		}
		return snap, aerrors.NewRebuildFailure(src.Roots.Count())
	}

	ext := extract.New(src.Extract, src.Policy)
	if cfg := readConfig(src); cfg != ix.readCfg {
		ix.cache.Purge()
		ix.readCfg = cfg
	}
	workers := src.Workers
	if workers <= 0 {
		workers = 4
	}

	results := make([]loaded, len(found.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	started := 0
	for i, fi := range found.Files {
		if gctx.Err() != nil || (src.Budget > 0 && time.Since(start) > src.Budget) {
			break
		}
		started++
		i, fi := i, fi
		g.Go(func() error {
			sess, cached, err := ix.load(fi, ext, src.MaxBinaryBytes)
			results[i] = loaded{file: fi, sess: sess, cached: cached, err: err}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
	if err := ctx.Err(); err != nil {
		ix.logger.Warn("rebuild cancelled", "err", err)
		return ix.Current(), fmt.Errorf("rebuild cancelled: %w", err)
	}

	if skipped := len(found.Files) - started; skipped > 0 {
		stats.Skipped = skipped
		w := aerrors.NewBudgetExceeded(skipped)
		stats.Warnings = append(stats.Warnings, w)
		ix.logger.Warn("rebuild stopped early", "err", w)
	}

	sessions := ix.collect(results[:started], src.Roots, &stats)
	stats.Duration = time.Since(start)
	snap := ix.publish(sessions, stats)

	ix.logger.Info("index rebuilt", "generation", snap.Generation, "stats", snap.Stats.String(), "took", stats.Duration)
	return snap, nil
}

// readConfig identifies the settings cached binary sessions depend on. A
// policy is identified by its function, so closures over different state
// built from the same literal look alike and need a fresh Index.
func readConfig(src Sources) string {
	var policy uintptr
	if src.Policy != nil {
		policy = reflect.ValueOf(src.Policy).Pointer()
	}
	return fmt.Sprintf("%+v/%d/%x", src.Extract, src.MaxBinaryBytes, policy)
}

func (ix *Index) publish(sessions []*parse.Session, stats Stats) *Snapshot {
	ix.gen++
	snap := NewSnapshot(ix.gen, sessions, stats)
	ix.current.Store(snap)
	return snap
}

// collect turns load results into the snapshot's sessions. Sessions are
// visited in root configuration order, then path order, so that an id
// clash always renames the same file.
func (ix *Index) collect(results []loaded, roots scan.Roots, stats *Stats) []*parse.Session {
	rank := make(map[string]int)
	for i, r := range append(append([]string{}, roots.Structured...), roots.Binary...) {
		if _, ok := rank[r]; !ok {
			rank[r] = i
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].file, results[j].file
		if rank[a.Root] != rank[b.Root] {
			return rank[a.Root] < rank[b.Root]
		}
		return a.Path < b.Path
	})

	seen := make(map[string]int)
	var out []*parse.Session
	for _, r := range results {
		if r.err != nil {
			stats.Errors++
			stats.Warnings = append(stats.Warnings, r.err)
			ix.logger.Warn("skipping file", "path", r.file.Path, "err", r.err)
			if r.sess == nil {
				continue
			}
		}
		if r.cached {
			stats.Cached++
		} else {
			stats.Parsed++
		}

		sess := r.sess
		if sess.Source == parse.BinaryStore {
			stats.UnparsableSegments += sess.ParseErrors
		} else {
			stats.MalformedLines += sess.ParseErrors
		}
		if sess.Partial {
			stats.Partial++
		}

		if n := seen[sess.ID]; n > 0 {
			dup := *sess // cached sessions are shared with older snapshots
			dup.ID = fmt.Sprintf("%s#%d", sess.ID, n+1)
			sess = &dup
		}
		seen[r.sess.ID]++
		out = append(out, sess)
	}
	return out
}

// load parses one file, reusing the cached session while the file's mtime
// and size are unchanged.
func (ix *Index) load(fi scan.FileInfo, ext *extract.Extractor, maxBytes int64) (*parse.Session, bool, error) {
	key := string(fi.Kind) + "\x00" + fi.Root + "\x00" + fi.Path
	if e, ok := ix.cache.Get(key); ok && e.mtime.Equal(fi.Mtime) && e.size == fi.Size {
		return e.sess, true, nil
	}

	var (
		sess *parse.Session
		err  error
	)
	switch fi.Kind {
	case parse.BinaryStore:
		sess, err = ext.ParseBlob(fi.Path, fi.Root, maxBytes)
	default:
		sess, err = parse.ParseFile(fi.Path, fi.Root)
		if err != nil {
			err = aerrors.NewReadFailed(fi.Path, err)
		}
	}
	if err != nil {
		return sess, false, err
	}
	ix.cache.Add(key, cacheEntry{mtime: fi.Mtime, size: fi.Size, sess: sess})
	return sess, false, nil
}
