package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Zuo-Peng/ai-session-viewer/internal/pathkey"

	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS sessions (
    id            TEXT PRIMARY KEY,
    source        TEXT NOT NULL,
    project       TEXT NOT NULL DEFAULT '',
    project_key   TEXT NOT NULL DEFAULT '',
    relative_path TEXT NOT NULL,
    file_path     TEXT NOT NULL,
    cwd           TEXT NOT NULL DEFAULT '',
    model         TEXT NOT NULL DEFAULT '',
    summary       TEXT NOT NULL DEFAULT '',
    first_at      TEXT NOT NULL DEFAULT '',
    last_at       TEXT NOT NULL DEFAULT '',
    partial       INTEGER NOT NULL DEFAULT 0,
    parse_errors  INTEGER NOT NULL DEFAULT 0,
    mtime         INTEGER NOT NULL DEFAULT 0,
    size          INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
    session_id  TEXT NOT NULL,
    seq         INTEGER NOT NULL,
    role        TEXT NOT NULL,
    kind        TEXT NOT NULL DEFAULT 'text',
    provenance  TEXT NOT NULL,
    ts          TEXT NOT NULL DEFAULT '',
    line_number INTEGER NOT NULL DEFAULT 0,
    byte_offset INTEGER NOT NULL DEFAULT -1,
    text        TEXT NOT NULL,
    PRIMARY KEY (session_id, seq)
);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    text,
    content=messages,
    content_rowid=rowid,
    tokenize='unicode61'
);

-- triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
    INSERT INTO messages_fts(rowid, text) VALUES (new.rowid, new.text);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
    INSERT INTO messages_fts(messages_fts, rowid, text) VALUES('delete', old.rowid, old.text);
END;

CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);
`

// schemaVersion should be bumped whenever the export layout changes.
const schemaVersion = "1"

// DB is a SQLite copy of one snapshot for tools outside this process.
// Queries inside aisv always run against the in-memory snapshot.
type DB struct {
	db *sql.DB
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	var ver string
	if err := db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver); err == nil && ver != schemaVersion {
		// layout changed; the export is disposable, start over
		for _, stmt := range []string{
			"DROP TABLE IF EXISTS messages_fts",
			"DROP TABLE IF EXISTS messages",
			"DROP TABLE IF EXISTS sessions",
		} {
			if _, err := db.Exec(stmt); err != nil {
				db.Close()
				return nil, fmt.Errorf("reset schema: %w", err)
			}
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	if _, err := db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("write schema version: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// WriteSnapshot replaces the database contents with snap in one transaction.
func (d *DB) WriteSnapshot(snap *Snapshot) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages"); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM sessions"); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}

	sessStmt, err := tx.Prepare(
		`INSERT INTO sessions (id, source, project, project_key, relative_path, file_path, cwd, model, summary, first_at, last_at, partial, parse_errors, mtime, size)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer sessStmt.Close()

	msgStmt, err := tx.Prepare(
		`INSERT INTO messages (session_id, seq, role, kind, provenance, ts, line_number, byte_offset, text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer msgStmt.Close()

	for _, s := range snap.All() {
		_, err := sessStmt.Exec(
			s.ID,
			string(s.Source),
			pathkey.Display(s.Project, pathkey.Windows),
			s.Project.String(),
			s.RelativePath,
			s.FilePath,
			s.Cwd,
			s.Model,
			s.SummaryText(),
			formatTime(s.FirstTimestamp()),
			formatTime(s.LastTimestamp()),
			s.Partial,
			s.ParseErrors,
			s.Mtime.Unix(),
			s.Size,
		)
		if err != nil {
			return fmt.Errorf("insert session %s: %w", s.ID, err)
		}
		for i, m := range s.Messages {
			kind := m.Kind
			if kind == "" {
				kind = "text"
			}
			_, err := msgStmt.Exec(
				s.ID,
				i,
				string(m.Role),
				kind,
				string(m.Provenance),
				formatTime(m.Timestamp),
				m.Line,
				m.Offset,
				m.Text,
			)
			if err != nil {
				return fmt.Errorf("insert message %s/%d: %w", s.ID, i, err)
			}
		}
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('generation', ?)", fmt.Sprint(snap.Generation)); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) SessionCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n)
	return n, err
}

func (d *DB) MessageCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&n)
	return n, err
}

// Match is one full-text hit in an exported database.
type Match struct {
	SessionID string
	Seq       int
	Role      string
	Snippet   string
	Rank      float64
}

// Match runs an FTS5 query against the exported messages, best first.
func (d *DB) Match(query string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.Query(`
		SELECT
			m.session_id,
			m.seq,
			m.role,
			snippet(messages_fts, 0, '>>>', '<<<', '...', 40) AS snip,
			bm25(messages_fts, 1.0) AS rank
		FROM messages_fts
		JOIN messages m ON messages_fts.rowid = m.rowid
		WHERE messages_fts MATCH ?
		ORDER BY rank
		LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("match query: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.SessionID, &m.Seq, &m.Role, &m.Snippet, &m.Rank); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
