// Package catalog tracks local video files and their upload history in a
// SQLite database. The catalog is the source of truth for which files have
// already been posted, so interrupted batches can resume without re-posting.
package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// videoExtensions are the file extensions treated as uploadable media.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".webm": true,
}

// Entry is one tracked video file.
type Entry struct {
	Fingerprint string
	Path        string
	Size        int64
	Uploaded    bool
	UploadTime  time.Time
	RemoteURL   string
}

const schema = `
CREATE TABLE IF NOT EXISTS videos (
	fingerprint TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	size        INTEGER NOT NULL,
	uploaded    INTEGER NOT NULL DEFAULT 0,
	upload_time TEXT,
	remote_url  TEXT
);
`

// Catalog is a SQLite-backed store of video files and upload state.
type Catalog struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the catalog database at path.
func Open(path string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	return &Catalog{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// fingerprintChunk bounds how much of the file is hashed. Hashing whole
// files is avoided: they can be multiple gigabytes.
const fingerprintChunk = 1 << 20

// Fingerprint derives a stable identity for a file from its size and the
// sha256 of its first chunk, so a renamed file keeps its history and a
// re-encoded one counts as new.
func Fingerprint(path string, info os.FileInfo) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.CopyN(h, f, fingerprintChunk); err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to fingerprint %s: %w", path, err)
	}
	fmt.Fprintf(h, "|%d", info.Size())
	return fmt.Sprintf("%x", h.Sum(nil)[:16]), nil
}

// IsVideoFile reports whether the path has a recognized video extension.
func IsVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// Scan walks dir (non-recursively), registers every video file found, and
// returns the entries for the directory in name order. Already-registered
// files keep their upload state.
func (c *Catalog) Scan(ctx context.Context, dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read video directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !IsVideoFile(de.Name()) {
			continue
		}
		path := filepath.Join(dir, de.Name())
		info, err := de.Info()
		if err != nil {
			c.logger.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}

		entry, err := c.Register(ctx, path, info)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	c.logger.Info("scanned video directory", "dir", dir, "count", len(entries))
	return entries, nil
}

// Register records a file in the catalog if it is not already known and
// returns its entry.
func (c *Catalog) Register(ctx context.Context, path string, info os.FileInfo) (Entry, error) {
	fp, err := Fingerprint(path, info)
	if err != nil {
		return Entry{}, err
	}

	existing, err := c.find(ctx, fp)
	if err != nil {
		return Entry{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	entry := Entry{
		Fingerprint: fp,
		Path:        path,
		Size:        info.Size(),
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO videos (fingerprint, path, size, uploaded) VALUES (?, ?, ?, 0)`,
		entry.Fingerprint, entry.Path, entry.Size,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to register video: %w", err)
	}
	return entry, nil
}

// ListPending returns all entries not yet uploaded, in path order.
func (c *Catalog) ListPending(ctx context.Context) ([]Entry, error) {
	return c.list(ctx, `SELECT fingerprint, path, size, uploaded, upload_time, remote_url
		FROM videos WHERE uploaded = 0 ORDER BY path`)
}

// History returns all uploaded entries, most recent first.
func (c *Catalog) History(ctx context.Context) ([]Entry, error) {
	return c.list(ctx, `SELECT fingerprint, path, size, uploaded, upload_time, remote_url
		FROM videos WHERE uploaded = 1 ORDER BY upload_time DESC`)
}

// MarkUploaded records a successful upload for the fingerprint.
func (c *Catalog) MarkUploaded(ctx context.Context, fingerprint, remoteURL string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE videos SET uploaded = 1, upload_time = ?, remote_url = ? WHERE fingerprint = ?`,
		time.Now().UTC().Format(time.RFC3339), remoteURL, fingerprint,
	)
	if err != nil {
		return fmt.Errorf("failed to mark uploaded: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("unknown fingerprint: %s", fingerprint)
	}
	return nil
}

// ClearHistory resets the uploaded flag on every entry so the whole directory
// becomes pending again.
func (c *Catalog) ClearHistory(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`UPDATE videos SET uploaded = 0, upload_time = NULL, remote_url = NULL WHERE uploaded = 1`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	return res.RowsAffected()
}

func (c *Catalog) find(ctx context.Context, fingerprint string) (*Entry, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT fingerprint, path, size, uploaded, upload_time, remote_url
		 FROM videos WHERE fingerprint = ?`, fingerprint)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query video: %w", err)
	}
	return &entry, nil
}

func (c *Catalog) list(ctx context.Context, query string) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video row: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry      Entry
		uploaded   int
		uploadTime sql.NullString
		remoteURL  sql.NullString
	)
	if err := row.Scan(&entry.Fingerprint, &entry.Path, &entry.Size, &uploaded, &uploadTime, &remoteURL); err != nil {
		return Entry{}, err
	}
	entry.Uploaded = uploaded != 0
	if uploadTime.Valid {
		if t, err := time.Parse(time.RFC3339, uploadTime.String); err == nil {
			entry.UploadTime = t
		}
	}
	entry.RemoteURL = remoteURL.String
	return entry, nil
}
