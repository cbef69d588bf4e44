// Package journal persists song moments to a local sqlite database.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"songmoment/internal/core"
)

// Moment is one journal entry: a song pinned to a point in time, with an
// optional photo and note attached by the user.
type Moment struct {
	ID         int64      `json:"id"`
	Song       *core.Song `json:"song,omitempty"`
	PhotoPath  string     `json:"photo_path,omitempty"`
	Note       string     `json:"note,omitempty"`
	DeviceID   string     `json:"device_id,omitempty"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// Store is the persistence interface for moments.
type Store interface {
	CreateMoment(ctx context.Context, moment *Moment) (int64, error)
	GetMoment(ctx context.Context, id int64) (*Moment, error)
	ListMoments(ctx context.Context, limit, offset int) ([]*Moment, error)
	ListByArtist(ctx context.Context, artist string) ([]*Moment, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// SQLiteStore implements Store on a local sqlite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS moments (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	song_id        TEXT NOT NULL DEFAULT '',
	song_title     TEXT NOT NULL DEFAULT '',
	song_artist    TEXT NOT NULL DEFAULT '',
	song_album     TEXT NOT NULL DEFAULT '',
	song_artwork   TEXT NOT NULL DEFAULT '',
	apple_music_id TEXT NOT NULL DEFAULT '',
	duration_ms    INTEGER NOT NULL DEFAULT 0,
	photo_path     TEXT NOT NULL DEFAULT '',
	note           TEXT NOT NULL DEFAULT '',
	device_id      TEXT NOT NULL DEFAULT '',
	recorded_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_moments_recorded_at ON moments(recorded_at);
CREATE INDEX IF NOT EXISTS idx_moments_song_artist ON moments(song_artist);
`

// Open opens (creating if needed) the sqlite database at path and ensures
// the schema exists. WAL mode keeps reads from blocking the share path.
func Open(path string, logger *zap.Logger) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing journal schema: %w", err)
	}

	logger.Info("journal opened", zap.String("path", path))

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateMoment inserts a moment and returns its ID. A zero RecordedAt is
// filled with the current time.
func (s *SQLiteStore) CreateMoment(ctx context.Context, moment *Moment) (int64, error) {
	if moment.RecordedAt.IsZero() {
		moment.RecordedAt = time.Now()
	}

	song := moment.Song
	if song == nil {
		song = &core.Song{}
	}

	query := `
		INSERT INTO moments (song_id, song_title, song_artist, song_album, song_artwork,
			apple_music_id, duration_ms, photo_path, note, device_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		song.ID,
		song.Title,
		song.ArtistName,
		song.AlbumName,
		song.ArtworkURL,
		song.AppleMusicID,
		song.DurationMs,
		moment.PhotoPath,
		moment.Note,
		moment.DeviceID,
		moment.RecordedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting moment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading moment id: %w", err)
	}
	moment.ID = id

	s.logger.Debug("moment created",
		zap.Int64("id", id),
		zap.String("title", song.Title))

	return id, nil
}

const selectColumns = `id, song_id, song_title, song_artist, song_album, song_artwork,
	apple_music_id, duration_ms, photo_path, note, device_id, recorded_at`

// GetMoment returns the moment with the given ID, or nil when it does not exist.
func (s *SQLiteStore) GetMoment(ctx context.Context, id int64) (*Moment, error) {
	query := `SELECT ` + selectColumns + ` FROM moments WHERE id = ?`
	moment, err := scanMoment(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading moment %d: %w", id, err)
	}
	return moment, nil
}

// ListMoments returns moments newest first.
func (s *SQLiteStore) ListMoments(ctx context.Context, limit, offset int) ([]*Moment, error) {
	query := `SELECT ` + selectColumns + ` FROM moments ORDER BY recorded_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing moments: %w", err)
	}
	defer rows.Close()

	return collectMoments(rows)
}

// ListByArtist returns all moments whose song artist matches, newest first.
func (s *SQLiteStore) ListByArtist(ctx context.Context, artist string) ([]*Moment, error) {
	query := `SELECT ` + selectColumns + ` FROM moments WHERE song_artist = ? COLLATE NOCASE ORDER BY recorded_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, query, artist)
	if err != nil {
		return nil, fmt.Errorf("listing moments by artist: %w", err)
	}
	defer rows.Close()

	return collectMoments(rows)
}

// Count returns the number of stored moments
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM moments`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting moments: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMoment(row rowScanner) (*Moment, error) {
	var (
		moment Moment
		song   core.Song
	)
	err := row.Scan(
		&moment.ID,
		&song.ID,
		&song.Title,
		&song.ArtistName,
		&song.AlbumName,
		&song.ArtworkURL,
		&song.AppleMusicID,
		&song.DurationMs,
		&moment.PhotoPath,
		&moment.Note,
		&moment.DeviceID,
		&moment.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	if song != (core.Song{}) {
		moment.Song = &song
	}
	return &moment, nil
}

func collectMoments(rows *sql.Rows) ([]*Moment, error) {
	var moments []*Moment
	for rows.Next() {
		moment, err := scanMoment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning moment: %w", err)
		}
		moments = append(moments, moment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating moments: %w", err)
	}
	return moments, nil
}
