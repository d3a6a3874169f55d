// Package sqlite provides the SQLite-backed movie store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/JakeFAU/doulist-movies/internal/movie"
)

const driverName = "sqlite3"

const schema = `
CREATE TABLE IF NOT EXISTS movies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	rating TEXT,
	image TEXT,
	abstract TEXT,
	time TEXT,
	doulist_id TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// selectColumns renders nullable text as "" and created_at as a fixed-width string.
const selectColumns = `id, title,
	COALESCE(rating, '') AS rating,
	COALESCE(image, '') AS image,
	COALESCE(abstract, '') AS abstract,
	COALESCE(time, '') AS time,
	doulist_id,
	COALESCE(strftime('%Y-%m-%d %H:%M:%S', created_at), '') AS created_at`

// Config controls how a Store handle reaches the database file.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// DSN returns the go-sqlite3 connection string for the configured file.
func (c Config) DSN() string {
	busy := c.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL", c.Path, busy.Milliseconds())
}

type connectFunc func(ctx context.Context, driver, dsn string) (*sqlx.DB, error)

// Store is a single-session handle onto the movies table. The connection is
// opened on first use and released by Close.
type Store struct {
	cfg     Config
	connect connectFunc

	mu sync.Mutex
	db *sqlx.DB
}

var _ movie.Store = (*Store)(nil)

// Open returns a handle for cfg without touching the database yet.
func Open(cfg Config) *Store {
	return &Store{cfg: cfg, connect: sqlx.ConnectContext}
}

// NewWithDB wraps an existing connection (primarily for testing).
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db, connect: sqlx.ConnectContext}
}

func (s *Store) conn(ctx context.Context) (*sqlx.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	if s.cfg.Path == "" {
		return nil, fmt.Errorf("open database: %w: db path is empty", movie.ErrStorageUnavailable)
	}
	db, err := s.connect(ctx, driverName, s.cfg.DSN())
	if err != nil {
		// sqlx hands back the pool even when the first ping fails.
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("open database %s: %w: %w", s.cfg.Path, movie.ErrStorageUnavailable, err)
	}
	db.SetMaxOpenConns(1)
	s.db = db
	return db, nil
}

// Close releases the connection. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// InitializeSchema creates the movies table when it does not exist.
func (s *Store) InitializeSchema(ctx context.Context) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return classify("create movies table", err)
	}
	return nil
}

// ResetSchema drops and recreates the movies table, deleting every row.
func (s *Store) ResetSchema(ctx context.Context) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return classify("begin reset", err)
	}
	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS movies`); err != nil {
		_ = tx.Rollback()
		return classify("drop movies table", err)
	}
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		_ = tx.Rollback()
		return classify("create movies table", err)
	}
	if err := tx.Commit(); err != nil {
		return classify("commit reset", err)
	}
	return nil
}

type insertRow struct {
	movie.Item
	DoulistID *string `db:"doulist_id"`
}

// Insert stores item tagged with listingID and returns the assigned id.
// An empty listingID is stored as NULL.
func (s *Store) Insert(ctx context.Context, item movie.Item, listingID string) (int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	row := insertRow{Item: item}
	if listingID != "" {
		row.DoulistID = &listingID
	}
	res, err := db.NamedExecContext(ctx, `
		INSERT INTO movies (title, rating, image, abstract, time, doulist_id)
		VALUES (:title, :rating, :image, :abstract, :time, :doulist_id)`, row)
	if err != nil {
		return 0, classify("insert movie", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, classify("insert movie id", err)
	}
	return id, nil
}

// Update replaces the mutable fields of row id and reports whether it existed.
func (s *Store) Update(ctx context.Context, id int64, item movie.Item) (bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE movies
		SET title = ?, rating = ?, image = ?, abstract = ?, time = ?
		WHERE id = ?`,
		item.Title, item.Rating, item.Image, item.Abstract, item.Time, id)
	if err != nil {
		return false, classify("update movie", err)
	}
	return affected("update movie", res)
}

// Delete removes row id and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return false, classify("delete movie", err)
	}
	return affected("delete movie", res)
}

// Get returns the record with the given id, or movie.ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (movie.Record, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return movie.Record{}, err
	}
	var rec movie.Record
	if err := db.GetContext(ctx, &rec, `SELECT `+selectColumns+` FROM movies WHERE id = ?`, id); err != nil {
		return movie.Record{}, classify(fmt.Sprintf("get movie %d", id), err)
	}
	return rec, nil
}

// ListByListing returns every record scraped from listingID, newest list time first.
func (s *Store) ListByListing(ctx context.Context, listingID string) ([]movie.Record, error) {
	return s.selectRecords(ctx, "list movies by listing",
		`SELECT `+selectColumns+` FROM movies WHERE doulist_id = ? ORDER BY time DESC`, listingID)
}

// ListAll returns one page of records, most recently inserted first.
func (s *Store) ListAll(ctx context.Context, limit, offset int) ([]movie.Record, error) {
	return s.selectRecords(ctx, "list movies",
		`SELECT `+selectColumns+` FROM movies ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
}

// Search returns records whose title or abstract contains keyword. Matching is
// case-sensitive: instr compares bytes, unlike SQLite's ASCII-folding LIKE.
func (s *Store) Search(ctx context.Context, keyword string) ([]movie.Record, error) {
	return s.selectRecords(ctx, "search movies",
		`SELECT `+selectColumns+` FROM movies
		WHERE instr(title, ?) > 0 OR instr(abstract, ?) > 0
		ORDER BY created_at DESC, id DESC`, keyword, keyword)
}

// Count returns the total number of rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM movies`); err != nil {
		return 0, classify("count movies", err)
	}
	return n, nil
}

// ListSorted returns one page ordered by field/order. Unknown values fall back
// to time/desc.
func (s *Store) ListSorted(
	ctx context.Context,
	field movie.SortField,
	order movie.SortOrder,
	limit, offset int,
) ([]movie.Record, error) {
	return s.selectRecords(ctx, "list sorted movies",
		`SELECT `+selectColumns+` FROM movies ORDER BY `+orderClause(field, order)+` LIMIT ? OFFSET ?`,
		limit, offset)
}

// ListIDs returns every id in insertion order.
func (s *Store) ListIDs(ctx context.Context) ([]int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	ids := []int64{}
	if err := db.SelectContext(ctx, &ids, `SELECT id FROM movies ORDER BY id`); err != nil {
		return nil, classify("list movie ids", err)
	}
	return ids, nil
}

func (s *Store) selectRecords(ctx context.Context, op, query string, args ...any) ([]movie.Record, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	records := []movie.Record{}
	if err := db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, classify(op, err)
	}
	return records, nil
}

// orderClause only ever emits whitelisted identifiers.
func orderClause(field movie.SortField, order movie.SortOrder) string {
	field, order = movie.NormalizeSort(field, order)
	dir := "DESC"
	if order == movie.OrderAsc {
		dir = "ASC"
	}
	switch field {
	case movie.SortByRating:
		// Blank or non-numeric ratings cast to 0.0; ties always fall back to newest time.
		return "CAST(rating AS REAL) " + dir + ", time DESC, id DESC"
	case movie.SortByTitle:
		return "title " + dir + ", id " + dir
	default:
		return "time " + dir + ", id " + dir
	}
}

func affected(op string, res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify(op, err)
	}
	return n > 0, nil
}
