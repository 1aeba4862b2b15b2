package store

import (
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"BreakoutSentinel/internal/model"
)

const dateLayout = "2006-01-02"

// SQLiteStore persists bars and ticker metadata to a SQLite database.
// All writes are serialized through one process-wide mutex so a bar upsert
// and its metadata write are never interleaved across concurrent callers.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex

	// read-through cache over metadata.last_updated, written through on Update
	cacheMu sync.RWMutex
	cache   map[string]time.Time
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so screening reads do not block behind update writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, cache: make(map[string]time.Time)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stocks (
			date        TEXT NOT NULL,
			ticker      TEXT NOT NULL,
			open        REAL,
			high        REAL,
			low         REAL,
			close       REAL,
			adj_close   REAL,
			volume      INTEGER,
			ma10        REAL,
			ema12       REAL,
			ema26       REAL,
			macd        REAL,
			macd_signal REAL,
			macd_hist   REAL,
			PRIMARY KEY (date, ticker)
		)`,
		`CREATE TABLE IF NOT EXISTS metadata (
			ticker       TEXT PRIMARY KEY,
			last_updated TEXT NOT NULL,
			data_source  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ticker_date ON stocks (ticker, date)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// LastUpdated returns the last stored bar date for a ticker, consulting the
// in-process cache first. ok is false when the ticker was never updated.
func (s *SQLiteStore) LastUpdated(ticker string) (time.Time, bool, error) {
	s.cacheMu.RLock()
	if t, ok := s.cache[ticker]; ok {
		s.cacheMu.RUnlock()
		return t, true, nil
	}
	s.cacheMu.RUnlock()

	var raw string
	err := s.db.QueryRow("SELECT last_updated FROM metadata WHERE ticker = ?", ticker).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query metadata: %w", err)
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse last_updated %q: %w", raw, err)
	}

	s.fillCache(ticker, t)
	return t, true, nil
}

// fillCache stores a watermark read from disk unless an entry already exists.
// A reader that loaded the old row before a concurrent Update committed must
// not clobber the fresh watermark that Update wrote through.
func (s *SQLiteStore) fillCache(ticker string, t time.Time) {
	s.cacheMu.Lock()
	if _, ok := s.cache[ticker]; !ok {
		s.cache[ticker] = t
	}
	s.cacheMu.Unlock()
}

// Update computes indicators over the batch, upserts every bar and overwrites
// the ticker's metadata row in one transaction. Returns false on empty input.
func (s *SQLiteStore) Update(ticker string, bars []model.Bar, source string) (bool, error) {
	if len(bars) == 0 {
		return false, nil
	}

	applyIndicators(bars)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO stocks
		(date, ticker, open, high, low, close, adj_close, volume,
		 ma10, ema12, ema26, macd, macd_signal, macd_hist)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return false, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.Exec(
			b.Date.Format(dateLayout), ticker,
			b.Open, b.High, b.Low, b.Close, b.AdjClose, int64(b.Volume),
			toNull(b.MA10), toNull(b.EMA12), toNull(b.EMA26),
			toNull(b.MACD), toNull(b.MACDSignal), toNull(b.MACDHist),
		)
		if err != nil {
			return false, fmt.Errorf("upsert bar %s: %w", b.Date.Format(dateLayout), err)
		}
	}

	lastDate := bars[len(bars)-1].Date.Format(dateLayout)
	if _, err := tx.Exec(`INSERT OR REPLACE INTO metadata (ticker, last_updated, data_source)
		VALUES (?,?,?)`, ticker, lastDate, source); err != nil {
		return false, fmt.Errorf("write metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	s.cacheMu.Lock()
	s.cache[ticker], _ = time.Parse(dateLayout, lastDate)
	s.cacheMu.Unlock()

	log.Debug().Str("ticker", ticker).Int("bars", len(bars)).
		Str("source", source).Str("last", lastDate).Msg("ticker updated")
	return true, nil
}

// FetchRange reads all stored bars per ticker within [start, end], ordered by
// date. Tickers without rows in range are omitted from the result.
func (s *SQLiteStore) FetchRange(tickers []string, start, end time.Time) (map[string][]model.Bar, error) {
	result := make(map[string][]model.Bar, len(tickers))
	for _, ticker := range tickers {
		bars, err := s.fetchTicker(ticker, start, end)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", ticker, err)
		}
		if len(bars) > 0 {
			result[ticker] = bars
		}
	}
	return result, nil
}

func (s *SQLiteStore) fetchTicker(ticker string, start, end time.Time) ([]model.Bar, error) {
	rows, err := s.db.Query(`SELECT date, open, high, low, close, adj_close, volume,
			ma10, ema12, ema26, macd, macd_signal, macd_hist
		FROM stocks
		WHERE ticker = ? AND date BETWEEN ? AND ?
		ORDER BY date`,
		ticker, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var (
			rawDate string
			volume  int64
			b       model.Bar
			ind     [6]sql.NullFloat64
		)
		if err := rows.Scan(&rawDate, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &volume,
			&ind[0], &ind[1], &ind[2], &ind[3], &ind[4], &ind[5]); err != nil {
			return nil, err
		}
		b.Date, err = time.Parse(dateLayout, rawDate)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", rawDate, err)
		}
		b.Volume = float64(volume)
		b.MA10 = fromNull(ind[0])
		b.EMA12 = fromNull(ind[1])
		b.EMA26 = fromNull(ind[2])
		b.MACD = fromNull(ind[3])
		b.MACDSignal = fromNull(ind[4])
		b.MACDHist = fromNull(ind[5])
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *SQLiteStore) Close() error {
	log.Info().Msg("closing sqlite store")
	return s.db.Close()
}

func toNull(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
