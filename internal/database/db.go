package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/Alias1177/NovaAnalyst/models"
)

// MaxWatchlist is the number of tokens a chat may follow
const MaxWatchlist = 20

// ErrWatchlistFull is returned when a chat already follows MaxWatchlist tokens
var ErrWatchlistFull = fmt.Errorf("watchlist is limited to %d tokens", MaxWatchlist)

// Store persists per-chat watchlists and persona choices
type Store interface {
	AddWatch(ctx context.Context, chatID int64, query, persona string) (bool, error)
	RemoveWatch(ctx context.Context, chatID int64, query string) (bool, error)
	ListWatchlist(ctx context.Context, chatID int64) ([]models.WatchlistEntry, error)
	AllWatchlists(ctx context.Context) ([]models.WatchlistEntry, error)
	SetPersona(ctx context.Context, chatID int64, persona string) error
	GetPersona(ctx context.Context, chatID int64) (string, error)
	Close() error
}

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string
func (p ConnectionParams) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// New creates a new database connection
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	db, err := sql.Open("postgres", params.DSN())
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS watchlists (
			chat_id BIGINT NOT NULL,
			query TEXT NOT NULL,
			persona TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (chat_id, query)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chat_settings (
			chat_id BIGINT PRIMARY KEY,
			persona TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

// AddWatch adds query to the chat's watchlist. It reports false when the
// token was already being watched.
func (db *DB) AddWatch(ctx context.Context, chatID int64, query, persona string) (bool, error) {
	query = normalizeQuery(query)

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM watchlists WHERE chat_id = $1`, chatID).Scan(&count); err != nil {
		return false, err
	}
	if count >= MaxWatchlist {
		return false, ErrWatchlistFull
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO watchlists (chat_id, query, persona, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id, query) DO NOTHING
	`, chatID, query, persona, time.Now().UTC())
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RemoveWatch deletes query from the chat's watchlist
func (db *DB) RemoveWatch(ctx context.Context, chatID int64, query string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		DELETE FROM watchlists WHERE chat_id = $1 AND query = $2
	`, chatID, normalizeQuery(query))
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListWatchlist returns the chat's entries, oldest first
func (db *DB) ListWatchlist(ctx context.Context, chatID int64) ([]models.WatchlistEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT chat_id, query, persona, created_at
		FROM watchlists
		WHERE chat_id = $1
		ORDER BY created_at, query
	`, chatID)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// AllWatchlists returns every entry grouped by chat
func (db *DB) AllWatchlists(ctx context.Context) ([]models.WatchlistEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT chat_id, query, persona, created_at
		FROM watchlists
		ORDER BY chat_id, created_at, query
	`)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]models.WatchlistEntry, error) {
	defer rows.Close()

	var entries []models.WatchlistEntry
	for rows.Next() {
		var e models.WatchlistEntry
		if err := rows.Scan(&e.ChatID, &e.Query, &e.Persona, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SetPersona stores the chat's persona choice
func (db *DB) SetPersona(ctx context.Context, chatID int64, persona string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO chat_settings (chat_id, persona, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id)
		DO UPDATE SET
			persona = EXCLUDED.persona,
			updated_at = EXCLUDED.updated_at
	`, chatID, persona, time.Now().UTC())
	return err
}

// GetPersona returns the chat's persona, or "" when none was chosen
func (db *DB) GetPersona(ctx context.Context, chatID int64) (string, error) {
	var persona string
	err := db.QueryRowContext(ctx, `
		SELECT persona FROM chat_settings WHERE chat_id = $1
	`, chatID).Scan(&persona)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return persona, nil
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
