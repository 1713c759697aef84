// Package storage provides SQLite-backed persistence for the bot's
// configuration state. The trade ledger and position are deliberately not
// persisted; they live and die with the process.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/strategy"
)

// strategyKey is the state key the strategy configuration is stored under.
const strategyKey = "tradingStrategy"

// Store provides SQLite-based persistence.
type Store struct {
	db  *sql.DB
	log *logrus.Entry
}

// NewStore opens (or creates) the bot database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "bot.db")

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for better concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db, log: logrus.WithField("component", "storage")}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s.log.WithField("path", dbPath).Info("database initialized")
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bot_state (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT UNIQUE NOT NULL,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveStrategy persists the strategy configuration.
func (s *Store) SaveStrategy(cfg strategy.Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal strategy: %w", err)
	}
	return s.setState(strategyKey, string(data))
}

// LoadStrategy returns the persisted strategy configuration, or nil when
// none has been saved yet.
func (s *Store) LoadStrategy() (*strategy.Config, error) {
	value, err := s.getState(strategyKey)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}

	var cfg strategy.Config
	if err := json.Unmarshal([]byte(value), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal strategy: %w", err)
	}
	return &cfg, nil
}

func (s *Store) getState(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM bot_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *Store) setState(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO bot_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = ?`,
		key, value, time.Now(), value, time.Now(),
	)
	return err
}
