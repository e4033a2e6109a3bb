package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// HistoryItem is one completed dictation recorded locally.
type HistoryItem struct {
	ID                    string
	Timestamp             time.Time
	OriginalText          string
	ProcessedText         string
	DurationSeconds       float64
	TranscriptionProvider string
	GenerationProvider    string
	ProcessingMode        string
}

// History is a sqlite-backed transcription history store.
type History struct {
	db *sql.DB
}

// HistoryPath applies XDG/home fallback rules for the history database.
func HistoryPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "murmur", "history.sqlite"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for history fallback")
	}
	return filepath.Join(home, ".local", "share", "murmur", "history.sqlite"), nil
}

// OpenHistory opens the database read-write with WAL and ensures the schema.
func OpenHistory(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transcriptions (
			id TEXT PRIMARY KEY,
			timestamp REAL NOT NULL,
			originalText TEXT NOT NULL,
			processedText TEXT NOT NULL,
			durationSeconds REAL NOT NULL,
			transcriptionProvider TEXT NOT NULL,
			generationProvider TEXT NOT NULL,
			processingMode TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}

	return &History{db: db}, nil
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// Add inserts one history row, assigning id and timestamp when unset.
func (h *History) Add(item HistoryItem) (HistoryItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now()
	}

	_, err := h.db.Exec(`
		INSERT INTO transcriptions
			(id, timestamp, originalText, processedText, durationSeconds, transcriptionProvider, generationProvider, processingMode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID,
		float64(item.Timestamp.UnixMilli())/1000,
		item.OriginalText,
		item.ProcessedText,
		item.DurationSeconds,
		item.TranscriptionProvider,
		item.GenerationProvider,
		item.ProcessingMode,
	)
	if err != nil {
		return HistoryItem{}, fmt.Errorf("insert history row: %w", err)
	}
	return item, nil
}

// Recent returns up to n rows, newest first.
func (h *History) Recent(n int) ([]HistoryItem, error) {
	if n <= 0 {
		n = 20
	}

	rows, err := h.db.Query(`
		SELECT id, timestamp, originalText, processedText, durationSeconds, transcriptionProvider, generationProvider, processingMode
		FROM transcriptions
		ORDER BY timestamp DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var items []HistoryItem
	for rows.Next() {
		var item HistoryItem
		var ts float64
		if err := rows.Scan(
			&item.ID,
			&ts,
			&item.OriginalText,
			&item.ProcessedText,
			&item.DurationSeconds,
			&item.TranscriptionProvider,
			&item.GenerationProvider,
			&item.ProcessingMode,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		item.Timestamp = timeFromUnix(ts)
		items = append(items, item)
	}
	return items, rows.Err()
}

// Prune drops the oldest rows beyond max.
func (h *History) Prune(max int) error {
	if max <= 0 {
		return nil
	}
	_, err := h.db.Exec(`
		DELETE FROM transcriptions
		WHERE id NOT IN (
			SELECT id FROM transcriptions ORDER BY timestamp DESC LIMIT ?
		)
	`, max)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}

func timeFromUnix(seconds float64) time.Time {
	return time.UnixMilli(int64(seconds * 1000))
}
