// Package state persists the bot's working state between runs as a single
// JSON document. The document is read once at startup and rewritten at the
// end of every cycle and on shutdown; writes are atomic (temp file + rename)
// so a crash never leaves a torn document behind.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rustyeddy/cowtrader/feed"
	"github.com/rustyeddy/cowtrader/ledger"
)

// Document is the persisted state record.
type Document struct {
	Ledger            ledger.Ledger `json:"ledger"`
	Feed              feed.State    `json:"feed"`
	ProcessedTradeIDs []string      `json:"processed_trade_ids"`
	BackendCursor     int           `json:"backend_cursor"`
	LastUpdated       time.Time     `json:"last_updated"`
}

// Load reads the document at path. A missing or unreadable file is a cold
// start, not a crash: the caller receives nil and decides how to rebuild.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	return &doc, nil
}

// Save writes the document atomically.
func Save(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
