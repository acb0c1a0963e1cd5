package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordFill(f FillRecord) error {
	// INSERT OR IGNORE keeps the trade_id primary key an idempotency guard:
	// replaying a fill never duplicates a row.
	_, err := j.db.Exec(`
		INSERT OR IGNORE INTO fills
		(trade_id, pair, side, asset_amount, quote_amount, price, realized_pl, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.TradeID, f.Pair, f.Side, f.AssetAmount, f.QuoteAmount, f.Price, f.RealizedPL, f.Time,
	)
	return err
}

func (j *SQLite) RecordDecision(d DecisionRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO decisions
		(id, time, action, source, reasoning, confidence, risk_level, price, cost_basis)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Time, d.Action, d.Source, d.Reasoning, d.Confidence, d.RiskLevel, d.Price, d.CostBasis,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
