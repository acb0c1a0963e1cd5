// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS fills (
	trade_id TEXT PRIMARY KEY,
	pair TEXT NOT NULL,
	side TEXT NOT NULL,
	asset_amount REAL NOT NULL,
	quote_amount REAL NOT NULL,
	price REAL NOT NULL,
	realized_pl REAL NOT NULL,
	time DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	action TEXT NOT NULL,
	source TEXT NOT NULL,
	reasoning TEXT NOT NULL,
	confidence REAL NOT NULL,
	risk_level TEXT NOT NULL,
	price REAL NOT NULL,
	cost_basis REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_time ON fills(time);
CREATE INDEX IF NOT EXISTS idx_decisions_time ON decisions(time);
`
