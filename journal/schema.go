package journal

// Decimal columns are TEXT so values round-trip exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	batch_id TEXT NOT NULL,
	created DATETIME NOT NULL,
	dataset TEXT NOT NULL,
	family TEXT NOT NULL,
	config TEXT NOT NULL,
	num_trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	win_rate REAL NOT NULL,
	gross_profit TEXT NOT NULL,
	gross_loss TEXT NOT NULL,
	profit_factor TEXT NOT NULL,
	avg_profit TEXT NOT NULL,
	max_drawdown TEXT NOT NULL,
	total_profit TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_batch ON runs(batch_id);

CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	entry_date TEXT NOT NULL,
	entry_price TEXT NOT NULL,
	exit_date TEXT NOT NULL,
	exit_price TEXT NOT NULL,
	profit TEXT NOT NULL,
	cumulative_profit TEXT NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	date TEXT NOT NULL,
	equity TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`
