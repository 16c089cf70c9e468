// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS transitions (
	id TEXT PRIMARY KEY,
	at DATETIME NOT NULL,
	from_state TEXT NOT NULL,
	to_state TEXT NOT NULL,
	reason TEXT NOT NULL,
	activations INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rejections (
	id TEXT PRIMARY KEY,
	at DATETIME NOT NULL,
	source TEXT NOT NULL,
	symbol TEXT NOT NULL,
	code TEXT NOT NULL,
	detail TEXT NOT NULL,
	price REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transitions_at ON transitions(at);
CREATE INDEX IF NOT EXISTS idx_rejections_at ON rejections(at);
`
