package repository

import (
	"context"
	"database/sql"
)

// schema is applied on open. Child rows cascade from their unit so a Save
// can replace a unit by deleting and reinserting it in one transaction.
const schema = `
CREATE TABLE IF NOT EXISTS race_results (
    round TEXT NOT NULL,
    race TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (round, race)
);

CREATE TABLE IF NOT EXISTS race_athletes (
    round TEXT NOT NULL,
    race TEXT NOT NULL,
    pos INTEGER NOT NULL,
    bib TEXT NOT NULL,
    name TEXT NOT NULL,
    club TEXT NOT NULL,
    gender TEXT NOT NULL,
    category TEXT NOT NULL,
    time_ms INTEGER NOT NULL,
    cat_pos INTEGER NOT NULL,
    gen_pos INTEGER NOT NULL,
    PRIMARY KEY (round, race, pos),
    FOREIGN KEY (round, race) REFERENCES race_results(round, race) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS team_results (
    round TEXT NOT NULL,
    category TEXT NOT NULL,
    team_size INTEGER NOT NULL,
    discarded INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (round, category)
);

CREATE TABLE IF NOT EXISTS teams (
    round TEXT NOT NULL,
    category TEXT NOT NULL,
    pos INTEGER NOT NULL,
    club TEXT NOT NULL,
    label TEXT NOT NULL,
    score INTEGER NOT NULL,
    PRIMARY KEY (round, category, pos),
    FOREIGN KEY (round, category) REFERENCES team_results(round, category) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS team_members (
    round TEXT NOT NULL,
    category TEXT NOT NULL,
    team_pos INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    name TEXT NOT NULL,
    gen_pos INTEGER NOT NULL,
    PRIMARY KEY (round, category, team_pos, seq),
    FOREIGN KEY (round, category, team_pos) REFERENCES teams(round, category, pos) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS standings (
    category TEXT NOT NULL,
    kind TEXT NOT NULL,
    rounds TEXT NOT NULL,
    rounds_processed INTEGER NOT NULL,
    rounds_counted INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (category, kind)
);

CREATE TABLE IF NOT EXISTS standings_records (
    category TEXT NOT NULL,
    kind TEXT NOT NULL,
    seq INTEGER NOT NULL,
    name TEXT NOT NULL,
    club TEXT NOT NULL,
    label TEXT NOT NULL,
    division TEXT NOT NULL,
    total INTEGER NOT NULL,
    PRIMARY KEY (category, kind, seq),
    FOREIGN KEY (category, kind) REFERENCES standings(category, kind) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS standings_scores (
    category TEXT NOT NULL,
    kind TEXT NOT NULL,
    seq INTEGER NOT NULL,
    round TEXT NOT NULL,
    score INTEGER NOT NULL,
    PRIMARY KEY (category, kind, seq, round),
    FOREIGN KEY (category, kind, seq) REFERENCES standings_records(category, kind, seq) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,
    rounds TEXT NOT NULL,
    files INTEGER NOT NULL,
    failed INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
