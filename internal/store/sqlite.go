package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/titanic-linkage/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS raw_pages (
	url        TEXT PRIMARY KEY,
	raw_html   TEXT NOT NULL,
	scraped_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS kaggle_passengers (
	source_id    TEXT PRIMARY KEY,
	blocking_key TEXT NOT NULL,
	payload      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS encyclopedia_passengers (
	source_id    TEXT PRIMARY KEY,
	blocking_key TEXT NOT NULL,
	payload      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS match_candidates (
	id        TEXT PRIMARY KEY,
	left_id   TEXT NOT NULL,
	right_id  TEXT NOT NULL,
	method    TEXT NOT NULL,
	score     REAL NOT NULL,
	selected  INTEGER NOT NULL DEFAULT 0,
	ambiguous INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS reconciled_passengers (
	passenger_id INTEGER PRIMARY KEY,
	unique_key   TEXT NOT NULL,
	speculation  INTEGER NOT NULL DEFAULT 0,
	payload      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_kaggle_blocking_key ON kaggle_passengers(blocking_key);
CREATE INDEX IF NOT EXISTS idx_encyclopedia_blocking_key ON encyclopedia_passengers(blocking_key);
CREATE INDEX IF NOT EXISTS idx_candidates_left_id ON match_candidates(left_id);
CREATE INDEX IF NOT EXISTS idx_reconciled_unique_key ON reconciled_passengers(unique_key);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetRawPage(ctx context.Context, url string) (*model.RawPage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT url, raw_html, scraped_at FROM raw_pages WHERE url = ?`, url,
	)
	var p model.RawPage
	err := row.Scan(&p.URL, &p.RawHTML, &p.ScrapedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get raw page")
	}
	return &p, nil
}

func (s *SQLiteStore) PutRawPage(ctx context.Context, page model.RawPage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO raw_pages (url, raw_html, scraped_at) VALUES (?, ?, ?)`,
		page.URL, page.RawHTML, page.ScrapedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: put raw page %s", page.URL)
}

func (s *SQLiteStore) ListRawPages(ctx context.Context) ([]model.RawPage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, raw_html, scraped_at FROM raw_pages ORDER BY url`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list raw pages")
	}
	defer rows.Close()

	var pages []model.RawPage
	for rows.Next() {
		var p model.RawPage
		if err := rows.Scan(&p.URL, &p.RawHTML, &p.ScrapedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan raw page")
		}
		pages = append(pages, p)
	}
	return pages, eris.Wrap(rows.Err(), "sqlite: list raw pages iterate")
}

func passengerTable(source model.Source) (string, error) {
	switch source {
	case model.SourceKaggle:
		return "kaggle_passengers", nil
	case model.SourceEncyclopedia:
		return "encyclopedia_passengers", nil
	default:
		return "", eris.Errorf("unknown source %q", source)
	}
}

func (s *SQLiteStore) ReplacePassengers(ctx context.Context, source model.Source, recs []model.Passenger) error {
	table, err := passengerTable(source)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return eris.Wrapf(err, "sqlite: truncate %s", table)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+table+` (source_id, blocking_key, payload) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert %s", table)
	}
	defer stmt.Close() //nolint:errcheck

	for _, rec := range recs {
		payload, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal passenger %s", rec.SourceID)
		}
		if _, err := stmt.ExecContext(ctx, rec.SourceID, rec.BlockingKey, string(payload)); err != nil {
			return eris.Wrapf(err, "sqlite: insert passenger %s", rec.SourceID)
		}
	}

	return eris.Wrapf(tx.Commit(), "sqlite: commit %s", table)
}

func (s *SQLiteStore) ListPassengers(ctx context.Context, source model.Source) ([]model.Passenger, error) {
	table, err := passengerTable(source)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM `+table+` ORDER BY source_id`,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list %s", table)
	}
	defer rows.Close()

	var recs []model.Passenger
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", table)
		}
		var p model.Passenger
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal %s", table)
		}
		recs = append(recs, p)
	}
	return recs, eris.Wrapf(rows.Err(), "sqlite: list %s iterate", table)
}

func (s *SQLiteStore) ReplaceCandidates(ctx context.Context, cands []model.Candidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM match_candidates`); err != nil {
		return eris.Wrap(err, "sqlite: truncate match_candidates")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO match_candidates (id, left_id, right_id, method, score, selected, ambiguous)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert candidates")
	}
	defer stmt.Close() //nolint:errcheck

	for _, c := range cands {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.LeftID, c.RightID, string(c.Method), c.Score, c.Selected, c.Ambiguous,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert candidate %s/%s", c.LeftID, c.RightID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit match_candidates")
}

func (s *SQLiteStore) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, left_id, right_id, method, score, selected, ambiguous
		 FROM match_candidates ORDER BY left_id, right_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list candidates")
	}
	defer rows.Close()

	var cands []model.Candidate
	for rows.Next() {
		var c model.Candidate
		var method string
		if err := rows.Scan(&c.ID, &c.LeftID, &c.RightID, &method, &c.Score, &c.Selected, &c.Ambiguous); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		c.Method = model.MatchMethod(method)
		cands = append(cands, c)
	}
	return cands, eris.Wrap(rows.Err(), "sqlite: list candidates iterate")
}

func (s *SQLiteStore) ReplaceReconciled(ctx context.Context, recs []model.Reconciled) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM reconciled_passengers`); err != nil {
		return eris.Wrap(err, "sqlite: truncate reconciled_passengers")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reconciled_passengers (passenger_id, unique_key, speculation, payload)
		 VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert reconciled")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range recs {
		payload, err := json.Marshal(r)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal reconciled %d", r.PassengerID)
		}
		if _, err := stmt.ExecContext(ctx, r.PassengerID, r.UniqueKey, r.Speculation, string(payload)); err != nil {
			return eris.Wrapf(err, "sqlite: insert reconciled %d", r.PassengerID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit reconciled_passengers")
}

func (s *SQLiteStore) ListReconciled(ctx context.Context) ([]model.Reconciled, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM reconciled_passengers ORDER BY passenger_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reconciled")
	}
	defer rows.Close()

	var recs []model.Reconciled
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan reconciled")
		}
		var r model.Reconciled
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal reconciled")
		}
		recs = append(recs, r)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list reconciled iterate")
}

func (s *SQLiteStore) Counts(ctx context.Context) (*Counts, error) {
	c := &Counts{ByMethod: make(map[model.MatchMethod]int)}

	for _, q := range []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM raw_pages`, &c.RawPages},
		{`SELECT COUNT(*) FROM kaggle_passengers`, &c.Kaggle},
		{`SELECT COUNT(*) FROM encyclopedia_passengers`, &c.Encyclopedia},
		{`SELECT COUNT(*) FROM match_candidates`, &c.Candidates},
		{`SELECT COUNT(*) FROM match_candidates WHERE selected`, &c.Selected},
		{`SELECT COUNT(*) FROM match_candidates WHERE ambiguous`, &c.Ambiguous},
		{`SELECT COUNT(*) FROM reconciled_passengers`, &c.Reconciled},
		{`SELECT COUNT(*) FROM reconciled_passengers WHERE speculation`, &c.Speculative},
	} {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dst); err != nil {
			return nil, eris.Wrapf(err, "sqlite: count %s", q.query)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT method, COUNT(*) FROM match_candidates WHERE selected GROUP BY method`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by method")
	}
	defer rows.Close()

	for rows.Next() {
		var method string
		var n int
		if err := rows.Scan(&method, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan method count")
		}
		c.ByMethod[model.MatchMethod(method)] = n
	}
	return c, eris.Wrap(rows.Err(), "sqlite: count by method iterate")
}
