package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes every writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS links (
		article_id INTEGER NOT NULL,
		link_number INTEGER NOT NULL CHECK (link_number >= 0),
		link_id INTEGER NOT NULL,
		PRIMARY KEY (article_id, link_number),
		UNIQUE (article_id, link_id),
		FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE CASCADE,
		FOREIGN KEY (link_id) REFERENCES articles(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS dead_ends (
		article_id INTEGER PRIMARY KEY,
		FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS paths (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_article_id INTEGER NOT NULL,
		end_article_id INTEGER NOT NULL,
		path_length INTEGER NOT NULL CHECK (path_length >= 2),
		UNIQUE (start_article_id, end_article_id),
		FOREIGN KEY (start_article_id) REFERENCES articles(id) ON DELETE CASCADE,
		FOREIGN KEY (end_article_id) REFERENCES articles(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS steps (
		path_id INTEGER NOT NULL,
		step_number INTEGER NOT NULL CHECK (step_number >= 0),
		article_id INTEGER NOT NULL,
		PRIMARY KEY (path_id, step_number),
		FOREIGN KEY (path_id) REFERENCES paths(id) ON DELETE CASCADE,
		FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		article_id INTEGER UNIQUE NOT NULL,
		priority INTEGER NOT NULL CHECK (priority >= 0 AND priority <= 9),
		FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_links_link_id ON links(link_id);
	CREATE INDEX IF NOT EXISTS idx_paths_end ON paths(end_article_id);
	CREATE INDEX IF NOT EXISTS idx_steps_article ON steps(article_id);
	CREATE INDEX IF NOT EXISTS idx_queue_priority ON queue(priority DESC, id ASC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// withTx runs fn inside a transaction, rolling back on error
func (s *Storage) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// resolveArticle returns the id for title, inserting the article if needed
func resolveArticle(q querier, title string) (int64, error) {
	if title == "" {
		return 0, fmt.Errorf("article title must not be empty")
	}

	_, err := q.Exec(`INSERT INTO articles (title) VALUES (?) ON CONFLICT(title) DO NOTHING`, title)
	if err != nil {
		return 0, fmt.Errorf("failed to insert article %q: %w", title, err)
	}

	var id int64
	if err := q.QueryRow(`SELECT id FROM articles WHERE title = ?`, title).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to retrieve article id for %q: %w", title, err)
	}
	return id, nil
}

// lookupArticle returns the id for title without creating it
func lookupArticle(q querier, title string) (int64, bool, error) {
	var id int64
	err := q.QueryRow(`SELECT id FROM articles WHERE title = ?`, title).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up article %q: %w", title, err)
	}
	return id, true, nil
}

// ResolveArticle returns the stable id of title, assigning one on first sight
func (s *Storage) ResolveArticle(title string) (int64, error) {
	return resolveArticle(s.db, title)
}

// GetArticle retrieves an article by title, returns nil if not found
func (s *Storage) GetArticle(title string) (*Article, error) {
	id, ok, err := lookupArticle(s.db, title)
	if err != nil || !ok {
		return nil, err
	}
	return &Article{ID: id, Title: title}, nil
}

// HasCachedEdges reports whether the outgoing links of title are recorded
func (s *Storage) HasCachedEdges(title string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1
			FROM links l
			JOIN articles a ON l.article_id = a.id
			WHERE a.title = ?
		)
	`, title).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check cached edges for %q: %w", title, err)
	}
	return exists, nil
}

// CachedEdges returns the recorded neighbors of title in link order
func (s *Storage) CachedEdges(title string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT t.title
		FROM articles a
		JOIN links l ON l.article_id = a.id
		JOIN articles t ON l.link_id = t.id
		WHERE a.title = ?
		ORDER BY l.link_number ASC
	`, title)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached edges for %q: %w", title, err)
	}
	defer rows.Close()

	return scanTitles(rows)
}

// RecordEdges stores the ordered neighbors of title. Edges are written once
// per article; recording them again is a constraint error.
func (s *Storage) RecordEdges(title string, neighbors []string) error {
	unique := dedupe(neighbors)
	if len(unique) == 0 {
		return fmt.Errorf("failed to record edges for %q: %w", title, ErrNoEdges)
	}

	err := s.withTx(func(tx *sql.Tx) error {
		sourceID, err := resolveArticle(tx, title)
		if err != nil {
			return err
		}

		for i, neighbor := range unique {
			targetID, err := resolveArticle(tx, neighbor)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(`
				INSERT INTO links (article_id, link_number, link_id)
				VALUES (?, ?, ?)
			`, sourceID, i, targetID); err != nil {
				return fmt.Errorf("failed to insert edge %s -> %s: %w", title, neighbor, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record edges for %q: %w", title, err)
	}
	return nil
}

// MarkDeadEnd records that title has no usable outgoing links
func (s *Storage) MarkDeadEnd(title string) error {
	return s.withTx(func(tx *sql.Tx) error {
		id, err := resolveArticle(tx, title)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO dead_ends (article_id) VALUES (?) ON CONFLICT(article_id) DO NOTHING`, id); err != nil {
			return fmt.Errorf("failed to mark dead end %q: %w", title, err)
		}
		return nil
	})
}

// IsDeadEnd reports whether title is marked as a dead end
func (s *Storage) IsDeadEnd(title string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1
			FROM dead_ends d
			JOIN articles a ON d.article_id = a.id
			WHERE a.title = ?
		)
	`, title).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check dead end %q: %w", title, err)
	}
	return exists, nil
}

// DeadEnds returns every article marked as a dead end
func (s *Storage) DeadEnds() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT a.title
		FROM dead_ends d
		JOIN articles a ON d.article_id = a.id
		ORDER BY a.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dead ends: %w", err)
	}
	defer rows.Close()

	return scanTitles(rows)
}

// Report counts the rows of every table
func (s *Storage) Report() (Report, error) {
	var r Report
	counts := []struct {
		table string
		dest  *int
	}{
		{"articles", &r.Articles},
		{"links", &r.Links},
		{"paths", &r.Paths},
		{"dead_ends", &r.DeadEnds},
		{"queue", &r.Queue},
	}

	for _, c := range counts {
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + c.table).Scan(c.dest); err != nil {
			return Report{}, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}
	return r, nil
}

// Vacuum rebuilds the database file
func (s *Storage) Vacuum() error {
	start := time.Now()
	if _, err := s.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	logrus.Infof("Database vacuumed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func scanTitles(rows *sql.Rows) ([]string, error) {
	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating titles: %w", err)
	}
	return titles, nil
}

// dedupe drops empty titles and repeats, keeping first occurrences in order
func dedupe(titles []string) []string {
	seen := make(map[string]bool, len(titles))
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
