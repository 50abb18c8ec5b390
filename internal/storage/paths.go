package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// SavePath persists a solved path. A pair that already has a path keeps
// the first one. With deepSave every suffix of at least three articles is
// saved as its own path too. Returns the number of paths written.
func (s *Storage) SavePath(path []string, deepSave bool) (int, error) {
	if len(path) < 2 {
		return 0, ErrPathTooShort
	}

	saved := 0
	err := s.withTx(func(tx *sql.Tx) error {
		ok, err := insertPath(tx, path)
		if err != nil {
			return err
		}
		if ok {
			saved++
		}

		if !deepSave {
			return nil
		}

		for i := 1; len(path)-i >= 3; i++ {
			ok, err := insertPath(tx, path[i:])
			if err != nil {
				return err
			}
			if ok {
				saved++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save path %s: %w", strings.Join(path, " -> "), err)
	}
	return saved, nil
}

// insertPath writes one path and its steps, skipping already solved pairs
func insertPath(tx *sql.Tx, path []string) (bool, error) {
	ids := make([]int64, len(path))
	for i, title := range path {
		id, err := resolveArticle(tx, title)
		if err != nil {
			return false, err
		}
		ids[i] = id
	}

	res, err := tx.Exec(`
		INSERT INTO paths (start_article_id, end_article_id, path_length)
		VALUES (?, ?, ?)
		ON CONFLICT(start_article_id, end_article_id) DO NOTHING
	`, ids[0], ids[len(ids)-1], len(path))
	if err != nil {
		return false, fmt.Errorf("failed to insert path: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		logrus.Infof("Path already saved: %s -> %s", path[0], path[len(path)-1])
		return false, nil
	}

	pathID, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to read path id: %w", err)
	}

	for i, id := range ids {
		if _, err := tx.Exec(`
			INSERT INTO steps (path_id, step_number, article_id)
			VALUES (?, ?, ?)
		`, pathID, i, id); err != nil {
			return false, fmt.Errorf("failed to insert step %d: %w", i, err)
		}
	}

	logrus.Infof("Path saved: %s", strings.Join(path, " -> "))
	return true, nil
}

// PathExists reports whether a path from start to end is solved
func (s *Storage) PathExists(start, end string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1
			FROM paths p
			JOIN articles sa ON p.start_article_id = sa.id
			JOIN articles ea ON p.end_article_id = ea.id
			WHERE sa.title = ? AND ea.title = ?
		)
	`, start, end).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check path %s -> %s: %w", start, end, err)
	}
	return exists, nil
}

// Path returns the solved path from start to end
func (s *Storage) Path(start, end string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT a.title
		FROM paths p
		JOIN articles sa ON p.start_article_id = sa.id
		JOIN articles ea ON p.end_article_id = ea.id
		JOIN steps st ON st.path_id = p.id
		JOIN articles a ON st.article_id = a.id
		WHERE sa.title = ? AND ea.title = ?
		ORDER BY st.step_number ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query path %s -> %s: %w", start, end, err)
	}
	defer rows.Close()

	titles, err := scanTitles(rows)
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		return nil, ErrPathNotFound
	}
	return titles, nil
}

// UnresolvedStarts returns the start titles of solved paths that still lack
// a path to at least one of targets. An empty targets list means every title
// that has ever been a path end. A start never needs a path to itself.
func (s *Storage) UnresolvedStarts(targets []string) ([]string, error) {
	var targetSet string
	args := make([]any, 0, len(targets))

	if len(targets) == 0 {
		targetSet = `
			SELECT DISTINCT e.title
			FROM paths p
			JOIN articles e ON p.end_article_id = e.id`
	} else {
		placeholders := make([]string, len(targets))
		for i, t := range targets {
			placeholders[i] = "(?)"
			args = append(args, t)
		}
		targetSet = "VALUES " + strings.Join(placeholders, ", ")
	}

	query := `
		WITH targets(title) AS (` + targetSet + `),
		starts AS (SELECT DISTINCT start_article_id AS id FROM paths)
		SELECT a.title
		FROM starts s
		JOIN articles a ON a.id = s.id
		WHERE EXISTS (
			SELECT 1
			FROM targets t
			WHERE t.title <> a.title
			AND NOT EXISTS (
				SELECT 1
				FROM paths p
				JOIN articles e ON p.end_article_id = e.id
				WHERE p.start_article_id = s.id AND e.title = t.title
			)
		)
		ORDER BY a.id ASC
	`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved starts: %w", err)
	}
	defer rows.Close()

	return scanTitles(rows)
}
