package storage

import (
	"database/sql"
	"fmt"
)

// Enqueue adds title to the backlog, resolving an existing entry with policy
func (s *Storage) Enqueue(title string, priority int, policy UpsertPolicy) error {
	if priority < MinPriority || priority > MaxPriority {
		return fmt.Errorf("failed to enqueue %q with priority %d: %w", title, priority, ErrInvalidPriority)
	}

	return s.withTx(func(tx *sql.Tx) error {
		id, err := resolveArticle(tx, title)
		if err != nil {
			return err
		}

		_, err = tx.Exec(`
			INSERT INTO queue (article_id, priority)
			VALUES (?, ?)
			ON CONFLICT(article_id) DO UPDATE SET priority = excluded.priority
			WHERE CASE ?
				WHEN 'raise' THEN excluded.priority > queue.priority
				WHEN 'lower' THEN excluded.priority < queue.priority
				WHEN 'overwrite' THEN 1
				ELSE 0
			END
		`, id, priority, policy.String())
		if err != nil {
			return fmt.Errorf("failed to enqueue %q (%s): %w", title, policy, err)
		}
		return nil
	})
}

// HighestPriority returns the queued title with the highest priority,
// oldest first among equals. The entry stays queued until Remove.
func (s *Storage) HighestPriority() (string, bool, error) {
	var title string
	err := s.db.QueryRow(`
		SELECT a.title
		FROM queue q
		JOIN articles a ON q.article_id = a.id
		ORDER BY q.priority DESC, q.id ASC
		LIMIT 1
	`).Scan(&title)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query queue head: %w", err)
	}
	return title, true, nil
}

// QueueEntries returns the whole backlog in dequeue order
func (s *Storage) QueueEntries() ([]QueueEntry, error) {
	rows, err := s.db.Query(`
		SELECT a.title, q.priority
		FROM queue q
		JOIN articles a ON q.article_id = a.id
		ORDER BY q.priority DESC, q.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue: %w", err)
	}
	defer rows.Close()

	var entries []QueueEntry
	for rows.Next() {
		var e QueueEntry
		if err := rows.Scan(&e.Title, &e.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue: %w", err)
	}
	return entries, nil
}

// Remove deletes title from the backlog
func (s *Storage) Remove(title string) error {
	_, err := s.db.Exec(`
		DELETE FROM queue
		WHERE article_id = (SELECT id FROM articles WHERE title = ?)
	`, title)
	if err != nil {
		return fmt.Errorf("failed to remove %q from queue: %w", title, err)
	}
	return nil
}

// QueueLength returns the number of backlog entries
func (s *Storage) QueueLength() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM queue").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return n, nil
}

// Priority returns the backlog priority of title, if it is queued
func (s *Storage) Priority(title string) (int, bool, error) {
	var priority int
	err := s.db.QueryRow(`
		SELECT q.priority
		FROM queue q
		JOIN articles a ON q.article_id = a.id
		WHERE a.title = ?
	`, title).Scan(&priority)

	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query priority of %q: %w", title, err)
	}
	return priority, true, nil
}

// MoveToBack puts a queued title behind every entry of the same priority.
// Titles not in the backlog are left alone.
func (s *Storage) MoveToBack(title string) error {
	return s.withTx(func(tx *sql.Tx) error {
		var id int64
		var priority int
		err := tx.QueryRow(`
			SELECT q.article_id, q.priority
			FROM queue q
			JOIN articles a ON q.article_id = a.id
			WHERE a.title = ?
		`, title).Scan(&id, &priority)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to query queue entry %q: %w", title, err)
		}

		if _, err := tx.Exec("DELETE FROM queue WHERE article_id = ?", id); err != nil {
			return fmt.Errorf("failed to move %q to the back: %w", title, err)
		}
		if _, err := tx.Exec("INSERT INTO queue (article_id, priority) VALUES (?, ?)", id, priority); err != nil {
			return fmt.Errorf("failed to move %q to the back: %w", title, err)
		}
		return nil
	})
}
