package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Rule names kept by the console.
const (
	RuleDraft    = "last_draft"
	RuleDeployed = "last_deployed"
)

// SaveRule stores update-rule source under name, replacing any previous value.
func (s *Store) SaveRule(name, source string) error {
	_, err := s.db.Exec(`
		INSERT INTO rules (name, source, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET source = excluded.source, updated_at = excluded.updated_at
	`, name, source, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save rule: %w", err)
	}
	return nil
}

// GetRule returns the source saved under name. ok is false when nothing was saved.
func (s *Store) GetRule(name string) (source string, ok bool, err error) {
	err = s.db.QueryRow(`SELECT source FROM rules WHERE name = ?`, name).Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get rule: %w", err)
	}
	return source, true, nil
}
