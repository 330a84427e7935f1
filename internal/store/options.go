// ABOUTME: Site-wide option storage.
// ABOUTME: A flat name/value table, the persistence behind the oEmbed site key.

package store

import (
	"context"
	"database/sql"
	"errors"
)

// ErrOptionNotFound is returned when no option with the given name exists.
var ErrOptionNotFound = errors.New("option not found")

// GetOption returns the stored value for name.
func (s *Store) GetOption(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM options WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrOptionNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// AddOption stores value under name unless a non-empty value is already
// present. It reports whether this call wrote the value.
func (s *Store) AddOption(ctx context.Context, name, value string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO options (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value WHERE options.value = ''
	`, name, value)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteOption removes name. Deleting a missing option is not an error.
func (s *Store) DeleteOption(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM options WHERE name = ?`, name)
	return err
}
